package topics

import (
	"fmt"
	"strings"

	"github.com/agentic-research/gitlore/api"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// parseTopics decodes the model's JSON into candidates. Model output is
// untrusted even under a strict schema, so every field access tolerates
// absence or a wrong type.
func parseTopics(content string) ([]api.CandidateTopic, error) {
	root, err := oj.ParseString(content)
	if err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}

	x, err := jp.ParseString("topics[*]")
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath: %w", err)
	}

	var out []api.CandidateTopic
	for i, item := range x.Get(root) {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("topic %d: expected object, got %T", i, item)
		}
		cand := api.CandidateTopic{
			Path:        str(m, "path"),
			Description: str(m, "description"),
			CodeExample: str(m, "code_example"),
			UseCases:    strList(m, "use_cases"),
			TempID:      str(m, "temp_id"),
		}
		if cand.Path == "" {
			return nil, fmt.Errorf("topic %d: empty path", i)
		}
		switch {
		case str(m, "parent_id") != "":
			cand.Parent = api.ExistingParent(str(m, "parent_id"))
		case str(m, "parent_temp_id") != "":
			cand.Parent = api.BatchParent(str(m, "parent_temp_id"))
		default:
			cand.Parent = api.RootRef()
		}
		out = append(out, cand)
	}
	return out, nil
}

// MatchParents rewrites candidate parents onto existing persisted nodes
// by path: when a candidate's second-to-last path segment names a known
// node, that node becomes the parent, overriding any batch reference.
// Path segments never drive ancestry beyond this one matching step;
// the result is always an explicit parent reference.
func MatchParents(cands []api.CandidateTopic, known []api.TopicNode) {
	if len(known) == 0 {
		return
	}
	byName := make(map[string]string, len(known))
	// Earliest node wins for duplicate names; known is creation-ordered.
	for _, n := range known {
		if _, ok := byName[n.Name]; !ok {
			byName[n.Name] = n.ID
		}
	}
	for i, cand := range cands {
		segs := strings.Split(cand.Path, "/")
		if len(segs) < 2 {
			continue
		}
		if id, ok := byName[segs[len(segs)-2]]; ok {
			cands[i].Parent = api.ExistingParent(id)
		}
	}
}

func str(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func strList(m map[string]any, key string) []string {
	items, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
