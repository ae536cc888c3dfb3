package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/agentic-research/gitlore/api"
	"github.com/agentic-research/gitlore/internal/gh"
	"github.com/agentic-research/gitlore/internal/resolve"
	"github.com/agentic-research/gitlore/internal/topics"
	"github.com/agentic-research/gitlore/internal/tree"
	"github.com/spf13/cobra"
)

var (
	topicsRootLanguage string
	topicsFocus        string
	topicsInstructions string
	topicsSave         bool
)

func init() {
	topicsCmd.Flags().StringVarP(&topicsRootLanguage, "root-language", "l", "", "Root topic the tree grows under (default from config)")
	topicsCmd.Flags().StringVar(&topicsFocus, "focus", "", "Area to focus topic generation on")
	topicsCmd.Flags().StringVar(&topicsInstructions, "instructions", "", "Extra instructions for the generator")
	topicsCmd.Flags().BoolVar(&topicsSave, "save", false, "Persist the generated topics instead of printing them")
	rootCmd.AddCommand(topicsCmd)
}

var topicsCmd = &cobra.Command{
	Use:   "topics [owner/repo] [sha...]",
	Short: "Generate learning topics from commit diffs",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := args[0]
		shas := args[1:]
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is not set")
		}
		if topicsRootLanguage == "" {
			topicsRootLanguage = cfg.OpenAI.RootLanguage
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		ctx := cmd.Context()
		known, err := st.Subtree(ctx, topicsRootLanguage)
		if err != nil {
			return err
		}
		treeString := tree.Build(known).Render()

		source := gh.New(ctx, cfg.GitHubToken)
		diffs, err := source.CommitDiffs(ctx, repo, shas, true)
		if err != nil {
			return err
		}

		gen := topics.New(cfg.OpenAIKey, cfg.OpenAI.Model)
		cands, err := gen.Generate(ctx, topics.GenerateRequest{
			Repo:          repo,
			Diffs:         diffs,
			RootLanguage:  topicsRootLanguage,
			Instructions:  topicsInstructions,
			FocusArea:     topicsFocus,
			KnowledgeTree: treeString,
			KnownNodes:    known,
		})
		if err != nil {
			return err
		}

		link := gh.CommitLink(repo, shas[0])
		for i := range cands {
			if cands[i].SourceLink == "" {
				cands[i].SourceLink = link
			}
		}

		if !topicsSave {
			return printCandidates(cands)
		}

		results := resolve.New(st).Resolve(ctx, cands)
		failed := 0
		for i, res := range results {
			if res.Err != nil {
				failed++
				fmt.Printf("  FAIL %s: %v\n", cands[i].Path, res.Err)
				continue
			}
			fmt.Printf("  saved %s (%s)\n", cands[i].Path, res.ID)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d topics failed to save", failed, len(results))
		}
		return nil
	},
}

// candidateOut mirrors the HTTP wire shape so CLI output can be piped
// back into save_topics_batch.
type candidateOut struct {
	Path         string   `json:"path"`
	Description  string   `json:"description"`
	CodeExample  string   `json:"code_example,omitempty"`
	UseCases     []string `json:"use_cases,omitempty"`
	SourceLink   string   `json:"source_link,omitempty"`
	TempID       string   `json:"temp_id,omitempty"`
	ParentID     *string  `json:"parent_id"`
	ParentTempID *string  `json:"parent_temp_id"`
}

func printCandidates(cands []api.CandidateTopic) error {
	out := make([]candidateOut, len(cands))
	for i, c := range cands {
		out[i] = candidateOut{
			Path:        c.Path,
			Description: c.Description,
			CodeExample: c.CodeExample,
			UseCases:    c.UseCases,
			SourceLink:  c.SourceLink,
			TempID:      c.TempID,
		}
		switch c.Parent.Kind() {
		case api.ParentExisting:
			id := c.Parent.NodeID()
			out[i].ParentID = &id
		case api.ParentBatch:
			key := c.Parent.TempKey()
			out[i].ParentTempID = &key
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
