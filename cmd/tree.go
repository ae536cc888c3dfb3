package cmd

import (
	"fmt"

	"github.com/agentic-research/gitlore/internal/tree"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(treeCmd)
}

var treeCmd = &cobra.Command{
	Use:   "tree [root]",
	Short: "Print the knowledge tree under a root topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		nodes, err := st.Subtree(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(nodes) == 0 {
			fmt.Printf("No topics under %q\n", args[0])
			return nil
		}
		fmt.Println(tree.Build(nodes).Render())
		return nil
	},
}
