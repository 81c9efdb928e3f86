package main

import (
	"fmt"
	"os"

	"github.com/aretw0/grove/internal/presentation/graph"
	"github.com/aretw0/grove/internal/presentation/tui"
	"github.com/aretw0/grove/pkg/workspace/personal"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the collection tree",
	Long: `Loads the collection tree (seed file or stored snapshot) and prints it as
a rendered outline, or as a Mermaid diagram with --format mermaid.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := bootstrap(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		tree := a.grove.Store().State()
		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "outline":
			if f, ok := cmd.OutOrStdout().(*os.File); ok {
				return tui.PrintTree(f, personal.WorkspaceName, tree)
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), tui.Outline(personal.WorkspaceName, tree))
			return err
		case "mermaid":
			_, err := fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(tree, nil))
			return err
		default:
			return fmt.Errorf("unknown format %q (want outline or mermaid)", format)
		}
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().StringP("format", "f", "outline", "Output format: outline or mermaid")
}
