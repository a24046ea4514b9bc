package system

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

const defaultDocsDir = "docs/cli"

func NewGenDocsCommand() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "gendocs",
		Short: "Write a Markdown page per notifyhub command",
		Long: `Walks the notifyhub command tree (worker, system and their
subcommands) and writes one Markdown page per command into --outdir.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := filepath.Abs(outDir)
			if err != nil {
				return fmt.Errorf("resolve %q: %w", outDir, err)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
			if err := doc.GenMarkdownTree(cmd.Root(), dir); err != nil {
				return fmt.Errorf("generate docs: %w", err)
			}
			cmd.Printf("wrote CLI docs to %s\n", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "outdir", defaultDocsDir, "directory for the generated pages")
	return cmd
}
