// Command tn manages a folder of plain-text task files: one Markdown file
// per task with YAML frontmatter, synced into a queryable SQLite mirror.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var vaultFlag string

var rootCmd = &cobra.Command{
	Use:   "tn",
	Short: "Plain-file task management with folder sync",
	Long: `tn keeps tasks as Markdown files with YAML frontmatter in a folder
you own (the vault), typically shared through a file sync tool. It watches
the folder, reconciles changes into a local SQLite index, and surfaces
sync conflicts instead of silently overwriting concurrent edits.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&vaultFlag, "vault", ".", "vault root directory")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
