package main

import (
	"github.com/spf13/cobra"

	"github.com/kyaoi/mdupload/internal/app"
	"github.com/kyaoi/mdupload/internal/upload"
)

var (
	flagTOC            bool
	flagHighlightStyle string
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert a Markdown file without the terminal UI",
	Long: `Convert uploads one Markdown file, saves the converted document into
--output-dir and asks the server to delete its copy afterwards.

Examples:
  mdupload convert notes.md
  mdupload convert notes.md --toc=false --highlight-style zenburn -o ./out`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := upload.DefaultOptions()
		opts.GenerateTOC = flagTOC
		opts.HighlightStyle = flagHighlightStyle
		return app.Convert(cmd.Context(), cfg, args[0], opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	d := upload.DefaultOptions()
	convertCmd.Flags().BoolVar(&flagTOC, "toc", d.GenerateTOC, "generate a table of contents")
	convertCmd.Flags().StringVar(&flagHighlightStyle, "highlight-style", d.HighlightStyle, "code highlight style: pygments, tango, espresso, zenburn, kate, monochrome, breezedark or haddock")

	rootCmd.AddCommand(convertCmd)
}
