// Package main is the entry point for the mdupload CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kyaoi/mdupload/internal/app"
	"github.com/kyaoi/mdupload/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	settings = config.New()
	cfg      config.Config
)

// rootCmd is the base command for the mdupload CLI.
var rootCmd = &cobra.Command{
	Use:   "mdupload [path]",
	Short: "Upload Markdown files to a conversion server and download the Word result",
	Long: `mdupload is a terminal client for a Markdown to Word conversion server.

Pick a Markdown file from the tree rooted at path (a directory, or a file to
preselect), paste or drag a file path onto the terminal, or drop files into
the --drop-dir folder. Choose the table of contents and highlight options,
convert, and download the .docx into --output-dir.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		target := ""
		if len(args) == 1 {
			target = filepath.Clean(args[0])
		}
		return app.Run(cmd.Context(), cfg, target)
	},
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
}

func loadConfig(cmd *cobra.Command) error {
	if err := config.BindFlags(settings, cmd.Flags()); err != nil {
		return err
	}
	cfgFile, _ := cmd.Flags().GetString("config")
	used, err := config.ReadFile(settings, cfgFile)
	if err != nil {
		return err
	}
	if used != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", used)
	}
	cfg, err = config.Load(settings)
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
