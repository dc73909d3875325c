package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kyaoi/mdupload/internal/config"
	"github.com/kyaoi/mdupload/internal/upload"
)

var ErrUnknownHighlightStyle = errors.New("unknown highlight style")

// Convert uploads the Markdown file at path without the terminal UI,
// downloads the result into cfg.OutputDir and waits for the cleanup call.
// Progress is written to out, logs go to cfg.LogFile or errOut.
func Convert(ctx context.Context, cfg config.Config, path string, opts upload.ConversionOptions, out, errOut io.Writer) error {
	if !upload.IsHighlightStyle(opts.HighlightStyle) {
		return fmt.Errorf("%w: %q", ErrUnknownHighlightStyle, opts.HighlightStyle)
	}

	logger, closeLog, err := newLogger(cfg, errOut)
	if err != nil {
		return err
	}
	defer closeLog()

	_, client, err := newClients(cfg, logger)
	if err != nil {
		return err
	}

	file, err := upload.LocalFile(path)
	if err != nil {
		return err
	}
	if err := upload.ValidateFile(file); err != nil {
		return err
	}
	s := client.SelectFile(upload.NewSession(), []upload.File{file})
	s.Options = opts

	fmt.Fprintf(out, "変換中: %s\n", file.Name)
	s, sub := client.BeginConvert(s)
	if sub == nil {
		return upload.ErrNoFile
	}
	outcome := client.Submit(ctx, *sub)
	switch {
	case outcome.Err != nil:
		return fmt.Errorf("%w: %v", upload.ErrNetwork, outcome.Err)
	case !outcome.Response.Success:
		if outcome.Response.Message == "" {
			return upload.ErrConversionFailed
		}
		return fmt.Errorf("%w: %s", upload.ErrConversionFailed, outcome.Response.Message)
	}
	s = client.FinishConvert(s, outcome)
	fmt.Fprintln(out, s.ResultText)

	s, link := client.BeginDownload(s)
	if link == nil {
		return upload.ErrNoDownload
	}
	if err := client.Fetch(ctx, *link); err != nil {
		return err
	}
	fmt.Fprintf(out, "ダウンロード完了: %s\n", link.Filename)

	client.Wait()
	return nil
}

// Health prints the server's health report to out.
func Health(ctx context.Context, cfg config.Config, out io.Writer) error {
	logger, closeLog, err := newLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer closeLog()

	server, _, err := newClients(cfg, logger)
	if err != nil {
		return err
	}
	info, err := healthCheck(server, cfg.HealthTimeout)(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.Server, err)
	}
	fmt.Fprintf(out, "%s: %s\n", cfg.Server, info)
	return nil
}
