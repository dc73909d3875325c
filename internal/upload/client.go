package upload

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"
)

// DefaultCleanupDelay is how long after a download the cleanup call is sent.
const DefaultCleanupDelay = time.Second

// Response is the decoded body of a conversion request.
type Response struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	DownloadURL string `json:"download_url,omitempty"`
	Filename    string `json:"filename,omitempty"`
}

// Server is the conversion endpoint as seen by the client.
type Server interface {
	Convert(ctx context.Context, f File, opts ConversionOptions) (Response, error)
	Cleanup(ctx context.Context, name string) error
}

// Navigator fetches an artifact the way a browser follows a download link.
type Navigator interface {
	Navigate(ctx context.Context, rawURL, filename string) error
}

// Submission is a conversion request that has passed the client-side checks.
type Submission struct {
	File    File
	Options ConversionOptions
}

// Outcome is what came back from the server for a Submission.
type Outcome struct {
	Response Response
	Err      error
}

// Link identifies a downloadable artifact.
type Link struct {
	URL      string
	Filename string
}

// Client runs the workflow operations. It keeps no session of its own and
// is safe to share between goroutines.
type Client struct {
	server       Server
	nav          Navigator
	logger       *slog.Logger
	cleanupDelay time.Duration
	after        func(time.Duration) <-chan time.Time

	wg sync.WaitGroup
}

// Option configures a Client.
type Option func(*Client)

// WithCleanupDelay sets the delay between a download and its cleanup call.
func WithCleanupDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.cleanupDelay = d
		}
	}
}

// WithLogger sets the logger used for workflow events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns a Client talking to server and downloading through nav.
func NewClient(server Server, nav Navigator, opts ...Option) *Client {
	c := &Client{
		server:       server,
		nav:          nav,
		logger:       slog.New(slog.DiscardHandler),
		cleanupDelay: DefaultCleanupDelay,
		after:        time.After,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SelectFile takes the first of files. A file failing validation leaves the
// selection untouched and shows the Error panel.
func (c *Client) SelectFile(s Session, files []File) Session {
	if len(files) == 0 {
		return s
	}
	f := files[0]
	if err := ValidateFile(f); err != nil {
		c.logger.Info("file rejected", "name", f.Name, "size", f.Size, "reason", err)
		return s.ShowError(err.Error())
	}

	s.SelectedFile = &f
	s.Status = fmt.Sprintf("選択中: %s", f.Name)
	return s.Show(PanelOptions)
}

// BeginConvert validates that a file is selected and switches to Progress.
// The returned submission is nil when there is nothing to send.
func (c *Client) BeginConvert(s Session) (Session, *Submission) {
	if s.SelectedFile == nil {
		return s.ShowError(ErrNoFile.Error()), nil
	}
	opts := s.Options
	opts.TOCDepth = TOCDepth
	if opts.HighlightStyle == "" {
		opts.HighlightStyle = DefaultHighlightStyle
	}
	sub := &Submission{File: *s.SelectedFile, Options: opts}
	return s.Show(PanelProgress), sub
}

// Submit sends sub to the server. It does not touch any session.
func (c *Client) Submit(ctx context.Context, sub Submission) Outcome {
	c.logger.Info("conversion started",
		"name", sub.File.Name,
		"toc", sub.Options.GenerateTOC,
		"toc_depth", sub.Options.TOCDepth,
		"highlight_style", sub.Options.HighlightStyle)

	resp, err := c.server.Convert(ctx, sub.File, sub.Options)
	if err != nil {
		c.logger.Error("conversion request failed", "name", sub.File.Name, "error", err)
		return Outcome{Err: err}
	}
	c.logger.Info("conversion finished", "name", sub.File.Name, "success", resp.Success, "message", resp.Message)
	return Outcome{Response: resp}
}

// FinishConvert applies out to s.
func (c *Client) FinishConvert(s Session, out Outcome) Session {
	if out.Err != nil {
		return s.ShowError(ErrNetwork.Error())
	}
	resp := out.Response
	if !resp.Success {
		message := resp.Message
		if message == "" {
			message = ErrConversionFailed.Error()
		}
		return s.ShowError(message)
	}

	s.DownloadURL = resp.DownloadURL
	s.Filename = resp.Filename
	s.ResultText = resp.Message
	return s.Show(PanelResult)
}

// Convert runs BeginConvert, Submit and FinishConvert back to back.
func (c *Client) Convert(ctx context.Context, s Session) Session {
	s, sub := c.BeginConvert(s)
	if sub == nil {
		return s
	}
	return c.FinishConvert(s, c.Submit(ctx, *sub))
}

// BeginDownload returns the link to fetch, or shows the Error panel when the
// session holds no download URL.
func (c *Client) BeginDownload(s Session) (Session, *Link) {
	if s.DownloadURL == "" {
		return s.ShowError(ErrNoDownload.Error()), nil
	}
	filename := s.Filename
	if filename == "" {
		filename = CleanupName(s.DownloadURL)
	}
	return s, &Link{URL: s.DownloadURL, Filename: filename}
}

// Fetch navigates to link and, once that succeeds, schedules the cleanup
// call in the background.
func (c *Client) Fetch(ctx context.Context, link Link) error {
	if err := c.nav.Navigate(ctx, link.URL, link.Filename); err != nil {
		c.logger.Error("download failed", "url", link.URL, "error", err)
		return fmt.Errorf("download %s: %w", link.URL, err)
	}
	c.scheduleCleanup(CleanupName(link.URL))
	return nil
}

// Download runs BeginDownload and Fetch. A failed fetch is reported on the
// status line; the panel stays where it is.
func (c *Client) Download(ctx context.Context, s Session) Session {
	s, link := c.BeginDownload(s)
	if link == nil {
		return s
	}
	s.Status = downloadStatus(link.Filename, c.Fetch(ctx, *link))
	return s
}

func downloadStatus(filename string, err error) string {
	if err != nil {
		return fmt.Sprintf("ダウンロード失敗: %v", err)
	}
	return fmt.Sprintf("ダウンロード完了: %s", filename)
}

// Reset returns s to its initial values and shows the Upload panel.
func (c *Client) Reset(s Session) Session {
	s.SelectedFile = nil
	s.DownloadURL = ""
	s.Filename = ""
	s.ErrorText = ""
	s.ResultText = ""
	s.DropActive = false
	s.Options = DefaultOptions()
	s.Status = PromptText
	return s.Show(PanelUpload)
}

// Wait blocks until every scheduled cleanup call has returned.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) scheduleCleanup(name string) {
	if name == "" {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-c.after(c.cleanupDelay)
		if err := c.server.Cleanup(context.Background(), name); err != nil {
			c.logger.Debug("cleanup ignored", "name", name, "error", err)
		}
	}()
}

// CleanupName returns the trailing path segment of a download URL.
func CleanupName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		base := path.Base(u.Path)
		if base == "/" || base == "." {
			return ""
		}
		return base
	}
	if i := strings.LastIndex(rawURL, "/"); i >= 0 {
		return rawURL[i+1:]
	}
	return rawURL
}
