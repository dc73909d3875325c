// Package api talks to the Markdown conversion server over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kyaoi/mdupload/internal/upload"
)

const (
	healthPath  = "/api/health"
	convertPath = "/api/convert"
	cleanupPath = "/api/cleanup/"

	defaultUserAgent = "mdupload/1.0"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrInvalidResponse  = errors.New("invalid response body")
	ErrEmptyFilename    = errors.New("no filename for download")
)

// Health is the body returned by the health endpoint.
type Health struct {
	Status  string `json:"status"`
	App     string `json:"app"`
	Version string `json:"version"`
}

// Client is an HTTP client for one conversion server.
type Client struct {
	base      *url.URL
	http      *http.Client
	outputDir string
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithOutputDir sets the directory downloads are written into.
func WithOutputDir(dir string) Option {
	return func(c *Client) {
		if dir != "" {
			c.outputDir = dir
		}
	}
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("server url %q must be absolute", baseURL)
	}
	c := &Client{
		base:      base,
		http:      &http.Client{},
		outputDir: ".",
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Resolve turns a possibly relative server URL into an absolute one.
func (c *Client) Resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", ref, err)
	}
	return c.base.ResolveReference(u).String(), nil
}

// Health queries the health endpoint.
func (c *Client) Health(ctx context.Context) (Health, error) {
	resp, err := c.do(ctx, http.MethodGet, healthPath, nil, "")
	if err != nil {
		return Health{}, fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Health{}, fmt.Errorf("health: %w %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return Health{}, fmt.Errorf("health: %w: %v", ErrInvalidResponse, err)
	}
	return h, nil
}

// Convert uploads f with opts. The body is decoded whatever the status code,
// since the server reports failures as JSON with a 4xx or 5xx status.
func (c *Client) Convert(ctx context.Context, f upload.File, opts upload.ConversionOptions) (upload.Response, error) {
	body, contentType, err := convertForm(f, opts)
	if err != nil {
		return upload.Response{}, err
	}

	resp, err := c.do(ctx, http.MethodPost, convertPath, body, contentType)
	if err != nil {
		return upload.Response{}, fmt.Errorf("convert request: %w", err)
	}
	defer resp.Body.Close()

	var out upload.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return upload.Response{}, fmt.Errorf("convert (status %d): %w: %v", resp.StatusCode, ErrInvalidResponse, err)
	}
	return out, nil
}

func convertForm(f upload.File, opts upload.ConversionOptions) (io.Reader, string, error) {
	src, err := f.Reader()
	if err != nil {
		return nil, "", fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer src.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", f.Name)
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", f.Name, err)
	}

	fields := [][2]string{
		{"generate_toc", strconv.FormatBool(opts.GenerateTOC)},
		{"toc_depth", strconv.Itoa(opts.TOCDepth)},
		{"highlight_style", opts.HighlightStyle},
	}
	for _, field := range fields {
		if err := w.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", field[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// Download fetches rawURL and stores the body in the output directory under
// the base name of filename. It returns the written path.
func (c *Client) Download(ctx context.Context, rawURL, filename string) (string, error) {
	if filename == "" {
		filename = upload.CleanupName(rawURL)
	}
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." {
		return "", ErrEmptyFilename
	}

	resp, err := c.do(ctx, http.MethodGet, rawURL, nil, "")
	if err != nil {
		return "", fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("download: %w %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	dest := filepath.Join(c.outputDir, name)
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", dest, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dest)
		return "", fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", dest, err)
	}
	return dest, nil
}

// Navigate implements upload.Navigator by downloading into the output
// directory.
func (c *Client) Navigate(ctx context.Context, rawURL, filename string) error {
	_, err := c.Download(ctx, rawURL, filename)
	return err
}

// Cleanup asks the server to delete the named artifact. The response body is
// discarded.
func (c *Client) Cleanup(ctx context.Context, name string) error {
	resp, err := c.do(ctx, http.MethodPost, path.Join(cleanupPath, url.PathEscape(name)), nil, "")
	if err != nil {
		return fmt.Errorf("cleanup request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("cleanup: %w %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, ref string, body io.Reader, contentType string) (*http.Response, error) {
	target, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.http.Do(req)
}
