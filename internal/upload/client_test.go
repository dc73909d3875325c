package upload

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	mu       sync.Mutex
	resp     Response
	err      error
	converts []Submission
	cleanups []string
	cleanErr error

	// byName overrides resp per uploaded file name.
	byName map[string]Response
}

func (f *fakeServer) Convert(_ context.Context, file File, opts ConversionOptions) (Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.converts = append(f.converts, Submission{File: file, Options: opts})
	if resp, ok := f.byName[file.Name]; ok {
		return resp, f.err
	}
	return f.resp, f.err
}

func (f *fakeServer) Cleanup(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups = append(f.cleanups, name)
	return f.cleanErr
}

func (f *fakeServer) convertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.converts)
}

func (f *fakeServer) cleanupNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cleanups...)
}

type navigation struct {
	url      string
	filename string
}

type fakeNavigator struct {
	mu    sync.Mutex
	err   error
	calls []navigation
}

func (f *fakeNavigator) Navigate(_ context.Context, rawURL, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, navigation{url: rawURL, filename: filename})
	return f.err
}

func memFile(name string, size int64) File {
	return File{
		Name: name,
		Size: size,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("# title\n")), nil
		},
	}
}

func newTestClient(server *fakeServer, nav *fakeNavigator) *Client {
	return NewClient(server, nav, WithCleanupDelay(time.Millisecond))
}

func TestIsMarkdownName(t *testing.T) {
	cases := map[string]bool{
		"notes.md":       true,
		"notes.markdown": true,
		"a.b.md":         true,
		"notes.txt":      false,
		"notes.md.txt":   false,
		"notes.mdx":      false,
		"NOTES.MD":       false,
		"md":             false,
		"":               false,
	}
	for name, want := range cases {
		assert.Equal(t, want, IsMarkdownName(name), name)
	}
}

func TestSelectFile_RejectsExtension(t *testing.T) {
	c := newTestClient(&fakeServer{}, &fakeNavigator{})
	for _, name := range []string{"a.txt", "a.docx", "a", "a.md.bak"} {
		s := c.SelectFile(NewSession(), []File{memFile(name, 10)})
		assert.Equal(t, PanelError, s.Panel, name)
		assert.Nil(t, s.SelectedFile, name)
		assert.Equal(t, ErrUnsupportedExtension.Error(), s.ErrorText, name)
	}
}

func TestSelectFile_RejectsOversized(t *testing.T) {
	c := newTestClient(&fakeServer{}, &fakeNavigator{})
	for _, name := range []string{"big.md", "big.markdown", "big.txt"} {
		s := c.SelectFile(NewSession(), []File{memFile(name, MaxFileSize+1)})
		assert.Equal(t, PanelError, s.Panel, name)
		assert.Nil(t, s.SelectedFile, name)
	}
}

func TestSelectFile_KeepsPreviousSelectionOnReject(t *testing.T) {
	c := newTestClient(&fakeServer{}, &fakeNavigator{})
	s := c.SelectFile(NewSession(), []File{memFile("first.md", 1)})
	require.NotNil(t, s.SelectedFile)

	s = c.SelectFile(s, []File{memFile("second.txt", 1)})
	assert.Equal(t, PanelError, s.Panel)
	require.NotNil(t, s.SelectedFile)
	assert.Equal(t, "first.md", s.SelectedFile.Name)
}

func TestSelectFile_Accepts(t *testing.T) {
	c := newTestClient(&fakeServer{}, &fakeNavigator{})
	s := c.SelectFile(NewSession(), []File{memFile("doc.md", MaxFileSize), memFile("ignored.md", 1)})

	assert.Equal(t, PanelOptions, s.Panel)
	require.NotNil(t, s.SelectedFile)
	assert.Equal(t, "doc.md", s.SelectedFile.Name)
	assert.Contains(t, s.Status, "doc.md")
}

func TestSelectFile_EmptyListIsNoop(t *testing.T) {
	c := newTestClient(&fakeServer{}, &fakeNavigator{})
	s := NewSession()
	assert.Equal(t, s, c.SelectFile(s, nil))
}

func TestConvert_WithoutFile(t *testing.T) {
	server := &fakeServer{}
	c := newTestClient(server, &fakeNavigator{})

	s := c.Convert(context.Background(), NewSession())

	assert.Equal(t, PanelError, s.Panel)
	assert.Equal(t, ErrNoFile.Error(), s.ErrorText)
	assert.Zero(t, server.convertCount())
}

func TestBeginConvert_ShowsProgress(t *testing.T) {
	c := newTestClient(&fakeServer{}, &fakeNavigator{})
	s := c.SelectFile(NewSession(), []File{memFile("doc.md", 5)})
	s.Options.GenerateTOC = false
	s.Options.HighlightStyle = "zenburn"

	s, sub := c.BeginConvert(s)

	assert.Equal(t, PanelProgress, s.Panel)
	require.NotNil(t, sub)
	assert.Equal(t, "doc.md", sub.File.Name)
	assert.False(t, sub.Options.GenerateTOC)
	assert.Equal(t, TOCDepth, sub.Options.TOCDepth)
	assert.Equal(t, "zenburn", sub.Options.HighlightStyle)
}

func TestConvertAndDownload_Success(t *testing.T) {
	server := &fakeServer{resp: Response{
		Success:     true,
		Message:     "OK",
		DownloadURL: "/files/x.docx",
		Filename:    "x.docx",
	}}
	nav := &fakeNavigator{}
	c := newTestClient(server, nav)

	s := c.SelectFile(NewSession(), []File{memFile("x.md", 5)})
	s = c.Convert(context.Background(), s)

	assert.Equal(t, PanelResult, s.Panel)
	assert.Equal(t, "OK", s.ResultText)
	assert.Equal(t, "/files/x.docx", s.DownloadURL)
	assert.Equal(t, "x.docx", s.Filename)

	s = c.Download(context.Background(), s)
	c.Wait()

	assert.Equal(t, PanelResult, s.Panel)
	assert.Equal(t, []navigation{{url: "/files/x.docx", filename: "x.docx"}}, nav.calls)
	assert.Equal(t, []string{"x.docx"}, server.cleanupNames())
	assert.Contains(t, s.Status, "x.docx")
}

func TestConvert_ServerFailure(t *testing.T) {
	server := &fakeServer{resp: Response{Success: false, Message: "bad format"}}
	c := newTestClient(server, &fakeNavigator{})

	s := c.SelectFile(NewSession(), []File{memFile("x.md", 5)})
	s = c.Convert(context.Background(), s)

	assert.Equal(t, PanelError, s.Panel)
	assert.Equal(t, "bad format", s.ErrorText)
	assert.Empty(t, s.DownloadURL)
}

func TestConvert_ServerFailureWithoutMessage(t *testing.T) {
	server := &fakeServer{resp: Response{Success: false}}
	c := newTestClient(server, &fakeNavigator{})

	s := c.SelectFile(NewSession(), []File{memFile("x.md", 5)})
	s = c.Convert(context.Background(), s)

	assert.Equal(t, PanelError, s.Panel)
	assert.Equal(t, ErrConversionFailed.Error(), s.ErrorText)
}

func TestConvert_TransportFailure(t *testing.T) {
	server := &fakeServer{err: errors.New("connection refused")}
	c := newTestClient(server, &fakeNavigator{})

	s := c.SelectFile(NewSession(), []File{memFile("x.md", 5)})
	s = c.Convert(context.Background(), s)

	assert.Equal(t, PanelError, s.Panel)
	assert.Equal(t, ErrNetwork.Error(), s.ErrorText)
}

func TestDownload_WithoutURL(t *testing.T) {
	server := &fakeServer{}
	nav := &fakeNavigator{}
	c := newTestClient(server, nav)

	s := c.Download(context.Background(), NewSession())
	c.Wait()

	assert.Equal(t, PanelError, s.Panel)
	assert.Equal(t, ErrNoDownload.Error(), s.ErrorText)
	assert.Empty(t, nav.calls)
	assert.Empty(t, server.cleanupNames())
}

func TestDownload_NavigationFailureSkipsCleanup(t *testing.T) {
	server := &fakeServer{}
	nav := &fakeNavigator{err: errors.New("disk full")}
	c := newTestClient(server, nav)

	s := NewSession()
	s.DownloadURL = "/api/download/x.docx"
	s = s.Show(PanelResult)
	s = c.Download(context.Background(), s)
	c.Wait()

	assert.Equal(t, PanelResult, s.Panel)
	assert.Contains(t, s.Status, "disk full")
	assert.Empty(t, server.cleanupNames())
}

func TestDownload_CleanupErrorIsSwallowed(t *testing.T) {
	server := &fakeServer{cleanErr: errors.New("boom")}
	nav := &fakeNavigator{}
	c := newTestClient(server, nav)

	s := NewSession()
	s.DownloadURL = "/api/download/report.docx"
	s = c.Download(context.Background(), s)
	c.Wait()

	assert.Equal(t, []string{"report.docx"}, server.cleanupNames())
	assert.Equal(t, "report.docx", nav.calls[0].filename)
	assert.Contains(t, s.Status, "report.docx")
}

func TestDownload_CleanupWaitsForDelay(t *testing.T) {
	server := &fakeServer{}
	c := NewClient(server, &fakeNavigator{})
	release := make(chan time.Time)
	var gotDelay time.Duration
	c.after = func(d time.Duration) <-chan time.Time {
		gotDelay = d
		return release
	}

	s := NewSession()
	s.DownloadURL = "/files/x.docx"
	c.Download(context.Background(), s)

	assert.Empty(t, server.cleanupNames())
	close(release)
	c.Wait()

	assert.Equal(t, DefaultCleanupDelay, gotDelay)
	assert.Equal(t, []string{"x.docx"}, server.cleanupNames())
}

func TestReset(t *testing.T) {
	server := &fakeServer{resp: Response{Success: true, Message: "OK", DownloadURL: "/files/x.docx", Filename: "x.docx"}}
	c := newTestClient(server, &fakeNavigator{})

	s := c.SelectFile(NewSession(), []File{memFile("x.md", 5)})
	s.Options.GenerateTOC = false
	s.Options.HighlightStyle = "kate"
	s.DropActive = true
	s = c.Convert(context.Background(), s)
	require.Equal(t, PanelResult, s.Panel)

	s = c.Reset(s)

	assert.Equal(t, PanelUpload, s.Panel)
	assert.Nil(t, s.SelectedFile)
	assert.Empty(t, s.DownloadURL)
	assert.Empty(t, s.Filename)
	assert.False(t, s.DropActive)
	assert.True(t, s.Options.GenerateTOC)
	assert.Equal(t, "tango", s.Options.HighlightStyle)
	assert.Equal(t, PromptText, s.Status)
	assert.Equal(t, NewSession(), s)
}

func TestPanelsAreExclusive(t *testing.T) {
	s := NewSession()
	for _, p := range Panels {
		s = s.Show(p)
		visible := 0
		for _, q := range Panels {
			if s.Visible(q) {
				visible++
			}
		}
		assert.Equal(t, 1, visible, p.ID())
		assert.True(t, s.Visible(p))
	}
}

func TestPanelIDs(t *testing.T) {
	ids := make([]string, 0, len(Panels))
	for _, p := range Panels {
		ids = append(ids, p.ID())
	}
	assert.Equal(t, []string{"uploadSection", "optionsSection", "progressSection", "resultSection", "errorSection"}, ids)
}

func TestCleanupName(t *testing.T) {
	cases := map[string]string{
		"/files/x.docx":                             "x.docx",
		"/api/download/report.docx":                 "report.docx",
		"http://localhost:5000/api/download/a.docx": "a.docx",
		"x.docx":                                    "x.docx",
		"/api/download/a%20b.docx":                  "a b.docx",
		"":                                          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanupName(in), in)
	}
}
