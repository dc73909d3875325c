// Package preview builds the client-side look at a selected Markdown file:
// its frontmatter, the table of contents the server will generate, the
// rendered body and a sample of the chosen code highlight style.
package preview

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/kyaoi/mdupload/internal/upload"
)

// Meta is the subset of YAML frontmatter the preview shows.
type Meta struct {
	Title string   `yaml:"title"`
	Tags  []string `yaml:"tags"`
}

// Heading is one outline entry.
type Heading struct {
	Level int
	Text  string
}

// Document is a parsed Markdown file.
type Document struct {
	Meta Meta
	Body []byte
}

// Load reads f and parses it. Files above the upload limit are refused so a
// bad selection never pulls a huge file into memory.
func Load(f upload.File) (Document, error) {
	r, err := f.Reader()
	if err != nil {
		return Document{}, err
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, upload.MaxFileSize+1))
	if err != nil {
		return Document{}, err
	}
	if int64(len(data)) > upload.MaxFileSize {
		return Document{}, upload.ErrFileTooLarge
	}
	return Parse(data)
}

// Parse splits data into frontmatter and body. Missing frontmatter is fine.
func Parse(data []byte) (Document, error) {
	var meta Meta
	body, err := frontmatter.Parse(bytes.NewReader(data), &meta)
	if err != nil {
		return Document{}, fmt.Errorf("frontmatter: %w", err)
	}
	return Document{Meta: meta, Body: body}, nil
}

// Outline returns the headings of body down to depth levels.
func Outline(body []byte, depth int) []Heading {
	doc := goldmark.New().Parser().Parse(text.NewReader(body))

	var headings []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if h.Level <= depth {
			headings = append(headings, Heading{Level: h.Level, Text: inlineText(h, body)})
		}
		return ast.WalkSkipChildren, nil
	})
	return headings
}

func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		default:
			b.WriteString(inlineText(c, source))
		}
	}
	return b.String()
}

// FormatOutline renders headings as an indented list.
func FormatOutline(headings []Heading) string {
	if len(headings) == 0 {
		return "(見出しなし)"
	}
	minLevel := headings[0].Level
	for _, h := range headings {
		if h.Level < minLevel {
			minLevel = h.Level
		}
	}
	lines := make([]string, 0, len(headings))
	for _, h := range headings {
		lines = append(lines, strings.Repeat("  ", h.Level-minLevel)+"• "+h.Text)
	}
	return strings.Join(lines, "\n")
}

// Render renders body for the terminal, wrapped at width (0 disables wrapping).
func Render(body []byte, width int) (string, error) {
	if width < 0 {
		width = 0
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(glamourstyles.TokyoNightStyle),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(string(body))
}

// chromaStyles maps the server's highlight style names onto the closest
// chroma style for previewing.
var chromaStyles = map[string]string{
	"pygments":   "pygments",
	"tango":      "tango",
	"espresso":   "monokai",
	"zenburn":    "native",
	"kate":       "friendly",
	"monochrome": "bw",
	"breezedark": "dracula",
	"haddock":    "emacs",
}

const sampleCode = `func greet(name string) string {
	// say hello
	return "hello, " + name
}`

// StyleSample highlights a short Go snippet in the named style.
func StyleSample(name string) (string, error) {
	style := styles.Get(chromaStyles[name])
	if style == nil {
		style = styles.Fallback
	}
	lexer := lexers.Get("go")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	it, err := lexer.Tokenise(nil, sampleCode)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, it); err != nil {
		return "", err
	}
	return buf.String(), nil
}
