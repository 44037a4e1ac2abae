// Package loader reads source documents into a heading outline and flattens
// them into the plain text the pipeline consumes.
package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Document is a loaded source file.
type Document struct {
	Title    string     // From metadata or the file name.
	Sections []*Section // Top-level sections.
}

// Section is one node of the heading outline.
type Section struct {
	Heading  string // Empty for untitled text.
	Text     string
	Page     int // Source page, 0 if not paged.
	Children []*Section
}

// Text flattens the outline in reading order, one block per heading or
// paragraph group.
func (d *Document) Text() string {
	var blocks []string
	var walk func([]*Section)
	walk = func(secs []*Section) {
		for _, s := range secs {
			if h := strings.TrimSpace(s.Heading); h != "" {
				blocks = append(blocks, h)
			}
			if t := strings.TrimSpace(s.Text); t != "" {
				blocks = append(blocks, t)
			}
			walk(s.Children)
		}
	}
	walk(d.Sections)
	return strings.Join(blocks, "\n\n")
}

// Loader converts raw bytes into a Document.
type Loader interface {
	Load(r io.Reader, filename string) (*Document, error)
}

// Options tunes individual loaders.
type Options struct {
	PDFFallbackPdftotext bool
}

var supported = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// IsSupported reports whether filename has an extension a loader handles.
func IsSupported(filename string) bool {
	return supported[strings.ToLower(filepath.Ext(filename))]
}

// ForFile picks the loader for filename.
func ForFile(filename string, opts Options) (Loader, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".txt":
		return &PlainText{}, nil
	case ".md", ".markdown":
		return &Markdown{}, nil
	case ".csv":
		return &CSV{}, nil
	case ".html", ".htm":
		return &HTML{}, nil
	case ".pdf":
		return &PDF{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCX{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// Read loads r with the loader matching filename.
func Read(r io.Reader, filename string, opts Options) (*Document, error) {
	l, err := ForFile(filename, opts)
	if err != nil {
		return nil, err
	}
	doc, err := l.Load(r, filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(filename), err)
	}
	return doc, nil
}

// Open loads the file at path.
func Open(path string, opts Options) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, path, opts)
}

func baseTitle(filename string, exts ...string) string {
	for _, ext := range exts {
		if strings.HasSuffix(strings.ToLower(filename), ext) {
			return filename[:len(filename)-len(ext)]
		}
	}
	return filename
}

// outliner nests sections by heading level and gathers the text between
// headings into the innermost open section.
type outliner struct {
	root  *Section
	stack []frame
	buf   strings.Builder
}

type frame struct {
	sec   *Section
	level int
}

func newOutliner(title string) *outliner {
	root := &Section{Heading: title}
	return &outliner{root: root, stack: []frame{{sec: root}}}
}

func (o *outliner) heading(level int, title string) {
	o.flush()
	sec := &Section{Heading: title}
	for len(o.stack) > 1 && o.stack[len(o.stack)-1].level >= level {
		o.stack = o.stack[:len(o.stack)-1]
	}
	parent := o.stack[len(o.stack)-1].sec
	parent.Children = append(parent.Children, sec)
	o.stack = append(o.stack, frame{sec: sec, level: level})
}

func (o *outliner) text(t string) {
	if t == "" {
		return
	}
	if o.buf.Len() > 0 {
		o.buf.WriteString("\n\n")
	}
	o.buf.WriteString(t)
}

func (o *outliner) flush() {
	t := strings.TrimSpace(o.buf.String())
	o.buf.Reset()
	if t == "" {
		return
	}
	top := o.stack[len(o.stack)-1].sec
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// sections closes the outline. Text before the first heading becomes a
// leading untitled section.
func (o *outliner) sections() []*Section {
	o.flush()
	if o.root.Text == "" {
		return o.root.Children
	}
	return append([]*Section{{Text: o.root.Text}}, o.root.Children...)
}
