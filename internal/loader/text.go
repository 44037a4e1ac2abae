package loader

import (
	"bufio"
	"io"
	"strings"
)

// PlainText splits .txt files into paragraphs on blank lines.
type PlainText struct{}

func (PlainText) Load(r io.Reader, filename string) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &Document{Title: baseTitle(filename, ".txt")}
	var para strings.Builder
	emit := func() {
		if para.Len() > 0 {
			doc.Sections = append(doc.Sections, &Section{Text: para.String()})
			para.Reset()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			emit()
			continue
		}
		if para.Len() > 0 {
			para.WriteString("\n")
		}
		para.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	emit()
	return doc, nil
}
