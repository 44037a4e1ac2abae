package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

const csvRowsPerSection = 20

// CSV renders rows as "header: value" lines in sections of twenty rows.
type CSV struct{}

func (CSV) Load(r io.Reader, filename string) (*Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &Document{Title: baseTitle(filename, ".csv")}
	if len(records) == 0 {
		return doc, nil
	}

	headers, rows := records[0], records[1:]
	for start := 0; start < len(rows); start += csvRowsPerSection {
		end := min(start+csvRowsPerSection, len(rows))
		var sb strings.Builder
		for _, row := range rows[start:end] {
			cells := make([]string, 0, len(row))
			for j, cell := range row {
				if j < len(headers) && headers[j] != "" {
					cell = headers[j] + ": " + cell
				}
				cells = append(cells, cell)
			}
			sb.WriteString(strings.Join(cells, ", "))
			sb.WriteString("\n")
		}
		doc.Sections = append(doc.Sections, &Section{Text: strings.TrimSpace(sb.String())})
	}
	return doc, nil
}
