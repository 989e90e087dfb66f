package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/mdchunk/internal/doctree"
)

// csvBatchSize is the number of data rows rendered per section.
const csvBatchSize = 20

// CSVLoader renders a CSV file as pipe tables, one section per batch of
// rows, each repeating the header row.
type CSVLoader struct{}

func (l *CSVLoader) Load(r io.Reader, filename string) (Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return Document{}, fmt.Errorf("parse csv: %w", err)
	}

	tree := &doctree.DocTree{Title: baseTitle(filename)}
	if len(records) == 0 {
		return Document{Title: tree.Title}, nil
	}

	headers := normalizeHeaders(records)
	rows := records[1:]
	if len(rows) == 0 {
		tree.Children = []*doctree.DocNode{{Text: pipeTable(headers, nil)}}
	}
	for i := 0; i < len(rows); i += csvBatchSize {
		end := min(i+csvBatchSize, len(rows))
		tree.Children = append(tree.Children, &doctree.DocNode{
			Title: fmt.Sprintf("Rows %d-%d", i+2, end+1), // 1-indexed, after the header
			Text:  pipeTable(headers, rows[i:end]),
		})
	}

	return Document{Title: tree.Title, Markdown: tree.Markdown()}, nil
}

// normalizeHeaders widens the header row to the widest record and names
// blank columns.
func normalizeHeaders(records [][]string) []string {
	width := 0
	for _, rec := range records {
		width = max(width, len(rec))
	}
	headers := make([]string, width)
	for i := range headers {
		if i < len(records[0]) {
			headers[i] = strings.TrimSpace(records[0][i])
		}
		if headers[i] == "" {
			headers[i] = fmt.Sprintf("Column %d", i+1)
		}
	}
	return headers
}

func pipeTable(headers []string, rows [][]string) string {
	var sb strings.Builder
	writeRow(&sb, headers, len(headers))
	sb.WriteString("|")
	for range headers {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")
	for _, row := range rows {
		writeRow(&sb, row, len(headers))
	}
	return sb.String()
}

func writeRow(sb *strings.Builder, cells []string, width int) {
	sb.WriteString("|")
	for i := 0; i < width; i++ {
		cell := ""
		if i < len(cells) {
			cell = escapeCell(cells[i])
		}
		sb.WriteString(" ")
		sb.WriteString(cell)
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}

var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

func escapeCell(s string) string {
	return strings.TrimSpace(cellReplacer.Replace(s))
}
