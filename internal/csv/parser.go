package csv

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

// Row is one parsed record. Line is the 1-indexed line of the source text
// the record starts on, counting blank lines.
type Row struct {
	Line   int
	Fields []string
}

// DetectDelimiter picks tab when the line holds more tabs than commas.
// Comma wins ties.
func DetectDelimiter(firstLine string) rune {
	if strings.Count(firstLine, "\t") > strings.Count(firstLine, ",") {
		return '\t'
	}
	return ','
}

// maxRecordLines bounds how many physical lines one quoted record may
// span before its opening quote is reported as unterminated.
const maxRecordLines = 16

// ErrUnterminatedQuote marks a record whose quoted field never closes
// within the line budget or the field limit.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// Rows returns a sequence over the records in text. Each physical line is
// one record unless a quoted field spans lines. Each call to the returned
// sequence re-parses text from the start. A record that cannot be closed
// is yielded with ErrUnterminatedQuote and parsing resumes on the line
// after the one it started on.
func Rows(text string) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		src := normalizeNewlines(text)
		lines := splitLines(src)
		delimiter := DetectDelimiter(firstLine(src))

		for i := 0; i < len(lines); {
			if trimTerminator(lines[i]) == "" {
				i++
				continue
			}

			record := lines[i]
			fields, open := tokenize(trimTerminator(record), delimiter)
			n := 1
			for open && i+n < len(lines) && n < maxRecordLines && len(fields) <= ColumnCount {
				record += lines[i+n]
				n++
				fields, open = tokenize(trimTerminator(record), delimiter)
			}

			if open || (n > 1 && len(fields) > ColumnCount) {
				if !yield(Row{Line: i + 1}, ErrUnterminatedQuote) {
					return
				}
				i++
				continue
			}

			if !yield(Row{Line: i + 1, Fields: fields}, nil) {
				return
			}
			i += n
		}
	}
}

// SliceRows adapts already materialised rows, such as spreadsheet rows, to
// the sequence shape Rows produces.
func SliceRows(rows []Row) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for _, row := range rows {
			if !yield(row, nil) {
				return
			}
		}
	}
}

// ParseRows collects every record in text. Records that fail to parse are
// skipped and described in the returned diagnostics.
func ParseRows(text string) ([]Row, []string) {
	var rows []Row
	var diagnostics []string
	for row, err := range Rows(text) {
		if err != nil {
			diagnostics = append(diagnostics, fmt.Sprintf("row %d: %v", row.Line, err))
			continue
		}
		rows = append(rows, row)
	}
	return rows, diagnostics
}

// SerializeRow renders fields as one CRLF terminated line, quoting fields
// that contain the delimiter, quotes, CR or LF, or that start with a space.
// Line breaks inside quoted fields are written as they are.
func SerializeRow(fields []string, delimiter rune) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteRune(delimiter)
		}
		if !needsQuotes(f, delimiter) {
			b.WriteString(f)
			continue
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
	return b.String()
}

func needsQuotes(field string, delimiter rune) bool {
	if field == "" {
		return false
	}
	if field[0] == ' ' || field[0] == '\t' {
		return true
	}
	return strings.ContainsRune(field, delimiter) || strings.ContainsAny(field, "\"\r\n")
}

// tokenize splits one logical record. A quote opens a quoted field only at
// the start of a field; elsewhere it is literal. Inside a quoted field ""
// is an escaped quote and a quote followed by anything but the delimiter
// closes the quoting and is kept as text. open reports a quoted field still
// running at the end of record.
func tokenize(record string, delimiter rune) (fields []string, open bool) {
	var field strings.Builder
	quoted, atStart := false, true
	runes := []rune(record)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quoted && r == '"':
			if i+1 < len(runes) && runes[i+1] == '"' {
				field.WriteRune('"')
				i++
				continue
			}
			quoted = false
			if i+1 < len(runes) && runes[i+1] != delimiter {
				field.WriteRune('"')
			}
		case quoted:
			field.WriteRune(r)
		case r == delimiter:
			fields = append(fields, field.String())
			field.Reset()
			atStart = true
			continue
		case r == '"' && atStart:
			quoted = true
		default:
			field.WriteRune(r)
		}
		atStart = false
	}
	fields = append(fields, field.String())
	return fields, quoted
}

// splitLines cuts text after every LF, keeping terminators so a quoted
// field spanning lines keeps its exact line breaks.
func splitLines(text string) []string {
	var lines []string
	for text != "" {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:i+1])
		text = text[i+1:]
	}
	return lines
}

func trimTerminator(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// normalizeNewlines converts files that use a bare CR as the line
// terminator. CRLF is handled by trimTerminator.
func normalizeNewlines(text string) string {
	if strings.Contains(text, "\n") || !strings.Contains(text, "\r") {
		return text
	}
	return strings.ReplaceAll(text, "\r", "\n")
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
