package capacity

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/tphakala/gridscreen-go/internal/errors"
)

// textDecoder is one candidate character encoding for an uploaded table.
type textDecoder struct {
	name   string
	decode func([]byte) (string, error)
}

func decodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("invalid utf-8")
	}
	return string(data), nil
}

// defaultTextDecoders lists the encodings seen in capacity exports, most
// likely first. Spanish portal downloads alternate between UTF-8 and the
// Windows code pages.
func defaultTextDecoders() []textDecoder {
	return []textDecoder{
		{name: "utf-8", decode: decodeUTF8},
		{name: "windows-1252", decode: func(b []byte) (string, error) {
			return charmap.Windows1252.NewDecoder().String(string(b))
		}},
		{name: "latin1", decode: func(b []byte) (string, error) {
			return charmap.ISO8859_1.NewDecoder().String(string(b))
		}},
	}
}

func decodeWithCandidates(data []byte) (text, encodingName string, err error) {
	for _, dec := range defaultTextDecoders() {
		decoded, decErr := dec.decode(data)
		if decErr != nil {
			continue
		}
		return decoded, dec.name, nil
	}
	return "", "", fmt.Errorf("unable to decode table with supported encodings")
}

// sniffDelimiter picks the cell separator from the header line. REE portal
// downloads use semicolons, hand-edited files usually commas.
func sniffDelimiter(text string) rune {
	firstLine := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine = text[:idx]
	}
	if strings.Count(firstLine, ";") >= strings.Count(firstLine, ",") &&
		strings.Contains(firstLine, ";") {
		return ';'
	}
	return ','
}

// makeUniqueColumnNames trims header cells and disambiguates duplicates and
// blanks so every column stays addressable. Unnamed columns become
// "column_N", which is how a split geometry's continuation column surfaces.
func makeUniqueColumnNames(columns []string) []string {
	result := make([]string, 0, len(columns))
	seen := map[string]int{}
	for i, raw := range columns {
		base := strings.TrimSpace(raw)
		if base == "" {
			base = fmt.Sprintf("column_%d", i+1)
		}
		seen[base]++
		if seen[base] == 1 {
			result = append(result, base)
		} else {
			result = append(result, fmt.Sprintf("%s_%d", base, seen[base]))
		}
	}
	return result
}

// ReadTable decodes one uploaded CSV export into a RawTable. The first row
// is the header; rows may have ragged lengths, missing cells read as empty.
func ReadTable(label string, r io.Reader) (*RawTable, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.New(err).
			Component("capacity").
			Category(errors.CategoryTableDecode).
			TableContext(label, -1).
			Context("operation", "read-table").
			Build()
	}

	text, encodingName, err := decodeWithCandidates(raw)
	if err != nil {
		return nil, errors.New(err).
			Component("capacity").
			Category(errors.CategoryTableDecode).
			TableContext(label, -1).
			Build()
	}
	text = strings.TrimPrefix(text, "﻿")

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.New(err).
			Component("capacity").
			Category(errors.CategoryTableDecode).
			TableContext(label, -1).
			Context("encoding", encodingName).
			Build()
	}
	if len(records) == 0 {
		return nil, errors.Newf("table is empty").
			Component("capacity").
			Category(errors.CategoryTableDecode).
			TableContext(label, -1).
			Build()
	}

	return &RawTable{
		Label:    label,
		Header:   makeUniqueColumnNames(records[0]),
		Rows:     records[1:],
		Encoding: encodingName,
	}, nil
}
