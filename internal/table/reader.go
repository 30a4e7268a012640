package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/sales-analyst/internal/domain"
)

// Options controls how an input file is decoded.
type Options struct {
	// Delimiter for delimited text. If 0, auto-detects among ',', ';', '\t'.
	Delimiter rune
	// Sheet selects the spreadsheet sheet. Empty means the first sheet.
	Sheet string
}

// Format is a supported input encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat maps a file name to its input format.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".txt", "":
		return FormatCSV, nil
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return FormatXLSX, nil
	default:
		return "", &domain.ParseError{Err: fmt.Errorf("unsupported file type %q", filepath.Ext(name))}
	}
}

// Read decodes r according to the extension of name.
func Read(name string, r io.Reader, opts Options) (*Table, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return ReadXLSX(name, r, opts.Sheet)
	}
	delim := opts.Delimiter
	if delim == 0 && strings.EqualFold(filepath.Ext(name), ".tsv") {
		delim = '\t'
	}
	return ReadCSV(name, r, delim)
}

// ReadCSV decodes delimited text. A zero delim is sniffed from the header.
func ReadCSV(name string, r io.Reader, delim rune) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &domain.ParseError{Err: fmt.Errorf("%s: read: %w", name, err)}
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &domain.ParseError{Err: fmt.Errorf("%s: file is empty", name)}
	}

	if delim == 0 {
		delim = sniffDelimiter(data)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, &domain.ParseError{Err: fmt.Errorf("%s: read csv: %w", name, err)}
	}
	return FromRecords(name, records)
}

// ReadXLSX decodes one sheet of a spreadsheet. Cells are read raw so date
// cells arrive as serial numbers and are decoded by ParseTimestamp.
func ReadXLSX(name string, r io.Reader, sheet string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &domain.ParseError{Err: fmt.Errorf("%s: open workbook: %w", name, err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &domain.ParseError{Err: fmt.Errorf("%s: workbook has no sheets", name)}
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if !containsString(sheets, sheet) {
		return nil, &domain.ParseError{Err: fmt.Errorf("%s: sheet %q not found (have %s)", name, sheet, strings.Join(sheets, ", "))}
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &domain.ParseError{Err: fmt.Errorf("%s: read sheet %q: %w", name, sheet, err)}
	}

	// Leading blank rows come before the header.
	for len(rows) > 0 && blankRow(rows[0]) {
		rows = rows[1:]
	}
	return FromRecords(name, rows)
}

// sniffDelimiter picks the candidate that occurs most often outside quotes
// on the first line, defaulting to a comma.
func sniffDelimiter(data []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !sc.Scan() {
		return ','
	}
	line := sc.Text()

	counts := map[rune]int{}
	inQuotes := false
	for _, c := range line {
		switch c {
		case '"':
			inQuotes = !inQuotes
		case ',', ';', '\t':
			if !inQuotes {
				counts[c]++
			}
		}
	}

	best := ','
	for _, c := range []rune{';', '\t'} {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
