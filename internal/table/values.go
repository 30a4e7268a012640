package table

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// maxExcelSerial is 9999-12-31 in the 1900 date system.
const maxExcelSerial = 2958465

// timestampLayouts are tried in order. Slash dates are month-first and
// dotted dates are day-first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-1-2T15:04:05.999999999",
	"2006-1-2T15:04:05",
	"2006-1-2T15:04",
	"2006-1-2 15:04:05.999999999",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006/1/2",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006",
	"1/2/06",
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"2.1.2006",
	"20060102",
	"2-Jan-2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	time.RFC1123Z,
	time.RFC1123,
	time.ANSIC,
}

// ParseTimestamp decodes a date cell. It accepts common text layouts and
// spreadsheet serial numbers. ok is false for blank or unrecognised values.
func ParseTimestamp(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if isMissing(s) || strings.EqualFold(s, "NaT") {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 1 && serial <= maxExcelSerial {
		parsed, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return parsed, true
		}
	}

	return time.Time{}, false
}

// ErrInvalidPrice is returned for price cells that are not numbers.
var ErrInvalidPrice = errors.New("not a number")

// ParsePrice decodes a price cell. Blank and NaN cells count as zero.
// Spaces and currency symbols are ignored. When both separators appear the
// last one is the decimal point. A lone separator type is read as digit
// grouping: repeated commas always are, and a single comma or repeated dots
// are when every group after the first has exactly three digits. So "1,500"
// and "1.500.000" are whole numbers while "2,5" is a decimal comma. A single
// dot is always a decimal point.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return decimal.Zero, nil
	}

	raw := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\'', '$', '€', '£', '₽', '¥':
			return -1
		}
		return r
	}, s)

	commas := strings.Count(raw, ",")
	dots := strings.Count(raw, ".")
	switch {
	case commas > 0 && dots > 0:
		if strings.LastIndex(raw, ",") > strings.LastIndex(raw, ".") {
			raw = strings.ReplaceAll(raw, ".", "")
			raw = strings.Replace(raw, ",", ".", 1)
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case commas > 0:
		if commas == 1 && !isGrouped(raw, ",") {
			raw = strings.Replace(raw, ",", ".", 1)
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case dots > 1:
		if !isGrouped(raw, ".") {
			return decimal.Zero, ErrInvalidPrice
		}
		raw = strings.ReplaceAll(raw, ".", "")
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidPrice
	}
	return d, nil
}

// isGrouped reports whether sep splits s into thousands groups: a leading
// group of one to three digits followed by groups of exactly three.
func isGrouped(s, sep string) bool {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	groups := strings.Split(s, sep)
	if len(groups) < 2 || len(groups[0]) < 1 || len(groups[0]) > 3 {
		return false
	}
	for i, g := range groups {
		if i > 0 && len(g) != 3 {
			return false
		}
		for _, r := range g {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

func isMissing(s string) bool {
	for _, m := range missingValues {
		if s == m {
			return true
		}
	}
	return false
}
