// Package sqlsource reads sales tables from relational databases.
package sqlsource

import (
	"database/sql/driver"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// tableParam lets a source URL name the table to read, for example
// postgres://host/shop?table=orders. It is removed before connecting.
const tableParam = "table"

// Request describes what to read from a SQL source.
type Request struct {
	// URL is the postgres://, postgresql:// or mysql:// connection URL.
	URL string
	// Query is run as is when set.
	Query string
	// Table is read with SELECT * when Query is empty. A table query
	// parameter in URL takes precedence.
	Table string
}

// splitURL removes the table parameter from a source URL and returns the
// remaining URL together with the table it named.
func splitURL(raw string) (*url.URL, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, "", fmt.Errorf("invalid SQL source URL: %w", err)
	}
	q := u.Query()
	table := q.Get(tableParam)
	q.Del(tableParam)
	u.RawQuery = q.Encode()
	return u, table, nil
}

// buildQuery picks the statement to run. quote is the dialect's identifier
// quote.
func buildQuery(req Request, urlTable, quote string) (string, error) {
	if q := strings.TrimSpace(req.Query); q != "" {
		return q, nil
	}
	table := urlTable
	if table == "" {
		table = req.Table
	}
	if table == "" {
		return "", fmt.Errorf("SQL source needs a query or a table")
	}
	return "SELECT * FROM " + quoteIdent(table, quote), nil
}

// quoteIdent quotes each dotted part of a table name.
func quoteIdent(name, q string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		p = strings.ReplaceAll(p, q, "")
		parts[i] = q + p + q
	}
	return strings.Join(parts, ".")
}

// formatValue renders a database cell the way the CSV reader would see it.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return ""
		}
		return formatValue(dv)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
