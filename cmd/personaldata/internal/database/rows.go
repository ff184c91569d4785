package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/thalib/personaldata/cmd/personaldata/internal/constants"
)

// rowTimeLayout renders DATETIME columns the way MySQL prints them.
const rowTimeLayout = "2006-01-02 15:04:05"

// Row is one record in column order.
type Row struct {
	Columns []string
	Values  []string
}

// Format renders the row as key=value pairs joined by joiner, for example
// "name=Bob; email=bob@dylan.com".
func (r Row) Format(joiner string) string {
	var b strings.Builder
	for i, col := range r.Columns {
		if i > 0 {
			b.WriteString(joiner)
		}
		b.WriteString(col)
		b.WriteByte('=')
		if i < len(r.Values) {
			b.WriteString(r.Values[i])
		}
	}
	return b.String()
}

// StreamRows reads every row of table and calls fn for each one, in the
// order the database returns them. It stops at the first error from fn.
func StreamRows(ctx context.Context, d Driver, table string, fn func(Row) error) error {
	if !isValidIdentifier(table) {
		return fmt.Errorf("invalid table name: %s", table)
	}

	query := "SELECT * FROM " + quoteIdentifier(d.Dialect(), table)
	rows, err := d.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed to read columns: %w", err)
	}

	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}

		row := Row{
			Columns: columns,
			Values:  make([]string, len(values)),
		}
		for i, v := range values {
			row.Values[i] = formatValue(v)
		}

		if err := fn(row); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}
	return nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return constants.NullValue
	case []byte:
		return string(val)
	case string:
		return val
	case time.Time:
		return val.Format(rowTimeLayout)
	default:
		return fmt.Sprint(val)
	}
}

func quoteIdentifier(dialect DialectType, name string) string {
	switch dialect {
	case DialectPostgres:
		return pq.QuoteIdentifier(name)
	case DialectMySQL:
		return "`" + name + "`"
	default:
		return `"` + name + `"`
	}
}

// isValidIdentifier validates that an identifier (table/column name) contains only safe characters
func isValidIdentifier(name string) bool {
	if name == "" || len(name) > constants.MaxIdentifierLength {
		return false
	}

	for i, ch := range name {
		if i == 0 {
			// First character must be letter or underscore
			if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_') {
				return false
			}
		} else {
			// Subsequent characters can be alphanumeric or underscore
			if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_') {
				return false
			}
		}
	}

	return true
}
