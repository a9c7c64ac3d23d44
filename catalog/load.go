package catalog

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrMissingColumns is wrapped by DataError when the source lacks schema columns.
var ErrMissingColumns = errors.New("missing required columns")

// DataError reports a malformed catalog source. It is fatal: no catalog is built.
type DataError struct {
	Source  string
	Missing []string
	Err     error
}

func (e *DataError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("catalog %s: %v: %s", e.Source, e.Err, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("catalog %s: %v", e.Source, e.Err)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Open loads a catalog from source. postgres:// and postgresql:// URLs are read
// through lib/pq, sqlite:// paths through modernc.org/sqlite, anything else is a
// CSV file path. table names the SQL table and is ignored for CSV.
func Open(ctx context.Context, source, table string) (*Catalog, error) {
	switch {
	case strings.HasPrefix(source, "postgres://"), strings.HasPrefix(source, "postgresql://"):
		return openSQL(ctx, "postgres", source, source, table)
	case strings.HasPrefix(source, "sqlite://"):
		return openSQL(ctx, "sqlite", strings.TrimPrefix(source, "sqlite://"), source, table)
	default:
		return LoadCSVFile(source)
	}
}

func openSQL(ctx context.Context, driver, dsn, source, table string) (*Catalog, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s catalog: %w", driver, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach %s catalog: %w", driver, err)
	}
	c, err := LoadSQL(ctx, db, table)
	var dataErr *DataError
	if errors.As(err, &dataErr) {
		dataErr.Source = redact(source)
	}
	return c, err
}

// LoadCSVFile reads a CSV catalog from disk.
func LoadCSVFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return LoadCSV(f, path)
}

// LoadCSV reads a CSV catalog with a header row. Extra columns are ignored.
func LoadCSV(r io.Reader, source string) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &DataError{Source: source, Err: fmt.Errorf("reading header: %w", err)}
	}
	index, err := columnIndex(header, source)
	if err != nil {
		return nil, err
	}

	var records []Restaurant
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &DataError{Source: source, Err: fmt.Errorf("line %d: %w", line, err)}
		}
		var rec Restaurant
		for _, col := range RequiredColumns {
			rec.set(col, row[index[col]])
		}
		records = append(records, rec)
	}
	return New(records), nil
}

// LoadSQL reads every row of table. NULL values become unknown fields.
func LoadSQL(ctx context.Context, db *sql.DB, table string) (*Catalog, error) {
	if !tableName.MatchString(table) {
		return nil, &DataError{Source: table, Err: fmt.Errorf("invalid table name %q", table)}
	}

	cols, err := db.QueryContext(ctx, "SELECT * FROM "+table+" LIMIT 0")
	if err != nil {
		return nil, &DataError{Source: table, Err: err}
	}
	header, err := cols.Columns()
	cols.Close()
	if err != nil {
		return nil, &DataError{Source: table, Err: err}
	}
	if _, err := columnIndex(header, table); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT "+strings.Join(RequiredColumns, ", ")+" FROM "+table)
	if err != nil {
		return nil, &DataError{Source: table, Err: err}
	}
	defer rows.Close()

	var records []Restaurant
	for rows.Next() {
		values := make([]sql.NullString, len(RequiredColumns))
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &DataError{Source: table, Err: err}
		}
		var rec Restaurant
		for i, col := range RequiredColumns {
			rec.set(col, values[i].String)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &DataError{Source: table, Err: err}
	}
	return New(records), nil
}

func columnIndex(header []string, source string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &DataError{Source: source, Missing: missing, Err: ErrMissingColumns}
	}
	return index, nil
}

// redact strips credentials from a connection URL before it lands in an error.
func redact(source string) string {
	scheme, rest, ok := strings.Cut(source, "://")
	if !ok {
		return source
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = rest[at+1:]
	}
	return scheme + "://" + rest
}
