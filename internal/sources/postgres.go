package sources

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// OpenPostgres opens a database/sql handle using the pgx driver.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sources: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sources: ping postgres: %w", err)
	}
	return db, nil
}

// ValidTableName reports whether table is a plain or schema-qualified identifier.
func ValidTableName(table string) bool {
	return identRe.MatchString(strings.TrimSpace(table))
}

// SelectAllQuery builds "SELECT * FROM <table> LIMIT $1" for a plain or
// schema-qualified identifier.
func SelectAllQuery(table string) (string, error) {
	table = strings.TrimSpace(table)
	if !ValidTableName(table) {
		return "", fmt.Errorf("sources: invalid table name %q", table)
	}
	return "SELECT * FROM " + pgx.Identifier(strings.Split(table, ".")).Sanitize() + " LIMIT $1", nil
}

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// LoadTable fetches every column of table, up to the row cap.
func LoadTable(ctx context.Context, db Querier, table string, opts Options) (Result, error) {
	q, err := SelectAllQuery(table)
	if err != nil {
		return Result{}, err
	}
	limit := opts.maxRows()
	rows, err := db.QueryContext(ctx, q, limit+1)
	if err != nil {
		return Result{}, fmt.Errorf("sources: query %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{}, err
	}
	res := Result{Source: "postgres:" + table}
	res.Table.Columns = cols
	for rows.Next() {
		if len(res.Table.Rows) >= limit {
			res.Truncated = true
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return res, fmt.Errorf("sources: scan %s: %w", table, err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		res.Table.Rows = append(res.Table.Rows, vals)
	}
	return res, rows.Err()
}
