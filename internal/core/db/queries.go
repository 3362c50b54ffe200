package db

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/qustavo/dotsql"
)

//go:embed queries/*.sql
var queriesFS embed.FS

// Queries resolves named SQL statements loaded from the embedded .sql
// files. dotsql owns the name-to-statement mapping, sqlx the execution and
// struct scanning; Rebind converts ? placeholders for whichever driver the
// connection uses.
type Queries struct {
	dot  *dotsql.DotSql
	conn *sqlx.DB
}

// LoadQueries parses every embedded .sql file into one named-query table.
func LoadQueries(conn *sqlx.DB) (*Queries, error) {
	entries, err := queriesFS.ReadDir("queries")
	if err != nil {
		return nil, fmt.Errorf("failed to list query files: %w", err)
	}

	var combined strings.Builder
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		content, err := queriesFS.ReadFile("queries/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		combined.Write(content)
		combined.WriteByte('\n')
	}

	dot, err := dotsql.LoadFromString(combined.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse queries: %w", err)
	}

	return &Queries{dot: dot, conn: conn}, nil
}

// Exec runs a named statement.
func (q *Queries) Exec(name string, args ...interface{}) (sql.Result, error) {
	query, err := q.dot.Raw(name)
	if err != nil {
		return nil, fmt.Errorf("query not found: %s", name)
	}
	return q.conn.Exec(q.conn.Rebind(query), args...)
}

// Get scans a single row into dest.
func (q *Queries) Get(name string, dest interface{}, args ...interface{}) error {
	query, err := q.dot.Raw(name)
	if err != nil {
		return fmt.Errorf("query not found: %s", name)
	}
	return q.conn.Get(dest, q.conn.Rebind(query), args...)
}

// Select scans all rows into the dest slice.
func (q *Queries) Select(name string, dest interface{}, args ...interface{}) error {
	query, err := q.dot.Raw(name)
	if err != nil {
		return fmt.Errorf("query not found: %s", name)
	}
	return q.conn.Select(dest, q.conn.Rebind(query), args...)
}
