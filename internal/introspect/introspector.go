package introspect

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"mysql-db-mirror/internal/errors"
)

// TableDefinition holds a table name and its engine-specific CREATE TABLE
// statement, captured verbatim so it can be replayed on another database
type TableDefinition struct {
	Name string
	DDL  string
}

// Introspector reads the live table list and table definitions of a MySQL
// database. Definitions are captured fresh per operation and never cached:
// schemas may change between runs.
type Introspector struct {
	queryTimeout time.Duration
}

// NewIntrospector creates a new introspector
func NewIntrospector() *Introspector {
	return &Introspector{
		queryTimeout: 30 * time.Second,
	}
}

// NewIntrospectorWithTimeout creates a new introspector with a custom query timeout
func NewIntrospectorWithTimeout(timeout time.Duration) *Introspector {
	return &Introspector{
		queryTimeout: timeout,
	}
}

// ListTables returns the sorted list of base table names in the connection's
// current schema
func (in *Introspector) ListTables(ctx context.Context, db *sql.DB) ([]string, error) {
	if db == nil {
		return nil, errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}

	query := `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`

	queryCtx, cancel := context.WithTimeout(ctx, in.queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(queryCtx, query)
	if err != nil {
		return nil, errors.WrapError(err, "failed to query table list")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, errors.WrapError(err, "failed to scan table name")
		}
		tables = append(tables, tableName)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, "error iterating table rows")
	}

	sort.Strings(tables)
	return tables, nil
}

// GetDefinition captures the CREATE TABLE statement for a table. A table that
// vanished between listing and reading surfaces here as a schema error; the
// caller decides whether to re-list or abort the run.
func (in *Introspector) GetDefinition(ctx context.Context, db *sql.DB, tableName string) (TableDefinition, error) {
	if db == nil {
		return TableDefinition{}, errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}
	if tableName == "" {
		return TableDefinition{}, errors.NewAppError(errors.ErrorTypeValidation, "table name cannot be empty", nil)
	}

	queryCtx, cancel := context.WithTimeout(ctx, in.queryTimeout)
	defer cancel()

	// SHOW CREATE TABLE does not accept bound parameters; the identifier is
	// quoted instead. Table names come from INFORMATION_SCHEMA, never from
	// row data.
	query := "SHOW CREATE TABLE " + QuoteIdentifier(tableName)

	var name, ddl string
	if err := db.QueryRowContext(queryCtx, query).Scan(&name, &ddl); err != nil {
		return TableDefinition{}, errors.WrapError(err, "failed to read definition of table "+tableName)
	}

	return TableDefinition{Name: name, DDL: ddl}, nil
}

// QuoteIdentifier backquotes a MySQL identifier, doubling embedded backquotes
func QuoteIdentifier(name string) string {
	quoted := make([]byte, 0, len(name)+2)
	quoted = append(quoted, '`')
	for i := 0; i < len(name); i++ {
		if name[i] == '`' {
			quoted = append(quoted, '`', '`')
		} else {
			quoted = append(quoted, name[i])
		}
	}
	return string(append(quoted, '`'))
}
