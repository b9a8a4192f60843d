package mirror

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"mysql-db-mirror/internal/introspect"
	"mysql-db-mirror/internal/logging"
)

const defaultInsertBatchSize = 500

// Replicator copies one table's definition and rows from a source database to
// a destination database. Row values are always bound as statement parameters:
// backup and restore payloads are arbitrary user content and must never be
// treated as SQL text.
type Replicator struct {
	introspector *introspect.Introspector
	logger       *logging.Logger
	batchSize    int
}

// NewReplicator creates a replicator with the default batch size
func NewReplicator(introspector *introspect.Introspector, logger *logging.Logger) *Replicator {
	return &Replicator{
		introspector: introspector,
		logger:       logger,
		batchSize:    defaultInsertBatchSize,
	}
}

// NewReplicatorWithBatchSize creates a replicator with a custom insert batch size
func NewReplicatorWithBatchSize(introspector *introspect.Introspector, logger *logging.Logger, batchSize int) *Replicator {
	if batchSize <= 0 {
		batchSize = defaultInsertBatchSize
	}
	return &Replicator{
		introspector: introspector,
		logger:       logger,
		batchSize:    batchSize,
	}
}

// Replicate copies table from source into destTable on dest and returns the
// number of rows copied. Zero rows is a valid outcome. On any error the table
// is abandoned where it stands; cleanup belongs to the caller.
func (r *Replicator) Replicate(ctx context.Context, source, dest *sql.DB, table, destTable string) (int64, error) {
	startTime := time.Now()

	rowCount, err := r.replicate(ctx, source, dest, table, destTable)
	r.logger.LogTableCopy(table, destTable, rowCount, time.Since(startTime), err)

	return rowCount, err
}

func (r *Replicator) replicate(ctx context.Context, source, dest *sql.DB, table, destTable string) (int64, error) {
	def, err := r.introspector.GetDefinition(ctx, source, table)
	if err != nil {
		return 0, NewIntrospectionError(table, "failed to capture table definition", err)
	}

	ddl, err := rewriteTableName(def.DDL, def.Name, destTable)
	if err != nil {
		return 0, NewSchemaCreateError(table, "failed to rewrite table definition", err)
	}

	if _, err := dest.ExecContext(ctx, ddl); err != nil {
		return 0, NewSchemaCreateError(table, "failed to create destination table "+destTable, err)
	}

	return r.copyRows(ctx, source, dest, table, destTable)
}

// copyRows streams SELECT * from the source table into the destination in
// bounded batches, one bound placeholder per value
func (r *Replicator) copyRows(ctx context.Context, source, dest *sql.DB, table, destTable string) (int64, error) {
	rows, err := source.QueryContext(ctx, "SELECT * FROM "+introspect.QuoteIdentifier(table))
	if err != nil {
		return 0, NewDataCopyError(table, "failed to read rows", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return 0, NewDataCopyError(table, "failed to read column names", err)
	}
	if len(columns) == 0 {
		return 0, NewDataCopyError(table, "table has no columns", nil)
	}

	insertPrefix := buildInsertPrefix(destTable, columns)
	placeholderGroup := buildPlaceholderGroup(len(columns))

	var (
		copied    int64
		batchArgs []interface{}
		batchRows int
	)

	flush := func() error {
		if batchRows == 0 {
			return nil
		}

		stmt := insertPrefix + strings.Repeat(placeholderGroup+",", batchRows-1) + placeholderGroup
		if _, err := dest.ExecContext(ctx, stmt, batchArgs...); err != nil {
			return NewDataCopyError(table, "failed to insert rows into "+destTable, err)
		}

		copied += int64(batchRows)
		batchArgs = batchArgs[:0]
		batchRows = 0
		return nil
	}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return copied, NewDataCopyError(table, "failed to scan row", err)
		}

		batchArgs = append(batchArgs, values...)
		batchRows++

		if batchRows >= r.batchSize {
			if err := flush(); err != nil {
				return copied, err
			}
		}
	}

	if err := rows.Err(); err != nil {
		return copied, NewDataCopyError(table, "error while streaming rows", err)
	}

	if err := flush(); err != nil {
		return copied, err
	}

	return copied, nil
}

// rewriteTableName substitutes the captured table-name identifier in a DDL
// statement with a new name. Only the identifier token is replaced; the rest
// of the definition text is opaque and passes through untouched.
func rewriteTableName(ddl, from, to string) (string, error) {
	fromIdent := introspect.QuoteIdentifier(from)
	idx := strings.Index(ddl, fromIdent)
	if idx == -1 {
		return "", NewSchemaCreateError(from, "table identifier not found in captured definition", nil)
	}
	return ddl[:idx] + introspect.QuoteIdentifier(to) + ddl[idx+len(fromIdent):], nil
}

func buildInsertPrefix(table string, columns []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(introspect.QuoteIdentifier(table))
	b.WriteString(" (")
	for i, column := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(introspect.QuoteIdentifier(column))
	}
	b.WriteString(") VALUES ")
	return b.String()
}

func buildPlaceholderGroup(columnCount int) string {
	var b strings.Builder
	b.WriteString("(")
	for i := 0; i < columnCount; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("?")
	}
	b.WriteString(")")
	return b.String()
}
