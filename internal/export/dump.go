package export

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"mysql-db-mirror/internal/introspect"
	"mysql-db-mirror/internal/logging"
	"mysql-db-mirror/internal/mirror"
)

// Dumper serializes a database into an SQL script for offline inspection.
// The script is a forensic artifact: it is never fed back into a live
// connection by this program, which is the only reason literal encoding is
// acceptable here. Everything executed against a database elsewhere in this
// codebase binds values as parameters.
type Dumper struct {
	introspector *introspect.Introspector
	manager      *CompressionManager
	logger       *logging.Logger
	batchSize    int
}

// NewDumper creates a dumper with the default insert batch size
func NewDumper(introspector *introspect.Introspector, logger *logging.Logger) *Dumper {
	return &Dumper{
		introspector: introspector,
		manager:      NewCompressionManager(),
		logger:       logger,
		batchSize:    500,
	}
}

// Dump writes every application table's DDL and rows into w as an SQL
// script, compressed with the given algorithm
func (d *Dumper) Dump(ctx context.Context, db *sql.DB, w io.Writer, algorithm Algorithm) error {
	compressed, err := d.manager.WrapWriter(w, algorithm)
	if err != nil {
		return err
	}

	buffered := bufio.NewWriter(compressed)

	if err := d.dump(ctx, db, buffered); err != nil {
		compressed.Close()
		return err
	}

	if err := buffered.Flush(); err != nil {
		compressed.Close()
		return fmt.Errorf("failed to flush dump output: %w", err)
	}
	if err := compressed.Close(); err != nil {
		return fmt.Errorf("failed to finalize compressed output: %w", err)
	}
	return nil
}

func (d *Dumper) dump(ctx context.Context, db *sql.DB, w *bufio.Writer) error {
	allTables, err := d.introspector.ListTables(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to list tables for dump: %w", err)
	}
	tables := mirror.FilterApplicationTables(allTables)

	fmt.Fprintf(w, "-- mysql-db-mirror dump\n-- generated %s\n\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintln(w, "SET FOREIGN_KEY_CHECKS = 0;")
	fmt.Fprintln(w)

	for _, table := range tables {
		if err := d.dumpTable(ctx, db, w, table); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, "SET FOREIGN_KEY_CHECKS = 1;")
	return nil
}

func (d *Dumper) dumpTable(ctx context.Context, db *sql.DB, w *bufio.Writer, table string) error {
	def, err := d.introspector.GetDefinition(ctx, db, table)
	if err != nil {
		return fmt.Errorf("failed to capture definition of %s: %w", table, err)
	}

	quoted := introspect.QuoteIdentifier(table)
	fmt.Fprintf(w, "-- table %s\n", table)
	fmt.Fprintf(w, "DROP TABLE IF EXISTS %s;\n", quoted)
	fmt.Fprintf(w, "%s;\n\n", def.DDL)

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoted)
	if err != nil {
		return fmt.Errorf("failed to read rows of %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed to read columns of %s: %w", table, err)
	}

	quotedColumns := make([]string, len(columns))
	for i, column := range columns {
		quotedColumns[i] = introspect.QuoteIdentifier(column)
	}
	insertPrefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES\n", quoted, strings.Join(quotedColumns, ", "))

	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	var (
		batch    []string
		rowCount int64
	)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		w.WriteString(insertPrefix)
		w.WriteString(strings.Join(batch, ",\n"))
		w.WriteString(";\n")
		batch = batch[:0]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return fmt.Errorf("failed to scan row of %s: %w", table, err)
		}

		literals := make([]string, len(values))
		for i, value := range values {
			literals[i] = encodeLiteral(value)
		}
		batch = append(batch, "("+strings.Join(literals, ", ")+")")
		rowCount++

		if len(batch) >= d.batchSize {
			flush()
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate rows of %s: %w", table, err)
	}
	flush()

	fmt.Fprintln(w)
	d.logger.WithFields(map[string]interface{}{
		"table": table,
		"rows":  rowCount,
	}).Debug("Table dumped")
	return nil
}

// encodeLiteral renders a scanned value as a MySQL literal. Strings and byte
// slices are quoted with backslash escaping; nil becomes NULL.
func encodeLiteral(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return "'" + v.UTC().Format("2006-01-02 15:04:05") + "'"
	case []byte:
		return quoteString(string(v))
	case string:
		return quoteString(v)
	default:
		return quoteString(fmt.Sprintf("%v", v))
	}
}

func quoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case 0:
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case 0x1a:
			b.WriteString(`\Z`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
