package mirror

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"mysql-db-mirror/internal/introspect"
	"mysql-db-mirror/internal/logging"
)

func quietLogger() *logging.Logger {
	logger, _ := logging.NewLogger(logging.Config{Level: logging.LogLevelQuiet, Output: io.Discard})
	return logger
}

func TestRewriteTableName(t *testing.T) {
	ddl := "CREATE TABLE `users` (\n  `id` int NOT NULL,\n  `users` varchar(20)\n)"
	got, err := rewriteTableName(ddl, "users", "users__tmp_restore")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := "CREATE TABLE `users__tmp_restore` (\n  `id` int NOT NULL,\n  `users` varchar(20)\n)"
	if got != want {
		t.Errorf("Expected only the first identifier to be rewritten:\n got %s\nwant %s", got, want)
	}
}

func TestRewriteTableName_NotFound(t *testing.T) {
	if _, err := rewriteTableName("CREATE TABLE `other` (x int)", "users", "staged"); err == nil {
		t.Error("Expected error when identifier is absent")
	}
}

func TestBuildInsertPrefix(t *testing.T) {
	got := buildInsertPrefix("users__tmp_restore", []string{"id", "name"})
	want := "INSERT INTO `users__tmp_restore` (`id`, `name`) VALUES "
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestBuildPlaceholderGroup(t *testing.T) {
	if got := buildPlaceholderGroup(3); got != "(?, ?, ?)" {
		t.Errorf("Expected (?, ?, ?), got %s", got)
	}
}

func TestReplicate(t *testing.T) {
	source, sourceMock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create source mock: %v", err)
	}
	defer source.Close()

	dest, destMock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create dest mock: %v", err)
	}
	defer dest.Close()

	ddl := "CREATE TABLE `users` (`id` varchar(16), `name` text)"
	sourceMock.ExpectQuery("SHOW CREATE TABLE `users`").
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Create Table"}).AddRow("users", ddl))
	sourceMock.ExpectQuery("SELECT \\* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow("1", "Alice's Toy").
			AddRow("2", `'; DROP TABLE x; --`))

	destMock.ExpectExec("CREATE TABLE `users__backup_stage`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	// Hostile values travel as bound arguments, never as SQL text.
	destMock.ExpectExec("INSERT INTO `users__backup_stage` \\(`id`, `name`\\) VALUES \\(\\?, \\?\\),\\(\\?, \\?\\)").
		WithArgs("1", "Alice's Toy", "2", `'; DROP TABLE x; --`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	replicator := NewReplicator(introspect.NewIntrospector(), quietLogger())
	rows, err := replicator.Replicate(context.Background(), source, dest, "users", "users__backup_stage")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rows != 2 {
		t.Errorf("Expected 2 rows copied, got %d", rows)
	}

	if err := sourceMock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled source expectations: %v", err)
	}
	if err := destMock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled dest expectations: %v", err)
	}
}

func TestReplicate_EmptyTable(t *testing.T) {
	source, sourceMock, _ := sqlmock.New()
	defer source.Close()
	dest, destMock, _ := sqlmock.New()
	defer dest.Close()

	sourceMock.ExpectQuery("SHOW CREATE TABLE `empty`").
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Create Table"}).
			AddRow("empty", "CREATE TABLE `empty` (`id` int)"))
	sourceMock.ExpectQuery("SELECT \\* FROM `empty`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	destMock.ExpectExec("CREATE TABLE `empty__tmp_restore`").
		WillReturnResult(sqlmock.NewResult(0, 0))

	replicator := NewReplicator(introspect.NewIntrospector(), quietLogger())
	rows, err := replicator.Replicate(context.Background(), source, dest, "empty", "empty__tmp_restore")
	if err != nil {
		t.Fatalf("Expected empty table to be a valid outcome, got %v", err)
	}
	if rows != 0 {
		t.Errorf("Expected 0 rows, got %d", rows)
	}
}

func TestReplicate_SchemaCreateConflict(t *testing.T) {
	source, sourceMock, _ := sqlmock.New()
	defer source.Close()
	dest, destMock, _ := sqlmock.New()
	defer dest.Close()

	sourceMock.ExpectQuery("SHOW CREATE TABLE `users`").
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Create Table"}).
			AddRow("users", "CREATE TABLE `users` (`id` int)"))
	destMock.ExpectExec("CREATE TABLE `users__tmp_restore`").
		WillReturnError(errors.New("Error 1050: Table 'users__tmp_restore' already exists"))

	replicator := NewReplicator(introspect.NewIntrospector(), quietLogger())
	_, err := replicator.Replicate(context.Background(), source, dest, "users", "users__tmp_restore")
	if err == nil {
		t.Fatal("Expected error")
	}
	if TypeOf(err) != ErrTypeSchemaCreate {
		t.Errorf("Expected schema create error, got %s", TypeOf(err))
	}
}

func TestReplicate_ReadFailureCarriesTableName(t *testing.T) {
	source, sourceMock, _ := sqlmock.New()
	defer source.Close()
	dest, destMock, _ := sqlmock.New()
	defer dest.Close()

	sourceMock.ExpectQuery("SHOW CREATE TABLE `t2`").
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Create Table"}).
			AddRow("t2", "CREATE TABLE `t2` (`id` int)"))
	destMock.ExpectExec("CREATE TABLE `t2__tmp_restore`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	sourceMock.ExpectQuery("SELECT \\* FROM `t2`").
		WillReturnError(errors.New("read failed"))

	replicator := NewReplicator(introspect.NewIntrospector(), quietLogger())
	_, err := replicator.Replicate(context.Background(), source, dest, "t2", "t2__tmp_restore")
	if err == nil {
		t.Fatal("Expected error")
	}

	var mirrorErr *Error
	if !errors.As(err, &mirrorErr) {
		t.Fatalf("Expected mirror error, got %T", err)
	}
	if mirrorErr.Table != "t2" {
		t.Errorf("Expected table name attached, got %q", mirrorErr.Table)
	}
	if mirrorErr.Type != ErrTypeDataCopy {
		t.Errorf("Expected data copy error, got %s", mirrorErr.Type)
	}
}

func TestReplicate_Batching(t *testing.T) {
	source, sourceMock, _ := sqlmock.New()
	defer source.Close()
	dest, destMock, _ := sqlmock.New()
	defer dest.Close()

	sourceMock.ExpectQuery("SHOW CREATE TABLE `big`").
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Create Table"}).
			AddRow("big", "CREATE TABLE `big` (`id` int)"))

	rows := sqlmock.NewRows([]string{"id"})
	for i := 0; i < 3; i++ {
		rows.AddRow(i)
	}
	sourceMock.ExpectQuery("SELECT \\* FROM `big`").WillReturnRows(rows)

	destMock.ExpectExec("CREATE TABLE `big__tmp_restore`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	// Batch size 2: one full batch, one remainder.
	destMock.ExpectExec("INSERT INTO `big__tmp_restore` \\(`id`\\) VALUES \\(\\?\\),\\(\\?\\)").
		WillReturnResult(sqlmock.NewResult(0, 2))
	destMock.ExpectExec("INSERT INTO `big__tmp_restore` \\(`id`\\) VALUES \\(\\?\\)").
		WillReturnResult(sqlmock.NewResult(0, 1))

	replicator := NewReplicatorWithBatchSize(introspect.NewIntrospector(), quietLogger(), 2)
	count, err := replicator.Replicate(context.Background(), source, dest, "big", "big__tmp_restore")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 rows, got %d", count)
	}

	if err := destMock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled dest expectations: %v", err)
	}
}
