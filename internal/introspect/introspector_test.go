package introspect

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestNewIntrospector(t *testing.T) {
	in := NewIntrospector()
	if in == nil {
		t.Fatal("Expected introspector to be created")
	}
	if in.queryTimeout != 30*time.Second {
		t.Errorf("Expected default timeout to be 30s, got %v", in.queryTimeout)
	}
}

func TestListTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"TABLE_NAME"}).
		AddRow("images").
		AddRow("users")

	mock.ExpectQuery("SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES").
		WillReturnRows(rows)

	in := NewIntrospector()
	tables, err := in.ListTables(context.Background(), db)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(tables) != 2 {
		t.Fatalf("Expected 2 tables, got %d", len(tables))
	}
	if tables[0] != "images" || tables[1] != "users" {
		t.Errorf("Expected sorted table names, got %v", tables)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestListTables_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}))

	in := NewIntrospector()
	tables, err := in.ListTables(context.Background(), db)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(tables) != 0 {
		t.Errorf("Expected no tables, got %v", tables)
	}
}

func TestListTables_NilDB(t *testing.T) {
	in := NewIntrospector()
	if _, err := in.ListTables(context.Background(), nil); err == nil {
		t.Error("Expected error for nil database connection")
	}
}

func TestGetDefinition(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	ddl := "CREATE TABLE `users` (\n  `id` int NOT NULL,\n  PRIMARY KEY (`id`)\n)"
	mock.ExpectQuery("SHOW CREATE TABLE `users`").
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Create Table"}).AddRow("users", ddl))

	in := NewIntrospector()
	def, err := in.GetDefinition(context.Background(), db, "users")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if def.Name != "users" {
		t.Errorf("Expected name users, got %s", def.Name)
	}
	if def.DDL != ddl {
		t.Errorf("Expected DDL to be captured verbatim, got %s", def.DDL)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestGetDefinition_VanishedTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SHOW CREATE TABLE `ghost`").
		WillReturnError(&mysqlTableMissingError{})

	in := NewIntrospector()
	if _, err := in.GetDefinition(context.Background(), db, "ghost"); err == nil {
		t.Error("Expected error for vanished table")
	}
}

func TestGetDefinition_EmptyName(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	in := NewIntrospector()
	if _, err := in.GetDefinition(context.Background(), db, ""); err == nil {
		t.Error("Expected error for empty table name")
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"users", "`users`"},
		{"users__tmp_restore", "`users__tmp_restore`"},
		{"odd`name", "`odd``name`"},
	}

	for _, tt := range tests {
		if got := QuoteIdentifier(tt.in); got != tt.want {
			t.Errorf("QuoteIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type mysqlTableMissingError struct{}

func (e *mysqlTableMissingError) Error() string { return "Error 1146: Table 'app.ghost' doesn't exist" }
