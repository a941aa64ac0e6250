package migrations

import (
	"io/fs"
	"reflect"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	input := `-- header comment
CREATE TABLE a (x Int32);

-- second
CREATE TABLE b (
    y String
);
`
	got := splitStatements(input)
	want := []string{
		"CREATE TABLE a (x Int32)",
		"CREATE TABLE b (\n    y String\n)",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitStatements() = %q, want %q", got, want)
	}
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	if err := validateNoSemicolonInStrings("SELECT 'a''b'; SELECT 1;"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := validateNoSemicolonInStrings("SELECT 'a;b'"); err == nil {
		t.Error("expected error for semicolon in string literal")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	tests := []struct {
		fsys fs.FS
		dir  string
	}{
		{PostgresFS, "postgres"},
		{ClickhouseFS, "clickhouse"},
		{SQLiteFS, "sqlite"},
	}

	for _, tt := range tests {
		files, err := sqlFiles(tt.fsys, tt.dir)
		if err != nil {
			t.Fatalf("sqlFiles(%s) failed: %v", tt.dir, err)
		}
		if len(files) == 0 {
			t.Errorf("no embedded migrations in %s", tt.dir)
		}
		for _, f := range files {
			data, err := fs.ReadFile(tt.fsys, tt.dir+"/"+f)
			if err != nil {
				t.Fatalf("read %s: %v", f, err)
			}
			if err := validateNoSemicolonInStrings(string(data)); err != nil {
				t.Errorf("%s/%s: %v", tt.dir, f, err)
			}
		}
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/analytics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db != "analytics" {
		t.Errorf("database = %q, want analytics", db)
	}

	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Error("expected error for dsn without database")
	}
}
