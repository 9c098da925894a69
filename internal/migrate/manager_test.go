package migrate

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockManager(t *testing.T, migrations, seeds fs.FS) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return NewManager(db, WithSources(migrations, seeds)), mock
}

func expectEnsure(mock sqlmock.Sqlmock) {
	mock.ExpectExec(`create table if not exists schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`create table if not exists schema_seeds`).WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestUpAppliesPendingInOrder(t *testing.T) {
	src := fstest.MapFS{
		"0001_a.up.sql":   {Data: []byte("create table a (id int); create table a2 (id int);")},
		"0001_a.down.sql": {Data: []byte("drop table a;")},
		"0002_b.up.sql":   {Data: []byte("create table b (note text default 'x;y');")},
	}
	m, mock := newMockManager(t, src, nil)

	expectEnsure(mock)
	mock.ExpectQuery(`select name from schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_a.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec(`create table b \(note text default 'x;y'\)`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`insert into schema_migrations`).
		WithArgs("0002_b.up.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := m.Up(context.Background())
	if err != nil {
		t.Fatalf("Up: %v", err)
	}
	if len(applied) != 1 || applied[0] != "0002_b.up.sql" {
		t.Fatalf("unexpected applied list: %v", applied)
	}
}

func TestDownRollsBackLatest(t *testing.T) {
	src := fstest.MapFS{
		"0001_a.up.sql":   {Data: []byte("create table a (id int);")},
		"0001_a.down.sql": {Data: []byte("drop table a;")},
	}
	m, mock := newMockManager(t, src, nil)

	expectEnsure(mock)
	mock.ExpectQuery(`select name from schema_migrations order by applied_at`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_a.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec(`drop table a`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec(`delete from schema_migrations where name = \$1`).
		WithArgs("0001_a.up.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))

	name, err := m.Down(context.Background())
	if err != nil {
		t.Fatalf("Down: %v", err)
	}
	if name != "0001_a.up.sql" {
		t.Fatalf("unexpected rollback: %s", name)
	}
}

func TestDownWithoutHistory(t *testing.T) {
	m, mock := newMockManager(t, fstest.MapFS{}, nil)
	expectEnsure(mock)
	mock.ExpectQuery(`select name from schema_migrations`).WillReturnRows(sqlmock.NewRows([]string{"name"}))

	if _, err := m.Down(context.Background()); err == nil {
		t.Fatal("expected error with nothing applied")
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	migrations, seeds := Embedded()
	files, err := collectSQL(migrations, ".up.sql")
	if err != nil {
		t.Fatalf("collectSQL: %v", err)
	}
	want := []string{"0001_users.up.sql", "0002_audit_logs.up.sql", "0003_projects.up.sql"}
	if strings.Join(files, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected migrations: %v", files)
	}
	for _, f := range files {
		down := strings.TrimSuffix(f, ".up.sql") + ".down.sql"
		if _, err := fs.Stat(migrations, down); err != nil {
			t.Fatalf("missing %s", down)
		}
	}
	seedFiles, err := collectSQL(seeds, ".sql")
	if err != nil || len(seedFiles) == 0 {
		t.Fatalf("expected embedded seeds, got %v err=%v", seedFiles, err)
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("create table a (x text default ';'); insert into a values ('it''s');\n")
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
}
