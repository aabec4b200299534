package db

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestInitPostgres_ErrorPaths(t *testing.T) {
	cases := []struct {
		name       string
		dsn        string
		wantSubstr string
	}{
		{"invalid DSN", "some=random", "ping postgres"},
		{"empty DSN", "", "ping postgres"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := InitPostgres(context.Background(), tc.dsn)
			if err == nil {
				t.Fatalf("InitPostgres(%q) did not return error", tc.dsn)
			}
			if !strings.Contains(err.Error(), tc.wantSubstr) {
				t.Errorf("InitPostgres(%q) error = %q; want substring %q", tc.dsn, err.Error(), tc.wantSubstr)
			}
		})
	}
}

func TestMigrate_UsesEmbeddedDir(t *testing.T) {
	dbMock, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer dbMock.Close()

	orig := gooseUp
	defer func() { gooseUp = orig }()

	var gotDir string
	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
		gotDir = dir
		return nil
	}

	if err := Migrate(context.Background(), dbMock); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if gotDir != "migrations" {
		t.Errorf("dir = %q; want %q", gotDir, "migrations")
	}

	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected embedded migrations, got %v (%v)", entries, err)
	}
}

func TestMigrate_Error(t *testing.T) {
	dbMock, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer dbMock.Close()

	orig := gooseUp
	defer func() { gooseUp = orig }()
	gooseUp = func(context.Context, *sql.DB, string) error { return errors.New("boom") }

	err = Migrate(context.Background(), dbMock)
	if err == nil || !strings.Contains(err.Error(), "migrate: boom") {
		t.Errorf("Migrate error = %v; want migrate: boom", err)
	}
}
