package database

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"
)

func newMemoryDB(t *testing.T, statements ...string) Database {
	t.Helper()
	ctx := context.Background()
	db, err := NewDatabase(ctx, "sqlite:///:memory:")
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	for _, stmt := range statements {
		if err := db.Session(ctx).Exec(stmt).Error; err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return db
}

func countRows(t *testing.T, db Database, table string) int64 {
	t.Helper()
	var n int64
	if err := db.Session(context.Background()).Table(table).Count(&n).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestWithTransaction_Success(t *testing.T) {
	ctx := context.Background()
	db := newMemoryDB(t, "CREATE TABLE items (id TEXT PRIMARY KEY)")

	err := WithTransaction(ctx, db, func(tx *gorm.DB) error {
		if err := tx.Exec("INSERT INTO items (id) VALUES (?)", "a").Error; err != nil {
			return err
		}
		return tx.Exec("INSERT INTO items (id) VALUES (?)", "b").Error
	})
	if err != nil {
		t.Fatalf("WithTransaction: %v", err)
	}

	if got := countRows(t, db, "items"); got != 2 {
		t.Errorf("expected 2 rows, got %d", got)
	}
}

func TestWithTransaction_ErrorRollsBack(t *testing.T) {
	ctx := context.Background()
	db := newMemoryDB(t, "CREATE TABLE items (id TEXT PRIMARY KEY)")
	sentinel := errors.New("boom")

	err := WithTransaction(ctx, db, func(tx *gorm.DB) error {
		if err := tx.Exec("INSERT INTO items (id) VALUES (?)", "a").Error; err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}

	if got := countRows(t, db, "items"); got != 0 {
		t.Errorf("expected rollback, got %d rows", got)
	}
}

func TestWithTransactionResult_Success(t *testing.T) {
	ctx := context.Background()
	db := newMemoryDB(t, "CREATE TABLE items (id TEXT PRIMARY KEY)")

	n, err := WithTransactionResult(ctx, db, func(tx *gorm.DB) (int64, error) {
		result := tx.Exec("INSERT INTO items (id) VALUES (?), (?)", "a", "b")
		return result.RowsAffected, result.Error
	})
	if err != nil {
		t.Fatalf("WithTransactionResult: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows affected, got %d", n)
	}
}

func TestWithTransactionResult_Error(t *testing.T) {
	ctx := context.Background()
	db := newMemoryDB(t, "CREATE TABLE items (id TEXT PRIMARY KEY)")

	n, err := WithTransactionResult(ctx, db, func(tx *gorm.DB) (int, error) {
		return 7, tx.Exec("INSERT INTO missing (id) VALUES (?)", "a").Error
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if n != 0 {
		t.Errorf("expected zero result on error, got %d", n)
	}
}
