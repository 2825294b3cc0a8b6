package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

func TestCreateCopyAndGetBookCounts(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	book, _ := CreateBook(ctx, database, "Dune", "9780441013593")
	CreateCopy(ctx, database, book.ID, 1)
	CreateCopy(ctx, database, book.ID, 2)

	got, err := GetBook(ctx, database, book.ID)
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if got.TotalCopies != 2 || got.AvailableCopies != 2 {
		t.Errorf("expected 2/2 copies, got %d/%d", got.AvailableCopies, got.TotalCopies)
	}

	if _, err := CreateCopy(ctx, database, book.ID, 1); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for repeated copy number, got %v", err)
	}
}

func TestGetMissingCopy(t *testing.T) {
	database := db.NewTestDB(t)

	c, err := GetCopy(context.Background(), database, 99)
	if err != nil {
		t.Fatalf("GetCopy: %v", err)
	}
	if c != nil {
		t.Errorf("expected nil for missing copy, got %+v", c)
	}
}

func TestListAvailableCopiesOrderAndLimit(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	book, _ := CreateBook(ctx, database, "Dune", "")
	c3, _ := CreateCopy(ctx, database, book.ID, 3)
	c1, _ := CreateCopy(ctx, database, book.ID, 1)
	c2, _ := CreateCopy(ctx, database, book.ID, 2)

	SetCopyStatus(ctx, database, c2.ID, model.CopyAvailable, model.CopyMaintenance, time.Now())

	all, err := ListAvailableCopies(ctx, database, book.ID, 0)
	if err != nil {
		t.Fatalf("ListAvailableCopies: %v", err)
	}
	if len(all) != 2 || all[0].ID != c1.ID || all[1].ID != c3.ID {
		t.Errorf("expected copies [%d %d], got %+v", c1.ID, c3.ID, all)
	}

	limited, _ := ListAvailableCopies(ctx, database, book.ID, 1)
	if len(limited) != 1 || limited[0].ID != c1.ID {
		t.Errorf("expected only copy %d, got %+v", c1.ID, limited)
	}
}

func TestSetCopyStatusCompareAndSet(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	book, _ := CreateBook(ctx, database, "Dune", "")
	c, _ := CreateCopy(ctx, database, book.ID, 1)
	now := time.Now()

	ok, err := SetCopyStatus(ctx, database, c.ID, model.CopyAvailable, model.CopyCheckedOut, now)
	if err != nil {
		t.Fatalf("SetCopyStatus: %v", err)
	}
	if !ok {
		t.Fatal("expected first transition to succeed")
	}

	// Same expectation again must fail: the copy is no longer available.
	ok, err = SetCopyStatus(ctx, database, c.ID, model.CopyAvailable, model.CopyCheckedOut, now)
	if err != nil {
		t.Fatalf("SetCopyStatus: %v", err)
	}
	if ok {
		t.Error("expected stale transition to fail")
	}

	got, _ := GetCopy(ctx, database, c.ID)
	if got.Status != model.CopyCheckedOut {
		t.Errorf("expected checked_out, got %q", got.Status)
	}

	ok, _ = SetCopyStatus(ctx, database, 999, model.CopyAvailable, model.CopyCheckedOut, now)
	if ok {
		t.Error("expected transition on missing copy to fail")
	}
}
