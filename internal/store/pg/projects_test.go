package pg

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/auth"
)

func TestProjectRef(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(`select id, created_by, assigned_to from projects where id = \$1`).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_by", "assigned_to"}).AddRow(int64(10), int64(2), nil))
	mock.ExpectQuery(`from projects`).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_by", "assigned_to"}))

	ref, err := store.Projects().ProjectRef(context.Background(), 10)
	if err != nil {
		t.Fatalf("ProjectRef: %v", err)
	}
	if ref.CreatorID != 2 || ref.AssigneeID != 0 {
		t.Fatalf("unexpected ref: %+v", ref)
	}
	if _, err := store.Projects().ProjectRef(context.Background(), 11); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetProgress(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(`update projects set progress = \$1`).
		WithArgs(75, int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`update projects set progress = \$1`).
		WithArgs(75, int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Projects().SetProgress(context.Background(), 10, 75); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	if err := store.Projects().SetProgress(context.Background(), 12, 75); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
