package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/auth"
)

// ProjectStore exposes the slice of the projects table the auth layer needs:
// ownership lookup and progress updates.
type ProjectStore struct {
	db *sql.DB
}

var _ auth.ProjectStore = (*ProjectStore)(nil)

func (s *ProjectStore) ProjectRef(ctx context.Context, id int64) (auth.ProjectRef, error) {
	if s.db == nil {
		return auth.ProjectRef{}, errNoDB
	}
	var (
		ref               auth.ProjectRef
		creator, assignee sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `select id, created_by, assigned_to from projects where id = $1`, id).
		Scan(&ref.ID, &creator, &assignee)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.ProjectRef{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.ProjectRef{}, err
	}
	ref.CreatorID = creator.Int64
	ref.AssigneeID = assignee.Int64
	return ref, nil
}

func (s *ProjectStore) SetProgress(ctx context.Context, id int64, progress int) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `update projects set progress = $1, updated_at = now() where id = $2`, progress, id)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrCheckViolation {
			return auth.ErrInvalidInput
		}
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}
