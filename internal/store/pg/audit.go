package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/audit"
)

// AuditStore implements audit.Store over the append-only audit_logs table.
type AuditStore struct {
	db *sql.DB
}

var _ audit.Store = (*AuditStore)(nil)

func (s *AuditStore) Append(ctx context.Context, rec audit.Record) error {
	if s.db == nil {
		return errNoDB
	}
	before, err := nullJSON(rec.Before)
	if err != nil {
		return err
	}
	after, err := nullJSON(rec.After)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into audit_logs (id, user_id, action, table_name, record_id, old_values, new_values,
			ip_address, user_agent, request_id, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, rec.ID, nullInt(rec.ActorID), rec.Action, nullIfEmpty(rec.TargetTable), nullInt(rec.TargetID),
		before, after, nullIfEmpty(rec.OriginIP), nullIfEmpty(rec.UserAgent), nullIfEmpty(rec.RequestID), rec.CreatedAt)
	return err
}

func (s *AuditStore) History(ctx context.Context, q audit.Query) ([]audit.Record, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	var (
		where []string
		args  []any
	)
	if q.ActorID != nil {
		args = append(args, *q.ActorID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if action := strings.TrimSpace(q.Action); action != "" {
		args = append(args, action)
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}
	if q.Before != "" {
		args = append(args, q.Before)
		where = append(where, fmt.Sprintf("id < $%d", len(args)))
	}
	query := `select id, user_id, action, coalesce(table_name, ''), record_id, old_values, new_values,
		coalesce(ip_address, ''), coalesce(user_agent, ''), coalesce(request_id, ''), created_at
		from audit_logs`
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	args = append(args, audit.ClampLimit(q.Limit, audit.DefaultHistoryLimit))
	query += fmt.Sprintf(" order by created_at desc, id desc limit $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Record
	for rows.Next() {
		var (
			rec           audit.Record
			actor, target sql.NullInt64
			before, after []byte
		)
		if err := rows.Scan(&rec.ID, &actor, &rec.Action, &rec.TargetTable, &target, &before, &after,
			&rec.OriginIP, &rec.UserAgent, &rec.RequestID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if actor.Valid {
			rec.ActorID = audit.ID(actor.Int64)
		}
		if target.Valid {
			rec.TargetID = audit.ID(target.Int64)
		}
		if rec.Before, err = decodeJSON(before); err != nil {
			return nil, err
		}
		if rec.After, err = decodeJSON(after); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullJSON(v map[string]any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal audit values: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeJSON(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode audit values: %w", err)
	}
	return m, nil
}
