package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteDenialLog struct {
	db *sql.DB
}

func NewSQLiteDenialLog(db *sql.DB) *SQLiteDenialLog {
	return &SQLiteDenialLog{db: db}
}

func (s *SQLiteDenialLog) Record(ctx context.Context, d Denial) error {
	d = stamp(d)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO denials(id, at, gate, reason, status, path, remote_addr, user_agent) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID.String(), d.At.Format(timeLayout), d.Gate, d.Reason, d.Status, d.Path, d.RemoteAddr, d.UserAgent,
	)
	return err
}

func (s *SQLiteDenialLog) Recent(ctx context.Context, limit int) ([]Denial, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, at, gate, reason, status, path, remote_addr, user_agent FROM denials ORDER BY seq DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Denial{}
	for rows.Next() {
		var (
			d      Denial
			id, at string
		)
		if err := rows.Scan(&id, &at, &d.Gate, &d.Reason, &d.Status, &d.Path, &d.RemoteAddr, &d.UserAgent); err != nil {
			return nil, err
		}
		if d.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("denial id %q: %w", id, err)
		}
		if d.At, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("denial %s: %w", id, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLiteDenialLog) Stats(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT reason, COUNT(*) FROM denials GROUP BY reason`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var (
			reason string
			n      int64
		)
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, err
		}
		out[reason] = n
	}
	return out, rows.Err()
}
