package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidLimit = errors.New("invalid limit")

const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 500
)

// Denial is one rejected request, kept for operators.
type Denial struct {
	ID         uuid.UUID `json:"id"`
	At         time.Time `json:"at"`
	Gate       string    `json:"gate"`
	Reason     string    `json:"reason"`
	Status     int       `json:"status"`
	Path       string    `json:"path"`
	RemoteAddr string    `json:"remote_addr"`
	UserAgent  string    `json:"user_agent"`
}

type DenialLog interface {
	Record(ctx context.Context, d Denial) error
	// Recent returns the newest denials first.
	Recent(ctx context.Context, limit int) ([]Denial, error)
	// Stats counts denials per reason.
	Stats(ctx context.Context) (map[string]int64, error)
}

func checkLimit(limit int) error {
	if limit <= 0 || limit > MaxRecentLimit {
		return ErrInvalidLimit
	}
	return nil
}

func stamp(d Denial) Denial {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.At.IsZero() {
		d.At = time.Now()
	}
	d.At = d.At.UTC()
	return d
}
