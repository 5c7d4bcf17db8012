package database

import (
	"context"
	"database/sql"
	"fmt"
)

type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Session is one dedicated database connection. Every statement of a prompt
// request runs on the same Session, and the owner closes it exactly once.
type Session interface {
	Querier
	Close() error
}

type SessionOpener interface {
	OpenSession(ctx context.Context) (Session, error)
}

type Sessions struct {
	db *sql.DB
}

func NewSessions(db *sql.DB) *Sessions {
	return &Sessions{db: db}
}

func (s *Sessions) OpenSession(ctx context.Context) (Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire database session: %w", err)
	}
	return conn, nil
}

func (s *Sessions) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}
