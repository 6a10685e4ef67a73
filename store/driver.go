package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate applies the schema. Safe to call on every startup.
	Migrate(ctx context.Context) error

	// Session model related methods.
	CreateSession(ctx context.Context, create *Session) (*Session, error)
	ListSessions(ctx context.Context, find *FindSession) ([]*Session, error)
	UpdateSession(ctx context.Context, update *UpdateSession) (*Session, error)
	DeleteSession(ctx context.Context, delete *DeleteSession) error

	// Turn model related methods.
	ListTurns(ctx context.Context, find *FindTurn) ([]*Turn, error)
	DeleteTurns(ctx context.Context, delete *DeleteTurn) error

	// AppendExchange atomically appends the given turns and applies the
	// session update in one transaction. A reader never observes one turn
	// of an exchange without its pair, and never observes the turns without
	// the mode update.
	AppendExchange(ctx context.Context, turns []*Turn, update *UpdateSession) ([]*Turn, error)

	// SummaryArtifact model related methods.
	UpsertSummaryArtifact(ctx context.Context, upsert *SummaryArtifact) (*SummaryArtifact, error)
	GetSummaryArtifact(ctx context.Context, find *FindSummaryArtifact) (*SummaryArtifact, error)
	DeleteSummaryArtifact(ctx context.Context, delete *DeleteSummaryArtifact) error
}
