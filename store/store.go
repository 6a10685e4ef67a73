package store

import (
	"context"
	"time"

	"github.com/hrygo/aicall/internal/profile"
	"github.com/hrygo/aicall/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// sessionCache caches sessions by UID to avoid a lookup per turn.
	sessionCache *cache.Cache
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
		sessionCache: cache.New(cache.Config{
			DefaultTTL: 10 * time.Minute,
			MaxItems:   1000,
		}),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

// Migrate applies the schema on startup.
func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateSession(ctx context.Context, create *Session) (*Session, error) {
	session, err := s.driver.CreateSession(ctx, create)
	if err != nil {
		return nil, err
	}
	s.sessionCache.Set(session.UID, session)
	return session, nil
}

// GetSessionByUID returns the session with the given public id, or nil when
// it does not exist.
func (s *Store) GetSessionByUID(ctx context.Context, uid string) (*Session, error) {
	if v, ok := s.sessionCache.Get(uid); ok {
		if session, ok := v.(*Session); ok {
			return session, nil
		}
	}

	sessions, err := s.driver.ListSessions(ctx, &FindSession{UID: &uid})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	s.sessionCache.Set(uid, sessions[0])
	return sessions[0], nil
}

func (s *Store) ListSessions(ctx context.Context, find *FindSession) ([]*Session, error) {
	return s.driver.ListSessions(ctx, find)
}

func (s *Store) UpdateSession(ctx context.Context, update *UpdateSession) (*Session, error) {
	session, err := s.driver.UpdateSession(ctx, update)
	if err != nil {
		return nil, err
	}
	s.sessionCache.Set(session.UID, session)
	return session, nil
}

// DeleteSessionByUID removes the session record together with its turns and
// summary artifact. Unknown ids are a no-op, which makes deletion idempotent.
func (s *Store) DeleteSessionByUID(ctx context.Context, uid string) error {
	session, err := s.GetSessionByUID(ctx, uid)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}
	if err := s.driver.DeleteSession(ctx, &DeleteSession{ID: session.ID}); err != nil {
		return err
	}
	s.sessionCache.Delete(uid)
	return nil
}

func (s *Store) ListTurns(ctx context.Context, find *FindTurn) ([]*Turn, error) {
	return s.driver.ListTurns(ctx, find)
}

// AppendExchange appends the turns of one exchange and applies the session
// update in a single transaction.
func (s *Store) AppendExchange(ctx context.Context, turns []*Turn, update *UpdateSession) ([]*Turn, error) {
	appended, err := s.driver.AppendExchange(ctx, turns, update)
	if err != nil {
		return nil, err
	}
	// The cached session no longer reflects mode/timestamp state.
	if update != nil {
		if sessions, err := s.driver.ListSessions(ctx, &FindSession{ID: &update.ID}); err == nil && len(sessions) > 0 {
			s.sessionCache.Set(sessions[0].UID, sessions[0])
		}
	}
	return appended, nil
}

func (s *Store) UpsertSummaryArtifact(ctx context.Context, upsert *SummaryArtifact) (*SummaryArtifact, error) {
	return s.driver.UpsertSummaryArtifact(ctx, upsert)
}

func (s *Store) GetSummaryArtifact(ctx context.Context, find *FindSummaryArtifact) (*SummaryArtifact, error) {
	return s.driver.GetSummaryArtifact(ctx, find)
}

func (s *Store) DeleteSummaryArtifact(ctx context.Context, delete *DeleteSummaryArtifact) error {
	return s.driver.DeleteSummaryArtifact(ctx, delete)
}
