package store

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// MockDriver is an in-memory Driver for tests. It honors the same ordering
// and atomicity contracts as the SQL drivers and supports failure injection.
type MockDriver struct {
	mu sync.Mutex

	sessions  map[int32]*Session
	turns     map[int32]*Turn
	summaries map[int32]*SummaryArtifact
	nextID    int32

	// FailAppend, when set, makes AppendExchange fail without persisting
	// anything.
	FailAppend error
}

func NewMockDriver() *MockDriver {
	return &MockDriver{
		sessions:  make(map[int32]*Session),
		turns:     make(map[int32]*Turn),
		summaries: make(map[int32]*SummaryArtifact),
	}
}

func (d *MockDriver) GetDB() *sql.DB { return nil }

func (d *MockDriver) Close() error { return nil }

func (d *MockDriver) Migrate(context.Context) error { return nil }

func (d *MockDriver) CreateSession(_ context.Context, create *Session) (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.sessions {
		if s.UID == create.UID {
			return nil, errors.Errorf("session uid %s already exists", create.UID)
		}
	}
	d.nextID++
	create.ID = d.nextID
	clone := *create
	d.sessions[create.ID] = &clone
	return create, nil
}

func (d *MockDriver) ListSessions(_ context.Context, find *FindSession) ([]*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*Session{}
	for _, s := range d.sessions {
		if find.ID != nil && s.ID != *find.ID {
			continue
		}
		if find.UID != nil && s.UID != *find.UID {
			continue
		}
		if find.PartitionDate != nil && s.PartitionDate != *find.PartitionDate {
			continue
		}
		clone := *s
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedTs > list[j].UpdatedTs })
	return list, nil
}

func (d *MockDriver) UpdateSession(_ context.Context, update *UpdateSession) (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.applyUpdate(update)
}

func (d *MockDriver) applyUpdate(update *UpdateSession) (*Session, error) {
	s, ok := d.sessions[update.ID]
	if !ok {
		return nil, errors.New("session not found")
	}
	if update.Mode != nil {
		s.Mode = *update.Mode
	}
	if update.NextMode != nil {
		s.NextMode = *update.NextMode
	}
	if update.SystemPrompt != nil {
		s.SystemPrompt = *update.SystemPrompt
	}
	if update.UpdatedTs != nil {
		s.UpdatedTs = *update.UpdatedTs
	}
	clone := *s
	return &clone, nil
}

func (d *MockDriver) DeleteSession(_ context.Context, delete *DeleteSession) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, t := range d.turns {
		if t.SessionID == delete.ID {
			deleteTurn(d.turns, id)
		}
	}
	deleteSummary(d.summaries, delete.ID)
	deleteSession(d.sessions, delete.ID)
	return nil
}

func (d *MockDriver) ListTurns(_ context.Context, find *FindTurn) ([]*Turn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*Turn{}
	for _, t := range d.turns {
		if find.ID != nil && t.ID != *find.ID {
			continue
		}
		if find.UID != nil && t.UID != *find.UID {
			continue
		}
		if find.SessionID != nil && t.SessionID != *find.SessionID {
			continue
		}
		clone := *t
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (d *MockDriver) DeleteTurns(_ context.Context, delete *DeleteTurn) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, t := range d.turns {
		if t.SessionID == *delete.SessionID {
			deleteTurn(d.turns, id)
		}
	}
	return nil
}

func (d *MockDriver) AppendExchange(_ context.Context, turns []*Turn, update *UpdateSession) ([]*Turn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailAppend != nil {
		return nil, d.FailAppend
	}
	for _, turn := range turns {
		d.nextID++
		turn.ID = d.nextID
		clone := *turn
		d.turns[turn.ID] = &clone
	}
	if update != nil {
		if _, err := d.applyUpdate(update); err != nil {
			return nil, err
		}
	}
	return turns, nil
}

func (d *MockDriver) UpsertSummaryArtifact(_ context.Context, upsert *SummaryArtifact) (*SummaryArtifact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.summaries[upsert.SessionID]; ok {
		upsert.ID = existing.ID
	} else {
		d.nextID++
		upsert.ID = d.nextID
	}
	clone := *upsert
	d.summaries[upsert.SessionID] = &clone
	return upsert, nil
}

func (d *MockDriver) GetSummaryArtifact(_ context.Context, find *FindSummaryArtifact) (*SummaryArtifact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if find.SessionID == nil {
		return nil, nil
	}
	artifact, ok := d.summaries[*find.SessionID]
	if !ok {
		return nil, nil
	}
	clone := *artifact
	return &clone, nil
}

func (d *MockDriver) DeleteSummaryArtifact(_ context.Context, delete *DeleteSummaryArtifact) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	deleteSummary(d.summaries, delete.SessionID)
	return nil
}

func deleteSession(m map[int32]*Session, id int32)        { delete(m, id) }
func deleteTurn(m map[int32]*Turn, id int32)              { delete(m, id) }
func deleteSummary(m map[int32]*SummaryArtifact, id int32) { delete(m, id) }
