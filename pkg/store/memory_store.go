package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"researchduo/pkg/domain"
)

// MemoryStore keeps users and research records in-process. It backs the
// "memory" store driver for local runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]domain.ResearchRecord
	seq      map[string]int         // record ID -> insertion order
	users    map[string]domain.User // key: user ID
	username map[string]string      // username -> user ID
	now      func() time.Time
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]domain.ResearchRecord),
		seq:      make(map[string]int),
		users:    make(map[string]domain.User),
		username: make(map[string]string),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser registers a user.
func (m *MemoryStore) CreateUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := strings.TrimSpace(u.Username)
	if _, ok := m.username[name]; ok {
		return ErrUsernameTaken
	}
	u.Username = name
	m.users[u.ID] = u
	m.username[name] = u.ID
	return nil
}

// GetUserByUsername looks up a user by username.
func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.username[username]
	if !ok {
		return domain.User{}, false, nil
	}
	u, exists := m.users[id]
	return u, exists, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(_ context.Context, id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// CreateRecord inserts a new research record at step 1.
func (m *MemoryStore) CreateRecord(_ context.Context, topic, rawReport string, owner domain.Identity) (domain.ResearchRecord, error) {
	if !owner.Valid() {
		return domain.ResearchRecord{}, ErrInvalidOwner
	}
	rec := domain.ResearchRecord{
		ID:        uuid.NewString(),
		Topic:     topic,
		RawReport: rawReport,
		Step:      domain.StepRaw,
	}
	if owner.IsGuest() {
		rec.GuestID = owner.ID
	} else {
		rec.UserID = owner.ID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.CreatedAt = m.now()
	m.records[rec.ID] = rec
	m.seq[rec.ID] = len(m.seq)
	return cloneRecord(rec), nil
}

// GetRecord retrieves a record by ID.
func (m *MemoryStore) GetRecord(_ context.Context, id string) (domain.ResearchRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return domain.ResearchRecord{}, false, nil
	}
	return cloneRecord(rec), true, nil
}

// UpdateRecord applies patch atomically; step is only raised.
func (m *MemoryStore) UpdateRecord(_ context.Context, id string, patch domain.RecordPatch) (domain.ResearchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return domain.ResearchRecord{}, ErrRecordNotFound
	}
	if patch.RefinedReport != nil {
		v := *patch.RefinedReport
		rec.RefinedReport = &v
	}
	if patch.FinalPost != nil {
		v := *patch.FinalPost
		rec.FinalPost = &v
	}
	if patch.Step.Valid() {
		rec.Step = domain.MaxStep(rec.Step, patch.Step)
	}
	m.records[id] = rec
	return cloneRecord(rec), nil
}

// ListRecordsByOwner returns the owner's records, newest first.
func (m *MemoryStore) ListRecordsByOwner(_ context.Context, owner domain.Identity) ([]domain.ResearchRecord, error) {
	if !owner.Valid() {
		return nil, ErrInvalidOwner
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.ResearchRecord, 0)
	for _, rec := range m.records {
		if rec.OwnedBy(owner) {
			res = append(res, cloneRecord(rec))
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return m.seq[res[i].ID] > m.seq[res[j].ID]
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func cloneRecord(rec domain.ResearchRecord) domain.ResearchRecord {
	if rec.RefinedReport != nil {
		v := *rec.RefinedReport
		rec.RefinedReport = &v
	}
	if rec.FinalPost != nil {
		v := *rec.FinalPost
		rec.FinalPost = &v
	}
	return rec
}
