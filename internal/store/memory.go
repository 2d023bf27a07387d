package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"appointment-booking-api/internal/model"
)

// Memory is an in-process Backend with the same compare-and-swap
// semantics as the Postgres store. Data is lost on restart.
type Memory struct {
	mu           sync.RWMutex
	appointments map[string]model.Appointment
	users        map[string]model.User
	emails       map[string]string
	tokens       map[string]RefreshToken
	now          func() time.Time
}

var _ Backend = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		appointments: make(map[string]model.Appointment),
		users:        make(map[string]model.User),
		emails:       make(map[string]string),
		tokens:       make(map[string]RefreshToken),
		now:          time.Now,
	}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) FindByID(_ context.Context, id string) (*model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := a.Clone()
	return &c, nil
}

func (m *Memory) filter(keep func(*model.Appointment) bool) []model.Appointment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Appointment
	for _, a := range m.appointments {
		if keep(&a) {
			out = append(out, a.Clone())
		}
	}
	slices.SortFunc(out, func(a, b model.Appointment) int {
		if a.Before(&b) {
			return -1
		}
		if b.Before(&a) {
			return 1
		}
		return 0
	})
	return out
}

func (m *Memory) FindAvailable(context.Context) ([]model.Appointment, error) {
	return m.filter(func(a *model.Appointment) bool { return a.IsAvailable }), nil
}

func (m *Memory) ListAll(context.Context) ([]model.Appointment, error) {
	return m.filter(func(*model.Appointment) bool { return true }), nil
}

func (m *Memory) ListByOwner(_ context.Context, userID string) ([]model.Appointment, error) {
	return m.filter(func(a *model.Appointment) bool { return a.OwnedBy(userID) }), nil
}

func (m *Memory) Save(_ context.Context, a *model.Appointment) (*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.appointments[a.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if cur.Version != a.Version {
		return nil, ErrStale
	}
	cur.IsAvailable = a.IsAvailable
	cur.ReservedBy = a.Clone().ReservedBy
	cur.Version++
	cur.UpdatedAt = m.now()
	m.appointments[a.ID] = cur
	saved := cur.Clone()
	return &saved, nil
}

func (m *Memory) CreateAppointment(_ context.Context, a *model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[a.ID]; ok {
		return ErrDuplicate
	}
	for _, o := range m.appointments {
		if o.Date.Compare(a.Date) == 0 && o.StartTime == a.StartTime && o.EndTime == a.EndTime {
			return ErrDuplicate
		}
	}
	now := m.now()
	a.Version = 1
	a.CreatedAt, a.UpdatedAt = now, now
	m.appointments[a.ID] = a.Clone()
	return nil
}

func (m *Memory) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := m.emails[key]; ok {
		return ErrDuplicate
	}
	if _, ok := m.users[u.ID]; ok {
		return ErrDuplicate
	}
	now := m.now()
	u.CreatedAt, u.UpdatedAt = now, now
	m.users[u.ID] = *u
	m.emails[key] = u.ID
	return nil
}

func (m *Memory) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	id, ok := m.emails[strings.ToLower(email)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.UserByID(ctx, id)
}

func (m *Memory) UserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) CreateRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[tokenHash]; ok {
		return "", ErrDuplicate
	}
	id := uuid.New().String()
	m.tokens[tokenHash] = RefreshToken{
		ID: id, UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: m.now(),
	}
	return id, nil
}

func (m *Memory) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*RefreshToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rt, ok := m.tokens[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	return &rt, nil
}

func (m *Memory) RotateRefreshToken(_ context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, rt := range m.tokens {
		if rt.ID != oldID {
			continue
		}
		if rt.Revoked {
			return ErrStale
		}
		if _, ok := m.tokens[newHash]; ok {
			return ErrDuplicate
		}
		rt.Revoked = true
		rt.ReplacedBy = &newID
		m.tokens[hash] = rt
		m.tokens[newHash] = RefreshToken{
			ID: newID, UserID: userID, TokenHash: newHash, ExpiresAt: newExpiry, CreatedAt: m.now(),
		}
		return nil
	}
	return ErrNotFound
}

func (m *Memory) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, rt := range m.tokens {
		if rt.UserID == userID && !rt.Revoked {
			rt.Revoked = true
			m.tokens[hash] = rt
		}
	}
	return nil
}
