package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/domain"
	"github.com/google/uuid"
)

func stringPtr(s string) *string {
	return &s
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memAccounts is an AccountStore whose increment is atomic under mu, like
// the single-statement UPDATE in the SQL repository.
type memAccounts struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*domain.Account
	lookups  int
	writes   int
	writeErr error
}

func newMemAccounts(accounts ...*domain.Account) *memAccounts {
	m := &memAccounts{byID: make(map[uuid.UUID]*domain.Account)}
	for _, a := range accounts {
		m.byID[a.ID] = a
	}
	return m
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	for _, a := range m.byID {
		if strings.EqualFold(a.Email, email) {
			clone := *a
			return &clone, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *memAccounts) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	a, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	clone := *a
	return &clone, nil
}

func (m *memAccounts) RecordFailedAttempt(_ context.Context, id uuid.UUID, maxAttempts int, lockUntil time.Time) (*domain.LockoutState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.writeErr != nil {
		return nil, m.writeErr
	}
	a, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	a.FailedLoginAttempts++
	if a.FailedLoginAttempts >= maxAttempts {
		until := lockUntil
		a.LockoutUntil = &until
	}
	return &domain.LockoutState{FailedLoginAttempts: a.FailedLoginAttempts, LockoutUntil: a.LockoutUntil}, nil
}

func (m *memAccounts) ResetFailedAttempts(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.writeErr != nil {
		return m.writeErr
	}
	a, ok := m.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.FailedLoginAttempts = 0
	a.LockoutUntil = nil
	return nil
}

func (m *memAccounts) state(id uuid.UUID) (int, *time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.byID[id]
	return a.FailedLoginAttempts, a.LockoutUntil
}

type recordedEvent struct {
	table  string
	action domain.AuditAction
	userID uuid.UUID
}

type memAudit struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (m *memAudit) Record(_ context.Context, table string, event *domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, recordedEvent{table: table, action: event.Action, userID: event.UserID})
	return nil
}

func (m *memAudit) actions() []domain.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.action)
	}
	return out
}

type memChallenges struct {
	mu     sync.Mutex
	byHash map[string]*domain.Challenge
}

func newMemChallenges() *memChallenges {
	return &memChallenges{byHash: make(map[string]*domain.Challenge)}
}

func (m *memChallenges) Create(_ context.Context, c *domain.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byHash[c.TokenHash]; ok {
		return errors.New("duplicate token hash")
	}
	clone := *c
	m.byHash[c.TokenHash] = &clone
	return nil
}

func (m *memChallenges) GetByTokenHash(_ context.Context, tokenHash string) (*domain.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byHash[tokenHash]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *memChallenges) Consume(_ context.Context, tokenHash string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byHash[tokenHash]
	if !ok || !c.IsValid(now) {
		return domain.ErrChallengeExpired
	}
	c.ConsumedAt = &now
	return nil
}
