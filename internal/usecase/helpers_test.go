package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/okorelov/profile-auth/internal/core/domain"
	"github.com/okorelov/profile-auth/internal/infra/security"
	"github.com/okorelov/profile-auth/internal/repository"
)

// memoryAccountRepo is an in-memory port.AccountRepository for service tests.
type memoryAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
	now      func() time.Time
}

func newMemoryAccountRepo(now func() time.Time) *memoryAccountRepo {
	return &memoryAccountRepo{
		accounts: make(map[string]domain.Account),
		now:      now,
	}
}

func (r *memoryAccountRepo) Create(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.accounts {
		if existing.Email == account.Email {
			return repository.ErrConflict
		}
	}
	r.accounts[account.ID] = account
	return nil
}

func (r *memoryAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := account
	return &copy, nil
}

func (r *memoryAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range r.accounts {
		if account.Email == email {
			copy := account
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryAccountRepo) Update(_ context.Context, account domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.accounts[account.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !stored.UpdatedAt.Equal(account.UpdatedAt) {
		return nil, repository.ErrConflict
	}

	account.UpdatedAt = r.now().UTC()
	r.accounts[account.ID] = account
	copy := account
	return &copy, nil
}

// stubGraceStore mirrors the in-process grace store with an injectable clock.
type stubGraceStore struct {
	mu        sync.Mutex
	hash      map[string]string
	expiresAt map[string]time.Time
	now       func() time.Time
}

func newStubGraceStore(now func() time.Time) *stubGraceStore {
	return &stubGraceStore{
		hash:      make(map[string]string),
		expiresAt: make(map[string]time.Time),
		now:       now,
	}
}

func (s *stubGraceStore) Get(_ context.Context, accountID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.expiresAt[accountID]
	if !ok || !exp.After(s.now()) {
		return "", repository.ErrNotFound
	}
	return s.hash[accountID], nil
}

func (s *stubGraceStore) Set(_ context.Context, accountID string, tokenHash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hash[accountID] = tokenHash
	s.expiresAt[accountID] = s.now().Add(ttl)
	return nil
}

func (s *stubGraceStore) Delete(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.hash, accountID)
	delete(s.expiresAt, accountID)
	return nil
}

// stubVersionCache records token version cache traffic.
type stubVersionCache struct {
	mu       sync.Mutex
	versions map[string]int64
	deletes  int
}

func newStubVersionCache() *stubVersionCache {
	return &stubVersionCache{versions: make(map[string]int64)}
}

func (c *stubVersionCache) GetTokenVersion(_ context.Context, accountID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	version, ok := c.versions[accountID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return version, nil
}

func (c *stubVersionCache) SetTokenVersion(_ context.Context, accountID string, version int64, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.versions[accountID] = version
	return nil
}

func (c *stubVersionCache) DeleteTokenVersion(_ context.Context, accountID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.versions, accountID)
	c.deletes++
	return nil
}

// stubPublisher records every published event by type.
type stubPublisher struct {
	mu             sync.Mutex
	registered     []domain.AccountRegisteredEvent
	passwordChange []domain.PasswordChangedEvent
	resetRequested []domain.PasswordResetRequestedEvent
	locked         []domain.AccountLockedEvent
	revoked        []domain.TokensRevokedEvent
}

func (p *stubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = append(p.registered, event)
	return nil
}

func (p *stubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.passwordChange = append(p.passwordChange, event)
	return nil
}

func (p *stubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetRequested = append(p.resetRequested, event)
	return nil
}

func (p *stubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locked = append(p.locked, event)
	return nil
}

func (p *stubPublisher) PublishTokensRevoked(_ context.Context, event domain.TokensRevokedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, event)
	return nil
}

// stubMailer records reset deliveries.
type stubMailer struct {
	mu    sync.Mutex
	sends []stubMailerSend
	fail  error
}

type stubMailerSend struct {
	to        string
	accountID string
	rawToken  string
	expiresAt time.Time
}

func (m *stubMailer) SendPasswordReset(_ context.Context, to, accountID, rawToken string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return m.fail
	}
	m.sends = append(m.sends, stubMailerSend{to: to, accountID: accountID, rawToken: rawToken, expiresAt: expiresAt})
	return nil
}

// fakeClock is an adjustable clock shared by the service under test and its
// collaborators.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(at time.Time) *fakeClock {
	return &fakeClock{now: at}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type authFixture struct {
	service  *AuthService
	accounts *memoryAccountRepo
	grace    *stubGraceStore
	versions *stubVersionCache
	events   *stubPublisher
	issuer   *security.TokenIssuer
	clock    *fakeClock
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	issuer, err := security.NewTokenIssuer(
		"profile-auth-test",
		[]byte("access-secret-for-tests"),
		[]byte("refresh-secret-for-tests"),
		15*time.Minute,
		720*time.Hour,
	)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}
	issuer.WithClock(clock.Now)

	accounts := newMemoryAccountRepo(clock.Now)
	grace := newStubGraceStore(clock.Now)
	versions := newStubVersionCache()
	events := &stubPublisher{}

	service, err := NewAuthService(accounts, grace, versions, events, issuer, domain.DefaultLockoutPolicy(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewAuthService returned error: %v", err)
	}
	service.WithClock(clock.Now)

	return &authFixture{
		service:  service,
		accounts: accounts,
		grace:    grace,
		versions: versions,
		events:   events,
		issuer:   issuer,
		clock:    clock,
	}
}

func (f *authFixture) seedPasswordAccount(t *testing.T, email, password string) domain.Account {
	t.Helper()

	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	now := f.clock.Now()
	account := domain.Account{
		ID:        "acc-" + email,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	account = account.WithPassword(hash)

	if err := f.accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}
