package svcwatch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/svcwatch/svcwatch/password"
)

// memDirectory is an in-memory UserDirectory for engine tests.
type memDirectory struct {
	mu   sync.Mutex
	byID map[string]*UserRecord
}

func newMemDirectory() *memDirectory {
	return &memDirectory{byID: map[string]*UserRecord{}}
}

func (d *memDirectory) GetByID(_ context.Context, id string) (*UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (d *memDirectory) GetByEmail(_ context.Context, email string) (*UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, user := range d.byID {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (d *memDirectory) List(_ context.Context, offset, limit int) ([]UserRecord, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	all := make([]UserRecord, 0, len(d.byID))
	for _, user := range d.byID {
		all = append(all, *user)
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (d *memDirectory) Create(_ context.Context, user *UserRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.byID {
		if existing.Email == user.Email {
			return ErrEmailExists
		}
	}
	clone := *user
	d.byID[user.ID] = &clone
	return nil
}

func (d *memDirectory) Update(_ context.Context, user *UserRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byID[user.ID]; !ok {
		return ErrUserNotFound
	}
	clone := *user
	d.byID[user.ID] = &clone
	return nil
}

func (d *memDirectory) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byID[id]; !ok {
		return ErrUserNotFound
	}
	delete(d.byID, id)
	return nil
}

// memServices is an in-memory ServiceDirectory keyed service -> user set.
type memServices struct {
	mu           sync.Mutex
	associations map[string]map[string]bool
}

func newMemServices() *memServices {
	return &memServices{associations: map[string]map[string]bool{}}
}

func (s *memServices) addService(serviceID string, userIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.associations[serviceID]
	if !ok {
		set = map[string]bool{}
		s.associations[serviceID] = set
	}
	for _, id := range userIDs {
		set[id] = true
	}
}

func (s *memServices) IsAssociated(_ context.Context, userID, serviceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.associations[serviceID]
	if !ok {
		return false, ErrServiceNotFound
	}
	return set[userID], nil
}

// recordingMailer captures outbound mail; failNext makes the next send fail.
type recordingMailer struct {
	mu       sync.Mutex
	disabled bool
	failNext bool

	resetTokens map[string]string
	setupTokens map[string]string
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{
		resetTokens: map[string]string{},
		setupTokens: map[string]string{},
	}
}

func (m *recordingMailer) Enabled() bool { return !m.disabled }

func (m *recordingMailer) send(store map[string]string, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return fmt.Errorf("smtp unavailable")
	}
	store[to] = token
	return nil
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, to, token string) error {
	return m.send(m.resetTokens, to, token)
}

func (m *recordingMailer) SendPasswordSetup(_ context.Context, to, token string) error {
	return m.send(m.setupTokens, to, token)
}

func (m *recordingMailer) SendAccountCreated(_ context.Context, to, _, token string) error {
	return m.send(m.setupTokens, to, token)
}

func (m *recordingMailer) setupTokenFor(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setupTokens[to]
}

func (m *recordingMailer) resetTokenFor(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetTokens[to]
}

type testHarness struct {
	engine   *Engine
	users    *memDirectory
	services *memServices
	mailer   *recordingMailer
	redis    *miniredis.Miniredis
	hasher   *password.Bcrypt
}

func testEngineConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Token.Issuer = "svcwatch-test"
	cfg.Security.MaxLoginAttempts = 3
	cfg.Security.LoginCooldown = time.Minute
	return cfg
}

func newTestHarness(t *testing.T, mutate func(*Config)) *testHarness {
	t.Helper()

	cfg := testEngineConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	users := newMemDirectory()
	services := newMemServices()
	mailer := newRecordingMailer()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithUsers(users).
		WithServices(services).
		WithMailer(mailer).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	hasher, err := password.NewBcrypt(password.Config{})
	if err != nil {
		t.Fatalf("NewBcrypt failed: %v", err)
	}

	return &testHarness{
		engine:   engine,
		users:    users,
		services: services,
		mailer:   mailer,
		redis:    mr,
		hasher:   hasher,
	}
}

// seedUser creates an active account with the given password and returns it.
func (h *testHarness) seedUser(t *testing.T, id, email, plain string, mutate func(*UserRecord)) *UserRecord {
	t.Helper()

	digest, err := h.hasher.Hash(plain)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	user := &UserRecord{
		ID:             id,
		Username:       id,
		Email:          email,
		HashedPassword: digest,
		IsActive:       true,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if mutate != nil {
		mutate(user)
	}
	if err := h.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// currentCode computes the TOTP code the engine expects right now.
func currentCode(t *testing.T, e *Engine, secretBase32 string) string {
	t.Helper()

	secret, err := base32NoPad.DecodeString(secretBase32)
	if err != nil {
		t.Fatalf("decode secret: %v", err)
	}
	counter := time.Now().Unix() / int64(e.config.TOTP.Period)
	code, err := hotpCode(secret, counter, e.config.TOTP.Digits, e.config.TOTP.Algorithm)
	if err != nil {
		t.Fatalf("hotp code: %v", err)
	}
	return code
}
