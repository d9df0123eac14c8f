package goGate

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goGate/password"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type testUser struct {
	id     int64
	email  string
	record *AuthenticationRecord
}

func (u *testUser) GetID() int64                                    { return u.id }
func (u *testUser) GetEmail() string                                { return u.email }
func (u *testUser) AuthenticationRecord() *AuthenticationRecord     { return u.record }
func (u *testUser) SetAuthenticationRecord(r *AuthenticationRecord) { u.record = r }

type memAuthProvider struct {
	mu       sync.Mutex
	records  map[int64]*AuthenticationRecord
	saves    int
	saveErrs []error
}

func newMemAuthProvider() *memAuthProvider {
	return &memAuthProvider{records: map[int64]*AuthenticationRecord{}}
}

func (p *memAuthProvider) FindByUsername(_ context.Context, username string) (*AuthenticationRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.records {
		if r.Username == username {
			return r.Clone(), nil
		}
	}
	return nil, ErrRecordNotFound
}

func (p *memAuthProvider) FindByUserID(_ context.Context, id int64) (*AuthenticationRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return r.Clone(), nil
}

func (p *memAuthProvider) Create(_ context.Context, r *AuthenticationRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[r.UserID] = r.Clone()
	return nil
}

func (p *memAuthProvider) Save(_ context.Context, r *AuthenticationRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.saveErrs) > 0 {
		err := p.saveErrs[0]
		p.saveErrs = p.saveErrs[1:]
		return err
	}
	p.records[r.UserID] = r.Clone()
	p.saves++
	return nil
}

// failSaves makes the next len(errs) calls to Save fail in order.
func (p *memAuthProvider) failSaves(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saveErrs = append(p.saveErrs, errs...)
}

func (p *memAuthProvider) get(id int64) *AuthenticationRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.records[id].Clone()
}

type memUserProvider struct {
	users map[int64]*testUser
}

func (p *memUserProvider) FindByID(_ context.Context, id int64) (User, error) {
	u, ok := p.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &testUser{id: u.id, email: u.email}, nil
}

func (p *memUserProvider) FindByEmail(_ context.Context, email string) (User, error) {
	for _, u := range p.users {
		if strings.EqualFold(u.email, email) {
			return &testUser{id: u.id, email: u.email}, nil
		}
	}
	return nil, ErrUserNotFound
}

type memTokenProvider struct {
	mu     sync.Mutex
	tokens map[string]*ResetToken
}

func newMemTokenProvider() *memTokenProvider {
	return &memTokenProvider{tokens: map[string]*ResetToken{}}
}

func (p *memTokenProvider) Save(_ context.Context, t *ResetToken) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := *t
	p.tokens[t.ID] = &c
	return nil
}

func (p *memTokenProvider) Update(ctx context.Context, t *ResetToken) error {
	return p.Save(ctx, t)
}

func (p *memTokenProvider) CountRequests(_ context.Context, userID int64, since time.Time) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.tokens {
		if t.UserID == userID && !t.RequestTime.Before(since) {
			n++
		}
	}
	return n, nil
}

func (p *memTokenProvider) Get(_ context.Context, id string) (*ResetToken, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tokens[id]
	if !ok {
		return nil, ErrTokenNotFound
	}
	c := *t
	return &c, nil
}

func (p *memTokenProvider) InvalidateUnused(_ context.Context, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.tokens {
		if t.UserID == userID && t.Status == TokenUnused {
			t.Status = TokenInvalid
		}
	}
	return nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	engine *Engine
	auth   *memAuthProvider
	users  *memUserProvider
	tokens *memTokenProvider
	clock  *testClock
	logs   *test.Hook
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Cookie.SystemKey = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	cfg.Cookie.Secure = false
	cfg.Password.Config = password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	return cfg
}

func newTestEnv(t *testing.T, mutate func(*Config, *Builder)) *testEnv {
	t.Helper()

	env := &testEnv{
		auth:   newMemAuthProvider(),
		users:  &memUserProvider{users: map[int64]*testUser{}},
		tokens: newMemTokenProvider(),
		clock:  &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	env.logs = hook

	cfg := testConfig()
	b := New().
		WithAuthenticationProvider(env.auth).
		WithUserProvider(env.users).
		WithResetTokenProvider(env.tokens).
		WithLogger(logger).
		WithClock(env.clock.Now)
	if mutate != nil {
		mutate(&cfg, b)
	}

	engine, err := b.WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

// addUser registers a user with an authentication record, without logging in.
func (env *testEnv) addUser(t *testing.T, id int64, email, username, pass string) *testUser {
	t.Helper()
	env.users.users[id] = &testUser{id: id, email: email}
	u := &testUser{id: id, email: email}
	if _, err := env.engine.RegisterAuthenticationRecord(context.Background(), u, username, pass); err != nil {
		t.Fatalf("RegisterAuthenticationRecord failed: %v", err)
	}
	return u
}

func newTestRequest() *Request {
	h := http.Header{}
	h.Set("User-Agent", "test-agent/1.0")
	h.Set("Accept-Language", "en")
	return NewRequestFromValues("203.0.113.7", h, nil)
}

// followUp builds the next request a browser would send after req.
func followUp(req *Request) *Request {
	var cookies []*http.Cookie
	for _, name := range req.CookieNames() {
		v, _ := req.Cookie(name)
		cookies = append(cookies, &http.Cookie{Name: name, Value: v})
	}
	h := req.Header.Clone()
	return NewRequestFromValues(req.ClientIP, h, cookies)
}

func strconvInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
