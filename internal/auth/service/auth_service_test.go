package service

import (
	"context"
	"sync"
	"testing"
	"time"

	memberdomain "member-auth-service/internal/member/domain"
	memberrepo "member-auth-service/internal/member/repository"
	"member-auth-service/internal/security"
	"member-auth-service/internal/store"
	tokendomain "member-auth-service/internal/token/domain"
	tokenrepo "member-auth-service/internal/token/repository"
)

type memMemberRepo struct {
	mu      sync.Mutex
	byID    map[string]*memberdomain.Member
	byEmail map[string]*memberdomain.Member
}

func newMemMemberRepo() *memMemberRepo {
	return &memMemberRepo{
		byID:    make(map[string]*memberdomain.Member),
		byEmail: make(map[string]*memberdomain.Member),
	}
}

func (r *memMemberRepo) GetByEmail(ctx context.Context, email string) (*memberdomain.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byEmail[email], nil
}

func (r *memMemberRepo) GetByID(ctx context.Context, id string) (*memberdomain.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *memMemberRepo) Create(ctx context.Context, m *memberdomain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m2 := *m
	r.byID[m.ID] = &m2
	r.byEmail[m.Email] = &m2
	return nil
}

type memTokenRepo struct {
	mu       sync.Mutex
	byMember map[string]*tokendomain.RefreshToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{byMember: make(map[string]*tokendomain.RefreshToken)}
}

func (r *memTokenRepo) GetByToken(ctx context.Context, token string) (*tokendomain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byMember {
		if t.Token == token {
			t2 := *t
			return &t2, nil
		}
	}
	return nil, nil
}

func (r *memTokenRepo) GetByMemberID(ctx context.Context, memberID string) (*tokendomain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byMember[memberID]; ok {
		t2 := *t
		return &t2, nil
	}
	return nil, nil
}

func (r *memTokenRepo) Save(ctx context.Context, t *tokendomain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t2 := *t
	r.byMember[t.MemberID] = &t2
	return nil
}

func (r *memTokenRepo) rows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byMember)
}

type memStores struct {
	txMu    sync.Mutex
	members *memMemberRepo
	tokens  *memTokenRepo
}

func newMemStores() *memStores {
	return &memStores{members: newMemMemberRepo(), tokens: newMemTokenRepo()}
}

func (s *memStores) Members() memberrepo.Repository      { return s.members }
func (s *memStores) RefreshTokens() tokenrepo.Repository { return s.tokens }

func (s *memStores) WithinTx(ctx context.Context, fn func(ctx context.Context, scoped store.Stores) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx, s)
}

func newTestService(t *testing.T, refreshTTL time.Duration) (*AuthService, *memStores, *security.TokenProvider) {
	t.Helper()
	stores := newMemStores()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	svc := NewAuthService(stores, security.NewHasher(4), tokens, refreshTTL)
	return svc, stores, tokens
}

func TestRegister_Success(t *testing.T) {
	svc, stores, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	member, err := svc.Register(ctx, "a@x.com", "pw", "A")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if member.ID == "" {
		t.Error("member ID should be assigned")
	}
	if member.Email != "a@x.com" || member.Name != "A" {
		t.Errorf("member = %+v", member)
	}
	if member.PasswordHash == "" || member.PasswordHash == "pw" {
		t.Error("password must be stored hashed")
	}
	if got, _ := stores.members.GetByEmail(ctx, "a@x.com"); got == nil {
		t.Error("member should be persisted")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, stores, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@x.com", "pw", "A"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := svc.Register(ctx, "a@x.com", "other", "B")
	if err != ErrAlreadyRegistered {
		t.Fatalf("second Register err = %v, want ErrAlreadyRegistered", err)
	}
	if n := len(stores.members.byEmail); n != 1 {
		t.Errorf("member rows = %d, want exactly 1", n)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	svc, _, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "", "pw", "A"); err != ErrInvalidCredentials {
		t.Errorf("empty email err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Register(ctx, "a@x.com", "", "A"); err != ErrInvalidCredentials {
		t.Errorf("empty password err = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticate_PasswordGrant(t *testing.T) {
	svc, _, tokens := newTestService(t, time.Hour)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@x.com", "pw", "A"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	pair, err := svc.Authenticate(ctx, AuthRequest{GrantType: GrantTypePassword, Email: "a@x.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if pair.AccessToken == "" {
		t.Error("access token should not be empty")
	}
	if len(pair.RefreshToken) != 32 {
		t.Errorf("refresh token length = %d, want 32", len(pair.RefreshToken))
	}
	subject, err := tokens.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if subject != "a@x.com" {
		t.Errorf("access token subject = %q, want a@x.com", subject)
	}
}

func TestAuthenticate_PasswordGrant_Invalid(t *testing.T) {
	svc, _, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@x.com", "pw", "A"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := svc.Authenticate(ctx, AuthRequest{GrantType: GrantTypePassword, Email: "a@x.com", Password: "wrong"})
	if err != ErrInvalidCredentials {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	_, err = svc.Authenticate(ctx, AuthRequest{GrantType: GrantTypePassword, Email: "nobody@x.com", Password: "pw"})
	if err != ErrInvalidCredentials {
		t.Errorf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticate_UnsupportedGrantType(t *testing.T) {
	svc, _, _ := newTestService(t, time.Hour)

	_, err := svc.Authenticate(context.Background(), AuthRequest{GrantType: "client_credentials"})
	if err != ErrUnsupportedGrantType {
		t.Errorf("err = %v, want ErrUnsupportedGrantType", err)
	}
}

func TestAuthenticate_RefreshGrant(t *testing.T) {
	svc, _, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@x.com", "pw", "A"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	first, err := svc.Authenticate(ctx, AuthRequest{GrantType: GrantTypePassword, Email: "a@x.com", Password: "pw"})
	if err != nil {
		t.Fatalf("password grant: %v", err)
	}

	pair, err := svc.Authenticate(ctx, AuthRequest{GrantType: GrantTypeRefreshToken, RefreshToken: first.RefreshToken})
	if err != nil {
		t.Fatalf("refresh grant: %v", err)
	}
	if pair.AccessToken == "" || pair.AccessToken == first.AccessToken {
		t.Error("refresh grant should issue a fresh access token")
	}
	if pair.RefreshToken != first.RefreshToken {
		t.Error("unexpired refresh token should be reused unchanged")
	}
}

func TestAuthenticate_RefreshGrant_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t, time.Hour)

	_, err := svc.Authenticate(context.Background(), AuthRequest{GrantType: GrantTypeRefreshToken, RefreshToken: "unknown"})
	if err != ErrRefreshTokenNotFound {
		t.Errorf("err = %v, want ErrRefreshTokenNotFound", err)
	}
}

func TestAuthenticate_RefreshGrant_Expired(t *testing.T) {
	svc, stores, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	now := time.Now().UTC()
	stores.tokens.Save(ctx, &tokendomain.RefreshToken{
		MemberID:  "m1",
		Token:     "expiredtoken",
		ExpiresAt: now.Add(-time.Minute),
		CreatedAt: now.Add(-2 * time.Hour),
		UpdatedAt: now.Add(-2 * time.Hour),
	})

	_, err := svc.Authenticate(ctx, AuthRequest{GrantType: GrantTypeRefreshToken, RefreshToken: "expiredtoken"})
	if err != ErrRefreshTokenExpired {
		t.Errorf("err = %v, want ErrRefreshTokenExpired", err)
	}
}

func TestAuthenticate_RefreshGrant_DanglingMember(t *testing.T) {
	svc, stores, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	now := time.Now().UTC()
	stores.tokens.Save(ctx, &tokendomain.RefreshToken{
		MemberID:  "ghost",
		Token:     "orphantoken",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	})

	_, err := svc.Authenticate(ctx, AuthRequest{GrantType: GrantTypeRefreshToken, RefreshToken: "orphantoken"})
	if err != ErrMemberNotFound {
		t.Errorf("err = %v, want ErrMemberNotFound", err)
	}
}

// Repeated logins reuse the stored refresh token until it expires; after
// expiry the next issuance replaces it with a new one, still one row per
// member.
func TestIssuance_ReuseThenRotate(t *testing.T) {
	svc, stores, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	if _, err := svc.Register(ctx, "a@x.com", "pw", "A"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	login := AuthRequest{GrantType: GrantTypePassword, Email: "a@x.com", Password: "pw"}

	first, err := svc.Authenticate(ctx, login)
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := svc.Authenticate(ctx, login)
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if second.RefreshToken != first.RefreshToken {
		t.Error("second login should reuse the unexpired refresh token")
	}
	if second.AccessToken == first.AccessToken {
		t.Error("each login should mint a fresh access token")
	}
	if n := stores.tokens.rows(); n != 1 {
		t.Errorf("token rows = %d, want 1", n)
	}

	// Advance the clock past the configured lifetime.
	svc.now = func() time.Time { return base.Add(time.Hour + time.Second) }

	third, err := svc.Authenticate(ctx, login)
	if err != nil {
		t.Fatalf("third login: %v", err)
	}
	if third.RefreshToken == first.RefreshToken {
		t.Error("expired refresh token should be rotated, not reused")
	}
	if n := stores.tokens.rows(); n != 1 {
		t.Errorf("token rows after rotation = %d, want 1 (replaced, not duplicated)", n)
	}

	stored, err := stores.tokens.GetByToken(ctx, third.RefreshToken)
	if err != nil || stored == nil {
		t.Fatalf("rotated token not stored: %v", err)
	}
	wantExpiry := base.Add(time.Hour + time.Second).Add(time.Hour)
	if !stored.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("rotated expiry = %v, want now + configured lifetime = %v", stored.ExpiresAt, wantExpiry)
	}
}

// A refresh token valid at grant dispatch must still be treated as valid in
// the issuance step of the same request: both compare against the one now
// read at the start of the request.
func TestAuthenticate_SingleNowPerRequest(t *testing.T) {
	svc, stores, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	member, err := svc.Register(ctx, "a@x.com", "pw", "A")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	// Stored token expires a hair after the captured now.
	stores.tokens.Save(ctx, &tokendomain.RefreshToken{
		MemberID:  member.ID,
		Token:     "edgetoken12345678901234567890abc",
		ExpiresAt: base.Add(time.Nanosecond),
		CreatedAt: base.Add(-time.Hour),
		UpdatedAt: base.Add(-time.Hour),
	})

	pair, err := svc.Authenticate(ctx, AuthRequest{GrantType: GrantTypeRefreshToken, RefreshToken: "edgetoken12345678901234567890abc"})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if pair.RefreshToken != "edgetoken12345678901234567890abc" {
		t.Error("token valid at dispatch must be reused by issuance in the same request")
	}
}

func TestAuthenticate_ConcurrentLogins_OneToken(t *testing.T) {
	svc, stores, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@x.com", "pw", "A"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pair, err := svc.Authenticate(ctx, AuthRequest{GrantType: GrantTypePassword, Email: "a@x.com", Password: "pw"})
			if err != nil {
				t.Errorf("Authenticate: %v", err)
				return
			}
			results[i] = pair.RefreshToken
		}(i)
	}
	wg.Wait()

	if rows := stores.tokens.rows(); rows != 1 {
		t.Errorf("token rows = %d, want 1", rows)
	}
	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("concurrent logins produced different refresh tokens: %q vs %q", results[i], results[0])
		}
	}
}
