// Package service implements registration, grant-type authentication, and
// refresh token rotation.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	memberdomain "member-auth-service/internal/member/domain"
	"member-auth-service/internal/security"
	"member-auth-service/internal/store"
	tokendomain "member-auth-service/internal/token/domain"
)

// Grant types accepted by Authenticate.
const (
	GrantTypePassword     = "password"
	GrantTypeRefreshToken = "refresh_token"
)

// Sentinel errors for the auth service; the handler maps them to HTTP statuses
// and response codes. All are non-fatal outcomes reported to the caller.
var (
	ErrAlreadyRegistered    = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrMemberNotFound       = errors.New("member for refresh token not found")
	ErrUnsupportedGrantType = errors.New("unsupported grant type")
)

// AuthRequest carries a grant type plus either email/password or a refresh token.
type AuthRequest struct {
	GrantType    string
	Email        string
	Password     string
	RefreshToken string
}

// TokenPair is the result of a successful authentication: a fresh signed
// access token and the member's paired refresh token.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// TokenIssuer produces a signed access token for a subject (member email).
type TokenIssuer interface {
	IssueAccessToken(subject string) (token string, expiresAt time.Time, err error)
}

// PasswordVerifier hashes passwords on write and verifies them on read.
type PasswordVerifier interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// AuthService orchestrates the credential store, refresh token store,
// password verifier, and token issuer.
type AuthService struct {
	stores     store.Stores
	hasher     PasswordVerifier
	tokens     TokenIssuer
	refreshTTL time.Duration

	// now is read once per request; every expiry comparison in that request
	// reuses the same instant so a token cannot flip between valid and
	// expired mid-request.
	now func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
// refreshTTL is the configured refresh token lifetime.
func NewAuthService(stores store.Stores, hasher PasswordVerifier, tokens TokenIssuer, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		stores:     stores,
		hasher:     hasher,
		tokens:     tokens,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Register creates a member with the given email and password. If the email is
// already registered it returns ErrAlreadyRegistered and writes nothing; an
// existing member is never updated.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*memberdomain.Member, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	member := &memberdomain.Member{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hashed,
		Name:         strings.TrimSpace(name),
		CreatedAt:    s.now().UTC(),
	}
	if err := member.Validate(); err != nil {
		return nil, err
	}

	// Lookup and insert run in one transaction so two concurrent
	// registrations for the same email cannot both pass the lookup; the
	// email unique constraint backstops the race on stores without it.
	err = s.stores.WithinTx(ctx, func(ctx context.Context, tx store.Stores) error {
		existing, err := tx.Members().GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyRegistered
		}
		return tx.Members().Create(ctx, member)
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// Authenticate dispatches on the request's grant type, resolves the member,
// and issues a token pair. Failures are typed sentinel errors; none are
// retried.
func (s *AuthService) Authenticate(ctx context.Context, req AuthRequest) (*TokenPair, error) {
	now := s.now().UTC()

	var member *memberdomain.Member

	switch req.GrantType {
	case GrantTypePassword:
		m, err := s.stores.Members().GetByEmail(ctx, req.Email)
		if err != nil {
			return nil, err
		}
		if m == nil || !s.hasher.Verify(req.Password, m.PasswordHash) {
			return nil, ErrInvalidCredentials
		}
		member = m

	case GrantTypeRefreshToken:
		token, err := s.stores.RefreshTokens().GetByToken(ctx, req.RefreshToken)
		if err != nil {
			return nil, err
		}
		if token == nil {
			return nil, ErrRefreshTokenNotFound
		}
		if token.Expired(now) {
			return nil, ErrRefreshTokenExpired
		}
		m, err := s.stores.Members().GetByID(ctx, token.MemberID)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, ErrMemberNotFound
		}
		member = m

	default:
		return nil, ErrUnsupportedGrantType
	}

	return s.issue(ctx, member, now)
}

// issue creates a fresh access token and pairs it with the member's refresh
// token: an unexpired stored token is reused unchanged; otherwise a new token
// replaces the member's row. The lookup and upsert share one transaction.
func (s *AuthService) issue(ctx context.Context, member *memberdomain.Member, now time.Time) (*TokenPair, error) {
	accessToken, accessExp, err := s.tokens.IssueAccessToken(member.Email)
	if err != nil {
		return nil, err
	}

	var refreshToken string
	err = s.stores.WithinTx(ctx, func(ctx context.Context, tx store.Stores) error {
		existing, err := tx.RefreshTokens().GetByMemberID(ctx, member.ID)
		if err != nil {
			return err
		}
		if existing != nil && !existing.Expired(now) {
			refreshToken = existing.Token
			return nil
		}

		refreshToken = security.NewRefreshToken()
		row := &tokendomain.RefreshToken{
			MemberID:  member.ID,
			Token:     refreshToken,
			ExpiresAt: now.Add(s.refreshTTL),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if existing != nil {
			row.CreatedAt = existing.CreatedAt
		}
		return tx.RefreshTokens().Save(ctx, row)
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		AccessExpiresAt: accessExp,
	}, nil
}
