// Package auth verifies credentials, issues session tokens and guards requests.
package auth

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/Aeshi-Nero/Mind-Haven/internal/apperror"
	"github.com/Aeshi-Nero/Mind-Haven/internal/entity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "auth").Logger()

// ErrInvalidCredentials is returned for both an unknown identifier and a wrong password.
var ErrInvalidCredentials = apperror.Unauthorized("Invalid username or password")

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Principal identifies the user behind a request.
type Principal struct {
	UserID    int64
	Username  string
	TokenID   string
	ExpiresAt time.Time
}

type UserFinder interface {
	// GetUserByIdentifier matches on username or email.
	GetUserByIdentifier(ctx context.Context, identifier string) (*entity.User, error)
}

type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Authenticator struct {
	users   UserFinder
	revoked RevocationStore
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

func NewAuthenticator(users UserFinder, revoked RevocationStore, secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{
		users:   users,
		revoked: revoked,
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
	}
}

// TTL is how long an issued session stays valid.
func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}

// Authenticate looks the user up by username or email and checks the password.
func (a *Authenticator) Authenticate(ctx context.Context, identifier, password string) (*Principal, error) {
	user, err := a.users.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			// keep the unknown-user path as slow as a real comparison
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			return nil, ErrInvalidCredentials
		}
		logger.Error().Err(err).Msg("Error during login")
		return nil, apperror.Internal("Error during login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &Principal{UserID: user.ID, Username: user.Username}, nil
}

// IssueSession signs a token for the principal and returns it with the principal's token id and expiry set.
func (a *Authenticator) IssueSession(p Principal) (string, *Principal, error) {
	now := a.now()
	p.TokenID = uuid.NewString()
	p.ExpiresAt = now.Add(a.ttl)

	claims := &Claims{
		UserID:   p.UserID,
		Username: p.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        p.TokenID,
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	tkn := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t, err := tkn.SignedString(a.secret)
	if err != nil {
		return "", nil, err
	}

	return t, &p, nil
}

// ValidateSession reports ok=false for any token that is malformed, badly signed, expired or revoked.
func (a *Authenticator) ValidateSession(ctx context.Context, token string) (*Principal, bool) {
	if token == "" {
		return nil, false
	}

	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !tkn.Valid {
		return nil, false
	}
	if claims.UserID <= 0 || claims.ID == "" {
		return nil, false
	}

	revoked, err := a.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		logger.Warn().Err(err).Str("token_id", claims.ID).Msg("revocation lookup failed")
		return nil, false
	}
	if revoked {
		return nil, false
	}

	p := &Principal{
		UserID:   claims.UserID,
		Username: claims.Username,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, true
}

// Revoke rejects the principal's token until it would have expired anyway.
func (a *Authenticator) Revoke(ctx context.Context, p *Principal) error {
	ttl := p.ExpiresAt.Sub(a.now())
	if p.TokenID == "" || ttl <= 0 {
		return nil
	}
	return a.revoked.Revoke(ctx, p.TokenID, ttl)
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

var (
	dummyOnce sync.Once
	dummy     []byte
)

func dummyHash() []byte {
	dummyOnce.Do(func() {
		var err error
		dummy, err = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
		if err != nil {
			panic(errors.New("auth: cannot build dummy hash: " + err.Error()))
		}
	})
	return dummy
}
