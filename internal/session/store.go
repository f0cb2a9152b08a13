// Package session holds the application-wide session identity: who is logged
// in, issued as a signed token and persisted in Redis until logout.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
)

// Common session errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNoSession          = errors.New("no active session")
)

// Claims extends JWT standard claims with the session role. Tokens carry no
// expiry; a session lasts until logout.
type Claims struct {
	jwt.RegisteredClaims
	Role model.Role `json:"role"`
}

// Authenticator verifies login credentials.
type Authenticator interface {
	Authenticate(email, password string) (model.Identity, error)
}

// Store issues, resolves and revokes sessions.
type Store struct {
	secret []byte
	rdb    *redis.Client
	auth   Authenticator
	log    zerolog.Logger
}

// NewStore creates a new session Store.
func NewStore(cfg *config.Config, rdb *redis.Client, auth Authenticator, log zerolog.Logger) *Store {
	return &Store{
		secret: []byte(cfg.JWTSecret),
		rdb:    rdb,
		auth:   auth,
		log:    log.With().Str("component", "session").Logger(),
	}
}

// Login checks the credentials, persists the identity and returns a signed token.
func (s *Store) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	identity, err := s.auth.Authenticate(email, password)
	if err != nil {
		return nil, err
	}

	jti := uuid.New().String()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       jti,
			Subject:  identity.ID,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		Role: identity.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	if err := s.save(ctx, jti, identity); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", identity.ID).Str("role", string(identity.Role)).Msg("Session started")
	return &model.LoginResponse{Token: signed, Identity: identity}, nil
}

// Current returns the identity behind token, or ErrNoSession once logged out.
func (s *Store) Current(ctx context.Context, token string) (*model.Identity, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, claims.ID)
}

// Logout revokes the session behind token.
func (s *Store) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	n, err := s.rdb.Del(ctx, config.CacheKey.SessionIdentityKey(claims.ID)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return ErrNoSession
	}
	s.log.Info().Str("user_id", claims.Subject).Msg("Session ended")
	return nil
}

// UpdateProfile refreshes the display name and email of the session identity.
// The role and id never change.
func (s *Store) UpdateProfile(ctx context.Context, token string, req model.UpdateProfileRequest) (*model.Identity, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	identity, err := s.load(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	identity.Name = strings.TrimSpace(req.Name)
	identity.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.save(ctx, claims.ID, *identity); err != nil {
		return nil, err
	}
	return identity, nil
}

func (s *Store) parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Store) save(ctx context.Context, jti string, identity model.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.SessionIdentityKey(jti), data, 0).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, jti string) (*model.Identity, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.SessionIdentityKey(jti)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var identity model.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &identity, nil
}
