package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"megasena/internal/models"
	"megasena/internal/store"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrUsernameTaken      = errors.New("username is already in use")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const bcryptCost = 10

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID   string
	Username string
	Role     models.Role
}

// Service checks credentials and issues session tokens.
type Service struct {
	store    store.Store
	secret   []byte
	tokenTTL time.Duration
	log      zerolog.Logger
}

func NewService(st store.Store, secret string, tokenTTL time.Duration, log zerolog.Logger) *Service {
	if tokenTTL == 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{store: st, secret: []byte(secret), tokenTTL: tokenTTL, log: log}
}

// Register creates a USER account. The credential is stored hashed and never
// returned.
func (s *Service) Register(ctx context.Context, username, password string) (models.User, error) {
	if username == "" || password == "" {
		return models.User{}, ErrMissingCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return models.User{}, ErrUsernameTaken
	}
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("username", username).Msg("user registered")
	return user, nil
}

// Login verifies the credential and returns a signed session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, models.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return "", models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", models.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", models.User{}, ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", models.User{}, err
	}
	return token, user, nil
}

// EnsureAdmin seeds the administrator account from the environment at
// startup, if it does not already exist.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	_, err = s.store.CreateUser(ctx, models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	s.log.Info().Str("username", username).Msg("admin account seeded")
	return nil
}

func (s *Service) issueToken(user models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     string(user.Role),
		"iat":      now.Unix(),
		"exp":      now.Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a session token and extracts the caller identity.
func (s *Service) ParseToken(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || role == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: sub, Username: username, Role: models.Role(role)}, nil
}
