package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/makkenzo/spendwise-api/internal/config"
	"github.com/makkenzo/spendwise-api/internal/domain/user"
	"github.com/makkenzo/spendwise-api/internal/ierr"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminClaims are carried by the bearer tokens that guard key issuance.
type AdminClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService signs in administrators and validates their tokens. It is
// unrelated to API key authentication, which is handled by Authenticator.
type AuthService struct {
	users    user.Repository
	secret   []byte
	tokenTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(users user.Repository, cfg *config.AdminConfig, logger *zap.Logger) (*AuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("admin JWT secret is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthService{
		users:    users,
		secret:   []byte(cfg.JWTSecret),
		tokenTTL: ttl,
		logger:   logger.Named("AuthService"),
		now:      time.Now,
	}, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ierr.ErrInvalidCredentials) {
			return "", time.Time{}, ierr.ErrInvalidCredentials
		}
		return "", time.Time{}, fmt.Errorf("looking up admin user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, ierr.ErrInvalidCredentials
	}

	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	claims := &AdminClaims{
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		s.logger.Error("Failed to sign admin token", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("%w: signing token: %v", ierr.ErrInternalServer, err)
	}

	s.logger.Info("Admin signed in", zap.String("username", u.Username))
	return token, expiresAt, nil
}

func (s *AuthService) ValidateToken(ctx context.Context, rawToken string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(rawToken, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		s.logger.Debug("Failed to verify admin token", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ierr.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, ierr.ErrInvalidToken
	}
	if claims.Role != user.RoleAdmin {
		return nil, fmt.Errorf("%w: role %q may not manage api keys", ierr.ErrForbidden, claims.Role)
	}

	return claims, nil
}
