package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/policylens-backend/internal/platform/envutil"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
	"github.com/yungbote/policylens-backend/internal/utils"
)

// AdminAuthService guards the mutating admin endpoints. There is one admin
// principal: a caller exchanges the shared API key (verified against a bcrypt
// hash, never stored in clear) for a short-lived HS256 bearer token.
type AdminAuthService interface {
	IssueToken(ctx context.Context, apiKey string) (string, time.Time, error)
	VerifyToken(tokenString string) error
}

type adminAuthService struct {
	log        *logger.Logger
	apiKeyHash string
	secretKey  string
	tokenTTL   time.Duration
}

func NewAdminAuthService(baseLog *logger.Logger) (AdminAuthService, error) {
	serviceLog := baseLog.With("service", "AdminAuthService")
	hash := utils.GetEnv("ADMIN_API_KEY_HASH", "", serviceLog)
	secret := utils.GetEnv("JWT_SECRET_KEY", "", serviceLog)
	if hash == "" || secret == "" {
		return nil, fmt.Errorf("ADMIN_API_KEY_HASH and JWT_SECRET_KEY must be set")
	}
	ttl := time.Duration(envutil.Int("ADMIN_TOKEN_TTL_MINUTES", 60)) * time.Minute
	return &adminAuthService{
		log:        serviceLog,
		apiKeyHash: hash,
		secretKey:  secret,
		tokenTTL:   ttl,
	}, nil
}

type adminClaims struct {
	jwt.RegisteredClaims
}

func (s *adminAuthService) IssueToken(ctx context.Context, apiKey string) (string, time.Time, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(s.apiKeyHash), []byte(apiKey)); err != nil {
		s.log.Warn("Admin API key rejected")
		return "", time.Time{}, fmt.Errorf("invalid api key")
	}
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	claims := adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secretKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *adminAuthService) VerifyToken(tokenString string) error {
	parsed, err := jwt.ParseWithClaims(tokenString, &adminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.secretKey), nil
	})
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := parsed.Claims.(*adminClaims)
	if !ok || !parsed.Valid {
		return fmt.Errorf("invalid token claims")
	}
	if claims.Subject != "admin" {
		return fmt.Errorf("invalid token subject")
	}
	return nil
}
