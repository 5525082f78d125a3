package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/utils"
)

// EmbedToken is a short-lived signed token the public site attaches when
// iframing a dashboard, scoped to one dashboard id.
type EmbedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type EmbedService struct {
	secret []byte
	ttl    time.Duration
	log    *logger.Logger
}

func NewEmbedService(log *logger.Logger) (*EmbedService, error) {
	serviceLog := log.With("service", "EmbedService")
	secret := utils.GetEnv("EMBED_TOKEN_SECRET", "", serviceLog)
	if secret == "" {
		return nil, fmt.Errorf("EMBED_TOKEN_SECRET is not set")
	}
	ttlSeconds := utils.GetEnvAsInt("EMBED_TOKEN_TTL", 3600, serviceLog)
	return &EmbedService{
		secret: []byte(secret),
		ttl:    time.Duration(ttlSeconds) * time.Second,
		log:    serviceLog,
	}, nil
}

func (s *EmbedService) Generate(dashboardID string) (*EmbedToken, error) {
	if dashboardID == "" {
		return nil, fmt.Errorf("dashboard_id is required")
	}
	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"sub": dashboardID,
		"aud": "dashboard-embed",
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign embed token: %w", err)
	}
	return &EmbedToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// Verify parses a token and returns the dashboard id it was scoped to.
func (s *EmbedService) Verify(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithAudience("dashboard-embed"))
	if err != nil {
		return "", fmt.Errorf("parse embed token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid embed token")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("embed token missing dashboard id")
	}
	return sub, nil
}
