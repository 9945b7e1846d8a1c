package utilities

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"cataid-backend/internal/workflow"
)

// Secret keys, replaced from configuration at startup.
var (
	secretsMu     sync.RWMutex
	accessSecret  = []byte("change-me-access-secret")
	refreshSecret = []byte("change-me-refresh-secret")
)

// Token expiration times
const (
	AccessTokenExpiry  = time.Minute * 15
	RefreshTokenExpiry = time.Hour * 24 * 7
)

var (
	ErrInvalidToken = errors.New("invalid or malformed token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims identify a staff member and the role the workflow checks.
type Claims struct {
	StaffID uint          `json:"staff_id"`
	Name    string        `json:"name"`
	Role    workflow.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the workflow actor.
func (c *Claims) Actor() workflow.Actor {
	return workflow.Actor{ID: c.StaffID, Name: c.Name, Role: c.Role}
}

// ConfigureSecrets sets the signing secrets. Empty values keep the current ones.
func ConfigureSecrets(access, refresh string) {
	secretsMu.Lock()
	defer secretsMu.Unlock()
	if access != "" {
		accessSecret = []byte(access)
	}
	if refresh != "" {
		refreshSecret = []byte(refresh)
	}
}

func secret(isRefresh bool) []byte {
	secretsMu.RLock()
	defer secretsMu.RUnlock()
	if isRefresh {
		return refreshSecret
	}
	return accessSecret
}

// GenerateTokens creates both access and refresh tokens
func GenerateTokens(actor workflow.Actor) (string, string, error) {
	accessToken, err := generateToken(actor, secret(false), AccessTokenExpiry)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := generateToken(actor, secret(true), RefreshTokenExpiry)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// ValidateToken verifies the token and extracts claims
func ValidateToken(tokenStr string, isRefresh bool) (*Claims, error) {
	key := secret(isRefresh)
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return key, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.StaffID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RefreshTokens generates a new access and refresh token using a valid refresh token
func RefreshTokens(refreshToken string) (string, string, error) {
	claims, err := ValidateToken(refreshToken, true)
	if err != nil {
		return "", "", err
	}
	return GenerateTokens(claims.Actor())
}

func generateToken(actor workflow.Actor, key []byte, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		StaffID: actor.ID,
		Name:    actor.Name,
		Role:    actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   actor.Name,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}
