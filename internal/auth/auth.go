// Package auth handles admin JWT generation/validation and password checks.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown email or wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

const issuer = "contentmetrics"

// Claims represents JWT claims for an admin session.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Auth handles authentication operations.
type Auth struct {
	jwtSecret     []byte
	tokenDuration time.Duration
	adminEmail    string
	adminHash     string
}

// New creates a new Auth instance. adminEmail and adminHash may be empty, in
// which case Login always fails and only pre-issued tokens are accepted.
func New(jwtSecret string, tokenDuration time.Duration, adminEmail, adminHash string) *Auth {
	if tokenDuration <= 0 {
		tokenDuration = time.Hour
	}
	return &Auth{
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: tokenDuration,
		adminEmail:    strings.ToLower(strings.TrimSpace(adminEmail)),
		adminHash:     adminHash,
	}
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Login checks the admin credentials and returns a signed token.
func (a *Auth) Login(email, password string) (string, error) {
	if a.adminEmail == "" || a.adminHash == "" {
		return "", ErrInvalidCredentials
	}
	if strings.ToLower(strings.TrimSpace(email)) != a.adminEmail {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.adminHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return a.GenerateJWT(a.adminEmail, "admin")
}

// GenerateJWT creates a signed JWT token.
func (a *Auth) GenerateJWT(email, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// ValidateJWT parses and validates a JWT token.
func (a *Auth) ValidateJWT(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
