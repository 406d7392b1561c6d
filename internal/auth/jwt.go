package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleDevice = "device"
	RoleUser   = "user"

	deviceTokenTTL = 24 * time.Hour
	userTokenTTL   = 7 * 24 * time.Hour
)

var ErrMissingSecret = errors.New("jwt secret is not configured")

// JWTClaims represents the claims in our JWT token
type JWTClaims struct {
	DeviceID string `json:"device_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Role     string `json:"role"` // "device" or "user"
	jwt.RegisteredClaims
}

// Principal returns the id the token authenticates: the user id, else the device id.
func (c *JWTClaims) Principal() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.DeviceID
}

// Signer issues and validates HS256 tokens with one secret
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// GenerateDeviceToken generates a JWT token for device authentication
func (s *Signer) GenerateDeviceToken(deviceID string) (string, error) {
	return s.sign(&JWTClaims{DeviceID: deviceID, Role: RoleDevice}, deviceTokenTTL)
}

// GenerateUserToken generates a JWT token for user authentication
func (s *Signer) GenerateUserToken(userID string) (string, error) {
	return s.sign(&JWTClaims{UserID: userID, Role: RoleUser}, userTokenTTL)
}

func (s *Signer) sign(claims *JWTClaims, ttl time.Duration) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates a JWT token and returns the claims
func (s *Signer) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Role != RoleDevice && claims.Role != RoleUser {
		return nil, fmt.Errorf("%w: unknown role %q", jwt.ErrTokenInvalidClaims, claims.Role)
	}
	return claims, nil
}
