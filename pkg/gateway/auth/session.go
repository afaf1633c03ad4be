package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const RoleAdmin = "admin"

var (
	ErrTokenEmpty     = errors.New("token empty")
	ErrTokenMalformed = errors.New("invalid token format")
	ErrTokenSignature = errors.New("invalid token signature")
	ErrTokenExpired   = errors.New("token expired")
)

// SessionManager issues and checks HS256 session tokens for the admin area.
type SessionManager struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	nowFunc    func() time.Time
}

func NewSessionManager(secret, issuer string, ttl time.Duration) (*SessionManager, error) {
	if len(secret) < 16 {
		return nil, errors.New("session signing key must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &SessionManager{
		signingKey: []byte(secret),
		issuer:     issuer,
		ttl:        ttl,
		nowFunc:    time.Now,
	}, nil
}

type Claims struct {
	ID        string `json:"jti"`
	Issuer    string `json:"iss"`
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	NotBefore int64  `json:"nbf"`
	ExpiresAt int64  `json:"exp"`
	Role      string `json:"role"`
}

type tokenHeader struct {
	Algorithm string `json:"alg"`
	Type      string `json:"typ"`
}

func (m *SessionManager) IssueToken(subject, role string) (string, time.Time, error) {
	now := m.nowFunc()
	expires := now.Add(m.ttl)
	header := tokenHeader{
		Algorithm: "HS256",
		Type:      "JWT",
	}
	claims := Claims{
		ID:        uuid.NewString(),
		Issuer:    m.issuer,
		Subject:   subject,
		IssuedAt:  now.Unix(),
		NotBefore: now.Unix(),
		ExpiresAt: expires.Unix(),
		Role:      role,
	}

	headerSegment, err := encodeSegment(header)
	if err != nil {
		return "", time.Time{}, err
	}
	payloadSegment, err := encodeSegment(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	signature := signSegments(m.signingKey, headerSegment, payloadSegment)
	return strings.Join([]string{headerSegment, payloadSegment, signature}, "."), expires.UTC(), nil
}

func (m *SessionManager) Validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenEmpty
	}
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil, ErrTokenMalformed
	}

	var header tokenHeader
	if err := decodeSegment(parts[0], &header); err != nil || header.Algorithm != "HS256" {
		return nil, ErrTokenMalformed
	}

	expectedSig := signSegments(m.signingKey, parts[0], parts[1])
	if !hmac.Equal([]byte(parts[2]), []byte(expectedSig)) {
		return nil, ErrTokenSignature
	}

	var claims Claims
	if err := decodeSegment(parts[1], &claims); err != nil {
		return nil, ErrTokenMalformed
	}

	now := m.nowFunc().Unix()
	if claims.Issuer != m.issuer {
		return nil, errors.New("invalid issuer")
	}
	if now < claims.NotBefore {
		return nil, errors.New("token not yet valid")
	}
	if now > claims.ExpiresAt {
		return nil, ErrTokenExpired
	}

	return &claims, nil
}

// PasswordMatches compares the shared admin password in constant time.
func PasswordMatches(provided, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

func encodeSegment(v interface{}) (string, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func decodeSegment(segment string, dst interface{}) error {
	data, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func signSegments(secret []byte, header, payload string) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(header))
	h.Write([]byte("."))
	h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
