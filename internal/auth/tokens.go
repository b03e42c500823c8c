package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	purposeSession = "session"
	purposeChannel = "ws"
)

// Claims is carried by both session and channel tokens. Purpose keeps a
// token issued for one use from being accepted for the other.
type Claims struct {
	Purpose      string `json:"typ"`
	ConnectionID string `json:"cid,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 tokens.
type Tokens struct {
	secret     []byte
	sessionTTL time.Duration
	channelTTL time.Duration
	now        func() time.Time

	mu sync.Mutex
	// redeemed maps a used connection id to its token expiry. Entries go
	// once the token could no longer verify anyway.
	redeemed map[string]time.Time
}

func NewTokens(secret string, sessionTTL, channelTTL time.Duration) *Tokens {
	return &Tokens{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		channelTTL: channelTTL,
		now:        time.Now,
		redeemed:   make(map[string]time.Time),
	}
}

func (t *Tokens) SessionTTL() time.Duration {
	return t.sessionTTL
}

// IssueSession creates a session token for email.
func (t *Tokens) IssueSession(email string) (string, error) {
	return t.sign(Claims{
		Purpose:          purposeSession,
		RegisteredClaims: t.registered(email, t.sessionTTL),
	})
}

// VerifySession returns the email a session token was issued for.
func (t *Tokens) VerifySession(token string) (string, error) {
	claims, err := t.parse(token, purposeSession)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// IssueChannel creates a single-purpose websocket token carrying a fresh
// random connection id.
func (t *Tokens) IssueChannel(email string) (token, connectionID string, err error) {
	connectionID, err = randomHex(16)
	if err != nil {
		return "", "", err
	}
	token, err = t.sign(Claims{
		Purpose:          purposeChannel,
		ConnectionID:     connectionID,
		RegisteredClaims: t.registered(email, t.channelTTL),
	})
	return token, connectionID, err
}

// RedeemChannel returns the connection id of a valid channel token and
// marks it used. A token authorizes one connection only.
func (t *Tokens) RedeemChannel(token string) (string, error) {
	claims, err := t.parse(token, purposeChannel)
	if err != nil {
		return "", err
	}
	cid := claims.ConnectionID
	if cid == "" {
		return "", ErrInvalidToken
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for id, exp := range t.redeemed {
		if !exp.After(now) {
			delete(t.redeemed, id)
		}
	}
	if _, used := t.redeemed[cid]; used {
		return "", fmt.Errorf("%w: connection id already used", ErrInvalidToken)
	}
	t.redeemed[cid] = claims.ExpiresAt.Time
	return cid, nil
}

func (t *Tokens) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := t.now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "fireguard",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (t *Tokens) sign(claims Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) parse(token, purpose string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: wrong purpose %q", ErrInvalidToken, claims.Purpose)
	}
	return claims, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate connection id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
