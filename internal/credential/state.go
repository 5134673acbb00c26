package credential

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultStateTTL is how long an account-link URL stays usable
const DefaultStateTTL = 7 * 24 * time.Hour

// ErrInvalidState means the link state was not issued by this bot or has expired
var ErrInvalidState = errors.New("invalid link state")

// StateSigner issues and checks the state parameter of account-link URLs.
// The state is an HS256 token whose subject is the user ID.
type StateSigner struct {
	key          []byte
	ttl          time.Duration
	acceptLegacy bool
	timeSource   TimeSource
}

// NewStateSigner creates a StateSigner using the wall clock. With
// acceptLegacy, bare numeric user IDs from links sent before signing was
// introduced are still accepted.
func NewStateSigner(key []byte, ttl time.Duration, acceptLegacy bool) *StateSigner {
	return NewStateSignerWithDeps(key, ttl, acceptLegacy, defaultTimeSource{})
}

// NewStateSignerWithDeps creates a StateSigner with a custom time source for testing
func NewStateSignerWithDeps(key []byte, ttl time.Duration, acceptLegacy bool, timeSrc TimeSource) *StateSigner {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateSigner{key: key, ttl: ttl, acceptLegacy: acceptLegacy, timeSource: timeSrc}
}

// Sign returns the state for userID
func (s *StateSigner) Sign(userID string) (string, error) {
	now := s.timeSource.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("signing link state: %w", err)
	}
	return state, nil
}

// Verify returns the user ID carried by state
func (s *StateSigner) Verify(state string) (string, error) {
	if s.acceptLegacy && legacyState(state) {
		return state, nil
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(state, claims,
		func(*jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.timeSource.Now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidState)
	}
	return claims.Subject, nil
}

// legacyState reports whether state is a bare Telegram user ID
func legacyState(state string) bool {
	_, err := strconv.ParseInt(state, 10, 64)
	return err == nil
}
