package credential

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// Reason explains why a usable credential could not be produced
type Reason int

const (
	// ReasonMissing means there is no usable stored credential
	ReasonMissing Reason = iota
	// ReasonRevoked means the provider permanently denied the grant
	ReasonRevoked
	// ReasonUnavailable means the refresh failed transiently; the stored credential is kept
	ReasonUnavailable
)

func (r Reason) String() string {
	switch r {
	case ReasonMissing:
		return "missing"
	case ReasonRevoked:
		return "revoked"
	case ReasonUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// AuthRequiredError signals that the user has to (re)link their account
// before the request can proceed.
type AuthRequiredError struct {
	Reason Reason
	Cause  error
}

func (e *AuthRequiredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("authorization required (%s): %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("authorization required (%s)", e.Reason)
}

func (e *AuthRequiredError) Unwrap() error {
	return e.Cause
}

// Revoked reports whether the grant was permanently denied
func (e *AuthRequiredError) Revoked() bool {
	return e.Reason == ReasonRevoked
}

// AsAuthRequired extracts an AuthRequiredError from err
func AsAuthRequired(err error) (*AuthRequiredError, bool) {
	var authErr *AuthRequiredError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// IsPermanentDenial reports whether err is the identity provider rejecting
// the grant itself (invalid_grant). A rejected access token is not one.
func IsPermanentDenial(err error) bool {
	if err == nil {
		return false
	}
	if authErr, ok := AsAuthRequired(err); ok {
		return authErr.Revoked()
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorCode == "invalid_grant" {
			return true
		}
		return strings.Contains(string(retrieveErr.Body), "invalid_grant")
	}

	return strings.Contains(err.Error(), "invalid_grant")
}
