package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Manager owns the per-user credential lifecycle:
//
//	Unlinked -> Linked(valid) -> Linked(expired) -> Linked(valid) | Unlinked
//
// A refresh is only attempted lazily from LoadValid.
type Manager struct {
	repo        Repository
	provider    Provider
	states      *StateSigner
	linkBaseURL string
	timeSource  TimeSource
}

// NewManager creates a Manager using the wall clock
func NewManager(repo Repository, provider Provider, states *StateSigner, linkBaseURL string) *Manager {
	return NewManagerWithDeps(repo, provider, states, linkBaseURL, defaultTimeSource{})
}

// NewManagerWithDeps creates a Manager with a custom time source for testing
func NewManagerWithDeps(repo Repository, provider Provider, states *StateSigner, linkBaseURL string, timeSrc TimeSource) *Manager {
	return &Manager{
		repo:        repo,
		provider:    provider,
		states:      states,
		linkBaseURL: linkBaseURL,
		timeSource:  timeSrc,
	}
}

// IsLinked reports whether a credential is stored for userID.
// Storage faults count as not linked.
func (m *Manager) IsLinked(ctx context.Context, userID string) bool {
	found, err := m.repo.Exists(ctx, userID)
	if err != nil {
		slog.Warn("Failed to check token existence", "user_id", userID, "error", err)
		return false
	}
	return found
}

// LoadValid returns a credential that is valid now, refreshing it once if
// it has expired. Failures are reported as *AuthRequiredError.
func (m *Manager) LoadValid(ctx context.Context, userID string) (*Credential, error) {
	cred, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cred.Valid(m.timeSource.Now()) {
		return cred, nil
	}
	return m.refresh(ctx, userID, cred)
}

// ForceRefresh refreshes userID's credential even if it looks valid. It is
// for access tokens the API has already rejected.
func (m *Manager) ForceRefresh(ctx context.Context, userID string) (*Credential, error) {
	cred, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return m.refresh(ctx, userID, cred)
}

func (m *Manager) load(ctx context.Context, userID string) (*Credential, error) {
	cred, err := m.repo.Load(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Error("Token retrieval error", "user_id", userID, "error", err)
		}
		return nil, &AuthRequiredError{Reason: ReasonMissing, Cause: err}
	}
	return cred, nil
}

// refresh exchanges cred's refresh token, persisting the result. Only a
// permanent denial deletes the stored credential.
func (m *Manager) refresh(ctx context.Context, userID string, cred *Credential) (*Credential, error) {
	if !cred.Refreshable() {
		return nil, &AuthRequiredError{Reason: ReasonMissing, Cause: errors.New("token expired without refresh token")}
	}

	now := m.timeSource.Now()
	start := time.Now()
	slog.Info("Attempting token refresh", "user_id", userID)
	tok, err := m.provider.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		slog.Error("Token refresh failed", "user_id", userID, "error", err)
		if IsPermanentDenial(err) {
			if delErr := m.repo.Delete(ctx, userID); delErr != nil {
				slog.Error("Error deleting invalid token", "user_id", userID, "error", delErr)
			}
			return nil, &AuthRequiredError{Reason: ReasonRevoked, Cause: err}
		}
		return nil, &AuthRequiredError{Reason: ReasonUnavailable, Cause: err}
	}

	refreshed := fromToken(tok, cred.Scopes)
	if refreshed.RefreshToken == "" {
		// Google omits the refresh token on refresh responses
		refreshed.RefreshToken = cred.RefreshToken
	}
	if !refreshed.Valid(now) || !refreshed.Expiry.After(cred.Expiry) {
		return nil, &AuthRequiredError{
			Reason: ReasonUnavailable,
			Cause:  fmt.Errorf("refreshed token expiry %s is not usable", refreshed.Expiry.Format(time.RFC3339)),
		}
	}

	if err := m.repo.Save(ctx, userID, refreshed); err != nil {
		// the new access token still works for this request
		slog.Error("Token save failed", "user_id", userID, "error", err)
	}
	slog.Info("Token refreshed", "user_id", userID, "duration", time.Since(start))
	return refreshed, nil
}

// Invalidate deletes the stored credential. Missing credentials are fine.
func (m *Manager) Invalidate(ctx context.Context, userID string) error {
	if err := m.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("invalidating credential: %w", err)
	}
	return nil
}

// LinkURL is the account-link entry point for userID; the identity travels
// as a signed state parameter.
func (m *Manager) LinkURL(userID string) string {
	state, err := m.states.Sign(userID)
	if err != nil {
		slog.Error("Failed to sign link state", "user_id", userID, "error", err)
		return m.linkBaseURL
	}
	return m.linkBaseURL + "?state=" + url.QueryEscape(state)
}

// UserForState returns the user a link state was issued to
func (m *Manager) UserForState(state string) (string, error) {
	return m.states.Verify(state)
}

// ConsentURL is the provider consent page. state is passed through so the
// provider hands it back to the callback.
func (m *Manager) ConsentURL(state string) string {
	return m.provider.AuthCodeURL(state)
}

// Link completes the account-link flow by exchanging code and storing the
// resulting credential, replacing any previous one.
func (m *Manager) Link(ctx context.Context, userID, code string) error {
	tok, err := m.provider.Exchange(ctx, code)
	if err != nil {
		return err
	}
	cred := fromToken(tok, m.provider.Scopes())
	if !cred.Refreshable() {
		slog.Warn("Linked credential has no refresh token", "user_id", userID)
	}
	if err := m.repo.Save(ctx, userID, cred); err != nil {
		return fmt.Errorf("saving linked credential: %w", err)
	}
	slog.Info("Account linked", "user_id", userID)
	return nil
}
