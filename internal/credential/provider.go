package credential

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes requested from Google: sheet writes plus drive search by name
var Scopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/drive",
}

// Provider is the identity provider the credentials come from
type Provider interface {
	// AuthCodeURL is the consent page URL carrying state
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for a token
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	// Refresh trades a refresh token for a new access token
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	// Scopes granted by tokens from this provider
	Scopes() []string
}

// OAuthProvider implements Provider with an oauth2 client configuration
type OAuthProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a provider against Google's OAuth endpoints
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	return NewOAuthProvider(&oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
	})
}

// NewOAuthProvider wraps an arbitrary oauth2 configuration
func NewOAuthProvider(config *oauth2.Config) *OAuthProvider {
	return &OAuthProvider{config: config}
}

// AuthCodeURL asks for offline access with forced consent so Google
// always hands back a refresh token.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return tok, nil
}

// Refresh performs exactly one refresh-token grant
func (p *OAuthProvider) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	tok, err := p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	return tok, nil
}

// Scopes returns the configured scopes
func (p *OAuthProvider) Scopes() []string {
	return p.config.Scopes
}
