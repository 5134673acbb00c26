package credential

import (
	"encoding/json"
	"time"

	"golang.org/x/oauth2"
)

// Credential is the stored delegated-access grant for one user
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// expiryDelta is the margin golang.org/x/oauth2 applies before a token's
// expiry; a token inside it counts as expired.
const expiryDelta = 10 * time.Second

// Valid reports whether the access token is still usable at now
func (c *Credential) Valid(now time.Time) bool {
	return c.AccessToken != "" && now.Add(expiryDelta).Before(c.Expiry)
}

// Refreshable reports whether a refresh can be attempted
func (c *Credential) Refreshable() bool {
	return c.RefreshToken != ""
}

// Token converts the credential into an oauth2 token for API clients
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

// fromToken builds a credential from a provider token
func fromToken(tok *oauth2.Token, scopes []string) *Credential {
	return &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		Scopes:       scopes,
	}
}

// UnmarshalJSON also accepts the authorized-user layout ("token" instead of
// "access_token") written by earlier deployments.
func (c *Credential) UnmarshalJSON(data []byte) error {
	type plain Credential
	var aux struct {
		plain
		LegacyToken string `json:"token"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Credential(aux.plain)
	if c.AccessToken == "" {
		c.AccessToken = aux.LegacyToken
	}
	return nil
}
