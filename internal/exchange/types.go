package exchange

import "encoding/json"

// AuthorizationCode is the one-time code delivered to the redirect URI.
type AuthorizationCode string

// CodeGrant is the input of the token exchange stage.
type CodeGrant struct {
	Code AuthorizationCode
	// CodeVerifier is the PKCE verifier paired with the challenge sent in the
	// authorization URL. Empty when PKCE was not used.
	CodeVerifier string
}

// TokenSet is the Microsoft account credential.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds
}

// XblToken is the Xbox Live user token.
type XblToken string

// XstsSession is the XSTS token scoped to the Minecraft relying party together
// with the user hash it was issued for.
type XstsSession struct {
	Token    string
	UserHash string
}

// ResourceToken is the Minecraft services bearer token.
type ResourceToken string

// Profile is the Minecraft profile. Raw holds the response body verbatim.
type Profile struct {
	Name string
	ID   string
	Raw  json.RawMessage
}

// Result is the output of a successful run.
type Result struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	Username     string          `json:"username"`
	UUID         string          `json:"uuid"`
	Profile      json.RawMessage `json:"profile,omitempty"`
}
