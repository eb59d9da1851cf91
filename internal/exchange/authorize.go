package exchange

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

var ErrMissingClientID = errors.New("client id is not configured")

// AuthorizationError is the error a provider reports on the redirect URI.
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description == "" {
		return "authorization failed: " + e.Code
	}
	return fmt.Sprintf("authorization failed: %s: %s", e.Code, e.Description)
}

// AuthRequest is a consent URL together with the values needed to redeem the
// code it yields.
type AuthRequest struct {
	URL          string
	State        string
	CodeVerifier string // empty when PKCE is disabled
}

// Authorizer builds Microsoft consent URLs.
type Authorizer struct {
	oauth *oauth2.Config
}

func NewAuthorizer(cfg Config) *Authorizer {
	cfg = cfg.withDefaults()
	return &Authorizer{
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURI,
			Scopes:      cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.Endpoints.MicrosoftAuthorize,
				TokenURL:  cfg.Endpoints.MicrosoftToken,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

type authOptions struct {
	pkce  bool
	state string
}

// AuthOption configures AuthorizationURL.
type AuthOption func(*authOptions)

// WithoutPKCE omits the code challenge.
func WithoutPKCE() AuthOption {
	return func(o *authOptions) { o.pkce = false }
}

// WithState uses state instead of a random one.
func WithState(state string) AuthOption {
	return func(o *authOptions) { o.state = state }
}

// AuthorizationURL returns the URL the user opens to grant consent.
func (a *Authorizer) AuthorizationURL(opts ...AuthOption) (AuthRequest, error) {
	if a.oauth.ClientID == "" {
		return AuthRequest{}, ErrMissingClientID
	}
	o := authOptions{pkce: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.state == "" {
		o.state = uuid.NewString()
	}

	req := AuthRequest{State: o.state}
	var params []oauth2.AuthCodeOption
	if o.pkce {
		req.CodeVerifier = oauth2.GenerateVerifier()
		params = append(params, oauth2.S256ChallengeOption(req.CodeVerifier))
	}
	req.URL = a.oauth.AuthCodeURL(o.state, params...)
	return req, nil
}

// ParseRedirect extracts the authorization code from the URL the browser was
// redirected to. An empty expectedState skips the state check.
func ParseRedirect(rawURL, expectedState string) (AuthorizationCode, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse redirect url: %w", err)
	}
	q := u.Query()

	if code := q.Get("error"); code != "" {
		return "", &AuthorizationError{Code: code, Description: q.Get("error_description")}
	}
	if expectedState != "" && q.Get("state") != expectedState {
		return "", ErrStateMismatch
	}
	code := q.Get("code")
	if code == "" {
		return "", ErrMissingCode
	}
	return AuthorizationCode(code), nil
}
