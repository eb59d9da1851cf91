package exchange

import (
	"context"
	"net/url"

	"github.com/coredex-source/Cryovex-Launcher/internal/transport"
)

// TokenExchangeStage redeems the authorization code at the Microsoft token endpoint.
type TokenExchangeStage struct {
	transport transport.Transport
	cfg       Config
}

func NewTokenExchangeStage(t transport.Transport, cfg Config) *TokenExchangeStage {
	return &TokenExchangeStage{transport: t, cfg: cfg.withDefaults()}
}

func (s *TokenExchangeStage) Name() StageName { return StageTokenExchange }

func (s *TokenExchangeStage) Execute(ctx context.Context, in CodeGrant) (TokenSet, error) {
	form := url.Values{}
	form.Set("client_id", s.cfg.ClientID)
	form.Set("code", string(in.Code))
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", s.cfg.RedirectURI)
	form.Set("scope", s.cfg.scope())
	if in.CodeVerifier != "" {
		form.Set("code_verifier", in.CodeVerifier)
	}

	body, serr := call(ctx, s.transport, transport.NewFormRequest(s.cfg.Endpoints.MicrosoftToken, form))
	if serr != nil {
		return TokenSet{}, serr
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    *int64 `json:"expires_in"`
	}
	if serr := decode(body, &payload); serr != nil {
		return TokenSet{}, serr
	}
	switch {
	case payload.AccessToken == "":
		return TokenSet{}, missingField(body, "access_token")
	case payload.RefreshToken == "":
		return TokenSet{}, missingField(body, "refresh_token")
	case payload.ExpiresIn == nil || *payload.ExpiresIn <= 0:
		return TokenSet{}, missingField(body, "expires_in")
	}

	return TokenSet{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresIn:    *payload.ExpiresIn,
	}, nil
}

var _ Stage[CodeGrant, TokenSet] = (*TokenExchangeStage)(nil)
