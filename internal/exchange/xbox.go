package exchange

import (
	"context"

	"github.com/coredex-source/Cryovex-Launcher/internal/transport"
)

type xboxLiveRequest struct {
	Properties struct {
		AuthMethod string `json:"AuthMethod"`
		SiteName   string `json:"SiteName"`
		RpsTicket  string `json:"RpsTicket"`
	} `json:"Properties"`
	RelyingParty string `json:"RelyingParty"`
	TokenType    string `json:"TokenType"`
}

type xstsRequest struct {
	Properties struct {
		SandboxID  string   `json:"SandboxId"`
		UserTokens []string `json:"UserTokens"`
	} `json:"Properties"`
	RelyingParty string `json:"RelyingParty"`
	TokenType    string `json:"TokenType"`
}

// XboxLiveStage trades the Microsoft access token for an Xbox Live user token.
type XboxLiveStage struct {
	transport transport.Transport
	endpoint  string
}

func NewXboxLiveStage(t transport.Transport, endpoints Endpoints) *XboxLiveStage {
	return &XboxLiveStage{transport: t, endpoint: endpoints.withDefaults().XboxLiveAuth}
}

func (s *XboxLiveStage) Name() StageName { return StageXboxLive }

func (s *XboxLiveStage) Execute(ctx context.Context, in TokenSet) (XblToken, error) {
	var payload xboxLiveRequest
	payload.Properties.AuthMethod = "RPS"
	payload.Properties.SiteName = xboxLiveSiteName
	payload.Properties.RpsTicket = "d=" + in.AccessToken
	payload.RelyingParty = xboxLiveRelyingParty
	payload.TokenType = "JWT"

	req, err := transport.NewJSONRequest(s.endpoint, payload)
	if err != nil {
		return "", transportFailure(err)
	}
	body, serr := call(ctx, s.transport, req)
	if serr != nil {
		return "", serr
	}

	var resp struct {
		Token string `json:"Token"`
	}
	if serr := decode(body, &resp); serr != nil {
		return "", serr
	}
	if resp.Token == "" {
		return "", missingField(body, "Token")
	}
	return XblToken(resp.Token), nil
}

// XstsStage authorizes the Xbox Live token for the Minecraft relying party.
type XstsStage struct {
	transport transport.Transport
	endpoint  string
}

func NewXstsStage(t transport.Transport, endpoints Endpoints) *XstsStage {
	return &XstsStage{transport: t, endpoint: endpoints.withDefaults().XstsAuth}
}

func (s *XstsStage) Name() StageName { return StageXsts }

func (s *XstsStage) Execute(ctx context.Context, in XblToken) (XstsSession, error) {
	var payload xstsRequest
	payload.Properties.SandboxID = xstsSandbox
	payload.Properties.UserTokens = []string{string(in)}
	payload.RelyingParty = xstsRelyingParty
	payload.TokenType = "JWT"

	req, err := transport.NewJSONRequest(s.endpoint, payload)
	if err != nil {
		return XstsSession{}, transportFailure(err)
	}
	body, serr := call(ctx, s.transport, req)
	if serr != nil {
		return XstsSession{}, serr
	}

	var resp struct {
		Token         string `json:"Token"`
		DisplayClaims *struct {
			Xui []struct {
				Uhs string `json:"uhs"`
			} `json:"xui"`
		} `json:"DisplayClaims"`
	}
	if serr := decode(body, &resp); serr != nil {
		return XstsSession{}, serr
	}
	if resp.Token == "" {
		return XstsSession{}, missingField(body, "Token")
	}
	// An empty xui list is treated like an absent one.
	if resp.DisplayClaims == nil {
		return XstsSession{}, missingField(body, "DisplayClaims")
	}
	if len(resp.DisplayClaims.Xui) == 0 {
		return XstsSession{}, missingField(body, "DisplayClaims.xui")
	}
	uhs := resp.DisplayClaims.Xui[0].Uhs
	if uhs == "" {
		return XstsSession{}, missingField(body, "DisplayClaims.xui[0].uhs")
	}

	return XstsSession{Token: resp.Token, UserHash: uhs}, nil
}

var (
	_ Stage[TokenSet, XblToken]    = (*XboxLiveStage)(nil)
	_ Stage[XblToken, XstsSession] = (*XstsStage)(nil)
)
