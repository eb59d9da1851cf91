package exchange

import (
	"context"
	"encoding/json"

	"github.com/coredex-source/Cryovex-Launcher/internal/transport"
)

// IdentityToken formats the XSTS session as the identityToken expected by
// login_with_xbox.
func IdentityToken(s XstsSession) string {
	return "XBL3.0 x=" + s.UserHash + ";" + s.Token
}

// ResourceAuthStage logs in to Minecraft services with the XSTS session.
type ResourceAuthStage struct {
	transport transport.Transport
	endpoint  string
}

func NewResourceAuthStage(t transport.Transport, endpoints Endpoints) *ResourceAuthStage {
	return &ResourceAuthStage{transport: t, endpoint: endpoints.withDefaults().MinecraftAuth}
}

func (s *ResourceAuthStage) Name() StageName { return StageResourceAuth }

func (s *ResourceAuthStage) Execute(ctx context.Context, in XstsSession) (ResourceToken, error) {
	req, err := transport.NewJSONRequest(s.endpoint, map[string]string{
		"identityToken": IdentityToken(in),
	})
	if err != nil {
		return "", transportFailure(err)
	}
	body, serr := call(ctx, s.transport, req)
	if serr != nil {
		return "", serr
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if serr := decode(body, &resp); serr != nil {
		return "", serr
	}
	if resp.AccessToken == "" {
		return "", missingField(body, "access_token")
	}
	return ResourceToken(resp.AccessToken), nil
}

// ProfileStage fetches the Minecraft profile owned by the bearer token.
type ProfileStage struct {
	transport transport.Transport
	endpoint  string
}

func NewProfileStage(t transport.Transport, endpoints Endpoints) *ProfileStage {
	return &ProfileStage{transport: t, endpoint: endpoints.withDefaults().MinecraftProfile}
}

func (s *ProfileStage) Name() StageName { return StageProfile }

func (s *ProfileStage) Execute(ctx context.Context, in ResourceToken) (Profile, error) {
	body, serr := call(ctx, s.transport, transport.NewGetRequest(s.endpoint, string(in)))
	if serr != nil {
		return Profile{}, serr
	}

	var resp struct {
		Name string `json:"name"`
		ID   string `json:"id"`
	}
	if serr := decode(body, &resp); serr != nil {
		return Profile{}, serr
	}
	if resp.Name == "" {
		return Profile{}, missingField(body, "name")
	}
	if resp.ID == "" {
		return Profile{}, missingField(body, "id")
	}

	raw := make(json.RawMessage, len(body))
	copy(raw, body)
	return Profile{Name: resp.Name, ID: resp.ID, Raw: raw}, nil
}

var (
	_ Stage[XstsSession, ResourceToken] = (*ResourceAuthStage)(nil)
	_ Stage[ResourceToken, Profile]     = (*ProfileStage)(nil)
)
