package exchange

import (
	"strings"

	"golang.org/x/oauth2/microsoft"
)

const (
	MicrosoftTenant = "consumers"

	MicrosoftTokenURL   = "https://login.microsoftonline.com/consumers/oauth2/v2.0/token"
	XboxLiveAuthURL     = "https://user.auth.xboxlive.com/user/authenticate"
	XstsAuthURL         = "https://xsts.auth.xboxlive.com/xsts/authorize"
	MinecraftAuthURL    = "https://api.minecraftservices.com/authentication/login_with_xbox"
	MinecraftProfileURL = "https://api.minecraftservices.com/minecraft/profile"

	xboxLiveSiteName     = "user.auth.xboxlive.com"
	xboxLiveRelyingParty = "http://auth.xboxlive.com"
	xstsRelyingParty     = "rp://api.minecraftservices.com/"
	xstsSandbox          = "RETAIL"
)

// DefaultScopes are requested when Config.Scopes is empty.
var DefaultScopes = []string{"XboxLive.signin", "offline_access"}

// Endpoints holds the provider URLs. Overriding them is only meant for tests
// and local mirrors.
type Endpoints struct {
	MicrosoftAuthorize string
	MicrosoftToken     string
	XboxLiveAuth       string
	XstsAuth           string
	MinecraftAuth      string
	MinecraftProfile   string
}

// DefaultEndpoints returns the production URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		MicrosoftAuthorize: microsoft.AzureADEndpoint(MicrosoftTenant).AuthURL,
		MicrosoftToken:     MicrosoftTokenURL,
		XboxLiveAuth:       XboxLiveAuthURL,
		XstsAuth:           XstsAuthURL,
		MinecraftAuth:      MinecraftAuthURL,
		MinecraftProfile:   MinecraftProfileURL,
	}
}

func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	return Endpoints{
		MicrosoftAuthorize: pick(e.MicrosoftAuthorize, d.MicrosoftAuthorize),
		MicrosoftToken:     pick(e.MicrosoftToken, d.MicrosoftToken),
		XboxLiveAuth:       pick(e.XboxLiveAuth, d.XboxLiveAuth),
		XstsAuth:           pick(e.XstsAuth, d.XstsAuth),
		MinecraftAuth:      pick(e.MinecraftAuth, d.MinecraftAuth),
		MinecraftProfile:   pick(e.MinecraftProfile, d.MinecraftProfile),
	}
}

// Config identifies the registered Azure application.
type Config struct {
	ClientID    string
	RedirectURI string
	Scopes      []string
	Endpoints   Endpoints
}

func (c Config) withDefaults() Config {
	out := c
	if len(out.Scopes) == 0 {
		out.Scopes = append([]string(nil), DefaultScopes...)
	}
	out.Endpoints = c.Endpoints.withDefaults()
	return out
}

func (c Config) scope() string {
	return strings.Join(c.Scopes, " ")
}
