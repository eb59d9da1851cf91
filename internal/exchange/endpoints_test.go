package exchange_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2/microsoft"

	"github.com/coredex-source/Cryovex-Launcher/internal/exchange"
)

func TestDefaultEndpoints(t *testing.T) {
	e := exchange.DefaultEndpoints()
	assert.Equal(t, "https://login.microsoftonline.com/consumers/oauth2/v2.0/token", e.MicrosoftToken)
	assert.Equal(t, "https://user.auth.xboxlive.com/user/authenticate", e.XboxLiveAuth)
	assert.Equal(t, "https://xsts.auth.xboxlive.com/xsts/authorize", e.XstsAuth)
	assert.Equal(t, "https://api.minecraftservices.com/authentication/login_with_xbox", e.MinecraftAuth)
	assert.Equal(t, "https://api.minecraftservices.com/minecraft/profile", e.MinecraftProfile)
}

func TestDefaultEndpoints_MatchMicrosoftPackage(t *testing.T) {
	ms := microsoft.AzureADEndpoint(exchange.MicrosoftTenant)
	e := exchange.DefaultEndpoints()
	assert.Equal(t, ms.AuthURL, e.MicrosoftAuthorize)
	assert.Equal(t, ms.TokenURL, e.MicrosoftToken)
}
