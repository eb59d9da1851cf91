package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coredex-source/Cryovex-Launcher/internal/exchange"
)

func newFlowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "flow",
		Short: "Describe the credential exchange chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			e := exchange.DefaultEndpoints()
			steps := []struct {
				name     exchange.StageName
				endpoint string
				yields   string
			}{
				{exchange.StageTokenExchange, e.MicrosoftToken, "Microsoft access and refresh token"},
				{exchange.StageXboxLive, e.XboxLiveAuth, "Xbox Live user token"},
				{exchange.StageXsts, e.XstsAuth, "XSTS token and user hash"},
				{exchange.StageResourceAuth, e.MinecraftAuth, "Minecraft access token"},
				{exchange.StageProfile, e.MinecraftProfile, "Minecraft username and UUID"},
			}

			fmt.Fprintln(out, "Authorization code")
			for i, s := range steps {
				fmt.Fprintf(out, "  %d. %s\n     %s\n     -> %s\n", i+1, s.name, s.endpoint, s.yields)
			}
			fmt.Fprintln(out, "Result: access_token, refresh_token, username, uuid")
			return nil
		},
	}
}
