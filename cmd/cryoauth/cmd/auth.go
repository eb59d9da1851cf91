package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/coredex-source/Cryovex-Launcher/internal/exchange"
	"github.com/coredex-source/Cryovex-Launcher/internal/session"
)

func newAuthCommand(a *app) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the signed-in Minecraft account",
	}
	authCmd.AddCommand(
		newURLCommand(a),
		newLoginCommand(a),
		newStatusCommand(a),
		newLogoutCommand(a),
	)
	return authCmd
}

func newURLCommand(a *app) *cobra.Command {
	var noPKCE bool
	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the Microsoft sign-in URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			var opts []exchange.AuthOption
			if noPKCE {
				opts = append(opts, exchange.WithoutPKCE())
			}
			req, err := exchange.NewAuthorizer(exchangeConfig(a.cfg)).AuthorizationURL(opts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Open this URL in a browser and sign in:")
			fmt.Fprintln(out, req.URL)
			fmt.Fprintln(out)
			fmt.Fprintf(out, "state:         %s\n", req.State)
			if req.CodeVerifier != "" {
				fmt.Fprintf(out, "code verifier: %s\n", req.CodeVerifier)
				fmt.Fprintf(out, "\nThen run: %s auth login --redirect-url '<url>' --state %s --code-verifier %s\n",
					appName, req.State, req.CodeVerifier)
			} else {
				fmt.Fprintf(out, "\nThen run: %s auth login --redirect-url '<url>' --state %s\n", appName, req.State)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noPKCE, "no-pkce", false, "omit the PKCE code challenge")
	return cmd
}

func newLoginCommand(a *app) *cobra.Command {
	var code, redirectURL, state, verifier string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Redeem an authorization code and store the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()

			authCode, err := resolveCode(cmd, code, redirectURL, state)
			if err != nil {
				return err
			}

			st, err := openStore(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			var opts []exchange.RunOption
			if verifier != "" {
				opts = append(opts, exchange.WithCodeVerifier(verifier))
			}

			acc, err := session.NewManager(a.newPipeline(), st, a.logger).Login(ctx, authCode, opts...)
			if err != nil {
				return explainLoginError(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", acc.Username, acc.UUID)
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "authorization code")
	cmd.Flags().StringVar(&redirectURL, "redirect-url", "", "full URL the browser was redirected to")
	cmd.Flags().StringVar(&state, "state", "", "expected state parameter of the redirect")
	cmd.Flags().StringVar(&verifier, "code-verifier", "", "PKCE verifier printed by 'auth url'")
	cmd.MarkFlagsMutuallyExclusive("code", "redirect-url")
	return cmd
}

// resolveCode takes the code from flags or, failing that, prompts for it.
func resolveCode(cmd *cobra.Command, code, redirectURL, state string) (exchange.AuthorizationCode, error) {
	switch {
	case code != "":
		return exchange.AuthorizationCode(strings.TrimSpace(code)), nil
	case redirectURL != "":
		return exchange.ParseRedirect(redirectURL, state)
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Paste the redirect URL or authorization code: ")
	input, err := readSecret(cmd.InOrStdin())
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read authorization code: %w", err)
	}
	input = strings.TrimSpace(input)
	if strings.Contains(input, "://") {
		return exchange.ParseRedirect(input, state)
	}
	return exchange.AuthorizationCode(input), nil
}

// readSecret reads a line without echo when in is a terminal.
func readSecret(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		return string(b), err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return line, nil
}

func explainLoginError(err error) error {
	var perr *exchange.PipelineError
	if !errors.As(err, &perr) {
		return err
	}
	if perr.Retryable() {
		return fmt.Errorf("%w (the code was not redeemed, retrying with it may succeed)", err)
	}
	return fmt.Errorf("%w (sign in again starting from '%s auth url')", err, appName)
}

func newStatusCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			acc, err := session.NewManager(nil, st, a.logger).Current(ctx)
			if errors.Is(err, session.ErrNotLoggedIn) {
				fmt.Fprintln(out, "Not logged in.")
				return nil
			}
			if err != nil {
				return err
			}
			return printAccount(out, acc, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, yaml or json")
	return cmd
}

func printAccount(out io.Writer, acc *session.Account, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(acc)
	case "yaml":
		data, err := yaml.Marshal(acc)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	case "text", "":
		fmt.Fprintf(out, "Username: %s\nUUID:     %s\nSaved:    %s\n", acc.Username, acc.UUID, acc.SavedAt.Format(time.RFC3339))
		switch {
		case acc.ExpiresAt.IsZero():
			fmt.Fprintln(out, "Expires:  unknown")
		case acc.Expired:
			fmt.Fprintf(out, "Expires:  %s (expired)\n", acc.ExpiresAt.Format(time.RFC3339))
		default:
			fmt.Fprintf(out, "Expires:  %s\n", acc.ExpiresAt.Format(time.RFC3339))
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			err = session.NewManager(nil, st, a.logger).Logout(ctx)
			if errors.Is(err, session.ErrNotLoggedIn) {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}
