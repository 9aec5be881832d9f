package commands

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	goWallet "github.com/MrEthical07/goWallet"
	"github.com/spf13/cobra"
)

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the restored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printSession(c.app.out, c.app.client.Session())
			fmt.Fprintf(c.app.out, "store:   %s\n", c.app.store)
			return nil
		},
	}
}

func (c *cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <credential>",
		Short: "Exchange a federated identity credential for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.client.Login(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSession(c.app.out, c.app.client.Session())
			return nil
		},
	}
}

func (c *cli) emailCmd() *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "email <address>",
		Short: "Sign in with a one-time code sent to an email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := c.app.client
			ch, err := w.RequestEmailChallenge(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(c.app.out, "code sent to %s, resend available in %s\n", ch.Email, w.ResendIn().Round(time.Second))

			if code == "" {
				fmt.Fprint(c.app.out, "code: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read code: %w", err)
				}
				code = strings.TrimSpace(line)
			}

			if err := w.VerifyEmailChallenge(cmd.Context(), ch.Email, code, ch.Token); err != nil {
				return err
			}
			printSession(c.app.out, w.Session())
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "verification code (prompted when omitted)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and remove it from disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(c.app.out, "logged out")
			return nil
		},
	}
}

func (c *cli) modeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "mode [simulated|live]",
		Short:     "Show or switch the gateway mode",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"simulated", "live"},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := c.app.client
			if len(args) == 1 {
				mode := goWallet.ModeSimulated
				switch args[0] {
				case "simulated":
				case "live":
					mode = goWallet.ModeLive
				default:
					return fmt.Errorf("unknown mode %q", args[0])
				}
				if err := w.SetMode(cmd.Context(), mode); err != nil {
					return err
				}
			}
			fmt.Fprintln(c.app.out, w.Mode())
			return nil
		},
	}
}
