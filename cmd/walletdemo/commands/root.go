package commands

import (
	"context"
	"fmt"
	"io"

	goWallet "github.com/MrEthical07/goWallet"
	"github.com/MrEthical07/goWallet/internal/envconfig"
	"github.com/MrEthical07/goWallet/session"
	"github.com/spf13/cobra"
)

type app struct {
	client  *goWallet.Client
	release func()
	out     io.Writer
	store   string
}

// cli holds the flag values and the opened client of one invocation.
type cli struct {
	configDir string
	storePath string
	app       *app
}

// Execute runs the walletdemo command tree and closes the client it opened,
// whether or not the command failed.
func Execute(ctx context.Context, run func(context.Context, *cobra.Command) error) error {
	c := &cli{}
	defer c.close()
	return run(ctx, c.root())
}

func (c *cli) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "walletdemo",
		Short:         "Authenticate and send transfers through a wallet gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.configDir, "config-dir", ".", "directory holding an optional .env file")
	root.PersistentFlags().StringVar(&c.storePath, "store", "", "session file (default WALLET_STORE_PATH)")

	root.AddCommand(
		c.statusCmd(),
		c.loginCmd(),
		c.emailCmd(),
		c.logoutCmd(),
		c.modeCmd(),
		c.networksCmd(),
		c.tokensCmd(),
		c.transferCmd(),
	)
	return root
}

func (c *cli) close() {
	if c.app != nil {
		c.app.close()
		c.app = nil
	}
}

func (c *cli) open(cmd *cobra.Command) (*app, error) {
	settings, err := envconfig.Load(c.configDir)
	if err != nil {
		return nil, err
	}
	cfg, err := settings.ClientConfig()
	if err != nil {
		return nil, err
	}
	if c.storePath != "" {
		settings.StorePath = c.storePath
	}

	logger := settings.Logger(cmd.ErrOrStderr())
	kv, err := session.NewFileKV(settings.StorePath)
	if err != nil {
		return nil, err
	}
	rdb, releaseRedis, err := envconfig.ConnectRedis(cmd.Context(), settings.RedisAddr)
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	b := goWallet.New().
		WithConfig(cfg).
		WithStore(kv).
		WithRedis(rdb).
		WithLogger(logger).
		WithCodeDelivery(func(email, code string) {
			fmt.Fprintf(cmd.ErrOrStderr(), "verification code for %s: %s\n", email, code)
		}).
		WithJobObserver(func(s goWallet.JobSnapshot) {
			fmt.Fprintf(out, "job %s %s %s\n", s.JobID, s.Status, s.Progress())
		})
	if settings.Audit {
		b = b.WithAuditSink(goWallet.NewSlogSink(logger))
	}

	client, err := b.Build()
	if err != nil {
		releaseRedis()
		return nil, err
	}
	if err := client.Restore(cmd.Context()); err != nil {
		client.Close()
		releaseRedis()
		return nil, err
	}
	return &app{client: client, release: releaseRedis, out: out, store: kv.Path()}, nil
}

func (a *app) close() {
	a.client.Close()
	a.release()
}

func printSession(w io.Writer, s goWallet.Session) {
	fmt.Fprintf(w, "status:  %s\n", s.Status)
	fmt.Fprintf(w, "mode:    %s\n", s.Mode)
	if s.User != nil {
		fmt.Fprintf(w, "user:    %s\n", s.User.UserID)
		fmt.Fprintf(w, "address: %s\n", s.User.UserAddress)
		fmt.Fprintf(w, "vendor:  %s\n", s.User.VendorID)
	}
	if s.Keys != nil {
		fmt.Fprintf(w, "key:     %s\n", s.Keys.OwnerAddress)
	}
	if s.Degraded {
		fmt.Fprintln(w, "note:    placeholder identity, the gateway did not confirm this session")
	}
	if s.LastError != "" {
		fmt.Fprintf(w, "error:   %s\n", s.LastError)
	}
}
