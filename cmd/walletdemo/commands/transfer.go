package commands

import (
	"fmt"

	goWallet "github.com/MrEthical07/goWallet"
	"github.com/spf13/cobra"
)

func (c *cli) networksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List networks transfers can target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			networks, err := c.app.client.Networks(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range networks {
				sponsored := ""
				if n.SponsorshipEnabled {
					sponsored = " (sponsored)"
				}
				fmt.Fprintf(c.app.out, "%-48s %-14s %s%s\n", n.CAIPID, n.Name, n.Type, sponsored)
			}
			return nil
		},
	}
}

func (c *cli) tokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "List tokens accepted by --token, per network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tokens, err := c.app.client.Tokens(cmd.Context())
			if err != nil {
				return err
			}
			for _, t := range tokens {
				fmt.Fprintf(c.app.out, "%-14s %-6s %-44s %d decimals\n", t.NetworkName, t.Symbol, t.Address, t.Decimals)
			}
			return nil
		},
	}
}

func (c *cli) transferCmd() *cobra.Command {
	var (
		spec   goWallet.TransferSpec
		noWait bool
	)
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Submit a token transfer and follow its job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := c.app.client
			jobID, err := w.SubmitTransfer(cmd.Context(), spec)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.app.out, "submitted job %s\n", jobID)
			if noWait {
				return nil
			}

			snap, err := w.WaitJob(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			switch snap.Status {
			case goWallet.JobSucceeded:
				fmt.Fprintf(c.app.out, "transaction %s\n", snap.TransactionHash)
				return nil
			default:
				return fmt.Errorf("transfer failed: %s", snap.FailureReason)
			}
		},
	}
	cmd.Flags().StringVar(&spec.NetworkID, "network", "eip155:84532", "CAIP network id")
	cmd.Flags().StringVar(&spec.TokenAddress, "token", "", "token contract address (native asset when empty)")
	cmd.Flags().StringVar(&spec.Recipient, "to", "", "recipient address")
	cmd.Flags().Float64Var(&spec.Amount, "amount", 0, "amount to send")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "return once the job is accepted")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
