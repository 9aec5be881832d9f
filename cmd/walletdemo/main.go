// Command walletdemo drives a wallet client from the terminal. The session
// is persisted to a JSON file so it survives between invocations.
package main

import (
	"context"
	"os"

	"github.com/MrEthical07/goWallet/cmd/walletdemo/commands"
	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	err := commands.Execute(context.Background(), func(ctx context.Context, root *cobra.Command) error {
		return fang.Execute(ctx, root)
	})
	if err != nil {
		os.Exit(1)
	}
}
