package cmd

import (
	"lending/core"
	"lending/pkg/number"

	"github.com/spf13/cobra"
)

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "credit balances to accounts, the configured faucet when no flags are given",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		asset, _ := cmd.Flags().GetString("asset")
		account, _ := cmd.Flags().GetString("account")
		amount, _ := cmd.Flags().GetString("amount")

		balances := cfg.Ledger.Faucet
		if asset != "" {
			balances = []core.FaucetBalance{{Asset: asset, Account: account, Amount: amount}}
		}

		database := provideDatabase()
		defer database.Close()

		w := provideWallet(provideWalletStore(database))
		for _, b := range balances {
			v, err := number.Integer(b.Amount)
			if err != nil {
				cmd.PrintErrln(err)
				return
			}

			if err := w.Deposit(ctx, b.Asset, b.Account, v); err != nil {
				cmd.PrintErrln("deposit:", err)
				return
			}

			cmd.Println("deposit", b.Amount, b.Asset, "to", b.Account)
		}
	},
}

func init() {
	rootCmd.AddCommand(depositCmd)
	depositCmd.Flags().String("asset", "", "asset")
	depositCmd.Flags().String("account", "", "account")
	depositCmd.Flags().String("amount", "0", "integer amount")
}
