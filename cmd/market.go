package cmd

import (
	"encoding/json"

	"lending/core"
	"lending/pkg/number"

	"github.com/spf13/cobra"
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "market id and creation",
}

var marketIDCmd = &cobra.Command{
	Use:   "id",
	Short: "print the id of market params",
	Run: func(cmd *cobra.Command, args []string) {
		params, err := marketParams(cmd)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		id := params.ID()
		cmd.Println(id.String())
	},
}

var marketCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "create a market",
	Run: func(cmd *cobra.Command, args []string) {
		params, err := marketParams(cmd)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		sender, _ := cmd.Flags().GetString("sender")

		database := provideDatabase()
		defer database.Close()

		l := provideLedger(
			provideLedgerStore(database),
			provideWallet(provideWalletStore(database)),
			provideOracles(provideTickerClient()),
			provideRateModels(),
		)

		id, err := l.CreateMarket(cmd.Context(), sender, params)
		if err != nil {
			cmd.PrintErrln("create market:", err)
			return
		}

		cmd.Println(id.String())
	},
}

var marketListCmd = &cobra.Command{
	Use:   "list",
	Short: "list created markets",
	Run: func(cmd *cobra.Command, args []string) {
		database := provideDatabase()
		defer database.Close()

		markets, err := provideLedgerStore(database).ListMarkets(cmd.Context())
		if err != nil {
			cmd.PrintErrln("list markets:", err)
			return
		}

		data, _ := json.MarshalIndent(markets, "", "  ")
		cmd.Println(string(data))
	},
}

func marketParams(cmd *cobra.Command) (core.MarketParams, error) {
	loan, _ := cmd.Flags().GetString("loan")
	collateral, _ := cmd.Flags().GetString("collateral")
	oracle, _ := cmd.Flags().GetString("oracle")
	irm, _ := cmd.Flags().GetString("irm")
	lltv, _ := cmd.Flags().GetString("lltv")

	v, err := number.ParseWad(lltv)
	if err != nil {
		return core.MarketParams{}, err
	}

	return core.MarketParams{
		LoanAsset:       loan,
		CollateralAsset: collateral,
		Oracle:          oracle,
		RateModel:       irm,
		LLTV:            v,
	}, nil
}

func init() {
	for _, c := range []*cobra.Command{marketIDCmd, marketCreateCmd} {
		c.Flags().String("loan", "", "loan asset")
		c.Flags().String("collateral", "", "collateral asset")
		c.Flags().String("oracle", "", "oracle name")
		c.Flags().String("irm", "", "rate model name")
		c.Flags().String("lltv", "0", "liquidation loan to value, e.g. 0.8")
	}

	marketCreateCmd.Flags().String("sender", "admin", "account creating the market")

	marketCmd.AddCommand(marketIDCmd, marketCreateCmd, marketListCmd)
	rootCmd.AddCommand(marketCmd)
}
