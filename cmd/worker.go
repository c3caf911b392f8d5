package cmd

import (
	"strconv"
	"sync"

	"lending/worker"
	"lending/worker/accrual"
	"lending/worker/liquidator"

	"github.com/drone/signal"
	"github.com/fox-one/pkg/logger"
	"github.com/spf13/cobra"
)

var keeperCmd = &cobra.Command{
	Use:     "keeper",
	Aliases: []string{"worker"},
	Short:   "run interest accrual and liquidation jobs",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := signal.WithContext(cmd.Context())
		log := logger.FromContext(ctx)
		ctx = logger.WithContext(ctx, log)

		database := provideDatabase()
		defer database.Close()

		l := provideLedger(
			provideLedgerStore(database),
			provideWallet(provideWalletStore(database)),
			provideOracles(provideTickerClient()),
			provideRateModels(),
		)

		accrualWorker, err := accrual.New(cfg.App.Location, cfg.Keeper.AccrueSpec, l)
		if err != nil {
			cmd.PrintErrln("accrual worker:", err)
			return
		}

		workers := []worker.Worker{accrualWorker}

		if cfg.Keeper.Liquidator != "" {
			liquidatorWorker, err := liquidator.New(cfg.App.Location, cfg.Keeper.LiquidateSpec, l, providePropertyStore(database), cfg.Keeper.Liquidator)
			if err != nil {
				cmd.PrintErrln("liquidator worker:", err)
				return
			}

			workers = append(workers, liquidatorWorker)
		} else {
			log.Warnln("keeper.liquidator not set, liquidations disabled")
		}

		wg := sync.WaitGroup{}
		for _, w := range workers {
			wg.Add(1)

			go func(w worker.Worker) {
				defer wg.Done()
				if err := w.Run(ctx); err != nil {
					log.WithError(err).Errorln("worker aborted")
				}
			}(w)
		}

		wg.Wait()
	},
}

var keeperPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "pause the liquidator",
	Run: func(cmd *cobra.Command, args []string) {
		setLiquidatorPaused(cmd, true)
	},
}

var keeperResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "resume the liquidator",
	Run: func(cmd *cobra.Command, args []string) {
		setLiquidatorPaused(cmd, false)
	},
}

func setLiquidatorPaused(cmd *cobra.Command, paused bool) {
	database := provideDatabase()
	defer database.Close()

	properties := providePropertyStore(database)
	if err := properties.Save(cmd.Context(), liquidator.PausedKey, strconv.FormatBool(paused)); err != nil {
		cmd.PrintErrln("save property:", err)
		return
	}

	cmd.Println(liquidator.PausedKey, "=", paused)
}

func init() {
	keeperCmd.AddCommand(keeperPauseCmd, keeperResumeCmd)
	rootCmd.AddCommand(keeperCmd)
}
