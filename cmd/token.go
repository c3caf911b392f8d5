package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token <account>",
	Short: "issue an api access token for account",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if ttl <= 0 {
			ttl = time.Duration(cfg.Auth.TokenTTL) * time.Second
		}

		token, err := provideSession().Issue(cmd.Context(), args[0], ttl)
		if err != nil {
			cmd.PrintErrln("issue token:", err)
			return
		}

		cmd.Println(token)
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().Duration("ttl", 0, "token lifetime, defaults to auth.token_ttl")
}
