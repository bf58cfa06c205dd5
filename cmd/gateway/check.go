package main

import (
	"fmt"
	"time"

	"artmarket-gateway/middleware/ratelimit/config"
	"artmarket-gateway/middleware/ratelimit/domain"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <policy> <key>",
	Short: "Consume one unit of a policy for a key and print the decision",
	Long: `Consume one unit of a policy for a key and print the decision.

With the redis backend this hits the same counters the running gateways use,
which is handy to see whether a caller is currently throttled.

Example:
  gateway check login 203.0.113.7
  gateway check upload user:artist-42 -n 5`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		times, _ := cmd.Flags().GetInt("times")
		if times < 1 {
			times = 1
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		reg, closeRedis, err := openRegistry(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeRedis()

		out := cmd.OutOrStdout()
		for i := 0; i < times; i++ {
			dec, err := reg.Check(cmd.Context(), args[0], domain.Key(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "allowed=%t remaining=%d limit=%d reset_in=%s\n",
				dec.Allowed, dec.Remaining, dec.Limit, resetIn(dec.ResetAt))
		}
		return nil
	},
}

func resetIn(at time.Time) string {
	if at.IsZero() {
		return "-"
	}
	return time.Until(at).Round(time.Second).String()
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().IntP("times", "n", 1, "number of checks to run")
}
