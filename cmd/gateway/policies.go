package main

import (
	"fmt"
	"text/tabwriter"

	"artmarket-gateway/middleware/ratelimit/config"

	"github.com/spf13/cobra"
)

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List the effective rate limit policies and routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "POLICY\tLIMIT\tWINDOW\tALGORITHM\tKEY")
		for _, name := range cfg.PolicyNames() {
			p := cfg.Policies[name]
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", name, p.Limit, p.Window, p.Algorithm, p.Key)
		}
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "METHOD\tPATH\tPOLICY\tMAX IN FLIGHT")
		for _, r := range cfg.Routes {
			method, path := r.Method, r.Path
			if method == "" {
				method = "*"
			}
			if r.Prefix {
				path += "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", method, path, r.Policy, r.MaxInFlight)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(policiesCmd)
}
