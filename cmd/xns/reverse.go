package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReverseCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "reverse <address>",
		Short: "List the .xrp domains held by an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.Close()

			domains, err := a.engine.ReverseLookup(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("reverse lookup %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if domains == nil {
					domains = []string{}
				}
				return writeJSON(out, domains)
			}
			if len(domains) == 0 {
				fmt.Fprintf(out, "No domains found for %s\n", args[0])
				return nil
			}
			for _, d := range domains {
				fmt.Fprintln(out, d)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print domains as a JSON array")
	return cmd
}
