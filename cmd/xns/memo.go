package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"xns-resolver/internal/memo"
)

func newMemoCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memo",
		Short: "Address bindings published in transaction memos",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "build <account> SYMBOL=address...",
		Short: "Print the unsigned self-payment that publishes address bindings",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addresses, err := parseBindings(args[1:])
			if err != nil {
				return err
			}
			tx, err := memo.BuildStorageTransaction(args[0], addresses)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tx)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <account>",
		Short: "Show the address bindings published by an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.Close()

			addresses, err := a.memos.GetAddresses(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), addresses)
		},
	})

	return cmd
}

// parseBindings turns SYMBOL=address arguments into a map.
func parseBindings(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		symbol, address, ok := strings.Cut(arg, "=")
		symbol = strings.TrimSpace(symbol)
		address = strings.TrimSpace(address)
		if !ok || symbol == "" || address == "" {
			return nil, fmt.Errorf("invalid binding %q, want SYMBOL=address", arg)
		}
		out[symbol] = address
	}
	return out, nil
}
