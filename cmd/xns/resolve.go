package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"xns-resolver/internal/domain"
)

func newResolveCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve <domain>...",
		Short: "Resolve .xrp domains to their owner and metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			for _, name := range args {
				rec, err := a.engine.Resolve(cmd.Context(), name)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", name, err)
				}
				if asJSON {
					if err := writeJSON(out, rec); err != nil {
						return err
					}
					continue
				}
				printRecord(out, rec)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRecord(w io.Writer, rec *domain.DomainRecord) {
	owner := rec.Owner
	if !rec.OwnerVerified {
		owner += " (unverified)"
	}

	fmt.Fprintf(w, "Domain:   %s\n", rec.Domain)
	fmt.Fprintf(w, "Owner:    %s\n", owner)
	fmt.Fprintf(w, "NFT ID:   %s\n", rec.NFTID)
	fmt.Fprintf(w, "Service:  %s\n", rec.Service)
	if rec.ExpiresAt != nil {
		fmt.Fprintf(w, "Expires:  %s\n", rec.ExpiresAt.Format("2006-01-02"))
	}
	printMap(w, "Addresses", rec.Addresses)
	printMap(w, "Records", rec.TextRecords)
	if rec.Metadata != nil && rec.Metadata.Description != "" {
		fmt.Fprintf(w, "About:    %s\n", strings.TrimSpace(rec.Metadata.Description))
	}
}

func printMap(w io.Writer, title string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-8s %s\n", k, m[k])
	}
}
