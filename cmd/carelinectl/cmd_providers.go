package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/careline/internal/providers"
)

func newProvidersCmd() *cobra.Command {
	var (
		q         providers.Query
		url       string
		listSpecs bool
	)
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List providers, optionally filtered by text and specialty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var dir providers.Directory = providers.Default()
			if url != "" {
				dir = providers.NewHTTPDirectory(url, nil, nil)
			}
			list, err := dir.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if listSpecs {
				for _, s := range providers.Specialties(list) {
					fmt.Fprintln(out, s)
				}
				return nil
			}

			matches := providers.Filter(list, q)
			if len(matches) == 0 {
				fmt.Fprintln(out, "No providers found.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSPECIALTY\tLOCATION\tRATING\tAVAILABILITY\tWAIT")
			for _, p := range matches {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f\t%s\t%s\n",
					p.ID, p.Name, p.Specialty, p.Location, p.Rating, p.Availability, p.WaitTime)
			}
			return tw.Flush()
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.Text, "q", "", "match against name or location (case-insensitive)")
	f.StringVar(&q.Specialty, "specialty", providers.AllSpecialties, "exact specialty, or \"all\"")
	f.StringVar(&url, "url", "", "external provider directory (default: built-in listing)")
	f.BoolVar(&listSpecs, "specialties", false, "print the specialty choices instead of providers")
	return cmd
}
