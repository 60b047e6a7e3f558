package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/careline/internal/triage"
)

func newLexiconCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexicon",
		Short: "Work with symptom lexicon files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate a lexicon file and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE:  runLexiconCheck,
	})
	return cmd
}

func runLexiconCheck(cmd *cobra.Command, args []string) error {
	lx, err := triage.LoadLexicon(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: ok\n", args[0])
	fmt.Fprintf(out, "  critical terms: %d\n", len(lx.Critical))
	fmt.Fprintf(out, "  urgent terms:   %d\n", len(lx.Urgent))
	fmt.Fprintf(out, "  routine terms:  %d\n", len(lx.Routine))
	fmt.Fprintf(out, "  duration units: %d\n", len(lx.Durations))
	fmt.Fprintf(out, "  advice rules:   %d\n", len(lx.Advice))
	return nil
}
