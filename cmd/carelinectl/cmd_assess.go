package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/careline/internal/triage"
	"github.com/linnemanlabs/careline/internal/triage/remote"
)

type assessFlags struct {
	duration string
	severity string
	age      int
	lexicon  string
	server   string
	token    string
	timeout  time.Duration
	json     bool
}

func newAssessCmd() *cobra.Command {
	var f assessFlags
	cmd := &cobra.Command{
		Use:   "assess <symptoms>...",
		Short: "Assess symptoms and print the urgency and next steps",
		Long: "Symptoms may be given as separate arguments or comma-separated.\n" +
			"Without --server the built-in rule engine (or --lexicon) is used.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssess(cmd, args, &f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.duration, "duration", "d", "", "how long the symptoms have lasted, e.g. \"3 days\"")
	fl.StringVarP(&f.severity, "severity", "s", "moderate", "mild, moderate or severe")
	fl.IntVar(&f.age, "age", 0, "patient age in years")
	fl.StringVar(&f.lexicon, "lexicon", "", "YAML lexicon for the local engine")
	fl.StringVar(&f.server, "server", "", "triage endpoint of a careline server, e.g. http://localhost:8080/api/v1/triage")
	fl.StringVar(&f.token, "token", "", "bearer token for --server")
	fl.DurationVar(&f.timeout, "timeout", 15*time.Second, "overall timeout for --server")
	fl.BoolVar(&f.json, "json", false, "print the assessment as JSON")
	cmd.MarkFlagsMutuallyExclusive("server", "lexicon")
	return cmd
}

func runAssess(cmd *cobra.Command, args []string, f *assessFlags) error {
	sub := triage.Submission{
		Symptoms: triage.SymptomList(triage.ParseSymptoms(strings.Join(args, ","))),
		Duration: f.duration,
		Severity: f.severity,
	}
	if cmd.Flags().Changed("age") {
		age := f.age
		sub.PatientAge = &age
	}
	req, err := triage.ValidateSubmission(sub)
	if err != nil {
		return err
	}

	var (
		a      triage.Assessment
		source = triage.SourceEngine
	)
	if f.server != "" {
		ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
		defer cancel()
		a, err = remote.New(f.server, remote.Options{Token: f.token}).Assess(ctx, req)
		if err != nil {
			return fmt.Errorf("assess via %s: %w", f.server, err)
		}
		source = triage.SourceRemote
	} else {
		lx := triage.DefaultLexicon()
		if f.lexicon != "" {
			if lx, err = triage.LoadLexicon(f.lexicon); err != nil {
				return err
			}
		}
		a = triage.NewEngine(lx).Classify(req)
	}

	out := cmd.OutOrStdout()
	if f.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	}
	printAssessment(out, req, a, source)
	return nil
}

func printAssessment(out io.Writer, req triage.Request, a triage.Assessment, source triage.Source) {
	fmt.Fprintf(out, "Symptoms:    %s\n", strings.Join(req.Symptoms, ", "))
	fmt.Fprintf(out, "Urgency:     %s (confidence %.0f%%, %s)\n", strings.ToUpper(string(a.Urgency)), a.Confidence*100, source)
	fmt.Fprintf(out, "Recommended: %s\n", a.RecommendedAction)
	if len(a.NextSteps) > 0 {
		fmt.Fprintf(out, "Next steps:\n")
		for i, s := range a.NextSteps {
			fmt.Fprintf(out, "  %d. [%s] %s\n", i+1, s.Priority, s.Action)
		}
	}
}
