// carelinectl is the careline operator CLI: run an assessment locally or
// against a server, check a lexicon file, and browse the provider directory.
//
// Usage:
//
//	carelinectl assess "chest pain, nausea" --severity=severe [--age=70] [--server=<url>] [--json]
//	carelinectl lexicon check <path>
//	carelinectl providers [--q=<text>] [--specialty=<name>] [--url=<directory>]
package main

import (
	"fmt"
	"os"

	v "github.com/linnemanlabs/go-core/version"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "carelinectl",
		Short: "Operator tooling for the careline triage service",
		Long:  "carelinectl runs symptom assessments with the careline rule engine\nor a careline server, validates lexicon files and lists providers.",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	root.AddCommand(newAssessCmd())
	root.AddCommand(newLexiconCmd())
	root.AddCommand(newProvidersCmd())

	v.AppName = "careline"
	v.Component = "carelinectl"
	root.Version = v.Get().Version
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
