package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/devnote/internal/braces"
)

var errUnbalanced = errors.New("braces are unbalanced")

type bracesFlags struct {
	json bool
}

func newBracesCmd() *cobra.Command {
	flags := &bracesFlags{}

	cmd := &cobra.Command{
		Use:   "braces <file>",
		Short: "Check that { and } balance in a source file",
		Long: `Count curly braces outside comments, strings and regex literals and report
the line of every unclosed "{" and every extra "}". Exits non-zero when the
file is unbalanced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			report := braces.Audit(string(src))
			out := cmd.OutOrStdout()

			if flags.json {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "%s: %d opening, %d closing\n", args[0], report.Opens, report.Closes)
				for _, line := range report.Unclosed {
					fmt.Fprintf(out, "  unclosed { opened on line %d\n", line)
				}
				for _, line := range report.Extra {
					fmt.Fprintf(out, "  extra } on line %d\n", line)
				}
				if report.Balanced() {
					fmt.Fprintln(out, "  balanced")
				}
			}

			if !report.Balanced() {
				return errUnbalanced
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&flags.json, "json", false, "print the report as JSON")
	return cmd
}
