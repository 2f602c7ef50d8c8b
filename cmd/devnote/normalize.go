package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/devnote/internal/normalize"
)

type normalizeFlags struct {
	format string // auto | html | wiki
}

func newNormalizeCmd(global *globalFlags) *cobra.Command {
	flags := &normalizeFlags{}

	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Convert HTML or wiki markup to Markdown",
		Long: `Read rich text from a file (or stdin) and print it as Markdown.

With --format auto, input starting with "<" is treated as HTML, otherwise
wiki markup is rewritten when detected and plain text is passed through.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			n, err := newNormalizer(cfg, newLogger(cfg))
			if err != nil {
				return err
			}

			src, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			var md string
			switch flags.format {
			case "html":
				md = n.HTML(src)
			case "wiki":
				md = n.Wiki(src)
			case "auto":
				in := normalize.Input{Text: src}
				if strings.HasPrefix(strings.TrimSpace(src), "<") {
					in = normalize.Input{HTML: src}
				}
				md = n.Normalize(in).Markdown
			default:
				return fmt.Errorf("unknown format %q: use auto, html or wiki", flags.format)
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, md)
			if !strings.HasSuffix(md, "\n") {
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&flags.format, "format", "f", "auto", "input format: auto, html or wiki")
	return cmd
}

// readInput reads the named file, or stdin when no file is given or the
// name is "-".
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}
