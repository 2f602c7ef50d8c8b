package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type exportFlags struct {
	owner  string
	output string
}

func newExportCmd(global *globalFlags) *cobra.Command {
	flags := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an owner's notebook as one HTML page",
		Long: `Render every category with its notes to HTML. The file is named
DevNote_Export_<date>.html unless --output is given; "-" prints to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			ws, err := openWorkspace(cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer ws.Close()

			owner := flags.owner
			if owner == "" {
				owner = cfg.Auth.DefaultOwner
			}
			var buf bytes.Buffer
			name, err := ws.transfers.Export(cmd.Context(), owner, &buf)
			if err != nil {
				return err
			}

			switch flags.output {
			case "-":
				_, err = buf.WriteTo(cmd.OutOrStdout())
				return err
			case "":
			default:
				name = flags.output
			}
			if err := os.WriteFile(name, buf.Bytes(), 0644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.owner, "owner", "", "notebook owner (default auth.default-owner)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", `output file, "-" for stdout`)
	return cmd
}

type importFlags struct {
	owner string
}

func newImportCmd(global *globalFlags) *cobra.Command {
	flags := &importFlags{}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Store an .html, .htm, .docx or .pdf file as a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cfg, err := global.load()
			if err != nil {
				return err
			}
			ws, err := openWorkspace(cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer ws.Close()

			owner := flags.owner
			if owner == "" {
				owner = cfg.Auth.DefaultOwner
			}
			note, err := ws.transfers.Import(cmd.Context(), owner, args[0], data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", note.ID, note.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.owner, "owner", "", "notebook owner (default auth.default-owner)")
	return cmd
}
