package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-errors"
	portfolio "github.com/goliatone/go-portfolio"
	"github.com/goliatone/go-portfolio/export"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		in  string
		out string
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a profile JSON file as a PDF",
		Long: `Render a profile JSON file as a PDF.

The input uses the profile API format:
  {"name": "...", "email": "...", "username": "...", "about": "...", "skills": ["Go"], "github": "..."}

Examples:
  portfolio export --in profile.json
  portfolio export --in profile.json --out ada.pdf --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in == "" {
				return fmt.Errorf("--in is required")
			}

			data, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("reading profile: %w", err)
			}

			var remote portfolio.RemoteProfile
			if err := json.Unmarshal(data, &remote); err != nil {
				return errors.Wrap(err, errors.CategoryBadInput, "profile file is not valid JSON").
					WithMetadata(map[string]any{"path": in})
			}
			draft := portfolio.ProfileDraft{}
			remote.ApplyTo(&draft)

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			lgr := newLogger(cfg.Log)

			prompt := portfolio.Answer(true)
			if !yes {
				prompt = stdinPrompter(cmd)
			}

			artifact, err := export.New(export.WithLogger(lgr.GetLogger("export"))).
				Export(cmd.Context(), draft, prompt)
			if err != nil {
				return err
			}
			if artifact == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "export cancelled")
				return nil
			}

			if err := os.WriteFile(out, artifact.Data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(artifact.Data))
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "profile JSON file")
	cmd.Flags().StringVar(&out, "out", export.FileName, "output PDF path")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// stdinPrompter asks on the command's output and reads y/N from its input.
func stdinPrompter(cmd *cobra.Command) portfolio.Prompter {
	return portfolio.PrompterFunc(func(ctx context.Context, message string) (bool, error) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", message)

		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return false, nil
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	})
}
