package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/mcsstheme/internal/theme"
)

var validateStrict bool

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check theme files",
	Long: `Parse each theme file and resolve every token, reporting malformed
values, undefined references and dependency cycles. With --strict the theme
must also declare every token m.css uses.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "require every m.css token (default from theme.strict)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	svc, cfg, err := newThemeService()
	if err != nil {
		return err
	}
	strict := cfg.Theme.Strict
	if cmd.Flags().Changed("strict") {
		strict = validateStrict
	}

	out := cmd.OutOrStdout()
	var errs []error
	for _, path := range args {
		t, err := svc.LoadFile(path)
		if err == nil {
			err = t.Validate()
		}
		if err == nil && strict {
			err = theme.CheckSchema(t)
		}
		if err != nil {
			fmt.Fprintf(out, "FAIL  %s: %v\n", path, err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		fmt.Fprintf(out, "ok    %s (%d tokens, %d groups)\n", path, t.Len(), len(t.Groups()))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d themes invalid: %w", len(errs), len(args), errors.Join(errs...))
	}
	return nil
}
