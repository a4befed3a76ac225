package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/mcsstheme/internal/models"
	"github.com/jmylchreest/mcsstheme/internal/preview"
	"github.com/jmylchreest/mcsstheme/internal/theme"
)

var (
	previewAll  bool
	previewJSON bool
)

var previewCmd = &cobra.Command{
	Use:   "preview [THEME]",
	Short: "Show theme colors in the terminal",
	Long: `Render the resolved colors of a theme as swatches and report the WCAG
contrast of the main text/background pairs. Colors are only drawn on
terminals that support them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().BoolVar(&previewAll, "all", false, "show every color token instead of the summary swatches")
	previewCmd.Flags().BoolVar(&previewJSON, "json", false, "print the contrast report as JSON")
}

// previewTokens are the summary swatches: the catalogue swatches followed by
// the base palette the rest of a theme derives from.
var previewTokens = append(append([]string(nil), models.SwatchTokens...),
	"colorBG", "colorBG-lighter", "colorBG-darker", "colorAccent1", "colorAccent2")

func runPreview(cmd *cobra.Command, args []string) error {
	svc, _, err := newThemeService()
	if err != nil {
		return err
	}

	t, err := loadTheme(cmd.Context(), svc, optionalArg(args))
	if err != nil {
		return err
	}
	resolved, err := svc.ResolveTheme(t, "hex")
	if err != nil {
		return err
	}

	checks := preview.CheckContrast(resolved, preview.DefaultPairs)
	if previewJSON {
		return writeJSON(cmd.OutOrStdout(), checks)
	}

	tokens := previewTokens
	if previewAll {
		tokens = preview.ColorTokens(resolved)
	}

	p := preview.NewRenderer(cmd.OutOrStdout())
	if err := p.Title(previewTitle(t)); err != nil {
		return err
	}
	if err := p.Swatches(preview.Swatches(resolved, tokens)); err != nil {
		return err
	}
	if len(checks) == 0 {
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout())
	if err := p.Title("Contrast"); err != nil {
		return err
	}
	return p.Contrast(checks)
}

func previewTitle(t *theme.Theme) string {
	if t.Description() != "" {
		return fmt.Sprintf("%s: %s", t.Name(), t.Description())
	}
	return t.Name()
}
