package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/mcsstheme/internal/theme"
)

var (
	exportFormat      string
	exportResolved    bool
	exportColorFormat string
	exportOutput      string
)

var exportCmd = &cobra.Command{
	Use:   "export [THEME]",
	Short: "Export a theme as css, json or yaml",
	Long: `Write a theme in the chosen format. By default the declared values are
written; with --resolved the computed values are written instead, which
browsers without calc() or mod() support can use directly.`,
	Example: `  mcsstheme export m-light-sepia --resolved > m-light-sepia.css
  mcsstheme export ./theme.yaml --format css --output theme.css`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "css", "output format: css, json or yaml")
	exportCmd.Flags().BoolVar(&exportResolved, "resolved", false, "write computed values")
	exportCmd.Flags().StringVar(&exportColorFormat, "color-format", "", "how colors are written when resolved: preserve or hex")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to a file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := theme.ParseExportFormat(exportFormat)
	if err != nil {
		return err
	}

	svc, _, err := newThemeService()
	if err != nil {
		return err
	}

	t, err := loadTheme(cmd.Context(), svc, optionalArg(args))
	if err != nil {
		return err
	}
	var resolved *theme.Resolved
	if exportResolved {
		if resolved, err = svc.ResolveTheme(t, exportColorFormat); err != nil {
			return err
		}
	}

	if exportOutput == "" {
		return theme.Export(cmd.OutOrStdout(), t, resolved, format)
	}

	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	counter := &countingWriter{w: f}
	if err := theme.Export(counter, t, resolved, format); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}

	slog.Info("exported theme",
		slog.String("theme_id", t.Name()),
		slog.String("format", string(format)),
		slog.Bool("resolved", exportResolved),
		slog.String("path", exportOutput),
		slog.String("size", humanize.IBytes(uint64(counter.n))))
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
