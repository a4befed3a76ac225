package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/mcsstheme/internal/expression"
	"github.com/jmylchreest/mcsstheme/internal/service"
	"github.com/jmylchreest/mcsstheme/internal/theme"
)

var (
	themeJSON        bool
	themeColorFormat string
	themeGroup       string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available themes",
	Long:  `List the embedded presets and the custom themes found in the themes directory.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var getCmd = &cobra.Command{
	Use:   "get THEME TOKEN...",
	Short: "Print the computed value of tokens",
	Long: `Print the computed value of one or more tokens.

THEME is a theme id or a path to a .css/.yaml theme file. Token names may be
given with or without the leading "--" (after a "--" separator). Only the
tokens a value depends on are evaluated, so unrelated broken tokens do not
affect the result.`,
	Example: `  mcsstheme get m-light-sepia colorBG-l-lighter
  mcsstheme get ./theme.css background-color --color-format hex
  mcsstheme get m-light-sepia -- --colorAccent1-h --colorAccent2-h`,
	Args: cobra.MinimumNArgs(2),
	RunE: runGet,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [THEME]",
	Short: "Resolve every token of a theme",
	Long:  `Evaluate all tokens in dependency order and print the computed values.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runResolve,
}

var orderCmd = &cobra.Command{
	Use:   "order [THEME]",
	Short: "Print the evaluation order of a theme",
	Long: `Print the order tokens are evaluated in. Every token comes after the
tokens it references, ties keep declaration order.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOrder,
}

func init() {
	rootCmd.AddCommand(listCmd, getCmd, resolveCmd, orderCmd)

	for _, c := range []*cobra.Command{listCmd, getCmd, resolveCmd, orderCmd} {
		c.Flags().BoolVar(&themeJSON, "json", false, "output as JSON")
	}
	for _, c := range []*cobra.Command{getCmd, resolveCmd} {
		c.Flags().StringVar(&themeColorFormat, "color-format", "", "how colors are written: preserve or hex (default from config)")
	}
	resolveCmd.Flags().StringVar(&themeGroup, "group", "", "only print tokens of this group")
}

// loadTheme loads a theme by id, or from a file when arg names an existing
// file. An empty arg selects the default theme.
func loadTheme(ctx context.Context, svc *service.ThemeService, arg string) (*theme.Theme, error) {
	if arg == "" {
		arg = svc.DefaultThemeID()
	}
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return svc.LoadFile(arg)
	}
	return svc.Load(ctx, arg)
}

// resolveTheme resolves a theme by id or path. Ids go through the service
// cache.
func resolveTheme(ctx context.Context, svc *service.ThemeService, arg, colorFormat string) (*theme.Resolved, error) {
	if arg == "" {
		arg = svc.DefaultThemeID()
	}
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		t, err := svc.LoadFile(arg)
		if err != nil {
			return nil, err
		}
		return svc.ResolveTheme(t, colorFormat)
	}
	return svc.Resolve(ctx, arg, colorFormat)
}

func optionalArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func runList(cmd *cobra.Command, args []string) error {
	svc, _, err := newThemeService()
	if err != nil {
		return err
	}

	resp, err := svc.ListThemes(cmd.Context())
	if err != nil {
		return err
	}
	if themeJSON {
		return writeJSON(cmd.OutOrStdout(), resp)
	}

	rows := make([][]string, 0, len(resp.Themes))
	for _, t := range resp.Themes {
		modified := "-"
		if !t.ModifiedAt.IsZero() {
			modified = humanize.Time(t.ModifiedAt)
		}
		rows = append(rows, []string{
			t.ID,
			t.Name,
			string(t.Source),
			t.Format,
			strconv.Itoa(t.TokenCount),
			formatYesNo(t.ID == resp.Default),
			modified,
		})
	}
	return writeTable(cmd.OutOrStdout(), []string{"ID", "NAME", "SOURCE", "FORMAT", "TOKENS", "DEFAULT", "MODIFIED"}, rows)
}

func runGet(cmd *cobra.Command, args []string) error {
	svc, _, err := newThemeService()
	if err != nil {
		return err
	}

	t, err := loadTheme(cmd.Context(), svc, args[0])
	if err != nil {
		return err
	}
	format, err := parseColorFormatFlag(svc, themeColorFormat)
	if err != nil {
		return err
	}

	values := make(map[string]string, len(args)-1)
	rows := make([][]string, 0, len(args)-1)
	for _, name := range args[1:] {
		value, err := t.Get(name, format...)
		if err != nil {
			return err
		}
		values[theme.NormalizeName(name)] = value
		rows = append(rows, []string{theme.NormalizeName(name), value})
	}

	out := cmd.OutOrStdout()
	switch {
	case themeJSON:
		return writeJSON(out, values)
	case len(rows) == 1:
		_, err = fmt.Fprintln(out, rows[0][1])
		return err
	default:
		return writeTable(out, nil, rows)
	}
}

// parseColorFormatFlag turns the --color-format flag into resolve options,
// falling back to the configured format.
func parseColorFormatFlag(svc *service.ThemeService, flag string) ([]theme.Option, error) {
	if flag == "" {
		flag = svc.DefaultColorFormat()
	}
	format, ok := expression.ParseColorFormat(flag)
	if !ok {
		return nil, fmt.Errorf("unknown color format %q: must be preserve or hex", flag)
	}
	return []theme.Option{theme.WithColorFormat(format)}, nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	svc, _, err := newThemeService()
	if err != nil {
		return err
	}

	resolved, err := resolveTheme(cmd.Context(), svc, optionalArg(args), themeColorFormat)
	if err != nil {
		return err
	}
	return writeResolved(cmd.OutOrStdout(), resolved, themeGroup, themeJSON)
}

// writeResolved prints resolved tokens in evaluation order, optionally
// limited to one group.
func writeResolved(out io.Writer, resolved *theme.Resolved, group string, asJSON bool) error {
	entries := resolved.OrderedEntries()
	if group != "" {
		filtered := entries[:0:0]
		for _, e := range entries {
			if e.Group == group {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if asJSON {
		return writeJSON(out, entries)
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Name, e.Value})
	}
	return writeTable(out, []string{"TOKEN", "VALUE"}, rows)
}

func runOrder(cmd *cobra.Command, args []string) error {
	svc, _, err := newThemeService()
	if err != nil {
		return err
	}

	t, err := loadTheme(cmd.Context(), svc, optionalArg(args))
	if err != nil {
		return err
	}
	order, err := t.EvaluationOrder()
	if err != nil {
		return err
	}

	if themeJSON {
		return writeJSON(cmd.OutOrStdout(), order)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(order, "\n"))
	return err
}
