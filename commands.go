package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tareqmamari/logan-mcp-server/internal/query"
	"github.com/tareqmamari/logan-mcp-server/internal/timerange"
)

var errInvalidQuery = errors.New("query has validation errors")

// queryArg joins the positional arguments, or reads stdin when there are none.
func queryArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newValidateCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "validate [query]",
		Short: "Check a query against the syntax rules",
		Example: `  logan-mcp-server validate "* | stats count(*) by Log Source"
  echo "Time > dateRelative(1h)" | logan-mcp-server validate --fix`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := queryArg(cmd, args)
			if err != nil {
				return err
			}

			out := map[string]interface{}{"query": q}
			if fix {
				fixed, corrections := query.AutoFix(q)
				q = fixed
				out["fixed_query"] = fixed
				out["corrections"] = corrections
			}
			result := query.Validate(q)
			out["validation"] = result

			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if !result.IsValid {
				return errInvalidQuery
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "apply auto-fixes before validating")
	return cmd
}

func newFixCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "fix [query]",
		Short: "Apply the auto-fix rules and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := queryArg(cmd, args)
			if err != nil {
				return err
			}
			fixed, corrections := query.AutoFix(q)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"query":       fixed,
					"corrections": corrections,
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), fixed)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the corrections as JSON")
	return cmd
}

var timeFilterModes = map[string]query.TimeFilterMode{
	"auto":     query.TimeFilterAuto,
	"embedded": query.TimeFilterEmbedded,
	"separate": query.TimeFilterSeparate,
}

func newCompileCmd() *cobra.Command {
	var (
		timeRange string
		mode      string
		noFix     bool
	)
	cmd := &cobra.Command{
		Use:   "compile [query]",
		Short: "Compile a query with a time window without running it",
		Example: `  logan-mcp-server compile --time-range 1h "Severity = 'error'"
  logan-mcp-server compile --mode separate "* | stats count by 'Log Source'"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := queryArg(cmd, args)
			if err != nil {
				return err
			}
			m, ok := timeFilterModes[strings.ToLower(mode)]
			if !ok {
				return fmt.Errorf("unknown --mode %q (auto, embedded or separate)", mode)
			}

			window := timerange.Resolve(timeRange, time.Now())
			compiled, err := query.NewTransformer(zap.NewNop()).
				Compile(query.RawIntent{Query: q, Fix: !noFix}, window, query.WithTimeFilterMode(m))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), compiled)
		},
	}
	cmd.Flags().StringVar(&timeRange, "time-range", timerange.DefaultToken, "time range token, e.g. 1h, 24h, 7d")
	cmd.Flags().StringVar(&mode, "mode", "auto", "time filter placement: auto, embedded or separate")
	cmd.Flags().BoolVar(&noFix, "no-fix", false, "skip the auto-fix rules")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s (commit %s, built by %s)\n", serviceName, version, commit, builtBy)
			return err
		},
	}
}
