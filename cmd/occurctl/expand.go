package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/recurring-todo-api/internal/recurrence"
)

// ruleFile is the on-disk rule format. anchor overrides anchorDate when both are set.
type ruleFile struct {
	Anchor string          `yaml:"anchor"`
	Rule   recurrence.Rule `yaml:",inline"`
}

type expandOptions struct {
	rulePath string
	anchor   string
	from     string
	to       string
	limit    int
	asJSON   bool
}

type expandResult struct {
	RRule     string   `json:"rrule"`
	From      string   `json:"from"`
	To        string   `json:"to"`
	Dates     []string `json:"dates"`
	Truncated bool     `json:"truncated"`
}

func newExpandCmd() *cobra.Command {
	var opts expandOptions

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Print the dates a recurrence rule generates in a window",
		Long: `Reads a YAML recurrence rule and prints every date it generates between --from and
--to inclusive, preceded by the equivalent RRULE. Use "-" to read the rule from stdin.

Example rule file:
  anchor: 2024-01-31
  frequency: MONTHLY
  interval: 1
  byMonthDay: [-1]`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.rulePath, "rule", "r", "", "path to a YAML rule file, or - for stdin")
	cmd.Flags().StringVar(&opts.anchor, "anchor", "", "anchor date (YYYY-MM-DD), overrides the file")
	cmd.Flags().StringVar(&opts.from, "from", "", "first date of the window (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.to, "to", "", "last date of the window (YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.limit, "limit", 366, "maximum number of dates to print")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("rule")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func runExpand(in io.Reader, out io.Writer, opts expandOptions) error {
	rule, err := loadRule(in, opts.rulePath, opts.anchor)
	if err != nil {
		return err
	}
	from, err := recurrence.ParseDay(opts.from)
	if err != nil {
		return fmt.Errorf("expand: invalid --from: %w", err)
	}
	to, err := recurrence.ParseDay(opts.to)
	if err != nil {
		return fmt.Errorf("expand: invalid --to: %w", err)
	}
	if to.Before(from) {
		return fmt.Errorf("expand: --to must not be before --from")
	}

	dates := rule.Between(from, to)
	result := expandResult{
		RRule: rule.RRule(),
		From:  recurrence.FormatDay(from),
		To:    recurrence.FormatDay(to),
		Dates: make([]string, 0, len(dates)),
	}
	for _, d := range dates {
		if opts.limit > 0 && len(result.Dates) >= opts.limit {
			result.Truncated = true
			break
		}
		result.Dates = append(result.Dates, recurrence.FormatDay(d))
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprintf(out, "RRULE:%s\n", result.RRule)
	for _, d := range result.Dates {
		fmt.Fprintln(out, d)
	}
	if result.Truncated {
		fmt.Fprintf(out, "... truncated at %d dates\n", opts.limit)
	}
	return nil
}

func loadRule(in io.Reader, path, anchor string) (*recurrence.Rule, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(in)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("expand: read rule: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("expand: parse rule: %w", err)
	}
	if anchor == "" {
		anchor = file.Anchor
	}
	if anchor != "" {
		day, err := recurrence.ParseDay(anchor)
		if err != nil {
			return nil, fmt.Errorf("expand: invalid anchor: %w", err)
		}
		file.Rule.AnchorDate = day
	}
	if file.Rule.AnchorDate.IsZero() {
		return nil, fmt.Errorf("expand: rule has no anchor date")
	}
	file.Rule.AnchorDate = recurrence.Day(file.Rule.AnchorDate)

	rule := &file.Rule
	if err := recurrence.Validate(rule); err != nil {
		return nil, fmt.Errorf("expand: %w", err)
	}
	return rule, nil
}
