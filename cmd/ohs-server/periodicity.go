package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ohs/ohs/internal/config"
	"github.com/ohs/ohs/internal/domain/periodicity"
	"github.com/ohs/ohs/internal/platform/db"
)

func periodicityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "periodicity",
		Short: "Exam periodicity tools",
	}

	suggestCmd := &cobra.Command{
		Use:   "suggest",
		Short: "Print the recommended exam interval and its justification for a position",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("position")
			months, _ := cmd.Flags().GetInt("months")
			format, _ := cmd.Flags().GetString("format")

			positionID, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				return fmt.Errorf("--position must be a position uuid: %w", err)
			}
			var monthsPtr *int
			if cmd.Flags().Changed("months") {
				monthsPtr = &months
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svcs := buildServices(cfg, pool, newLogger(cfg.Env))
			s, err := svcs.periodicity.Suggest(ctx, positionID, monthsPtr, periodicity.ParseFormat(format))
			if err != nil {
				return err
			}
			printSuggestion(cmd.OutOrStdout(), s)
			return nil
		},
	}
	suggestCmd.Flags().String("position", "", "Position id (uuid)")
	suggestCmd.Flags().Int("months", 0, "Interval to justify (6, 12, 24 or 36); defaults to the recommendation")
	suggestCmd.Flags().String("format", string(periodicity.FormatTerse), "Justification format: terse or detailed")
	_ = suggestCmd.MarkFlagRequired("position")
	cmd.AddCommand(suggestCmd)

	return cmd
}

func printSuggestion(out io.Writer, s *periodicity.Suggestion) {
	rules := make([]string, len(s.Rules))
	for i, r := range s.Rules {
		rules[i] = string(r)
	}
	fmt.Fprintf(out, "Position:    %s (%s)\n", s.PositionName, s.PositionID)
	fmt.Fprintf(out, "Recommended: %d months [%s]\n", s.RecommendedMonths, strings.Join(rules, ", "))
	fmt.Fprintf(out, "Workers:     %d active\n", s.Demographics.ActiveWorkers)
	if s.DraftMonths != s.RecommendedMonths {
		fmt.Fprintf(out, "Justifying:  %d months\n", s.DraftMonths)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, s.Justification)
}
