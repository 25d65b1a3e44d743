/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/valpere/peresub/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent subtitle generation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, db *store.Store) error {
			runs, err := db.ListRuns(ctx, historyLimit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				took := "-"
				if d := r.Duration(); d > 0 {
					took = d.Round(time.Second).String()
				}
				status := r.Status
				if r.Error != "" {
					status += ": " + truncate(r.Error, 40)
				}
				rows = append(rows, []string{
					r.ID[:8],
					truncate(filepath.Base(r.Video), 32),
					orDash(r.SourceLang) + " → " + r.TargetLang,
					r.Translator,
					orDash(r.LLMBackend),
					strconv.Itoa(r.Segments),
					humanize.Time(r.StartedAt),
					took,
					status,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "VIDEO", "LANGS", "TRANSLATOR", "LLM", "SEGMENTS", "STARTED", "TOOK", "STATUS"},
				rows, 6, 8))
			return nil
		})
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show (0 = all)")
}
