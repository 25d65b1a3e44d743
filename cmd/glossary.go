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

	"github.com/spf13/cobra"

	langcodes "github.com/valpere/peresub/internal/language"
	"github.com/valpere/peresub/internal/store"
)

var glossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "Manage names and terms kept consistent across a video",
	Long: `Add, list and delete glossary terms.

When translations are refined, the terms for the run's language pair are put
in the prompt so character names and recurring terms are translated the same
way in every subtitle. Language codes are normalised the way the pipeline
looks them up, so "zh-cn" and "chinese" both mean "zh".`,
}

var (
	glossarySource string
	glossaryTarget string
)

// glossaryPair returns the normalised --source and --target codes.
func glossaryPair() (string, string) {
	var src, tgt string
	if glossarySource != "" {
		src = langcodes.ForAPI(glossarySource)
	}
	if glossaryTarget != "" {
		tgt = langcodes.ForAPI(glossaryTarget)
	}
	return src, tgt
}

var glossaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List glossary terms, optionally for one language pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, tgt := glossaryPair()
		return withStore(cmd.Context(), func(ctx context.Context, db *store.Store) error {
			entries, err := db.ListGlossaryTerms(ctx, src, tgt)
			if err != nil {
				return fmt.Errorf("failed to list glossary: %w", err)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No glossary terms.")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.ID,
					e.SourceLang + " → " + e.TargetLang,
					truncate(e.SourceTerm, 40),
					truncate(e.TargetTerm, 40),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "LANGS", "TERM", "TRANSLATION"}, rows))
			return nil
		})
	},
}

var glossaryAddCmd = &cobra.Command{
	Use:   "add <term> <translation>",
	Short: "Add or replace a glossary term",
	Long: `Add a term and its fixed translation for a language pair. Adding the same
term again for the pair replaces its translation.

Example:
  peresub glossary add "Night's Watch" "Нічна варта" --source en --target uk`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, tgt := glossaryPair()
		return withStore(cmd.Context(), func(ctx context.Context, db *store.Store) error {
			if err := db.AddGlossaryTerm(ctx, src, tgt, args[0], args[1]); err != nil {
				return fmt.Errorf("failed to add glossary term: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s → %s: %q = %q\n", src, tgt, args[0], args[1])
			return nil
		})
	},
}

var glossaryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a glossary term by the ID shown in list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, db *store.Store) error {
			if err := db.DeleteGlossaryTerm(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete glossary term: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted glossary term %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(glossaryCmd)

	for _, c := range []*cobra.Command{glossaryListCmd, glossaryAddCmd} {
		c.Flags().StringVarP(&glossarySource, "source", "s", "", "Source language code (e.g. en)")
		c.Flags().StringVarP(&glossaryTarget, "target", "t", "", "Target language code (e.g. uk)")
	}
	_ = glossaryAddCmd.MarkFlagRequired("source")
	_ = glossaryAddCmd.MarkFlagRequired("target")

	glossaryCmd.AddCommand(glossaryListCmd, glossaryAddCmd, glossaryDeleteCmd)
}
