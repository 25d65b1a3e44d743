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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valpere/peresub/internal/segment"
	"github.com/valpere/peresub/internal/subtitle"
)

var (
	renderOutput string
	renderLang   string
)

var renderCmd = &cobra.Command{
	Use:   "render <segments.json>",
	Short: "Render subtitle files from saved segments",
	Long: `Render SRT and ASS files from a segments JSON file, such as one written by
"peresub generate --segments-out". No network access is needed.

Files are named after --output (default: the input file) with its extension
replaced, plus an optional language suffix.

Example:
  peresub render talk.final.json --output talk.mp4 --lang uk --format srt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		segs, err := segment.Load(args[0])
		if err != nil {
			return err
		}

		base := renderOutput
		if base == "" {
			base = args[0]
		}

		for _, name := range cfg.Formats {
			f, err := subtitle.ParseFormat(name)
			if err != nil {
				return err
			}
			path := subtitle.OutputPath(base, renderLang, f)
			if err := subtitle.WriteFile(path, segs, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d blocks)\n", path, len(subtitle.GroupOverlapping(segs)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringSlice("format", []string{"srt", "ass"}, "Subtitle formats to write")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Path the subtitle names are derived from")
	renderCmd.Flags().StringVarP(&renderLang, "lang", "l", "", "Language suffix for the file names")
}
