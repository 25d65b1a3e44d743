// Package placeholder shields inline subtitle markup from translators.
//
// Subtitle lines may carry SRT style tags (<i>, </b>, <font color="...">) and
// ASS override blocks ({\an8}, {\i1}). Protect swaps each one for a numbered
// marker such as [PH0] that machine translators leave alone; Restore puts the
// originals back afterwards.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ASS override blocks: {\...}
	reASSOverride = regexp.MustCompile(`\{\\[^}]*\}`)

	// SRT style tags: <i>, </i>, <b>, <u>, <s>, <font ...>, </font>
	reStyleTag = regexp.MustCompile(`(?i)</?(?:i|b|u|s|font)(?:\s[^>]*)?>`)

	rePlaceholder = regexp.MustCompile(`\[PH(\d+)\]`)
)

// Protect replaces markup with [PH0], [PH1], … in order of appearance and
// returns the originals for Restore.
func Protect(text string) (string, []string) {
	var markers []string

	replace := func(match string) string {
		id := fmt.Sprintf("[PH%d]", len(markers))
		markers = append(markers, match)
		return id
	}

	text = reASSOverride.ReplaceAllStringFunc(text, replace)
	text = reStyleTag.ReplaceAllStringFunc(text, replace)

	return text, markers
}

// Has reports whether text contains any marker.
func Has(text string) bool {
	return rePlaceholder.MatchString(text)
}

// Restore substitutes markers in text with the originals captured by Protect.
// Unknown indices are left as they are.
func Restore(text string, markers []string) string {
	if len(markers) == 0 {
		return text
	}
	return rePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		sub := rePlaceholder.FindStringSubmatch(match)
		idx, err := strconv.Atoi(sub[1])
		if err != nil || idx >= len(markers) {
			return match
		}
		return markers[idx]
	})
}

// InstructionHint is appended to language model prompts for marked-up text.
func InstructionHint() string {
	return "Keep every [PHn] marker exactly as it appears; do not translate, move or remove it."
}

// Missing returns the indices of markers absent from text.
func Missing(text string, markers []string) []int {
	var missing []int
	for i := range markers {
		if !strings.Contains(text, "[PH"+strconv.Itoa(i)+"]") {
			missing = append(missing, i)
		}
	}
	return missing
}
