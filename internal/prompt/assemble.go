// Package prompt renders retrieved context into the single user message sent
// to the language model.
package prompt

import (
	"fmt"
	"strings"
)

const (
	MaxPassageRunes = 1000
	MaxDatasetRunes = 3000
	MaxWebRunes     = 2000
	MaxFAQRunes     = 1000
)

type Input struct {
	Question string
	Passages []string
	// Web holds search snippets; sentinels must already be filtered out.
	Web []string
	FAQ string
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// DatasetBlock cuts each passage first, then the joined block.
func DatasetBlock(passages []string) string {
	cut := make([]string, len(passages))
	for i, p := range passages {
		cut[i] = Truncate(p, MaxPassageRunes)
	}
	return Truncate(strings.Join(cut, "\n"), MaxDatasetRunes)
}

// WebBlock is empty when there are no snippets. The header is not counted
// against the snippet budget.
func WebBlock(snippets []string) string {
	if len(snippets) == 0 {
		return ""
	}
	return "\n\nWeb context:\n" + Truncate(strings.Join(snippets, "\n"), MaxWebRunes)
}

func Assemble(in Input) string {
	return fmt.Sprintf("\nDataset context:\n%s\n\n%s\nFAQs:\n%s\n\nQuestion: %s\nAnswer:\n",
		DatasetBlock(in.Passages),
		WebBlock(in.Web),
		Truncate(in.FAQ, MaxFAQRunes),
		in.Question,
	)
}
