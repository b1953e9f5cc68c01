package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/unibot/backend/pkg/logger"
)

type FAQEntry struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// LoadFAQ reads a JSON or YAML list of question/answer pairs. A missing or
// unreadable file yields an empty list.
func LoadFAQ(path string) []FAQEntry {
	if path == "" {
		return nil
	}

	entries, err := readFAQ(path)
	if err != nil {
		logger.Warn("FAQ unavailable, continuing without it", zap.String("path", path), zap.Error(err))
		return nil
	}

	logger.Info("FAQ loaded", zap.Int("entries", len(entries)))
	return entries
}

func readFAQ(path string) ([]FAQEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read FAQ: %w", err)
	}

	var entries []FAQEntry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse FAQ: %w", err)
	}
	return entries, nil
}

// FAQText renders entries as the static FAQ block of every prompt.
func FAQText(entries []FAQEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("Q: %s\nA: %s", e.Question, e.Answer))
	}
	return strings.Join(lines, "\n")
}
