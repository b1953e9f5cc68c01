// Package knowledge turns the institution's scraped sources into cleaned,
// section-tagged passages and loads the static FAQ list.
package knowledge

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/unibot/backend/pkg/logger"
)

// Passage is the atomic retrieval unit.
type Passage struct {
	Text    string `json:"text"`
	Section string `json:"section"`
}

// Corpus holds the loaded passages. Texts[i] is always Passages[i].Text.
type Corpus struct {
	Texts    []string
	Passages []Passage
}

func (c *Corpus) Len() int { return len(c.Passages) }

func (c *Corpus) add(p Passage) {
	c.Texts = append(c.Texts, p.Text)
	c.Passages = append(c.Passages, p)
}

type Sources struct {
	// JSONPath points at the nested record tree of scraped pages.
	JSONPath string
	// CSVPath points at a table whose first data row is the full site text.
	CSVPath    string
	TextField  string
	CSVSection string
}

// Load reads every configured source. A source that is missing or corrupt is
// logged and contributes nothing; Load itself never fails.
func Load(ctx context.Context, src Sources) *Corpus {
	corpus := &Corpus{}

	if src.JSONPath != "" {
		passages, err := LoadRecordTree(src.JSONPath, src.TextField)
		if err != nil {
			logger.Warn("Skipping record tree source", zap.String("path", src.JSONPath), zap.Error(err))
		}
		for _, p := range passages {
			corpus.add(p)
		}
	}

	if err := ctx.Err(); err != nil {
		logger.Warn("Document loading interrupted", zap.Error(err))
		return corpus
	}

	if src.CSVPath != "" {
		p, ok, err := LoadTable(src.CSVPath, src.CSVSection)
		if err != nil {
			logger.Warn("Skipping tabular source", zap.String("path", src.CSVPath), zap.Error(err))
		}
		if ok {
			corpus.add(p)
		}
	}

	logger.Info("Knowledge base loaded", zap.Int("passages", corpus.Len()))
	return corpus
}

// LoadRecordTree extracts passages from a JSON record tree.
func LoadRecordTree(path, field string) ([]Passage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record tree: %w", err)
	}

	root, err := ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse record tree: %w", err)
	}

	return PassagesFromTree(root, field), nil
}

// PassagesFromTree cleans and filters the leaves found under field.
func PassagesFromTree(root Node, field string) []Passage {
	var passages []Passage
	for _, leaf := range Extract(root, field) {
		cleaned := CleanText(leaf.Text)
		if !Keep(cleaned) {
			continue
		}
		passages = append(passages, Passage{Text: cleaned, Section: leaf.Section})
	}
	return passages
}

// LoadTable builds the single synthetic passage of a tabular source: the cells
// of the first row after the header, joined by spaces.
func LoadTable(path, section string) (Passage, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return Passage{}, false, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()

	return ReadTable(f, section)
}

func ReadTable(r io.Reader, section string) (Passage, bool, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		return Passage{}, false, fmt.Errorf("failed to read table header: %w", err)
	}

	row, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Passage{}, false, errors.New("table has no data rows")
	}
	if err != nil {
		return Passage{}, false, fmt.Errorf("failed to read table row: %w", err)
	}

	text := CleanText(strings.Join(row, " "))
	if text == "" {
		return Passage{}, false, nil
	}
	return Passage{Text: text, Section: section}, true, nil
}
