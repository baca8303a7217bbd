package advisory

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/happytummy/demand-signal/internal/models"
)

// Default messages shown next to each adequacy label.
var defaultMessages = map[models.AdequacyLabel]string{
	models.AdequacySurplus:  "Hey, it looks like we have enough to share the love. Thank you :)",
	models.AdequacyBalanced: "Thank you, it looks like this item is running out soon, we are still taking the donation for this item.",
	models.AdequacyCritical: "Please, we are in critical need of this item. Thank you.",
}

// Book maps adequacy labels to human-readable advisories.
type Book struct {
	entries []Entry
	logger  *slog.Logger
}

// Entry is one advisory. When Categories is set the entry only applies to
// those product categories.
type Entry struct {
	Label      models.AdequacyLabel `yaml:"label"`
	Message    string               `yaml:"message"`
	Categories []string             `yaml:"categories"`
}

// File is the YAML root structure.
type File struct {
	Advisories []Entry `yaml:"advisories"`
}

// Default returns a book holding only the built-in messages.
func Default() *Book {
	return &Book{logger: slog.Default()}
}

// Load reads a book from path. An empty path or a missing file yields the
// default book.
func Load(path string, logger *slog.Logger) (*Book, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return &Book{logger: logger}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("advisory book not found, using defaults", slog.String("path", path))
			return &Book{logger: logger}, nil
		}
		return nil, err
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse advisory book: %w", err)
	}
	for i, entry := range file.Advisories {
		if _, ok := defaultMessages[entry.Label]; !ok {
			return nil, fmt.Errorf("advisory %d: unknown label %q", i, entry.Label)
		}
	}
	return &Book{entries: file.Advisories, logger: logger}, nil
}

// Advise returns the message for label, preferring an entry scoped to category.
func (b *Book) Advise(label models.AdequacyLabel, category string) string {
	if b == nil {
		return defaultMessages[label]
	}

	var fallback string
	for _, entry := range b.entries {
		if entry.Label != label || entry.Message == "" {
			continue
		}
		if len(entry.Categories) == 0 {
			if fallback == "" {
				fallback = entry.Message
			}
			continue
		}
		if categoryMatches(entry.Categories, category) {
			return entry.Message
		}
	}
	if fallback != "" {
		return fallback
	}
	return defaultMessages[label]
}

func categoryMatches(categories []string, category string) bool {
	for _, c := range categories {
		if strings.TrimSpace(c) == category {
			return true
		}
	}
	return false
}
