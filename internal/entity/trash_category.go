package entity

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type RecyclabilityType string

const (
	Recyclable    RecyclabilityType = "Recyclable"
	NonRecyclable RecyclabilityType = "Non-recyclable"
	UnknownType   RecyclabilityType = "Unknown"
)

func (t RecyclabilityType) Valid() bool {
	switch t {
	case Recyclable, NonRecyclable, UnknownType:
		return true
	}
	return false
}

type CategoryEntry struct {
	Name           string            `json:"name"`
	Type           RecyclabilityType `json:"type"`
	Material       string            `json:"material"`
	Points         int               `json:"points"`
	Color          string            `json:"color"`
	DisposalMethod string            `json:"disposal_method"`
	Description    string            `json:"description"`
}

// CategorySource tells whether a lookup hit the table or fell back to the default entry.
type CategorySource int

const (
	CategoryKnown CategorySource = iota
	CategorySynthesized
)

type CategoryLookup struct {
	Entry  CategoryEntry
	Source CategorySource
}

func (l CategoryLookup) Known() bool {
	return l.Source == CategoryKnown
}

type categoryRecord struct {
	Label string `json:"label"`
	CategoryEntry
}

// CategoryTable is read-only after construction.
type CategoryTable struct {
	labels  []string
	entries map[string]CategoryEntry
}

//go:embed trash_categories.json
var defaultCategoryData []byte

var (
	ErrEmptyCategoryTable = errors.New("category table has no entries")
	ErrDuplicateCategory  = errors.New("duplicate category label")
	ErrInvalidCategory    = errors.New("invalid category entry")
)

func DefaultCategoryTable() *CategoryTable {
	table, err := ParseCategoryTable(defaultCategoryData)
	if err != nil {
		panic(fmt.Sprintf("embedded category table is invalid: %v", err))
	}
	return table
}

// LoadCategoryTable reads a replacement table from path, or returns the embedded
// table when path is empty.
func LoadCategoryTable(path string) (*CategoryTable, error) {
	if path == "" {
		return DefaultCategoryTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category table %s: %w", path, err)
	}

	table, err := ParseCategoryTable(data)
	if err != nil {
		return nil, fmt.Errorf("parse category table %s: %w", path, err)
	}
	return table, nil
}

func ParseCategoryTable(data []byte) (*CategoryTable, error) {
	var records []categoryRecord
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyCategoryTable
	}

	table := &CategoryTable{
		labels:  make([]string, 0, len(records)),
		entries: make(map[string]CategoryEntry, len(records)),
	}
	for _, r := range records {
		if r.Label == "" || r.Points < 0 || !r.Type.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, r.Label)
		}
		if _, dup := table.entries[r.Label]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCategory, r.Label)
		}
		table.labels = append(table.labels, r.Label)
		table.entries[r.Label] = r.CategoryEntry
	}

	return table, nil
}

// Lookup is an exact, case-sensitive match on label.
func (t *CategoryTable) Lookup(label string) CategoryLookup {
	if entry, ok := t.entries[label]; ok {
		return CategoryLookup{Entry: entry, Source: CategoryKnown}
	}
	return CategoryLookup{Entry: DefaultCategoryEntry(label), Source: CategorySynthesized}
}

// Labels returns the table keys in declaration order.
func (t *CategoryTable) Labels() []string {
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}

func (t *CategoryTable) Entries() map[string]CategoryEntry {
	out := make(map[string]CategoryEntry, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}

func (t *CategoryTable) Len() int {
	return len(t.labels)
}

// DefaultCategoryEntry is the entry used for labels missing from the table.
func DefaultCategoryEntry(label string) CategoryEntry {
	return CategoryEntry{
		Name:           titleWords(strings.ReplaceAll(label, "_", " ")),
		Type:           UnknownType,
		Material:       "Unknown",
		Points:         1,
		Color:          "gray",
		DisposalMethod: "Check Local Guidelines",
		Description:    "Unknown item type",
	}
}

// titleWords capitalizes every run of cased letters and lowercases the rest
// of the run, so "o'brien" becomes "O'Brien" and "500ml" becomes "500Ml".
func titleWords(s string) string {
	caser := cases.Title(language.Und)

	var b strings.Builder
	b.Grow(len(s))
	start := -1
	for i, r := range s {
		if unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			b.WriteString(caser.String(s[start:i]))
			start = -1
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		b.WriteString(caser.String(s[start:]))
	}
	return b.String()
}
