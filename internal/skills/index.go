// Package skills normalizes skill names and classifies a candidate's skills against job requirements.
package skills

import (
	"sort"
	"strings"
	"unicode"
)

// Skill is a value object attached to a profile snapshot.
type Skill struct {
	Name     string   `json:"name" yaml:"name" validate:"required"`
	Level    Level    `json:"level" yaml:"level"`
	Years    float64  `json:"years_experience" yaml:"years_experience" validate:"gte=0"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// Requirement is a normalized skill key with the minimum level a job asks for.
type Requirement struct {
	Key      string
	MinLevel Level
}

// Classification is the outcome of comparing a candidate skill with a requirement.
type Classification int

const (
	Missing Classification = iota
	Partial
	Matched
)

func (c Classification) String() string {
	switch c {
	case Matched:
		return "MATCHED"
	case Partial:
		return "PARTIAL"
	default:
		return "MISSING"
	}
}

// Weight is the contribution of a classification to the skill score.
func (c Classification) Weight() float64 {
	switch c {
	case Matched:
		return 1.0
	case Partial:
		return 0.5
	default:
		return 0
	}
}

// synonyms maps a canonical key to the names that resolve to it.
var synonyms = map[string][]string{
	"javascript":              {"js", "ecmascript"},
	"typescript":              {"ts"},
	"python":                  {"py", "python3"},
	"go":                      {"golang"},
	"kubernetes":              {"k8s"},
	"postgresql":              {"postgres", "psql"},
	"mongodb":                 {"mongo"},
	"react":                   {"reactjs", "react.js"},
	"node.js":                 {"nodejs", "node"},
	"machine learning":        {"ml"},
	"artificial intelligence": {"ai"},
	"aws":                     {"amazon web services"},
	"gcp":                     {"google cloud platform", "google cloud"},
	"azure":                   {"microsoft azure"},
	"ci/cd":                   {"cicd", "ci cd", "continuous integration", "continuous deployment"},
	"c++":                     {"cpp"},
	"c#":                      {"csharp"},
	"terraform":               {"tf"},
	"docker":                  {"containers"},
}

// extra vocabulary recognised in free text besides the synonym table.
var known = []string{
	"java", "rust", "ruby", "rails", "php", "scala", "kotlin", "swift",
	"sql", "mysql", "redis", "kafka", "rabbitmq", "elasticsearch", "graphql",
	"grpc", "linux", "ansible", "helm", "prometheus", "grafana", "spark",
	"airflow", "django", "flask", "fastapi", "spring", "vue", "angular",
	"html", "css", "git", "data science", "deep learning", "pytorch", "tensorflow",
}

// ambiguous keys are ordinary words too often to be trusted in free text.
var ambiguous = map[string]bool{
	"go": true, "ai": true, "ml": true, "ts": true, "tf": true, "py": true,
	"node": true, "containers": true, "cd": true, "js": true,
}

// Index resolves skill names to canonical keys. It is immutable after construction
// and safe for concurrent use.
type Index struct {
	aliases    map[string]string
	vocabulary []string
}

var defaultIndex = NewIndex(nil)

// Default returns the index built from the static synonym table.
func Default() *Index {
	return defaultIndex
}

// NewIndex builds an index from the static synonym table merged with extra synonyms.
func NewIndex(extra map[string][]string) *Index {
	idx := &Index{aliases: make(map[string]string)}

	add := func(table map[string][]string) {
		for canonical, names := range table {
			key := clean(canonical)
			idx.aliases[key] = key
			for _, name := range names {
				idx.aliases[clean(name)] = key
			}
		}
	}
	add(synonyms)
	add(extra)

	seen := make(map[string]bool)
	for alias := range idx.aliases {
		if !ambiguous[alias] && !seen[alias] {
			seen[alias] = true
			idx.vocabulary = append(idx.vocabulary, alias)
		}
	}
	for _, k := range known {
		if !seen[k] {
			seen[k] = true
			idx.vocabulary = append(idx.vocabulary, k)
		}
	}
	// Longest first so "machine learning" wins over overlapping shorter terms.
	sort.Slice(idx.vocabulary, func(i, j int) bool {
		if len(idx.vocabulary[i]) != len(idx.vocabulary[j]) {
			return len(idx.vocabulary[i]) > len(idx.vocabulary[j])
		}
		return idx.vocabulary[i] < idx.vocabulary[j]
	})

	return idx
}

// Normalize lowercases, trims and collapses whitespace, then resolves aliases.
func (idx *Index) Normalize(name string) string {
	key := clean(name)
	if canonical, ok := idx.aliases[key]; ok {
		return canonical
	}
	return key
}

// Keys returns the normalized keys a skill answers to: its name and its keywords.
func (idx *Index) Keys(s Skill) []string {
	keys := []string{idx.Normalize(s.Name)}
	for _, kw := range s.Keywords {
		if k := idx.Normalize(kw); k != "" && k != keys[0] {
			keys = append(keys, k)
		}
	}
	return keys
}

// Find returns the first skill answering to key, or nil.
func (idx *Index) Find(have []Skill, key string) *Skill {
	for i := range have {
		if idx.Normalize(have[i].Name) == key {
			return &have[i]
		}
	}
	for i := range have {
		for _, k := range idx.Keys(have[i]) {
			if k == key {
				return &have[i]
			}
		}
	}
	return nil
}

// Compare classifies a candidate skill against a requirement. A nil skill or a skill
// answering to a different key is MISSING.
func (idx *Index) Compare(have *Skill, need Requirement) Classification {
	if have == nil {
		return Missing
	}

	found := false
	for _, k := range idx.Keys(*have) {
		if k == need.Key {
			found = true
			break
		}
	}
	if !found {
		return Missing
	}

	if have.Level >= need.MinLevel {
		return Matched
	}
	return Partial
}

// Extract returns the sorted canonical keys of skills mentioned in text.
func (idx *Index) Extract(text string) []string {
	lower := strings.ToLower(text)
	found := make(map[string]bool)

	for _, term := range idx.vocabulary {
		if containsTerm(lower, term) {
			found[idx.Normalize(term)] = true
		}
	}

	keys := make([]string, 0, len(found))
	for k := range found {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clean(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// containsTerm reports whether term occurs in text delimited by non-word characters.
func containsTerm(text, term string) bool {
	for start := 0; start < len(text); {
		i := strings.Index(text[start:], term)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(term)
		if boundary(text, i-1) && boundary(text, end) {
			return true
		}
		start = i + 1
	}
	return false
}

func boundary(text string, pos int) bool {
	if pos < 0 || pos >= len(text) {
		return true
	}
	r := rune(text[pos])
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#')
}
