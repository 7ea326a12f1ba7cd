package jobs

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spigell/job-matcher/internal/profile"
)

// Seniority is a title level with the years of experience it usually implies.
type Seniority struct {
	Name  string
	Years float64
}

// seniorities are matched in order, so more specific words come first.
var seniorities = []Seniority{
	{Name: "executive", Years: 15},
	{Name: "principal", Years: 10},
	{Name: "director", Years: 10},
	{Name: "staff", Years: 8},
	{Name: "lead", Years: 7},
	{Name: "senior", Years: 5},
	{Name: "mid", Years: 3},
	{Name: "junior", Years: 1},
	{Name: "entry", Years: 0},
}

var seniorityAliases = map[string]string{
	"sr":          "senior",
	"sr.":         "senior",
	"jr":          "junior",
	"jr.":         "junior",
	"vp":          "executive",
	"head":        "director",
	"chief":       "executive",
	"middle":      "mid",
	"intern":      "entry",
	"graduate":    "entry",
	"entry-level": "entry",
	"mid-level":   "mid",
}

// InferSeniority finds a seniority word in a job title or experience level.
func InferSeniority(title string) (Seniority, bool) {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return r == ' ' || r == ',' || r == '/' || r == '(' || r == ')'
	})

	present := make(map[string]bool, len(words))
	for _, w := range words {
		if alias, ok := seniorityAliases[w]; ok {
			w = alias
		}
		present[w] = true
	}

	for _, s := range seniorities {
		if present[s.Name] {
			return s, true
		}
	}
	return Seniority{}, false
}

var yearsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\+?\s*years?\s*(?:of\s+)?experience`),
	regexp.MustCompile(`(?i)(\d+)\+?\s*years?\s*(?:of\s+)?(?:relevant|professional)`),
	regexp.MustCompile(`(?i)minimum\s+(?:of\s+)?(\d+)\s*years?`),
	regexp.MustCompile(`(?i)at\s+least\s+(\d+)\s*years?`),
}

// InferRequiredYears extracts an explicit "N+ years of experience" requirement.
// Zero means the text states none.
func InferRequiredYears(text string) float64 {
	for _, re := range yearsPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n < 50 {
				return float64(n)
			}
		}
	}
	return 0
}

var degreeMentions = []struct {
	marker string
	level  profile.DegreeLevel
}{
	{"phd", profile.DegreeDoctorate},
	{"ph.d", profile.DegreeDoctorate},
	{"doctorate", profile.DegreeDoctorate},
	{"master", profile.DegreeMaster},
	{"mba", profile.DegreeMaster},
	{"bachelor", profile.DegreeBachelor},
	{"associate degree", profile.DegreeAssociate},
}

var requirementWords = []string{"required", "must have", "minimum", "requires"}

// InferMinDegree returns the highest degree a description asks for. Mentions only
// count when the text phrases something as a requirement.
func InferMinDegree(text string) profile.DegreeLevel {
	lower := strings.ToLower(text)

	required := false
	for _, w := range requirementWords {
		if strings.Contains(lower, w) {
			required = true
			break
		}
	}
	if !required {
		return profile.DegreeNone
	}

	for _, d := range degreeMentions {
		if strings.Contains(lower, d.marker) {
			return d.level
		}
	}
	return profile.DegreeNone
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
