package documents

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/spigell/job-matcher/internal/profile"
	"github.com/spigell/job-matcher/internal/skills"
)

const (
	maxAchievements  = 5
	maxLetterSkills  = 4
	monthYear        = "January 2006"
	letterDateLayout = "January 2, 2006"
)

type skillGroup struct {
	Name   string
	Skills []string
}

type experienceView struct {
	Title        string
	Company      string
	Period       string
	Description  string
	Achievements []string
	SkillsUsed   []string
}

type view struct {
	Profile     *profile.Profile
	Company     string
	Title       string
	Location    string
	Contact     string
	Links       string
	Summary     string
	SkillGroups []skillGroup
	Experiences []experienceView
	Education   []profile.Education
	Date        string
	Years       string
	Opener      string
	Hook        string
	Matched     []string
	LeadSkill   string
	Recent      *experienceView
	Previous    *experienceView
	Achievement string
}

// tailor orders the profile by relevance to the posting: skills and experiences
// mentioning the posting's keywords come first.
func tailor(req Request, idx *skills.Index, now time.Time) *view {
	p, job := req.Profile, req.Posting
	keywords := postingKeywords(req, idx)

	v := &view{
		Profile:   p,
		Company:   job.Company,
		Title:     job.Title,
		Location:  job.Location,
		Contact:   joinNonEmpty(" | ", p.Email, p.Phone, p.Location),
		Links:     links(p),
		Education: p.Education,
		Date:      now.Format(letterDateLayout),
		Years:     fmt.Sprintf("%.0f", p.TotalYears(now)),
		Opener:    opener(req.Tone, job.Title, job.Company),
		Hook:      hook(job.Description, job.Company),
	}

	sorted := slices.Clone(p.Skills)
	sort.SliceStable(sorted, func(i, j int) bool {
		return skillRelevance(sorted[i], keywords, idx) > skillRelevance(sorted[j], keywords, idx)
	})
	v.SkillGroups = categorize(sorted)

	exps := slices.Clone(p.Experiences)
	sort.SliceStable(exps, func(i, j int) bool {
		return experienceRelevance(exps[i], keywords) > experienceRelevance(exps[j], keywords)
	})
	for _, e := range exps {
		v.Experiences = append(v.Experiences, experience(e, keywords))
	}

	v.Summary = summary(p, job.Title, job.Company, v.Years)
	v.Matched = matchedSkills(req, idx)
	v.LeadSkill = "technology"
	if len(v.Matched) > 0 {
		v.LeadSkill = v.Matched[0]
	}

	// The letter refers to roles in the order the candidate listed them.
	if len(p.Experiences) > 0 {
		recent := experience(p.Experiences[0], nil)
		v.Recent = &recent
		if len(recent.Achievements) > 0 {
			v.Achievement = lowerFirst(strings.TrimSuffix(recent.Achievements[0], "."))
		}
	}
	if len(p.Experiences) > 1 {
		previous := experience(p.Experiences[1], nil)
		v.Previous = &previous
	}
	return v
}

func postingKeywords(req Request, idx *skills.Index) map[string]bool {
	job := req.Posting
	keywords := make(map[string]bool)
	for key := range job.RequiredSkills {
		keywords[idx.Normalize(key)] = true
	}
	for _, s := range job.PreferredSkills {
		keywords[idx.Normalize(s)] = true
	}
	for _, key := range idx.Extract(job.Description) {
		keywords[key] = true
	}
	delete(keywords, "")
	return keywords
}

func skillRelevance(s skills.Skill, keywords map[string]bool, idx *skills.Index) float64 {
	score := s.Years
	for _, key := range idx.Keys(s) {
		if keywords[key] {
			score += 10
		}
	}
	name := strings.ToLower(s.Name)
	for kw := range keywords {
		if kw != name && (strings.Contains(name, kw) || strings.Contains(kw, name)) {
			score += 5
		}
	}
	return score
}

func experienceRelevance(e profile.Experience, keywords map[string]bool) int {
	text := strings.ToLower(e.Title + " " + e.Description + " " + strings.Join(e.Achievements, " ") + " " + strings.Join(e.SkillsUsed, " "))
	score := 0
	for kw := range keywords {
		if strings.Contains(text, kw) {
			score += 3
		}
	}
	if e.Current || e.End == nil {
		score += 5
	}
	return score
}

func experience(e profile.Experience, keywords map[string]bool) experienceView {
	end := "Present"
	if e.End != nil && !e.Current {
		end = e.End.Format(monthYear)
	}

	achievements := e.Achievements
	if len(achievements) > maxAchievements {
		achievements = achievements[:maxAchievements]
	}
	highlighted := make([]string, 0, len(achievements))
	for _, a := range achievements {
		highlighted = append(highlighted, highlight(a, keywords))
	}

	return experienceView{
		Title:        e.Title,
		Company:      e.Company,
		Period:       e.Start.Format(monthYear) + " - " + end,
		Description:  strings.TrimSpace(e.Description),
		Achievements: highlighted,
		SkillsUsed:   e.SkillsUsed,
	}
}

// highlight marks whole-word keyword occurrences in bold.
func highlight(text string, keywords map[string]bool) string {
	if len(keywords) == 0 {
		return text
	}
	terms := make([]string, 0, len(keywords))
	for kw := range keywords {
		terms = append(terms, regexp.QuoteMeta(kw))
	}
	// Longer terms first so "machine learning" wins over "machine".
	sort.Slice(terms, func(i, j int) bool {
		if len(terms[i]) != len(terms[j]) {
			return len(terms[i]) > len(terms[j])
		}
		return terms[i] < terms[j]
	})
	re, err := regexp.Compile(`(?i)\b(` + strings.Join(terms, "|") + `)\b`)
	if err != nil {
		return text
	}
	return re.ReplaceAllString(text, "**$1**")
}

var categories = []struct {
	name  string
	terms []string
}{
	{"Programming Languages", []string{"python", "javascript", "typescript", "java", "c++", "golang", "go", "rust", "ruby"}},
	{"Frameworks & Libraries", []string{"react", "angular", "vue", "django", "flask", "spring", "node"}},
	{"Cloud & DevOps", []string{"aws", "azure", "gcp", "docker", "kubernetes", "terraform", "ci/cd"}},
	{"Databases", []string{"sql", "postgres", "mysql", "mongodb", "redis", "elasticsearch"}},
}

const otherCategory = "Tools & Technologies"

func categorize(sorted []skills.Skill) []skillGroup {
	groups := make(map[string][]string)
	for _, s := range sorted {
		groups[category(s.Name)] = append(groups[category(s.Name)], s.Name)
	}

	var out []skillGroup
	for _, c := range categories {
		if names := groups[c.name]; len(names) > 0 {
			out = append(out, skillGroup{Name: c.name, Skills: names})
		}
	}
	if names := groups[otherCategory]; len(names) > 0 {
		out = append(out, skillGroup{Name: otherCategory, Skills: names})
	}
	return out
}

func category(name string) string {
	name = strings.ToLower(name)
	words := strings.FieldsFunc(name, func(r rune) bool { return r == ' ' || r == '-' || r == '.' })
	for _, c := range categories {
		for _, term := range c.terms {
			if name == term || slices.Contains(words, term) || (len(term) > 3 && strings.Contains(name, term)) {
				return c.name
			}
		}
	}
	return otherCategory
}

func summary(p *profile.Profile, title, company, years string) string {
	if s := strings.TrimSpace(p.Summary); s != "" {
		if company != "" && !strings.Contains(strings.ToLower(s), strings.ToLower(company)) {
			s += " Excited to bring these skills to " + company + "."
		}
		return s
	}

	top := make([]string, 0, 3)
	for _, s := range p.Skills {
		if len(top) == 3 {
			break
		}
		top = append(top, s.Name)
	}
	return fmt.Sprintf("Experienced professional with %s+ years of expertise in %s. Seeking to leverage these skills in the %s role at %s.",
		years, joinNonEmpty(", ", top...), title, company)
}

// matchedSkills names the skills the match found, using the candidate's own spelling.
func matchedSkills(req Request, idx *skills.Index) []string {
	var out []string
	if req.Match != nil {
		for _, key := range req.Match.MatchedSkills {
			name := key
			if s := idx.Find(req.Profile.Skills, key); s != nil {
				name = s.Name
			}
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		for _, s := range req.Profile.Skills {
			out = append(out, s.Name)
		}
	}
	if len(out) > maxLetterSkills {
		out = out[:maxLetterSkills]
	}
	return out
}

func opener(tone Tone, title, company string) string {
	switch tone {
	case Enthusiastic:
		return fmt.Sprintf("When I discovered the %s opening at %s, I knew I had to reach out!", title, company)
	case Conversational:
		return fmt.Sprintf("I have been following %s's work for some time, and the %s role looks like a great match.", company, title)
	default:
		return fmt.Sprintf("I am excited to apply for the %s position at %s.", title, company)
	}
}

var hooks = []struct{ keyword, hook string }{
	{"startup", "be part of a fast-growing team shaping the future of the industry"},
	{"enterprise", "contribute to large-scale systems that impact millions of users"},
	{"fintech", "work at the intersection of finance and technology"},
	{"healthcare", "make a meaningful impact on people's health and wellbeing"},
	{"machine learning", "work on cutting-edge machine learning"},
	{"remote", "collaborate with a distributed team of talented professionals"},
}

func hook(description, company string) string {
	text := strings.ToLower(description)
	for _, h := range hooks {
		if strings.Contains(text, h.keyword) {
			return h.hook
		}
	}
	return "contribute to " + company + "'s mission and growth"
}

func links(p *profile.Profile) string {
	var out []string
	for _, l := range []struct{ name, url string }{
		{"LinkedIn", p.LinkedInURL},
		{"GitHub", p.GitHubURL},
		{"Portfolio", p.PortfolioURL},
	} {
		if l.url != "" {
			out = append(out, "["+l.name+"]("+l.url+")")
		}
	}
	return strings.Join(out, " | ")
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	// Keep acronyms such as "AWS" intact.
	if len(r) > 1 && r[1] >= 'A' && r[1] <= 'Z' {
		return s
	}
	return strings.ToLower(string(r[0])) + string(r[1:])
}
