package profile

import "strings"

// DegreeLevel orders academic degrees. DegreeNone means no formal requirement.
type DegreeLevel int

const (
	DegreeNone DegreeLevel = iota
	DegreeAssociate
	DegreeBachelor
	DegreeMaster
	DegreeDoctorate
)

func (d DegreeLevel) String() string {
	switch d {
	case DegreeAssociate:
		return "associate"
	case DegreeBachelor:
		return "bachelor"
	case DegreeMaster:
		return "master"
	case DegreeDoctorate:
		return "doctorate"
	default:
		return "none"
	}
}

// degreeMarkers are checked from the highest level down.
var degreeMarkers = []struct {
	level   DegreeLevel
	markers []string
}{
	{DegreeDoctorate, []string{"phd", "ph.d", "doctorate", "doctoral", "doctor of"}},
	{DegreeMaster, []string{"master", "msc", "m.sc", "m.s.", "mba", "meng"}},
	{DegreeBachelor, []string{"bachelor", "bsc", "b.sc", "b.s.", "b.a.", "ba ", "bs ", "beng", "undergraduate"}},
	{DegreeAssociate, []string{"associate"}},
}

// ParseDegree maps a free-text degree name to a level. Unknown text is DegreeNone.
func ParseDegree(text string) DegreeLevel {
	lower := strings.ToLower(strings.TrimSpace(text)) + " "
	for _, d := range degreeMarkers {
		for _, m := range d.markers {
			if strings.Contains(lower, m) {
				return d.level
			}
		}
	}
	return DegreeNone
}

// HighestDegree returns the highest level among the education entries.
func (p *Profile) HighestDegree() DegreeLevel {
	best := DegreeNone
	for _, e := range p.Education {
		if lvl := ParseDegree(e.Degree); lvl > best {
			best = lvl
		}
	}
	return best
}

func (d DegreeLevel) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *DegreeLevel) UnmarshalText(text []byte) error {
	*d = ParseDegree(string(text))
	return nil
}
