package skills

import (
	"fmt"
	"strings"
)

// Level is an ordered proficiency level. The zero value is not a valid level.
type Level int

const (
	LevelUnknown Level = iota
	Novice
	Intermediate
	Advanced
	Expert
)

var levelNames = map[Level]string{
	Novice:       "NOVICE",
	Intermediate: "INTERMEDIATE",
	Advanced:     "ADVANCED",
	Expert:       "EXPERT",
}

// ParseLevel accepts level names in any case. BEGINNER is kept as an alias of NOVICE
// because older profiles were written with it.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NOVICE", "BEGINNER":
		return Novice, nil
	case "INTERMEDIATE", "":
		return Intermediate, nil
	case "ADVANCED":
		return Advanced, nil
	case "EXPERT":
		return Expert, nil
	default:
		return LevelUnknown, fmt.Errorf("unknown skill level %q", s)
	}
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

func (l Level) Valid() bool {
	return l >= Novice && l <= Expert
}

func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid skill level %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
