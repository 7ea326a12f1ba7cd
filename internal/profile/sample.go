package profile

import (
	"time"

	"github.com/spigell/job-matcher/internal/skills"
)

// Sample returns a filled-in profile used by `profile --create-sample`.
func Sample() *Profile {
	graduated := time.Date(2018, time.May, 1, 0, 0, 0, 0, time.UTC)

	return &Profile{
		ID:       "sample-user",
		FullName: "Sample User",
		Email:    "sample@example.com",
		Phone:    "555-123-4567",
		Location: "San Francisco, CA",
		Summary:  "Experienced software engineer with expertise in Python and cloud technologies.",
		Skills: []skills.Skill{
			{Name: "Python", Level: skills.Expert, Years: 5},
			{Name: "JavaScript", Level: skills.Advanced, Years: 4},
			{Name: "AWS", Level: skills.Advanced, Years: 3},
			{Name: "Docker", Level: skills.Intermediate, Years: 2},
		},
		Experiences: []Experience{
			{
				Title:       "Senior Software Engineer",
				Company:     "Tech Corp",
				Start:       time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
				Current:     true,
				Description: "Leading backend development team",
				Achievements: []string{
					"Reduced API latency by 40%",
					"Implemented CI/CD pipeline",
				},
			},
		},
		Education: []Education{
			{
				Institution: "State University",
				Degree:      "Bachelor's",
				Field:       "Computer Science",
				Graduated:   &graduated,
			},
		},
		DesiredRoles:     []string{"Senior Software Engineer", "Staff Engineer", "Tech Lead"},
		DesiredLocations: []string{"San Francisco", "Remote"},
		MinSalary:        150000,
		RemotePreference: Flexible,
	}
}
