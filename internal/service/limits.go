package service

import (
	"fmt"
	"strings"

	"github.com/digkill/resumegate/internal/models"
	"github.com/digkill/resumegate/internal/prompt"
)

// Limits bounds the size of a submitted profile.
type Limits struct {
	MaxExperience    int
	MaxEducation     int
	MaxSkills        int
	MaxFreeTextRunes int
}

func DefaultLimits() Limits {
	return Limits{
		MaxExperience:    10,
		MaxEducation:     10,
		MaxSkills:        50,
		MaxFreeTextRunes: prompt.DefaultMaxRunes,
	}
}

// CheckProfile enforces required fields and list caps.
func (l Limits) CheckProfile(p models.Profile) error {
	if strings.TrimSpace(p.FullName) == "" {
		return &ValidationError{Field: "fullName", Message: "is required"}
	}
	if strings.TrimSpace(p.JobRole) == "" {
		return &ValidationError{Field: "jobRole", Message: "is required"}
	}
	if l.MaxExperience > 0 && len(p.Experience) > l.MaxExperience {
		return &ValidationError{Field: "experience", Message: fmt.Sprintf("at most %d entries allowed", l.MaxExperience)}
	}
	if l.MaxEducation > 0 && len(p.Education) > l.MaxEducation {
		return &ValidationError{Field: "education", Message: fmt.Sprintf("at most %d entries allowed", l.MaxEducation)}
	}
	if l.MaxSkills > 0 && len(p.Skills) > l.MaxSkills {
		return &ValidationError{Field: "skills", Message: fmt.Sprintf("at most %d entries allowed", l.MaxSkills)}
	}
	return nil
}
