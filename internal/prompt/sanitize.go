// Package prompt builds the generator prompt and strips user text of anything
// that could pose as one of its delimiters.
package prompt

import (
	"strings"
	"unicode/utf8"

	"github.com/digkill/resumegate/internal/models"
)

const (
	ProfileStart    = "[USER_PROFILE_START]"
	ProfileEnd      = "[USER_PROFILE_END]"
	RefinementStart = "[REFINEMENT_INSTRUCTION_START]"
	RefinementEnd   = "[REFINEMENT_INSTRUCTION_END]"
)

var delimiters = []string{ProfileStart, ProfileEnd, RefinementStart, RefinementEnd}

// DefaultMaxRunes bounds every free-text field placed in the prompt.
const DefaultMaxRunes = 1000

// Sanitize removes delimiter tokens and truncates to maxRunes. Removal repeats
// until stable so nested tokens cannot reassemble into a delimiter.
func Sanitize(text string, maxRunes int) string {
	if text == "" {
		return ""
	}
	for {
		cleaned := text
		for _, d := range delimiters {
			cleaned = strings.ReplaceAll(cleaned, d, "")
		}
		if cleaned == text {
			break
		}
		text = cleaned
	}
	return truncateRunes(text, maxRunes)
}

// SanitizeProfile returns a copy of p with every free-text field sanitized.
func SanitizeProfile(p models.Profile, maxRunes int) models.Profile {
	out := models.Profile{
		FullName: Sanitize(p.FullName, maxRunes),
		Email:    Sanitize(p.Email, maxRunes),
		Phone:    Sanitize(p.Phone, maxRunes),
		Location: Sanitize(p.Location, maxRunes),
		JobRole:  Sanitize(p.JobRole, maxRunes),
		Summary:  Sanitize(p.Summary, maxRunes),
	}
	if p.Education != nil {
		out.Education = make([]models.Education, len(p.Education))
		for i, e := range p.Education {
			out.Education[i] = models.Education{
				Degree:     Sanitize(e.Degree, maxRunes),
				College:    Sanitize(e.College, maxRunes),
				Year:       Sanitize(e.Year, maxRunes),
				Percentage: Sanitize(e.Percentage, maxRunes),
			}
		}
	}
	if p.Experience != nil {
		out.Experience = make([]models.Experience, len(p.Experience))
		for i, e := range p.Experience {
			out.Experience[i] = models.Experience{
				Title:       Sanitize(e.Title, maxRunes),
				Company:     Sanitize(e.Company, maxRunes),
				Duration:    Sanitize(e.Duration, maxRunes),
				Description: Sanitize(e.Description, maxRunes),
			}
		}
	}
	if p.Skills != nil {
		out.Skills = make([]string, len(p.Skills))
		for i, s := range p.Skills {
			out.Skills[i] = Sanitize(s, maxRunes)
		}
	}
	return out
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
