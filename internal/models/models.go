package models

import (
	"fmt"
	"strings"
	"time"
)

// InitialCredits is the fixed grant written on every verified payment.
const InitialCredits = 3

type PackageType string

const (
	PackageBasic PackageType = "RESUME_ONLY"
	PackagePro   PackageType = "RESUME_COVER"
	PackageFull  PackageType = "JOB_READY_PACK"
)

// ParsePackageType accepts the checkout wire values and the BASIC/PRO/FULL tier names.
func ParsePackageType(raw string) (PackageType, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(PackageBasic), "BASIC":
		return PackageBasic, nil
	case string(PackagePro), "PRO":
		return PackagePro, nil
	case string(PackageFull), "FULL":
		return PackageFull, nil
	default:
		return "", fmt.Errorf("unknown package type %q", raw)
	}
}

func (p PackageType) Valid() bool {
	switch p {
	case PackageBasic, PackagePro, PackageFull:
		return true
	}
	return false
}

// Tier returns the short tier name used in logs and metrics.
func (p PackageType) Tier() string {
	switch p {
	case PackageBasic:
		return "basic"
	case PackagePro:
		return "pro"
	case PackageFull:
		return "full"
	default:
		return "unknown"
	}
}

type Price struct {
	AmountPaise int
	Label       string
	Features    []string
}

// Pricing is the checkout catalog; amounts are in paise.
var Pricing = map[PackageType]Price{
	PackageBasic: {
		AmountPaise: 9900,
		Label:       "Starter Pack",
		Features:    []string{"Professional Resume", "ATS-Friendly Layout", "Instant PDF Download", "Indian Market Optimized"},
	},
	PackagePro: {
		AmountPaise: 19900,
		Label:       "Pro Pack",
		Features:    []string{"3 Generation Credits", "Resume + Cover Letter", "Clean Layouts", "Priority PDF Export"},
	},
	PackageFull: {
		AmountPaise: 29900,
		Label:       "Job Ready Pack",
		Features: []string{
			"Everything in Pro Pack",
			"LinkedIn About Section",
			"Recruiter Keyword Mapping",
			"ATS Score Explanation",
			"Recruiter Advice Insights",
			"No Watermark",
		},
	},
}

// EntitlementRecord is the server-authoritative quota for one hashed identifier.
type EntitlementRecord struct {
	VerifiedAt  time.Time   `json:"verifiedAt"`
	Credits     int         `json:"credits"`
	PackageType PackageType `json:"packageType"`
}

type PaymentClaim struct {
	PaymentID   string
	OrderID     string
	Signature   string
	PackageType PackageType
}

type Education struct {
	Degree     string `json:"degree"`
	College    string `json:"college"`
	Year       string `json:"year"`
	Percentage string `json:"percentage"`
}

type Experience struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

// Profile is the structured candidate data handed to the generator.
type Profile struct {
	FullName   string       `json:"fullName"`
	Email      string       `json:"email"`
	Phone      string       `json:"phone"`
	Location   string       `json:"location"`
	JobRole    string       `json:"jobRole"`
	Summary    string       `json:"summary,omitempty"`
	Education  []Education  `json:"education"`
	Experience []Experience `json:"experience"`
	Skills     []string     `json:"skills"`
}

// DocumentResult holds the base sections every tier gets plus the tier-gated ones.
type DocumentResult struct {
	ResumeSummary     string     `json:"resumeSummary"`
	ExperienceBullets [][]string `json:"experienceBullets"`

	CoverLetter string `json:"coverLetter,omitempty"`

	LinkedinSummary   string   `json:"linkedinSummary,omitempty"`
	LinkedinHeadline  string   `json:"linkedinHeadline,omitempty"`
	KeywordMapping    []string `json:"keywordMapping,omitempty"`
	AtsExplanation    string   `json:"atsExplanation,omitempty"`
	RecruiterInsights string   `json:"recruiterInsights,omitempty"`

	RemainingCredits *int `json:"remainingCredits,omitempty"`
}

type Payment struct {
	ID             int64
	HashedID       string
	Provider       string
	ProviderCharge string
	OrderID        string
	PackageType    PackageType
	Method         string
	Status         string
	CreatedAt      time.Time
}

type GenerationLog struct {
	ID               int64
	HashedID         string
	PackageType      PackageType
	RemainingCredits int
	CreatedAt        time.Time
}
