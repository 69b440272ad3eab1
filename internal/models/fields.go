package models

// Field names a generated document section; values match the JSON keys.
type Field string

const (
	FieldResumeSummary     Field = "resumeSummary"
	FieldExperienceBullets Field = "experienceBullets"
	FieldCoverLetter       Field = "coverLetter"
	FieldLinkedinSummary   Field = "linkedinSummary"
	FieldLinkedinHeadline  Field = "linkedinHeadline"
	FieldKeywordMapping    Field = "keywordMapping"
	FieldAtsExplanation    Field = "atsExplanation"
	FieldRecruiterInsights Field = "recruiterInsights"
)

// FieldSet is the ordered list of sections a tier is entitled to.
type FieldSet []Field

func (s FieldSet) Has(f Field) bool {
	for _, v := range s {
		if v == f {
			return true
		}
	}
	return false
}

var baseFields = FieldSet{FieldResumeSummary, FieldExperienceBullets}

// FieldsFor derives the requested sections from the paid tier. An unknown tier
// gets only the base sections.
func FieldsFor(p PackageType) FieldSet {
	fields := append(FieldSet{}, baseFields...)
	switch p {
	case PackagePro:
		fields = append(fields, FieldCoverLetter)
	case PackageFull:
		fields = append(fields,
			FieldCoverLetter,
			FieldLinkedinSummary,
			FieldLinkedinHeadline,
			FieldKeywordMapping,
			FieldAtsExplanation,
			FieldRecruiterInsights,
		)
	}
	return fields
}

// Restrict returns a copy of doc holding only the sections in fields.
func (d DocumentResult) Restrict(fields FieldSet) DocumentResult {
	out := DocumentResult{
		ResumeSummary:     d.ResumeSummary,
		ExperienceBullets: d.ExperienceBullets,
	}
	if fields.Has(FieldCoverLetter) {
		out.CoverLetter = d.CoverLetter
	}
	if fields.Has(FieldLinkedinSummary) {
		out.LinkedinSummary = d.LinkedinSummary
	}
	if fields.Has(FieldLinkedinHeadline) {
		out.LinkedinHeadline = d.LinkedinHeadline
	}
	if fields.Has(FieldKeywordMapping) {
		out.KeywordMapping = d.KeywordMapping
	}
	if fields.Has(FieldAtsExplanation) {
		out.AtsExplanation = d.AtsExplanation
	}
	if fields.Has(FieldRecruiterInsights) {
		out.RecruiterInsights = d.RecruiterInsights
	}
	return out
}
