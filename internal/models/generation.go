package models

import "errors"

// ErrMalformedDocument marks generator output that could not be parsed into a DocumentResult.
var ErrMalformedDocument = errors.New("malformed generated document")

// GenerationInput is what the gateway hands to a generator after sanitization.
type GenerationInput struct {
	Profile     Profile
	Feedback    string
	PackageType PackageType
	Fields      FieldSet
}
