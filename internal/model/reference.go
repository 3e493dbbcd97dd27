package model

// ReferenceKind names a Reference variant for reporting.
type ReferenceKind string

const (
	// ReferenceURL points at an external sourcemap document.
	ReferenceURL ReferenceKind = "url"
	// ReferenceData carries the sourcemap inline as a data URI payload.
	ReferenceData ReferenceKind = "data"
	// ReferenceNotFound means the script declared no sourcemap.
	ReferenceNotFound ReferenceKind = "not-found"
)

// Reference is the sourcemap pointer found in a script. It is a closed set:
// URLReference, DataReference and MissingReference are the only
// implementations.
type Reference interface {
	Kind() ReferenceKind
	isReference()
}

// URLReference is an external sourcemap location, possibly relative to the
// script that declared it.
type URLReference struct {
	URL string
}

// DataReference is an inline sourcemap. Payload is the data URI body after
// the comma; Base64 tells whether it is base64 or percent encoded.
type DataReference struct {
	Payload string
	Base64  bool
}

// MissingReference means no sourcemap directive was found.
type MissingReference struct{}

// Kind implements Reference.
func (URLReference) Kind() ReferenceKind { return ReferenceURL }

// Kind implements Reference.
func (DataReference) Kind() ReferenceKind { return ReferenceData }

// Kind implements Reference.
func (MissingReference) Kind() ReferenceKind { return ReferenceNotFound }

func (URLReference) isReference()     {}
func (DataReference) isReference()    {}
func (MissingReference) isReference() {}
