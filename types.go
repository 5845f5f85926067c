package categorycheck

// Package is one publishable package slated for release: its name and the
// category specifiers its manifest declares, in declaration order.
// Records are supplied by a manifest loader and are read-only here.
type Package struct {
	// Name is the package name as declared in its manifest.
	Name string `json:"name"`

	// Categories lists the raw declared category specifiers, each either
	// "cat" or "cat::subcat". Empty or nil is valid: a package without
	// category metadata is trivially consistent.
	Categories []string `json:"categories,omitempty"`
}

// ProblemKind classifies a detected metadata inconsistency.
type ProblemKind int

const (
	// ProblemUnknownCategory means the declared top-level category does
	// not exist in the registry taxonomy.
	ProblemUnknownCategory ProblemKind = iota

	// ProblemUnknownSubcategory means the parent category exists but no
	// subcategory slug equals the declared qualified specifier.
	ProblemUnknownSubcategory
)

// Problem is one mismatch between a package's declared categories and the
// registry taxonomy. Problems are expected, recoverable findings: they are
// collected and counted, never abort a run.
type Problem struct {
	// Package is the name of the package that declared the specifier.
	Package string `json:"package"`

	// Specifier is the full declared specifier string, e.g.
	// "development-tools::build-utils".
	Specifier string `json:"specifier"`

	// Slug is the slug that failed resolution: the parent category for
	// ProblemUnknownCategory, the qualified specifier for
	// ProblemUnknownSubcategory.
	Slug string `json:"slug"`

	// Kind classifies the mismatch.
	Kind ProblemKind `json:"kind"`
}

func (p Problem) String() string {
	switch p.Kind {
	case ProblemUnknownSubcategory:
		return "package " + p.Package + ": subcategory \"" + p.Slug + "\" not known at registry"
	default:
		return "package " + p.Package + ": category \"" + p.Slug + "\" not known at registry"
	}
}

// Report is the outcome of one validation run. It replaces any ambient
// problem counter with an explicitly accumulated value.
type Report struct {
	// Packages is the number of packages checked.
	Packages int `json:"packages"`

	// Problems lists every detected inconsistency in detection order.
	Problems []Problem `json:"problems,omitempty"`
}

// OK reports whether the run found zero problems.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

// EventKind identifies a progress event during a run.
type EventKind int

const (
	// EventCheckingPackage fires once per package, before its
	// specifiers are validated.
	EventCheckingPackage EventKind = iota

	// EventProblem fires for each detected inconsistency, as soon as it
	// is found.
	EventProblem
)

// Event is a progress notification delivered to the WithProgress callback.
// Events fire synchronously on the calling goroutine, in run order.
type Event struct {
	// Kind identifies the event.
	Kind EventKind

	// Package is the package being checked.
	Package string

	// Problem carries the finding for EventProblem, nil otherwise.
	Problem *Problem
}
