// Package categorycheck validates that publishable packages declare
// category metadata consistent with the crates.io taxonomy.
//
// It is built as a pre-publish CI gate: for each package slated for
// release, every declared category and subcategory slug is resolved
// against the registry, and mismatches are reported before publication
// fails downstream.
//
// # Quick Start
//
//	pkgs, err := manifest.Discover(ctx, ".", nil)
//	...
//	report, err := categorycheck.Check(ctx, pkgs)
//	if err != nil {
//	    // registry protocol failure: the taxonomy could not be trusted
//	}
//	if !report.OK() {
//	    // len(report.Problems) metadata inconsistencies
//	}
//
// # Error Model
//
// Unknown categories and subcategories are expected findings: they become
// Problem values in the Report and never abort a run. A structurally
// unexpected registry response is a *registry.ProtocolError returned from
// Check; it aborts the run immediately, because the registry contract
// itself is broken.
//
// # Execution Model
//
// A run is strictly sequential: one package at a time, one lookup at a
// time, in declaration order. Lookup results are memoized for the
// lifetime of the run, so a category shared by many packages is resolved
// over the network once.
package categorycheck

import (
	"context"
	"log/slog"

	"github.com/crateops/categorycheck/registry"
)

// Lookuper resolves a category slug against the registry taxonomy.
// *registry.Client is the canonical implementation.
type Lookuper interface {
	// Lookup returns the taxonomy entry and true when the slug exists,
	// (nil, false, nil) when the registry explicitly does not know it,
	// and an error when the response was structurally unexpected.
	Lookup(ctx context.Context, slug string) (*registry.Category, bool, error)
}

var _ Lookuper = (*registry.Client)(nil)

// Check validates the declared categories of every package against the
// registry taxonomy and returns the accumulated report.
//
// Packages are checked in the order supplied; categories of one package
// are validated independently, so one unknown category does not
// short-circuit its siblings. The only error return is a registry
// protocol failure (or context cancellation), which aborts the run
// without completing remaining packages.
func Check(ctx context.Context, pkgs []Package, opts ...Option) (*Report, error) {
	cfg := checkConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	lookup := cfg.lookup
	if lookup == nil {
		ropts := []registry.Option{registry.WithLogger(cfg.logger)}
		if cfg.httpClient != nil {
			ropts = append(ropts, registry.WithHTTPClient(cfg.httpClient))
		}
		if cfg.delaySet {
			ropts = append(ropts, registry.WithRequestDelay(cfg.delay))
		}
		if cfg.timeout > 0 {
			ropts = append(ropts, registry.WithTimeout(cfg.timeout))
		}
		lookup = registry.New(cfg.registryURL, ropts...)
	}

	c := &checker{lookup: lookup, logger: logger, onProgress: cfg.onProgress}

	report := &Report{}
	for _, pkg := range pkgs {
		report.Packages++
		c.emit(Event{Kind: EventCheckingPackage, Package: pkg.Name})

		problems, err := c.checkPackage(ctx, pkg)
		if err != nil {
			return nil, err
		}
		report.Problems = append(report.Problems, problems...)
	}

	logger.Debug("run complete", "packages", report.Packages, "problems", len(report.Problems))
	return report, nil
}

// checker validates one package at a time against the registry.
type checker struct {
	lookup     Lookuper
	logger     *slog.Logger
	onProgress func(Event)
}

// checkPackage validates every declared specifier of pkg, in declaration
// order. The returned problems are user-data findings; the error is
// reserved for registry protocol failures.
func (c *checker) checkPackage(ctx context.Context, pkg Package) ([]Problem, error) {
	// No declared categories is trivially valid: zero lookups.
	if len(pkg.Categories) == 0 {
		c.logger.Debug("no categories declared", "package", pkg.Name)
		return nil, nil
	}

	var problems []Problem
	for _, raw := range pkg.Categories {
		spec := ParseSpecifier(raw)

		entry, found, err := c.lookup.Lookup(ctx, spec.Category)
		if err != nil {
			return nil, err
		}

		if !found {
			problems = c.report(problems, Problem{
				Package:   pkg.Name,
				Specifier: raw,
				Slug:      spec.Category,
				Kind:      ProblemUnknownCategory,
			})
			// Unknown parent: checking the subcategory would be noise.
			continue
		}

		// Registry subcategory slugs are qualified by their parent, so
		// the match is against the entire declared specifier.
		if spec.HasSubcategory && !entry.HasSubcategory(raw) {
			problems = c.report(problems, Problem{
				Package:   pkg.Name,
				Specifier: raw,
				Slug:      raw,
				Kind:      ProblemUnknownSubcategory,
			})
		}
	}
	return problems, nil
}

// report records a problem and emits its progress event.
func (c *checker) report(problems []Problem, p Problem) []Problem {
	c.logger.Debug("problem found", "package", p.Package, "specifier", p.Specifier)
	c.emit(Event{Kind: EventProblem, Package: p.Package, Problem: &p})
	return append(problems, p)
}

func (c *checker) emit(ev Event) {
	if c.onProgress != nil {
		c.onProgress(ev)
	}
}
