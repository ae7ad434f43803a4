// Package transform composes the resolver, allocator, placeholder engine,
// search-replace engine, and normalizer into the per-request pipeline that
// produces finished site-specific documents.
package transform

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mlisa-ops/drgen/internal/catalog"
	"github.com/mlisa-ops/drgen/internal/ipalloc"
	"github.com/mlisa-ops/drgen/internal/manifest"
	"github.com/mlisa-ops/drgen/internal/normalize"
	"github.com/mlisa-ops/drgen/internal/placeholder"
	"github.com/mlisa-ops/drgen/internal/rules"
)

// Stage names one step of the per-request state machine.
type Stage string

// Pipeline stages, in execution order. A request is terminal on the first
// failing stage; no stage is retried, every stage is deterministic.
const (
	StageResolveConfig      Stage = "RESOLVE_CONFIG"
	StageAllocateRanges     Stage = "ALLOCATE_RANGES"
	StageBuildPlaceholders  Stage = "BUILD_PLACEHOLDERS"
	StageApplyPlaceholders  Stage = "APPLY_PLACEHOLDERS"
	StageApplySearchReplace Stage = "APPLY_SEARCH_REPLACE"
	StageNormalize          Stage = "NORMALIZE"
	StageDone               Stage = "DONE"
)

// Request addresses one unit of work: one output document.
type Request struct {
	Environment  string
	Cluster      string
	Site         ipalloc.Site
	ResourceKind string
}

func (r Request) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", r.Environment, r.Cluster, r.ResourceKind, r.Site)
}

// StageError attaches the failing stage and request to the originating
// error, so every failure names the offending request and fault.
type StageError struct {
	Request Request
	Stage   Stage
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("request %s failed at %s: %v", e.Request, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Key identifies one finished document in a batch result.
type Key struct {
	ResourceKind string
	Site         ipalloc.Site
}

// Result is one finished document plus its collected non-fatal warnings.
type Result struct {
	Request   Request
	Documents []*yaml.Node

	// Warnings are structural search-replace issues; the caller decides
	// whether to treat them as fatal.
	Warnings []rules.Warning
}

// Kind bundles the transformation inputs of one resource kind.
type Kind struct {
	// Placeholders is the kind's placeholder definition file.
	Placeholders placeholder.File

	// Rules is the kind's ordered search-replace rule list.
	Rules []rules.Rule

	// Manifests are the kind's raw template documents.
	Manifests []*yaml.Node
}

// Orchestrator runs the transformation pipeline. Stateless across requests:
// every request builds its own SiteConfig, placeholder map, and document
// copies, so callers may run independent requests concurrently.
type Orchestrator struct {
	Catalog catalog.Catalog
	Kinds   map[string]Kind
}

// Run processes the Cartesian product of resource kinds and sites for one
// (environment, cluster), sequentially, and returns the finished documents
// or the first failure. Warnings never abort a request.
func (o *Orchestrator) Run(environment, cluster string, kinds []string, sites []ipalloc.Site) (map[Key]*Result, error) {
	results := make(map[Key]*Result, len(kinds)*len(sites))
	for _, kind := range kinds {
		for _, site := range sites {
			req := Request{
				Environment:  environment,
				Cluster:      cluster,
				Site:         site,
				ResourceKind: kind,
			}
			res, err := o.RunOne(req)
			if err != nil {
				return nil, err
			}
			results[Key{ResourceKind: kind, Site: site}] = res
		}
	}
	return results, nil
}

// RunOne executes the stage machine for a single request. The raw manifests
// are never mutated: each run works on its own copy, and on failure no
// partial document escapes.
func (o *Orchestrator) RunOne(req Request) (*Result, error) {
	fail := func(stage Stage, err error) (*Result, error) {
		return nil, &StageError{Request: req, Stage: stage, Err: err}
	}

	kind, ok := o.Kinds[req.ResourceKind]
	if !ok {
		return fail(StageResolveConfig,
			fmt.Errorf("resource kind %q has no configured inputs", req.ResourceKind))
	}

	// RESOLVE_CONFIG
	site, err := catalog.Resolve(o.Catalog, req.Environment, req.Cluster)
	if err != nil {
		return fail(StageResolveConfig, err)
	}

	// ALLOCATE_RANGES
	ranges, err := ipalloc.Allocate(*site.IPRanges.Primary, site.IPRanges.DR, ipalloc.Options{
		DeriveOffset: site.IPRanges.DeriveDROffset,
		DistinctVPC:  site.DistinctVPC,
	})
	if err != nil {
		return fail(StageAllocateRanges, err)
	}

	// BUILD_PLACEHOLDERS
	tokens := placeholder.Build(kind.Placeholders, site, ranges, req.Site)

	result := &Result{Request: req}

	for _, raw := range kind.Manifests {
		doc := manifest.Copy(raw)

		// APPLY_PLACEHOLDERS
		if err := placeholder.Apply(doc, tokens); err != nil {
			return fail(StageApplyPlaceholders, err)
		}

		// APPLY_SEARCH_REPLACE
		warnings := rules.Apply(doc, req.ResourceKind, kind.Rules)
		result.Warnings = append(result.Warnings, warnings...)

		// NORMALIZE runs last so it never sees unresolved tokens.
		normalize.Normalize(doc)
		result.Documents = append(result.Documents, doc)
	}

	return result, nil
}
