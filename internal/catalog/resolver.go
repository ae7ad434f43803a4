package catalog

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mlisa-ops/drgen/internal/errors"
)

// UnknownEnvironmentError indicates the requested environment is not in the
// catalog.
type UnknownEnvironmentError struct {
	Environment string

	// Known lists the catalog's environments, for the error message.
	Known []string
}

func (e *UnknownEnvironmentError) Error() string {
	return fmt.Sprintf("environment %q not found in catalog (known: %s)",
		e.Environment, strings.Join(e.Known, ", "))
}

func (e *UnknownEnvironmentError) Unwrap() error {
	return errors.ErrNotFound
}

// UnknownClusterError indicates the requested cluster is not configured for
// the environment.
type UnknownClusterError struct {
	Environment string
	Cluster     string

	// Known lists the environment's clusters, for the error message.
	Known []string
}

func (e *UnknownClusterError) Error() string {
	return fmt.Sprintf("cluster %q not found for environment %q (known: %s)",
		e.Cluster, e.Environment, strings.Join(e.Known, ", "))
}

func (e *UnknownClusterError) Unwrap() error {
	return errors.ErrNotFound
}

// IncompleteConfigError names every required field the catalog entry lacks.
type IncompleteConfigError struct {
	Environment string
	Cluster     string
	Missing     []string
}

func (e *IncompleteConfigError) Error() string {
	return fmt.Sprintf("incomplete catalog entry for %s/%s: missing %s",
		e.Environment, e.Cluster, strings.Join(e.Missing, ", "))
}

func (e *IncompleteConfigError) Unwrap() error {
	return errors.ErrValidation
}

// validate reports struct-tag violations using the catalog's JSON field names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Resolve returns the concrete SiteConfig for (environment, cluster).
//
// Missing keys fail with UnknownEnvironmentError / UnknownClusterError; an
// entry lacking required fields fails with IncompleteConfigError naming every
// missing field. A partial SiteConfig is never returned.
func Resolve(cat Catalog, environment, cluster string) (SiteConfig, error) {
	env, ok := cat[environment]
	if !ok {
		return SiteConfig{}, &UnknownEnvironmentError{
			Environment: environment,
			Known:       sortedKeys(cat),
		}
	}

	cl, ok := env.Clusters[cluster]
	if !ok {
		return SiteConfig{}, &UnknownClusterError{
			Environment: environment,
			Cluster:     cluster,
			Known:       sortedKeys(env.Clusters),
		}
	}

	missing := collectMissing(env, cl)
	if len(missing) > 0 {
		return SiteConfig{}, &IncompleteConfigError{
			Environment: environment,
			Cluster:     cluster,
			Missing:     missing,
		}
	}

	return SiteConfig{
		Environment: environment,
		Cluster:     cluster,
		ProjectID:   env.ProjectID,
		Region:      env.Region,
		DRRegion:    env.DRRegion,
		VPCName:     cl.VPC,
		DistinctVPC: cl.DistinctVPC,
		IPRanges:    cl.IPRanges,
	}, nil
}

// collectMissing gathers every violated required field across the environment
// and cluster entries, with catalog-relative field paths.
func collectMissing(env Environment, cl Cluster) []string {
	var missing []string

	add := func(err error) {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return
		}
		for _, fe := range verrs {
			// Namespace starts with the struct type name; keep the rest.
			path := fe.Namespace()
			if i := strings.Index(path, "."); i >= 0 {
				path = path[i+1:]
			}
			missing = append(missing, strings.ToLower(path))
		}
	}

	// The environment struct includes the clusters map; validating it per
	// cluster would duplicate messages, so check the scalar fields alone.
	envScalars := struct {
		ProjectID string `json:"project_id" validate:"required"`
		Region    string `json:"region" validate:"required"`
		DRRegion  string `json:"dr_region" validate:"required"`
	}{env.ProjectID, env.Region, env.DRRegion}
	if err := validate.Struct(envScalars); err != nil {
		add(err)
	}

	// Struct validation dives into the nested range specs, so the cluster
	// check alone covers ip_ranges.primary.* and ip_ranges.dr.*.
	if err := validate.Struct(cl); err != nil {
		add(err)
	}

	sort.Strings(missing)
	return missing
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
