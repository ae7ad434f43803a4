package placeholder

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mlisa-ops/drgen/internal/manifest"
)

// Templatize overwrites configured document paths of an extracted resource
// with ${TOKEN} markers, turning live cluster state into a template that
// Apply can later resolve per site.
//
// Paths that do not address an existing mapping chain are skipped: the path
// lists are shared across resources that do not all carry every field.
func Templatize(doc *yaml.Node, file File, resourceName string) error {
	bindings, ok := file.Templatize[resourceName]
	if !ok {
		return nil
	}

	for _, b := range bindings {
		parts := manifest.SplitPath(b.Path)
		if len(parts) < 2 {
			return fmt.Errorf("templatize path %q: need at least two segments", b.Path)
		}
		marker := manifest.Scalar(fmt.Sprintf("${%s}", b.Token))
		if err := manifest.SetPath(manifest.Root(doc), parts, marker); err != nil {
			return fmt.Errorf("templatize %s: %w", resourceName, err)
		}
	}
	return nil
}
