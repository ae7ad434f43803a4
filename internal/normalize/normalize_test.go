package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mlisa-ops/drgen/internal/manifest"
)

func mustParse(t *testing.T, src string) *yaml.Node {
	t.Helper()
	doc, err := manifest.Parse([]byte(src))
	require.NoError(t, err)
	return doc
}

func TestMarshalReordersTopLevel(t *testing.T) {
	doc := mustParse(t, `
metadata:
  name: web
kind: Deployment
spec:
  replicas: 2
apiVersion: apps/v1
`)
	out, err := Marshal(doc)
	require.NoError(t, err)

	assert.Equal(t, "apiVersion: apps/v1\nkind: Deployment\nmetadata:\n  name: web\nspec:\n  replicas: 2\n", string(out))
}

func TestMarshalMetadataOrder(t *testing.T) {
	doc := mustParse(t, `
apiVersion: v1
kind: ConfigMap
metadata:
  annotations:
    a: b
  namespace: mlisa
  name: cfg
data:
  k: v
`)
	out, err := Marshal(doc)
	require.NoError(t, err)

	assert.Equal(t, `apiVersion: v1
kind: ConfigMap
metadata:
  name: cfg
  namespace: mlisa
  annotations:
    a: b
data:
  k: v
`, string(out))
}

func TestMarshalUnrankedKeysKeepDocumentOrder(t *testing.T) {
	doc := mustParse(t, `
zeta: 1
alpha: 2
kind: Custom
`)
	out, err := Marshal(doc)
	require.NoError(t, err)

	assert.Equal(t, "kind: Custom\nzeta: 1\nalpha: 2\n", string(out))
}

func TestMarshalMultilineUsesLiteralBlock(t *testing.T) {
	doc := mustParse(t, `
apiVersion: v1
kind: ConfigMap
metadata:
  name: scripts
data:
  run.sh: "#!/bin/sh\necho hello\n"
`)
	out, err := Marshal(doc)
	require.NoError(t, err)

	assert.Contains(t, string(out), "run.sh: |\n    #!/bin/sh\n    echo hello\n")
}

func TestMarshalClearsIncidentalQuoting(t *testing.T) {
	doc := mustParse(t, `
data:
  plain: "no quoting needed"
  numeric: "123"
`)
	out, err := Marshal(doc)
	require.NoError(t, err)

	// Plain strings drop their quotes; strings that would reparse as
	// another type keep them.
	assert.Contains(t, string(out), "plain: no quoting needed\n")
	assert.Contains(t, string(out), `numeric: "123"`)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	doc := mustParse(t, `
metadata:
  labels:
    app: web
  name: web
kind: Service
spec:
  ports:
    - port: 80
apiVersion: v1
`)
	first, err := Marshal(doc)
	require.NoError(t, err)
	second, err := Marshal(doc)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))

	reparsed := mustParse(t, string(first))
	third, err := Marshal(reparsed)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(third))
}

func TestMarshalSemanticallyEqualDocumentsAgree(t *testing.T) {
	a := mustParse(t, `
kind: ConfigMap
apiVersion: v1
data:
  k: v
metadata:
  name: cfg
`)
	b := mustParse(t, `
apiVersion: "v1"
kind: ConfigMap
metadata: {name: cfg}
data: {k: v}
`)

	outA, err := Marshal(a)
	require.NoError(t, err)
	outB, err := Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(outA), string(outB))
}

func TestMarshalAll(t *testing.T) {
	docs := []*yaml.Node{
		mustParse(t, "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: a\n"),
		mustParse(t, "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: b\n"),
	}
	out, err := MarshalAll(docs)
	require.NoError(t, err)

	assert.Equal(t, `apiVersion: v1
kind: ConfigMap
metadata:
  name: a
---
apiVersion: v1
kind: ConfigMap
metadata:
  name: b
`, string(out))
}

func TestMarshalAllEmpty(t *testing.T) {
	out, err := MarshalAll(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNormalizeConfigMapKindOrder(t *testing.T) {
	doc := mustParse(t, `
data:
  k: v
kind: ConfigMap
apiVersion: v1
metadata:
  name: cfg
`)
	Normalize(doc)

	root := manifest.Root(doc)
	var keys []string
	for i := 0; i+1 < len(root.Content); i += 2 {
		keys = append(keys, root.Content[i].Value)
	}
	assert.Equal(t, []string{"apiVersion", "kind", "metadata", "data"}, keys)
}

func TestNormalizeNilDocument(t *testing.T) {
	assert.NotPanics(t, func() { Normalize(nil) })
}
