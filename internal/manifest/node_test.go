package manifest

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mlisa-ops/drgen/internal/errors"
)

func mustParse(t *testing.T, src string) *yaml.Node {
	t.Helper()
	doc, err := Parse([]byte(src))
	require.NoError(t, err)
	return doc
}

func TestParsePreservesKeyOrder(t *testing.T) {
	doc := mustParse(t, `
zeta: 1
alpha: 2
mid: 3
`)
	var keys []string
	for i := 0; i+1 < len(doc.Content); i += 2 {
		keys = append(keys, doc.Content[i].Value)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, keys)
}

func TestParseAll(t *testing.T) {
	docs, err := ParseAll([]byte(`
apiVersion: v1
kind: ConfigMap
metadata:
  name: a
---
apiVersion: v1
kind: Service
metadata:
  name: b
`))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "ConfigMap", Kind(docs[0]))
	assert.Equal(t, "b", Name(docs[1]))
}

func TestParseAllEmpty(t *testing.T) {
	docs, err := ParseAll(nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestParseAllRejectsMalformed(t *testing.T) {
	_, err := ParseAll([]byte("a: b\n---\n\t bad"))
	assert.Error(t, err)
}

func TestGetSetDelete(t *testing.T) {
	doc := mustParse(t, `
a: 1
b: 2
`)
	assert.Equal(t, "1", Get(doc, "a").Value)
	assert.Nil(t, Get(doc, "missing"))

	Set(doc, "b", Scalar("changed"))
	assert.Equal(t, "changed", Get(doc, "b").Value)

	Set(doc, "c", Scalar("new"))
	assert.Equal(t, "new", Get(doc, "c").Value)

	assert.True(t, Delete(doc, "a"))
	assert.Nil(t, Get(doc, "a"))
	assert.False(t, Delete(doc, "a"))
}

func TestCopyIsDeep(t *testing.T) {
	doc := mustParse(t, `
data:
  k: original
`)
	cp := Copy(doc)
	Get(Get(cp, "data"), "k").Value = "mutated"

	assert.Equal(t, "original", Get(Get(doc, "data"), "k").Value)
	assert.Equal(t, "mutated", Get(Get(cp, "data"), "k").Value)
}

func TestLookup(t *testing.T) {
	doc := mustParse(t, `
data:
  nested:
    field: value
  scalar: leaf
`)

	t.Run("existing path", func(t *testing.T) {
		n, err := Lookup(doc, []string{"data", "nested", "field"})
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Equal(t, "value", n.Value)
	})

	t.Run("absent key is nil without error", func(t *testing.T) {
		n, err := Lookup(doc, []string{"data", "absent"})
		require.NoError(t, err)
		assert.Nil(t, n)
	})

	t.Run("absent ancestor is nil without error", func(t *testing.T) {
		n, err := Lookup(doc, []string{"data", "absent", "deeper"})
		require.NoError(t, err)
		assert.Nil(t, n)
	})

	t.Run("scalar ancestor is a structural error", func(t *testing.T) {
		_, err := Lookup(doc, []string{"data", "scalar", "deeper"})
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrValidation))
	})
}

func TestSetPath(t *testing.T) {
	doc := mustParse(t, `
data:
  k: old
`)

	require.NoError(t, SetPath(doc, []string{"data", "k"}, Scalar("new")))
	assert.Equal(t, "new", Get(Get(doc, "data"), "k").Value)

	// Missing final key is created.
	require.NoError(t, SetPath(doc, []string{"data", "added"}, Scalar("v")))
	assert.Equal(t, "v", Get(Get(doc, "data"), "added").Value)

	// Missing parent is a tolerated no-op.
	require.NoError(t, SetPath(doc, []string{"absent", "k"}, Scalar("v")))
	assert.Nil(t, Get(doc, "absent"))

	// Scalar parent is a structural error.
	assert.Error(t, SetPath(doc, []string{"data", "k", "deeper"}, Scalar("v")))
}

func TestSplitJoinPath(t *testing.T) {
	assert.Equal(t, []string{"data", "FIELD"}, SplitPath("data|FIELD"))
	assert.Equal(t, "data|FIELD", JoinPath([]string{"data", "FIELD"}))
}

func TestWalkStrings(t *testing.T) {
	doc := mustParse(t, `
data:
  a: one
  n: 42
  list:
    - two
    - nested:
        b: three
`)
	visited := map[string]string{}
	err := WalkStrings(doc, func(path []string, leaf *yaml.Node) error {
		visited[JoinPath(path)] = leaf.Value
		return nil
	})
	require.NoError(t, err)

	// Only string leaves are visited; paths index into sequences.
	assert.Equal(t, map[string]string{
		"data|a":                 "one",
		"data|list|[0]":          "two",
		"data|list|[1]|nested|b": "three",
	}, visited)
}

func TestWalkStringsPathsAreStable(t *testing.T) {
	doc := mustParse(t, `
a:
  b: x
c:
  d: y
`)
	var paths [][]string
	_ = WalkStrings(doc, func(path []string, _ *yaml.Node) error {
		paths = append(paths, path)
		return nil
	})

	require.Len(t, paths, 2)
	assert.Equal(t, []string{"a", "b"}, paths[0])
	assert.Equal(t, []string{"c", "d"}, paths[1])
}

func TestFromUnstructuredSortsKeys(t *testing.T) {
	doc, err := FromUnstructured(map[string]interface{}{
		"zeta":  1,
		"alpha": 2,
	})
	require.NoError(t, err)

	root := Root(doc)
	require.Equal(t, yaml.MappingNode, root.Kind)
	assert.Equal(t, "alpha", root.Content[0].Value)
	assert.Equal(t, "zeta", root.Content[2].Value)
}

func TestKindAndName(t *testing.T) {
	doc := mustParse(t, `
apiVersion: v1
kind: Service
metadata:
  name: web
`)
	assert.Equal(t, "Service", Kind(doc))
	assert.Equal(t, "web", Name(doc))

	empty := mustParse(t, `{}`)
	assert.Equal(t, "", Kind(empty))
	assert.Equal(t, "", Name(empty))
}
