package placeholder

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mlisa-ops/drgen/internal/catalog"
	"github.com/mlisa-ops/drgen/internal/errors"
	"github.com/mlisa-ops/drgen/internal/ipalloc"
	"github.com/mlisa-ops/drgen/internal/manifest"
	"github.com/mlisa-ops/drgen/internal/normalize"
)

func testSite() catalog.SiteConfig {
	return catalog.SiteConfig{
		Environment: "stg",
		Cluster:     "rai",
		ProjectID:   "mlisa-stg",
		Region:      "us-central1",
		DRRegion:    "us-east1",
		VPCName:     "stg-rai-vpc",
	}
}

func testRanges() ipalloc.Pair {
	return ipalloc.Pair{
		Primary: ipalloc.Spec{
			SubnetCIDR:    "10.0.0.0/24",
			PodsCIDR:      "10.100.0.0/16",
			ServicesCIDR:  "10.200.0.0/20",
			ConnectorCIDR: "10.210.0.0/28",
			MasterCIDR:    "172.16.0.0/28",
		},
		DR: ipalloc.Spec{
			SubnetCIDR:    "10.0.1.0/24",
			PodsCIDR:      "10.101.0.0/16",
			ServicesCIDR:  "10.200.16.0/20",
			ConnectorCIDR: "10.210.0.16/28",
			MasterCIDR:    "172.16.0.16/28",
		},
	}
}

func TestBuild(t *testing.T) {
	file := File{Values: map[string]interface{}{
		"BROKER_COUNT": 3,
		"REGION":       "file-region", // catalog wins
	}}

	m := Build(file, testSite(), testRanges(), ipalloc.SitePrimary)

	assert.Equal(t, 3, m["BROKER_COUNT"])
	assert.Equal(t, "us-central1", m["REGION"])
	assert.Equal(t, "stg", m["ENVIRONMENT"])
	assert.Equal(t, "rai", m["CLUSTER"])
	assert.Equal(t, "stg-rai-vpc", m["VPC_NAME"])
	assert.Equal(t, "primary", m["SITE"])
	assert.Equal(t, "10.0.0.0/24", m["SUBNET_IP_CIDR_RANGE"])
}

func TestBuildDRSite(t *testing.T) {
	m := Build(File{}, testSite(), testRanges(), ipalloc.SiteDR)

	assert.Equal(t, "us-east1", m["REGION"])
	assert.Equal(t, "dr", m["SITE"])
	assert.Equal(t, "10.0.1.0/24", m["SUBNET_IP_CIDR_RANGE"])
	assert.Equal(t, "10.101.0.0/16", m["PODS_IP_CIDR_RANGE"])
}

func mustParse(t *testing.T, src string) *yaml.Node {
	t.Helper()
	doc, err := manifest.Parse([]byte(src))
	require.NoError(t, err)
	return doc
}

func TestApply(t *testing.T) {
	doc := mustParse(t, `
apiVersion: v1
kind: ConfigMap
metadata:
  name: cluster-info
data:
  vpc: ${VPC_NAME}
  endpoint: https://${CLUSTER}.${ENVIRONMENT}.example.com
  script: |
    echo "$HOME stays untouched"
    echo region=${REGION}
`)

	m := Map{
		"VPC_NAME":    "stg-rai-vpc",
		"CLUSTER":     "rai",
		"ENVIRONMENT": "stg",
		"REGION":      "us-central1",
	}
	require.NoError(t, Apply(doc, m))

	root := manifest.Root(doc)
	data := manifest.Get(root, "data")
	assert.Equal(t, "stg-rai-vpc", manifest.Get(data, "vpc").Value)
	assert.Equal(t, "https://rai.stg.example.com", manifest.Get(data, "endpoint").Value)
	// Bare $HOME is a shell fragment, not a placeholder.
	assert.Contains(t, manifest.Get(data, "script").Value, "$HOME stays untouched")
	assert.Contains(t, manifest.Get(data, "script").Value, "region=us-central1")
}

func TestApplyNestedExpansion(t *testing.T) {
	doc := mustParse(t, `
data:
  url: ${BASE_URL}/v1
`)
	m := Map{
		"BASE_URL": "https://${HOST}:${PORT}",
		"HOST":     "druid.${DOMAIN}",
		"DOMAIN":   "internal",
		"PORT":     "8082",
	}
	require.NoError(t, Apply(doc, m))

	data := manifest.Get(manifest.Root(doc), "data")
	assert.Equal(t, "https://druid.internal:8082/v1", manifest.Get(data, "url").Value)
}

func TestApplyDepthBound(t *testing.T) {
	// A chain needing more than MaxDepth expansions leaves a token behind.
	doc := mustParse(t, `
data:
  v: ${A}
`)
	m := Map{
		"A": "${B}",
		"B": "${C}",
		"C": "${D}",
		"D": "done",
	}
	err := Apply(doc, m)
	require.Error(t, err)

	var unresolvedErr *UnresolvedPlaceholderError
	require.ErrorAs(t, err, &unresolvedErr)
	assert.True(t, stderrors.Is(err, errors.ErrUnresolved))
	require.Len(t, unresolvedErr.Tokens, 1)
	assert.Equal(t, "D", unresolvedErr.Tokens[0].Token)
	assert.Equal(t, "data|v", unresolvedErr.Tokens[0].Path)
}

func TestApplyWholeTokenKeepsType(t *testing.T) {
	doc := mustParse(t, `
spec:
  replicas: ${REPLICAS}
  resources: ${RESOURCES}
  label: prefix-${REPLICAS}
`)
	m := Map{
		"REPLICAS":  3,
		"RESOURCES": map[string]interface{}{"cpu": "500m"},
	}
	require.NoError(t, Apply(doc, m))

	spec := manifest.Get(manifest.Root(doc), "spec")
	assert.Equal(t, "!!int", manifest.Get(spec, "replicas").Tag)
	assert.Equal(t, "3", manifest.Get(spec, "replicas").Value)
	resources := manifest.Get(spec, "resources")
	require.NotNil(t, resources)
	assert.Equal(t, "500m", manifest.Get(resources, "cpu").Value)
	// Embedded tokens always stringify.
	assert.Equal(t, "prefix-3", manifest.Get(spec, "label").Value)
}

func TestApplyStructuredValueResolvesNestedTokens(t *testing.T) {
	// Tokens inside an inserted list or mapping are resolved too.
	doc := mustParse(t, `
spec:
  hosts: ${HOSTS}
  limits: ${LIMITS}
`)
	m := Map{
		"HOSTS":        []interface{}{"${PRIMARY_HOST}", "b.example"},
		"PRIMARY_HOST": "a.example",
		"LIMITS":       map[string]interface{}{"cpu": "${CPU_LIMIT}"},
		"CPU_LIMIT":    "500m",
	}
	require.NoError(t, Apply(doc, m))

	spec := manifest.Get(manifest.Root(doc), "spec")
	hosts := manifest.Get(spec, "hosts")
	require.Equal(t, yaml.SequenceNode, hosts.Kind)
	require.Len(t, hosts.Content, 2)
	assert.Equal(t, "a.example", hosts.Content[0].Value)
	assert.Equal(t, "b.example", hosts.Content[1].Value)
	assert.Equal(t, "500m", manifest.Get(manifest.Get(spec, "limits"), "cpu").Value)
}

func TestApplyStructuredValueReportsNestedUnresolved(t *testing.T) {
	doc := mustParse(t, `
spec:
  hosts: ${HOSTS}
`)
	err := Apply(doc, Map{"HOSTS": []interface{}{"${PRIMARY_HOST}", "b.example"}})
	require.Error(t, err)

	var unresolvedErr *UnresolvedPlaceholderError
	require.ErrorAs(t, err, &unresolvedErr)
	require.Len(t, unresolvedErr.Tokens, 1)
	assert.Equal(t, "PRIMARY_HOST", unresolvedErr.Tokens[0].Token)
	assert.Equal(t, "spec|hosts|[0]", unresolvedErr.Tokens[0].Path)
}

func TestApplyStructuredValueDepthBound(t *testing.T) {
	// The inserted subtree spends what remains of the expansion budget.
	doc := mustParse(t, `
spec:
  hosts: ${HOSTS}
`)
	m := Map{
		"HOSTS": []interface{}{"${A}"},
		"A":     "${B}",
		"B":     "${C}",
		"C":     "deep.example",
	}
	err := Apply(doc, m)
	require.Error(t, err)

	var unresolvedErr *UnresolvedPlaceholderError
	require.ErrorAs(t, err, &unresolvedErr)
	require.Len(t, unresolvedErr.Tokens, 1)
	assert.Equal(t, "C", unresolvedErr.Tokens[0].Token)
	assert.Equal(t, "spec|hosts|[0]", unresolvedErr.Tokens[0].Path)
}

func TestApplyReportsAllUnresolved(t *testing.T) {
	doc := mustParse(t, `
data:
  a: ${MISSING_ONE}
  b: ${MISSING_TWO} and ${MISSING_ONE}
`)
	err := Apply(doc, Map{})
	require.Error(t, err)

	var unresolvedErr *UnresolvedPlaceholderError
	require.ErrorAs(t, err, &unresolvedErr)
	require.Len(t, unresolvedErr.Tokens, 3)
	// Sorted by path, then token.
	assert.Equal(t, Unresolved{Token: "MISSING_ONE", Path: "data|a"}, unresolvedErr.Tokens[0])
	assert.Equal(t, Unresolved{Token: "MISSING_ONE", Path: "data|b"}, unresolvedErr.Tokens[1])
	assert.Equal(t, Unresolved{Token: "MISSING_TWO", Path: "data|b"}, unresolvedErr.Tokens[2])
}

func TestTemplatize(t *testing.T) {
	doc := mustParse(t, `
apiVersion: v1
kind: ConfigMap
metadata:
  name: druid-common
data:
  druid_host: live-value.example.com
  other: untouched
`)
	file := File{Templatize: map[string][]PathToken{
		"druid-common": {
			{Path: "data|druid_host", Token: "DRUID_HOST"},
		},
	}}

	require.NoError(t, Templatize(doc, file, "druid-common"))

	data := manifest.Get(manifest.Root(doc), "data")
	assert.Equal(t, "${DRUID_HOST}", manifest.Get(data, "druid_host").Value)
	assert.Equal(t, "untouched", manifest.Get(data, "other").Value)
}

func TestTemplatizeUnlistedResourceIsNoop(t *testing.T) {
	doc := mustParse(t, `
data:
  k: v
`)
	require.NoError(t, Templatize(doc, File{}, "something-else"))
	assert.Equal(t, "v", manifest.Get(manifest.Get(manifest.Root(doc), "data"), "k").Value)
}

func TestTemplatizeAbsentPathIsTolerated(t *testing.T) {
	doc := mustParse(t, `
data:
  k: v
`)
	file := File{Templatize: map[string][]PathToken{
		"res": {{Path: "data|missing_field|deeper", Token: "T"}},
	}}
	require.NoError(t, Templatize(doc, file, "res"))
}

func TestTemplatizeRejectsShortPath(t *testing.T) {
	doc := mustParse(t, `
data:
  k: v
`)
	file := File{Templatize: map[string][]PathToken{
		"res": {{Path: "data", Token: "T"}},
	}}
	assert.Error(t, Templatize(doc, file, "res"))
}

func TestApplyThenNormalizeRoundTrip(t *testing.T) {
	doc := mustParse(t, `
kind: ConfigMap
apiVersion: v1
metadata:
  name: cfg
data:
  region: ${REGION}
`)
	require.NoError(t, Apply(doc, Map{"REGION": "us-central1"}))

	out, err := normalize.Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: cfg\ndata:\n  region: us-central1\n", string(out))
}
