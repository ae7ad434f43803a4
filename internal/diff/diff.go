// Package diff checks site parity: the primary and DR artifacts for a
// resource kind must be distinguishable only by site-scoped values.
package diff

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gonvenience/ytbx"
	"github.com/homeport/dyff/pkg/dyff"
)

// Site-scoped document paths: differences here are expected between the
// primary and DR artifacts of one resource kind.
var siteScopedFragments = []string{
	"subnet_ip_cidr_range",
	"pods_ip_cidr_range",
	"services_ip_cidr_range",
	"vpc_connector_ip_cidr_range",
	"master_ipv4_cidr_block",
	"region",
}

// Report is the outcome of a site-parity comparison.
type Report struct {
	// InParity is true when every difference lies on a site-scoped path.
	InParity bool

	// Violations lists paths that differ outside the site-scoped set.
	Violations []string

	// Rendered is the human-readable dyff report of all differences.
	Rendered string
}

// SiteParity compares the primary and DR serializations of the same resource
// kind. Extra site-scoped fragments (field names or path substrings) may be
// passed for kinds with additional per-site values.
func SiteParity(primary, dr []byte, extraFragments ...string) (*Report, error) {
	from, err := parseInput("primary", primary)
	if err != nil {
		return nil, fmt.Errorf("parsing primary artifact: %w", err)
	}
	to, err := parseInput("dr", dr)
	if err != nil {
		return nil, fmt.Errorf("parsing dr artifact: %w", err)
	}

	report, err := dyff.CompareInputFiles(from, to)
	if err != nil {
		return nil, fmt.Errorf("comparing artifacts: %w", err)
	}

	fragments := append(append([]string{}, siteScopedFragments...), extraFragments...)

	result := &Report{InParity: true}
	for _, d := range report.Diffs {
		path := ""
		if d.Path != nil {
			path = d.Path.String()
		}
		if !isSiteScoped(path, fragments) {
			result.InParity = false
			result.Violations = append(result.Violations, path)
		}
	}

	if len(report.Diffs) > 0 {
		rendered, err := render(report)
		if err != nil {
			return nil, err
		}
		result.Rendered = rendered
	}

	return result, nil
}

func isSiteScoped(path string, fragments []string) bool {
	lower := strings.ToLower(path)
	for _, f := range fragments {
		if strings.Contains(lower, strings.ToLower(f)) {
			return true
		}
	}
	return false
}

func parseInput(name string, data []byte) (ytbx.InputFile, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ytbx.InputFile{Location: name}, nil
	}
	docs, err := ytbx.LoadYAMLDocuments(data)
	if err != nil {
		return ytbx.InputFile{}, err
	}
	return ytbx.InputFile{Location: name, Documents: docs}, nil
}

// render produces the human-readable dyff report with trailing whitespace
// trimmed per line.
func render(report dyff.Report) (string, error) {
	var buf bytes.Buffer

	reportWriter := &dyff.HumanReport{
		Report:            report,
		DoNotInspectCerts: true,
		OmitHeader:        true,
	}
	if err := reportWriter.WriteReport(io.Writer(&buf)); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	lines := strings.Split(buf.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
