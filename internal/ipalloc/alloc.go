// Package ipalloc validates and derives the per-site IP range layout for a
// cluster. All functions are pure: identical inputs always yield identical
// outputs or the same error.
package ipalloc

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/mlisa-ops/drgen/internal/errors"
)

// Site discriminates the primary deployment from its disaster-recovery peer.
type Site string

const (
	// SitePrimary is the main operational deployment.
	SitePrimary Site = "primary"

	// SiteDR is the disaster-recovery deployment.
	SiteDR Site = "dr"
)

// Sites lists both sites in processing order.
func Sites() []Site {
	return []Site{SitePrimary, SiteDR}
}

// Suffix returns the artifact filename suffix for the site ("" or "-dr").
func (s Site) Suffix() string {
	if s == SiteDR {
		return "-dr"
	}
	return ""
}

// Spec holds the five CIDR ranges a single site needs.
type Spec struct {
	// SubnetCIDR is the node subnet range.
	SubnetCIDR string `json:"subnet_ip_cidr_range" validate:"required,cidr"`

	// PodsCIDR is the pod secondary range.
	PodsCIDR string `json:"pods_ip_cidr_range" validate:"required,cidr"`

	// ServicesCIDR is the service secondary range.
	ServicesCIDR string `json:"services_ip_cidr_range" validate:"required,cidr"`

	// ConnectorCIDR is the serverless VPC connector range.
	ConnectorCIDR string `json:"vpc_connector_ip_cidr_range" validate:"required,cidr"`

	// MasterCIDR is the GKE control plane range.
	MasterCIDR string `json:"master_ipv4_cidr_block" validate:"required,cidr"`
}

// Pair is the fully validated range layout for both sites.
type Pair struct {
	Primary Spec
	DR      Spec
}

// ForSite returns the spec for the given site.
func (p Pair) ForSite(s Site) Spec {
	if s == SiteDR {
		return p.DR
	}
	return p.Primary
}

// Range identifies one named CIDR with its origin, for conflict reporting.
type Range struct {
	// Site is the site the range belongs to.
	Site Site

	// Field is the catalog field name the range came from.
	Field string

	// CIDR is the range in CIDR notation.
	CIDR string

	prefix netip.Prefix
}

func (r Range) String() string {
	return fmt.Sprintf("%s.%s=%s", r.Site, r.Field, r.CIDR)
}

// RangeConflictError names the two overlapping ranges and their source.
type RangeConflictError struct {
	A Range
	B Range
}

func (e *RangeConflictError) Error() string {
	return fmt.Sprintf("ip range conflict: %s overlaps %s", e.A, e.B)
}

// Unwrap ties the error into the sentinel chain for exit-code mapping.
func (e *RangeConflictError) Unwrap() error {
	return errors.ErrConflict
}

// Options controls allocation behavior.
type Options struct {
	// DeriveOffset, when > 0 and no explicit DR spec is given, derives each
	// DR range by shifting the primary range forward by DeriveOffset times
	// its own size.
	DeriveOffset int

	// DistinctVPC marks the two sites as partitioned by separate VPCs.
	// Byte-equal ranges across sites are then accepted.
	DistinctVPC bool
}

// Allocate returns the validated range layout for both sites.
//
// With an explicit DR spec this is validation only: any overlap among the ten
// ranges is a *RangeConflictError. Without one, DR ranges are derived from
// the primary spec when Options.DeriveOffset is set, then re-validated the
// same way.
func Allocate(primary Spec, dr *Spec, opts Options) (Pair, error) {
	if dr == nil {
		if opts.DeriveOffset <= 0 {
			return Pair{}, errors.Wrap(errors.ErrValidation,
				"dr ip ranges missing and no derivation offset configured")
		}
		derived, err := derive(primary, opts.DeriveOffset)
		if err != nil {
			return Pair{}, err
		}
		dr = &derived
	}

	pair := Pair{Primary: primary, DR: *dr}

	ranges, err := pair.ranges()
	if err != nil {
		return Pair{}, err
	}

	for i := 0; i < len(ranges); i++ {
		for j := i + 1; j < len(ranges); j++ {
			a, b := ranges[i], ranges[j]
			if !a.prefix.Overlaps(b.prefix) {
				continue
			}
			if a.Site != b.Site && opts.DistinctVPC && a.prefix == b.prefix {
				// Equal ranges in provably separate VPCs cannot collide.
				continue
			}
			return Pair{}, &RangeConflictError{A: a, B: b}
		}
	}

	return pair, nil
}

// fields enumerates the spec's CIDRs in a fixed order.
func (s Spec) fields() []struct{ name, cidr string } {
	return []struct{ name, cidr string }{
		{"subnet_ip_cidr_range", s.SubnetCIDR},
		{"pods_ip_cidr_range", s.PodsCIDR},
		{"services_ip_cidr_range", s.ServicesCIDR},
		{"vpc_connector_ip_cidr_range", s.ConnectorCIDR},
		{"master_ipv4_cidr_block", s.MasterCIDR},
	}
}

func (p Pair) ranges() ([]Range, error) {
	var out []Range
	for _, site := range []struct {
		id   Site
		spec Spec
	}{{SitePrimary, p.Primary}, {SiteDR, p.DR}} {
		for _, f := range site.spec.fields() {
			prefix, err := netip.ParsePrefix(f.cidr)
			if err != nil {
				return nil, errors.Wrap(errors.ErrValidation,
					fmt.Sprintf("%s.%s: invalid cidr %q", site.id, f.name, f.cidr))
			}
			out = append(out, Range{Site: site.id, Field: f.name, CIDR: f.cidr, prefix: prefix.Masked()})
		}
	}
	return out, nil
}

// derive shifts every primary range forward by offset times its own size.
// Deterministic: the same primary spec and offset always produce the same
// DR spec.
func derive(primary Spec, offset int) (Spec, error) {
	shift := func(cidr string) (string, error) {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return "", errors.Wrap(errors.ErrValidation, fmt.Sprintf("invalid cidr %q", cidr))
		}
		if !prefix.Addr().Is4() {
			return "", errors.Wrap(errors.ErrValidation,
				fmt.Sprintf("derivation supports IPv4 only, got %q", cidr))
		}
		base := binary.BigEndian.Uint32(prefix.Masked().Addr().AsSlice())
		size := uint64(1) << (32 - prefix.Bits())
		shifted := uint64(base) + uint64(offset)*size
		if shifted > 0xFFFFFFFF {
			return "", errors.Wrap(errors.ErrValidation,
				fmt.Sprintf("derived range for %q overflows the IPv4 space", cidr))
		}
		var addr [4]byte
		binary.BigEndian.PutUint32(addr[:], uint32(shifted))
		return netip.PrefixFrom(netip.AddrFrom4(addr), prefix.Bits()).String(), nil
	}

	var derived Spec
	var err error
	if derived.SubnetCIDR, err = shift(primary.SubnetCIDR); err != nil {
		return Spec{}, err
	}
	if derived.PodsCIDR, err = shift(primary.PodsCIDR); err != nil {
		return Spec{}, err
	}
	if derived.ServicesCIDR, err = shift(primary.ServicesCIDR); err != nil {
		return Spec{}, err
	}
	if derived.ConnectorCIDR, err = shift(primary.ConnectorCIDR); err != nil {
		return Spec{}, err
	}
	if derived.MasterCIDR, err = shift(primary.MasterCIDR); err != nil {
		return Spec{}, err
	}
	return derived, nil
}
