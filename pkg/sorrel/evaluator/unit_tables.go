package evaluator

import (
	"sort"

	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

// Unit group identifiers
const (
	GroupLength = "length"
	GroupMass   = "mass"
	GroupVolume = "volume"
	GroupData   = "data"
)

// UnitDef describes one unit subgroup: Factor base units make one Suffix.
type UnitDef struct {
	Suffix string
	Group  string
	Factor float64
}

// defaultUnits lists the built-in subgroups. Bases: metre, gram, litre, byte.
var defaultUnits = []UnitDef{
	// Length: SI
	{"mm", GroupLength, 0.001},
	{"cm", GroupLength, 0.01},
	{"m", GroupLength, 1},
	{"km", GroupLength, 1000},
	// Length: US (international inch = 0.0254 m exactly)
	{"in", GroupLength, 0.0254},
	{"ft", GroupLength, 0.3048},
	{"yd", GroupLength, 0.9144},
	{"mi", GroupLength, 1609.344},
	// Mass: SI
	{"mg", GroupMass, 0.001},
	{"g", GroupMass, 1},
	{"kg", GroupMass, 1000},
	{"t", GroupMass, 1_000_000},
	// Mass: US (1 lb = 453.59237 g exactly)
	{"oz", GroupMass, 453.59237 / 16},
	{"lb", GroupMass, 453.59237},
	// Volume
	{"ml", GroupVolume, 0.001},
	{"cl", GroupVolume, 0.01},
	{"l", GroupVolume, 1},
	// Digital information: decimal
	{"B", GroupData, 1},
	{"kB", GroupData, 1_000},
	{"MB", GroupData, 1_000_000},
	{"GB", GroupData, 1_000_000_000},
	{"TB", GroupData, 1_000_000_000_000},
	// Digital information: binary
	{"KiB", GroupData, 1 << 10},
	{"MiB", GroupData, 1 << 20},
	{"GiB", GroupData, 1 << 30},
	{"TiB", GroupData, 1 << 40},
}

// UnitRegistry converts quantities to and from their group's base unit.
type UnitRegistry struct {
	units map[string]UnitDef
}

// NewUnitRegistry creates a registry holding the built-in units.
func NewUnitRegistry() *UnitRegistry {
	r := &UnitRegistry{units: make(map[string]UnitDef, len(defaultUnits))}
	for _, u := range defaultUnits {
		r.units[u.Suffix] = u
	}
	return r
}

// Register adds or replaces a unit subgroup.
func (r *UnitRegistry) Register(u UnitDef) error {
	if u.Suffix == "" || u.Group == "" || u.Factor <= 0 {
		return serrors.NewSimple(serrors.ClassFormat, "unit needs a suffix, a group and a positive factor")
	}
	if existing, ok := r.units[u.Suffix]; ok && existing.Group != u.Group {
		return serrors.NewSimple(serrors.ClassFormat,
			"unit "+u.Suffix+" already belongs to group "+existing.Group)
	}
	r.units[u.Suffix] = u
	return nil
}

// Lookup returns the definition of a unit suffix.
func (r *UnitRegistry) Lookup(suffix string) (UnitDef, bool) {
	u, ok := r.units[suffix]
	return u, ok
}

// Suffixes returns the registered suffixes, sorted.
func (r *UnitRegistry) Suffixes() []string {
	out := make([]string, 0, len(r.units))
	for s := range r.units {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (r *UnitRegistry) unknown(suffix string) error {
	err := serrors.New("UNDEF-0003", map[string]any{"Unit": suffix})
	if s := serrors.FindClosestMatch(suffix, r.Suffixes()); s != "" {
		err.Hints = append(err.Hints, "Did you mean `"+s+"`?")
	}
	return err
}

// NewQuantity builds a quantity of magnitude in the given unit.
func (r *UnitRegistry) NewQuantity(magnitude float64, suffix string) (*Quantity, error) {
	u, ok := r.units[suffix]
	if !ok {
		return nil, r.unknown(suffix)
	}
	return &Quantity{Magnitude: magnitude, Group: u.Group, Subgroup: u.Suffix}, nil
}

// ToBase returns the quantity's magnitude in its group's base unit.
func (r *UnitRegistry) ToBase(q *Quantity) (float64, error) {
	u, ok := r.units[q.Subgroup]
	if !ok {
		return 0, r.unknown(q.Subgroup)
	}
	return q.Magnitude * u.Factor, nil
}

// FromBase converts a base-unit magnitude to the relative magnitude of subgroup.
func (r *UnitRegistry) FromBase(base float64, subgroup string) (float64, error) {
	u, ok := r.units[subgroup]
	if !ok {
		return 0, r.unknown(subgroup)
	}
	return base / u.Factor, nil
}

// Convert re-expresses q in another subgroup of the same group.
func (r *UnitRegistry) Convert(q *Quantity, subgroup string) (*Quantity, error) {
	target, ok := r.units[subgroup]
	if !ok {
		return nil, r.unknown(subgroup)
	}
	if target.Group != q.Group {
		return nil, serrors.New("TYPE-0006", map[string]any{
			"LeftGroup": q.Group, "RightGroup": target.Group, "Operator": "to",
		})
	}
	base, err := r.ToBase(q)
	if err != nil {
		return nil, err
	}
	return &Quantity{Magnitude: base / target.Factor, Group: q.Group, Subgroup: subgroup}, nil
}
