// Package intent holds the intent vector math shared by every analysis layer.
// Vectors are keyed by Dimension; a Schema carries the ordered dimension set,
// the polarity of each dimension and the role it plays for segment flags
// and critical moment detection.
package intent

import (
	"math"
	"slices"
)

// Dimension names one intent axis
type Dimension string

// Business taxonomy dimensions
const (
	Alignment   Dimension = "alignment"
	Resistance  Dimension = "resistance"
	Urgency     Dimension = "urgency"
	Delegation  Dimension = "delegation"
	Closure     Dimension = "closure"
	Uncertainty Dimension = "uncertainty"
)

// Relationship taxonomy dimensions (urgency and uncertainty are shared)
const (
	Affection      Dimension = "affection"
	Conflict       Dimension = "conflict"
	Commitment     Dimension = "commitment"
	Reconciliation Dimension = "reconciliation"
	Drama          Dimension = "drama"
	Passion        Dimension = "passion"
)

// Polarity says which way a dimension pulls the conversation
type Polarity int8

const (
	Neutral  Polarity = 0
	Positive Polarity = 1
	Negative Polarity = -1
)

// Role is the function a dimension plays in flag and moment detection
type Role string

const (
	RoleNone        Role = ""
	RoleAlignment   Role = "alignment"
	RoleResistance  Role = "resistance"
	RoleClosure     Role = "closure"
	RoleUncertainty Role = "uncertainty"
	RoleUrgency     Role = "urgency"
)

// DetectionThreshold is the score a dimension must exceed to be dominant
const DetectionThreshold = 0.2

// NoiseFloor is the smallest change treated as movement
const NoiseFloor = 0.05

// Spec describes one dimension inside a schema
type Spec struct {
	Dimension Dimension
	Polarity  Polarity
	Role      Role
}

// Schema is an ordered dimension set. Order is used for tie breaks and for
// every summation so results never depend on map iteration
type Schema struct {
	Name  string
	specs []Spec
	index map[Dimension]int
	roles map[Role]Dimension
}

// NewSchema builds a schema; duplicate dimensions keep their first spec
func NewSchema(name string, specs ...Spec) Schema {
	s := Schema{
		Name:  name,
		index: make(map[Dimension]int, len(specs)),
		roles: make(map[Role]Dimension),
	}
	for _, sp := range specs {
		if _, dup := s.index[sp.Dimension]; dup || sp.Dimension == "" {
			continue
		}
		s.index[sp.Dimension] = len(s.specs)
		s.specs = append(s.specs, sp)
		if sp.Role != RoleNone {
			if _, taken := s.roles[sp.Role]; !taken {
				s.roles[sp.Role] = sp.Dimension
			}
		}
	}
	return s
}

// Business is the default schema
func Business() Schema {
	return NewSchema("business",
		Spec{Alignment, Positive, RoleAlignment},
		Spec{Resistance, Negative, RoleResistance},
		Spec{Urgency, Neutral, RoleUrgency},
		Spec{Delegation, Neutral, RoleNone},
		Spec{Closure, Positive, RoleClosure},
		Spec{Uncertainty, Negative, RoleUncertainty},
	)
}

// Relationship is the schema for personal conversations
func Relationship() Schema {
	return NewSchema("relationship",
		Spec{Affection, Positive, RoleAlignment},
		Spec{Conflict, Negative, RoleResistance},
		Spec{Urgency, Neutral, RoleUrgency},
		Spec{Commitment, Positive, RoleNone},
		Spec{Reconciliation, Positive, RoleClosure},
		Spec{Uncertainty, Negative, RoleUncertainty},
		Spec{Drama, Negative, RoleNone},
		Spec{Passion, Neutral, RoleNone},
	)
}

// Dimensions returns the ordered dimension list
func (s Schema) Dimensions() []Dimension {
	out := make([]Dimension, len(s.specs))
	for i, sp := range s.specs {
		out[i] = sp.Dimension
	}
	return out
}

// Len is the number of dimensions
func (s Schema) Len() int { return len(s.specs) }

// Has reports whether d belongs to the schema
func (s Schema) Has(d Dimension) bool {
	_, ok := s.index[d]
	return ok
}

// Polarity of d; unknown dimensions are neutral
func (s Schema) Polarity(d Dimension) Polarity {
	if i, ok := s.index[d]; ok {
		return s.specs[i].Polarity
	}
	return Neutral
}

// ByRole resolves the dimension playing r, if any
func (s Schema) ByRole(r Role) (Dimension, bool) {
	d, ok := s.roles[r]
	return d, ok
}

// Specs returns a copy of the dimension specs
func (s Schema) Specs() []Spec { return slices.Clone(s.specs) }

// Clamp01 bounds v to [0,1]; NaN maps to 0
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
