package intent

// Vector is a per-dimension score map with its dominant dimension.
// An empty Dominant means no dimension crossed DetectionThreshold
type Vector struct {
	Scores     map[Dimension]float64 `json:"scores"`
	Dominant   Dimension             `json:"dominant_intent,omitempty"`
	Confidence float64               `json:"confidence"`
}

// Score returns the score for d or 0
func (v Vector) Score(d Dimension) float64 {
	if v.Scores == nil {
		return 0
	}
	return v.Scores[d]
}

// HasDominant reports whether a dominant intent was detected
func (v Vector) HasDominant() bool { return v.Dominant != "" }

// Zero returns a vector with every schema dimension at 0
func Zero(s Schema) Vector {
	return Finalize(s, nil)
}

// Finalize clamps raw scores onto the schema, then derives the dominant
// dimension and confidence. Dimensions outside the schema are dropped
func Finalize(s Schema, raw map[Dimension]float64) Vector {
	scores := make(map[Dimension]float64, s.Len())
	for _, sp := range s.specs {
		scores[sp.Dimension] = Clamp01(raw[sp.Dimension])
	}
	v := Vector{Scores: scores}
	v.Dominant = dominant(s, scores)
	v.Confidence = Confidence(s, scores, v.Dominant)
	return v
}

// dominant picks the highest score strictly above DetectionThreshold;
// ties go to the dimension listed first in the schema
func dominant(s Schema, scores map[Dimension]float64) Dimension {
	var (
		best  Dimension
		bestV float64
	)
	for _, sp := range s.specs {
		sc := scores[sp.Dimension]
		if sc > DetectionThreshold && sc > bestV {
			best, bestV = sp.Dimension, sc
		}
	}
	return best
}

// Confidence is the single confidence formula used for messages and
// segments: a blend of the dominant score and its lead over the mean
func Confidence(s Schema, scores map[Dimension]float64, dom Dimension) float64 {
	if dom == "" || s.Len() == 0 {
		return 0
	}
	top := scores[dom]
	var sum float64
	for _, sp := range s.specs {
		sum += scores[sp.Dimension]
	}
	mean := sum / float64(s.Len())
	return Clamp01(0.6*top + 0.4*(top-mean))
}

// Mean averages vectors per dimension and re-derives dominant and confidence
func Mean(s Schema, vs []Vector) Vector {
	if len(vs) == 0 {
		return Zero(s)
	}
	sums := make(map[Dimension]float64, s.Len())
	for _, v := range vs {
		for _, sp := range s.specs {
			sums[sp.Dimension] += v.Score(sp.Dimension)
		}
	}
	n := float64(len(vs))
	for d := range sums {
		sums[d] /= n
	}
	return Finalize(s, sums)
}

// Leaning is the positive polarity mass minus the negative polarity mass
func Leaning(s Schema, v Vector) float64 {
	var l float64
	for _, sp := range s.specs {
		l += float64(sp.Polarity) * v.Score(sp.Dimension)
	}
	return l
}

// RoleScore returns the score of the dimension playing r, or 0
func RoleScore(s Schema, v Vector, r Role) float64 {
	d, ok := s.ByRole(r)
	if !ok {
		return 0
	}
	return v.Score(d)
}
