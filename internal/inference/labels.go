package inference

import "math"

// UnknownLabel is reported when the classifier output is wider than the category list.
const UnknownLabel = "Unknown"

// Categories is the output-index convention of the deployed classifier. The order
// must match the order the model was trained with.
var Categories = []string{
	"Abuse", "Arrest", "Arson", "Assault", "Burglary", "Explosion", "Fighting",
	"Normal", "Accident", "Robbery", "Shooting", "Shoplifting", "Stealing", "Vandalism",
}

type Classification struct {
	Index      int
	Label      string
	Confidence float32
}

type LabelMapper struct {
	labels []string
}

func NewLabelMapper(labels []string) *LabelMapper {
	cp := make([]string, len(labels))
	copy(cp, labels)
	return &LabelMapper{labels: cp}
}

func (m *LabelMapper) Labels() []string {
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}

// Map picks the highest scoring index and names it. The vector is not renormalised.
func (m *LabelMapper) Map(scores []float32) Classification {
	idx := Argmax(scores)
	if idx < 0 {
		return Classification{Index: idx, Label: UnknownLabel}
	}

	label := UnknownLabel
	if idx < len(m.labels) {
		label = m.labels[idx]
	}

	return Classification{
		Index:      idx,
		Label:      label,
		Confidence: scores[idx],
	}
}

// Argmax returns the index of the largest value, lowest index on ties, or -1 for
// an empty vector. A NaN wins over any number, the first NaN in index order.
func Argmax(v []float32) int {
	if len(v) == 0 {
		return -1
	}

	best := 0
	for i, x := range v {
		if math.IsNaN(float64(x)) {
			return i
		}
		if x > v[best] {
			best = i
		}
	}
	return best
}
