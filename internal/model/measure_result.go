package model

import "encoding/json"

// ResultKind is the closed set of shapes a MeasureResult can take. Treating
// the kind as a tagged value rather than a class hierarchy lets every
// metric engine dispatch through one small table keyed by a config string
// id instead of dynamic dispatch over metric subtypes.
type ResultKind string

const (
	KindScalar      ResultKind = "scalar"
	KindPlot        ResultKind = "plot"
	KindBar         ResultKind = "bar"
	KindVideoFrames ResultKind = "videoframes"
)

// Units describes the axis or scalar units of a MeasureResult. XUnits is
// empty for a scalar result.
type Units struct {
	XUnits string `json:"x_units,omitempty"`
	YUnits string `json:"y_units"`
}

// MeasureResult is the uniform output of every metric in the QoS, BS and VQ
// engines.
type MeasureResult struct {
	Name  string     `json:"name"`
	Kind  ResultKind `json:"kind"`
	Units Units      `json:"units"`

	// Scalar payload.
	Value float64 `json:"value,omitempty"`

	// Plot/bar payload.
	X    []float64 `json:"x,omitempty"`
	Y    []float64 `json:"y,omitempty"`
	Min  float64   `json:"min,omitempty"`
	Max  float64   `json:"max,omitempty"`
	Mean float64   `json:"mean,omitempty"`

	// VideoFrames payload: per-frame-type parallel y arrays keyed by type.
	ByType map[FrameType][]float64 `json:"by_type,omitempty"`
}

// NewScalar builds a scalar MeasureResult.
func NewScalar(name, yUnits string, value float64) MeasureResult {
	return MeasureResult{Name: name, Kind: KindScalar, Units: Units{YUnits: yUnits}, Value: value}
}

// NewPlot builds a plot/bar MeasureResult, computing Min/Max/Mean from Y.
func NewPlot(name string, kind ResultKind, xUnits, yUnits string, x, y []float64) MeasureResult {
	r := MeasureResult{Name: name, Kind: kind, Units: Units{XUnits: xUnits, YUnits: yUnits}, X: x, Y: y}
	if len(y) > 0 {
		r.Min, r.Max = y[0], y[0]
		sum := 0.0
		for _, v := range y {
			if v < r.Min {
				r.Min = v
			}
			if v > r.Max {
				r.Max = v
			}
			sum += v
		}
		r.Mean = sum / float64(len(y))
	}
	return r
}

// NewVideoFrames builds a videoframes MeasureResult.
func NewVideoFrames(name, xUnits, yUnits string, x []float64, byType map[FrameType][]float64) MeasureResult {
	return MeasureResult{Name: name, Kind: KindVideoFrames, Units: Units{XUnits: xUnits, YUnits: yUnits}, X: x, ByType: byType}
}

// measureResultWire mirrors MeasureResult's field layout and exists only so
// MarshalJSON/UnmarshalJSON round-trip every field regardless of Go's
// omitempty zero-value elision (a scalar value of exactly 0.0, or an empty
// plot, must still decode back to the same kind and payload shape).
type measureResultWire struct {
	Name   string                  `json:"name"`
	Kind   ResultKind              `json:"kind"`
	Units  Units                   `json:"units"`
	Value  *float64                `json:"value,omitempty"`
	X      []float64               `json:"x,omitempty"`
	Y      []float64               `json:"y,omitempty"`
	Min    *float64                `json:"min,omitempty"`
	Max    *float64                `json:"max,omitempty"`
	Mean   *float64                `json:"mean,omitempty"`
	ByType map[FrameType][]float64 `json:"by_type,omitempty"`
}

// MarshalJSON serializes a MeasureResult so that every field round-trips,
// including a scalar Value of 0 and an empty plot's Min/Max/Mean.
func (m MeasureResult) MarshalJSON() ([]byte, error) {
	w := measureResultWire{Name: m.Name, Kind: m.Kind, Units: m.Units, X: m.X, Y: m.Y, ByType: m.ByType}
	if m.Kind == KindScalar {
		v := m.Value
		w.Value = &v
	}
	if m.Kind == KindPlot || m.Kind == KindBar {
		min, max, mean := m.Min, m.Max, m.Mean
		w.Min, w.Max, w.Mean = &min, &max, &mean
	}
	return json.Marshal(w)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (m *MeasureResult) UnmarshalJSON(data []byte) error {
	var w measureResultWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = MeasureResult{Name: w.Name, Kind: w.Kind, Units: w.Units, X: w.X, Y: w.Y, ByType: w.ByType}
	if w.Value != nil {
		m.Value = *w.Value
	}
	if w.Min != nil {
		m.Min = *w.Min
	}
	if w.Max != nil {
		m.Max = *w.Max
	}
	if w.Mean != nil {
		m.Mean = *w.Mean
	}
	return nil
}
