package model_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethan/videotester-go/internal/model"
)

func TestScalarRoundTripsZeroValue(t *testing.T) {
	r := model.NewScalar("latency", "s", 0.0)
	data, err := json.Marshal(r)
	require.NoError(t, err)
	require.Contains(t, string(data), `"value":0`)

	var out model.MeasureResult
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, r, out)
}

func TestPlotRoundTripsEmptySeries(t *testing.T) {
	r := model.NewPlot("jitter", model.KindPlot, "s", "ms", nil, nil)
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var out model.MeasureResult
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, r, out)
	require.Equal(t, 0.0, out.Min)
	require.Equal(t, 0.0, out.Max)
}

func TestPlotComputesMinMaxMean(t *testing.T) {
	r := model.NewPlot("bandwidth", model.KindPlot, "s", "kbps", []float64{0, 1, 2}, []float64{10, 20, 30})
	require.Equal(t, 10.0, r.Min)
	require.Equal(t, 30.0, r.Max)
	require.Equal(t, 20.0, r.Mean)
}

func TestVideoFramesRoundTrip(t *testing.T) {
	r := model.NewVideoFrames("streameye", "frame", "bytes",
		[]float64{0, 1, 2},
		map[model.FrameType][]float64{model.FrameI: {1000}, model.FrameP: {200, 210}},
	)
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var out model.MeasureResult
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, r, out)
}
