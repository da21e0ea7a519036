package vq_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethan/videotester-go/internal/metrics/vq"
	"github.com/ethan/videotester-go/internal/model"
)

func flatFrame(w, h int, yVal byte) model.YUVFrame {
	y := make([]byte, w*h)
	for i := range y {
		y[i] = yVal
	}
	return model.YUVFrame{Width: w, Height: h, Y: y, U: make([]byte, w*h/4), V: make([]byte, w*h/4)}
}

func TestComputeRejectsUnknownMetric(t *testing.T) {
	_, err := vq.Compute("unknown", vq.Input{})
	require.Error(t, err)
}

func TestPSNRIdentityReports100(t *testing.T) {
	frames := []model.YUVFrame{flatFrame(16, 16, 100), flatFrame(16, 16, 200)}
	r, err := vq.Compute("psnr", vq.Input{Recv: frames, Ref: frames})
	require.NoError(t, err)
	for _, v := range r.Y {
		require.Equal(t, 100.0, v)
	}
}

func TestPSNRIsSymmetric(t *testing.T) {
	a := []model.YUVFrame{flatFrame(16, 16, 100)}
	b := []model.YUVFrame{flatFrame(16, 16, 150)}
	r1, err := vq.Compute("psnr", vq.Input{Recv: a, Ref: b})
	require.NoError(t, err)
	r2, err := vq.Compute("psnr", vq.Input{Recv: b, Ref: a})
	require.NoError(t, err)
	require.InDelta(t, r1.Y[0], r2.Y[0], 1e-9)
}

func TestSSIMIdentityReportsOne(t *testing.T) {
	frames := []model.YUVFrame{flatFrame(16, 16, 128)}
	r, err := vq.Compute("ssim", vq.Input{Recv: frames, Ref: frames})
	require.NoError(t, err)
	for _, v := range r.Y {
		require.InDelta(t, 1.0, v, 1e-9)
	}
}

func TestG1070BoundsAndMonotoneDecreasingInLoss(t *testing.T) {
	low, err := vq.Compute("g1070", vq.Input{Bitrate: 500, Framerate: 25, PacketLossRate: 0.01})
	require.NoError(t, err)
	high, err := vq.Compute("g1070", vq.Input{Bitrate: 500, Framerate: 25, PacketLossRate: 0.05})
	require.NoError(t, err)

	require.GreaterOrEqual(t, low.Value, 1.0)
	require.LessOrEqual(t, low.Value, 5.0)
	require.Greater(t, low.Value, high.Value)
}

func TestPSNRtoMOSPiecewiseGrades(t *testing.T) {
	r, err := vq.Compute("psnrtomos", vq.Input{PSNR: []float64{15, 22, 28, 34, 40}})
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3, 4, 5}, r.Y)
}

func TestMIVCountsViolationsInWindow(t *testing.T) {
	recv := make([]float64, 25)
	coded := make([]float64, 25)
	for i := range recv {
		coded[i] = 5
		recv[i] = 5
	}
	for i := 0; i < 5; i++ {
		recv[i] = 2 // worse than coded and below 4 -> violation
	}
	r, err := vq.Compute("miv", vq.Input{RecvMOS: recv, CodedMOS: coded})
	require.NoError(t, err)
	require.Len(t, r.Y, 1)
	require.InDelta(t, 20.0, r.Y[0], 1e-9) // 5/25 * 100
}

func TestMIVEmptyBelowWindowSize(t *testing.T) {
	r, err := vq.Compute("miv", vq.Input{RecvMOS: make([]float64, 10), CodedMOS: make([]float64, 10)})
	require.NoError(t, err)
	require.Empty(t, r.Y)
}
