// Package vq implements C10: video-quality metrics comparing received and
// reference/original YUV sequences.
package vq

import (
	"math"

	"github.com/ethan/videotester-go/internal/model"
	"github.com/ethan/videotester-go/internal/verrors"
	"github.com/ethan/videotester-go/pkg/logger"
)

// g1070Params is the frozen G.1070 parameter vector, 1-indexed (index 0
// unused so the formulas below can keep the v1..v12 naming).
var g1070Params = [13]float64{
	0,
	1.431, 0.02228, 3.759, 184.1, 1.161, 1.446, 3.881e-4, 2.116, 467.4, 2.736, 15.28, 4.170,
}

// Input bundles every argument any VQ metric might need; each metric reads
// only the fields it cares about.
type Input struct {
	Recv, Ref          []model.YUVFrame
	Bitrate, Framerate float64
	PacketLossRate     float64
	PSNR               []float64 // per-frame PSNR series, input to PSNRtoMOS
	RecvMOS, CodedMOS  []float64 // per-frame MOS series, input to MIV
}

type metricFunc func(in Input) (model.MeasureResult, error)

var metrics = map[string]metricFunc{
	"psnr":      psnr,
	"ssim":      ssim,
	"g1070":     g1070,
	"psnrtomos": psnrToMOS,
	"miv":       miv,
}

// Compute dispatches to the named VQ metric.
func Compute(id string, in Input) (model.MeasureResult, error) {
	fn, ok := metrics[id]
	if !ok {
		return model.MeasureResult{}, verrors.New(verrors.UnsupportedCodec, "unknown vq metric id "+id)
	}
	r, err := fn(in)
	if err != nil {
		logger.Default().DebugMetrics("vq metric failed", "id", id, "error", err)
	}
	return r, err
}

// psnr computes per-frame luma PSNR over N = min(len(recv), len(ref))
// frames; an exact match (MSE 0) reports 100 rather than +Inf.
func psnr(in Input) (model.MeasureResult, error) {
	n := len(in.Recv)
	if len(in.Ref) < n {
		n = len(in.Ref)
	}
	x, y := make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		y[i] = framePSNR(in.Recv[i].Y, in.Ref[i].Y)
	}
	return model.NewPlot("psnr", model.KindPlot, "frame", "dB", x, y), nil
}

func framePSNR(a, b []byte) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 100
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	mse := sum / float64(n)
	if mse == 0 {
		return 100
	}
	return 20 * math.Log10(255/math.Sqrt(mse))
}

// ssim computes the Wang et al. structural similarity index, per frame,
// over the luma plane, using an 11x11 Gaussian window (sigma 1.5).
func ssim(in Input) (model.MeasureResult, error) {
	n := len(in.Recv)
	if len(in.Ref) < n {
		n = len(in.Ref)
	}
	x, y := make([]float64, n), make([]float64, n)
	window := gaussianWindow(11, 1.5)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		y[i] = frameSSIM(in.Recv[i], in.Ref[i], window)
	}
	return model.NewPlot("ssim", model.KindPlot, "frame", "", x, y), nil
}

const (
	ssimC1 = 6.5025
	ssimC2 = 58.5225
)

func gaussianWindow(size int, sigma float64) []float64 {
	w := make([]float64, size*size)
	half := float64(size) / 2
	sum := 0.0
	for yy := 0; yy < size; yy++ {
		for xx := 0; xx < size; xx++ {
			dx, dy := float64(xx)-half+0.5, float64(yy)-half+0.5
			v := math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
			w[yy*size+xx] = v
			sum += v
		}
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// frameSSIM convolves the Gaussian window over both luma planes to obtain
// local means/variances/covariance at every valid window position and
// averages the per-window SSIM value into one global score.
func frameSSIM(recv, ref model.YUVFrame, window []float64) float64 {
	w, h, size := recv.Width, recv.Height, 11
	if ref.Width < w {
		w = ref.Width
	}
	if ref.Height < h {
		h = ref.Height
	}
	if w < size || h < size {
		return 1.0
	}

	strideA, strideB := recv.Width, ref.Width
	var total float64
	var count int
	for oy := 0; oy+size <= h; oy++ {
		for ox := 0; ox+size <= w; ox++ {
			var muA, muB float64
			for ky := 0; ky < size; ky++ {
				for kx := 0; kx < size; kx++ {
					wgt := window[ky*size+kx]
					muA += wgt * float64(recv.Y[(oy+ky)*strideA+ox+kx])
					muB += wgt * float64(ref.Y[(oy+ky)*strideB+ox+kx])
				}
			}
			var varA, varB, cov float64
			for ky := 0; ky < size; ky++ {
				for kx := 0; kx < size; kx++ {
					wgt := window[ky*size+kx]
					da := float64(recv.Y[(oy+ky)*strideA+ox+kx]) - muA
					db := float64(ref.Y[(oy+ky)*strideB+ox+kx]) - muB
					varA += wgt * da * da
					varB += wgt * db * db
					cov += wgt * da * db
				}
			}
			num := (2*muA*muB + ssimC1) * (2*cov + ssimC2)
			den := (muA*muA + muB*muB + ssimC1) * (varA + varB + ssimC2)
			total += num / den
			count++
		}
	}
	if count == 0 {
		return 1.0
	}
	return total / float64(count)
}

// g1070 computes the ITU-T G.1070 opinion score from bitrate, framerate
// and packet loss rate, using the frozen parameter vector.
func g1070(in Input) (model.MeasureResult, error) {
	v := g1070Params
	dfrv := v[1] + v[7]*in.Bitrate
	iofr := v[3] - v[3]/(1+math.Pow(in.Bitrate/v[4], v[5]))
	ofr := v[1] + v[2]*in.Bitrate
	ic := iofr * math.Exp(-math.Pow(math.Log(in.Framerate)-math.Log(ofr), 2)/(2*dfrv*dfrv))
	dpplv := v[10] + v[11]*math.Exp(-in.Framerate/v[8]) + v[12]*math.Exp(-in.Bitrate/v[9])
	mos := 1 + ic*math.Exp(-in.PacketLossRate*100/dpplv)
	return model.NewScalar("g1070", "mos", mos), nil
}

// psnrToMOS maps each PSNR sample to an integer MOS grade through a
// fixed piecewise table.
func psnrToMOS(in Input) (model.MeasureResult, error) {
	x, y := make([]float64, len(in.PSNR)), make([]float64, len(in.PSNR))
	for i, p := range in.PSNR {
		x[i] = float64(i)
		y[i] = psnrGrade(p)
	}
	return model.NewPlot("psnrtomos", model.KindPlot, "frame", "mos", x, y), nil
}

func psnrGrade(p float64) float64 {
	switch {
	case p < 20:
		return 1
	case p < 25:
		return 2
	case p < 31:
		return 3
	case p < 37:
		return 4
	default:
		return 5
	}
}

const mivWindow = 25

// miv slides a 25-frame window over the received-vs-original and
// coded-vs-original MOS series, emitting per window the percentage of
// frames where the received MOS is both worse than the coded MOS and
// below the "good" threshold of 4.
func miv(in Input) (model.MeasureResult, error) {
	n := len(in.RecvMOS)
	if len(in.CodedMOS) < n {
		n = len(in.CodedMOS)
	}
	if n < mivWindow {
		return model.NewPlot("miv", model.KindPlot, "frame", "%", nil, nil), nil
	}

	count := n - mivWindow + 1
	x, y := make([]float64, count), make([]float64, count)
	for start := 0; start < count; start++ {
		violations := 0
		for i := start; i < start+mivWindow; i++ {
			if in.RecvMOS[i] < in.CodedMOS[i] && in.RecvMOS[i] < 4 {
				violations++
			}
		}
		x[start] = float64(start)
		y[start] = 100 * float64(violations) / float64(mivWindow)
	}
	return model.NewPlot("miv", model.KindPlot, "frame", "%", x, y), nil
}
