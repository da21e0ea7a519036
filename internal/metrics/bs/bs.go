// Package bs computes bitstream-level quality metrics, comparing a
// received compressed stream against a locally re-encoded reference.
package bs

import (
	"math"

	"github.com/ethan/videotester-go/internal/model"
	"github.com/ethan/videotester-go/internal/verrors"
	"github.com/ethan/videotester-go/pkg/logger"
)

type metricFunc func(recv, ref model.FrameList) (model.MeasureResult, error)

var metrics = map[string]metricFunc{
	"streameye":    func(recv, _ model.FrameList) (model.MeasureResult, error) { return streamEye("streameye", recv) },
	"refstreameye": func(_, ref model.FrameList) (model.MeasureResult, error) { return streamEye("refstreameye", ref) },
	"gop":          func(recv, _ model.FrameList) (model.MeasureResult, error) { return gop(recv) },
	"iflr":         func(recv, _ model.FrameList) (model.MeasureResult, error) { return iFrameLossRate(recv) },
}

// Compute dispatches to the named metric over the received and reference
// frame lists (only one side is used by most metrics).
func Compute(id string, recv, ref model.FrameList) (model.MeasureResult, error) {
	fn, ok := metrics[id]
	if !ok {
		return model.MeasureResult{}, verrors.New(verrors.UnsupportedCodec, "unknown bs metric id "+id)
	}
	r, err := fn(recv, ref)
	if err != nil {
		logger.Default().DebugMetrics("bs metric failed", "id", id, "error", err)
	}
	return r, err
}

// streamEye builds the videoframes result: one parallel array per frame
// type observed, each entry either 0 or that frame's length. Only frames
// whose length is known are included; the stream's last frame never has
// one, since no following start code closes it.
func streamEye(name string, fl model.FrameList) (model.MeasureResult, error) {
	n := len(fl.Lengths)
	x := make([]float64, n)
	byType := map[model.FrameType][]float64{}
	for i := 0; i < n; i++ {
		if _, ok := byType[fl.Types[i]]; !ok {
			byType[fl.Types[i]] = make([]float64, n)
		}
	}
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		byType[fl.Types[i]][i] = float64(fl.Lengths[i])
	}
	return model.NewVideoFrames(name, "frame", "bytes", x, byType), nil
}

// gopLengths returns the frame-count distance between every pair of
// consecutive I frames plus the total I-frame count. The trailing GOP
// running from the last I frame to the end of the stream is also
// included, even though it is not closed by a following I frame, so it
// participates in both the GOP mean and the missed-I outlier count.
func gopLengths(types []model.FrameType) (lengths []int, iCount int) {
	var iIdx []int
	for i, t := range types {
		if t == model.FrameI {
			iIdx = append(iIdx, i)
		}
	}
	iCount = len(iIdx)
	for i := 0; i+1 < len(iIdx); i++ {
		lengths = append(lengths, iIdx[i+1]-iIdx[i])
	}
	if iCount > 0 {
		lengths = append(lengths, len(types)-iIdx[iCount-1])
	}
	return lengths, iCount
}

func meanStdDev(values []int) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	mean = float64(sum) / float64(len(values))
	var variance float64
	for _, v := range values {
		d := float64(v) - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// gop scans recv for GOP boundaries, discards outliers outside
// [mean-σ/2, mean+σ/2] and reports the rounded mean of the survivors. A
// stream with no I frames at all has no GOP boundary to measure, so the
// whole stream is reported as one GOP; a
// stream with a single I frame still measures the trailing run from that
// I frame to the end as its one GOP.
func gop(recv model.FrameList) (model.MeasureResult, error) {
	lengths, _ := gopLengths(recv.Types)
	if len(lengths) == 0 {
		return model.NewScalar("gop", "frames", float64(len(recv.Types))), nil
	}

	mean, sigma := meanStdDev(lengths)
	lo, hi := mean-sigma/2, mean+sigma/2
	var survivors []int
	for _, l := range lengths {
		if float64(l) >= lo && float64(l) <= hi {
			survivors = append(survivors, l)
		}
	}
	if len(survivors) == 0 {
		survivors = lengths
	}

	sum := 0
	for _, l := range survivors {
		sum += l
	}
	return model.NewScalar("gop", "frames", math.Round(float64(sum)/float64(len(survivors)))), nil
}

// iFrameLossRate classifies any GOP longer than mean+σ as a missed I frame
// and reports missed / (I_count + missed).
func iFrameLossRate(recv model.FrameList) (model.MeasureResult, error) {
	lengths, iCount := gopLengths(recv.Types)
	if len(lengths) == 0 {
		return model.NewScalar("iflr", "", 0), nil
	}

	mean, sigma := meanStdDev(lengths)
	missed := 0
	for _, l := range lengths {
		if float64(l) > mean+sigma {
			missed++
		}
	}
	return model.NewScalar("iflr", "", float64(missed)/float64(iCount+missed)), nil
}
