// Package qos computes the seven network quality-of-service metrics over
// a session's dissected PacketRecords and RTT samples.
package qos

import (
	"sort"

	"github.com/ethan/videotester-go/internal/model"
	"github.com/ethan/videotester-go/internal/verrors"
	"github.com/ethan/videotester-go/pkg/logger"
)

type metricFunc func(packets []model.PacketRecord, rtt []model.RttSample) (model.MeasureResult, error)

var metrics = map[string]metricFunc{
	"latency":   latency,
	"delta":     delta,
	"jitter":    jitter,
	"skew":      skew,
	"bandwidth": bandwidth,
	"plr":       packetLossRate,
	"pld":       packetLossDistribution,
}

// Compute dispatches to the named metric. Unknown ids are reported as
// UnsupportedCodec-adjacent configuration errors rather than silently
// skipped, since a bad metric id is a config mistake, not a data gap.
func Compute(id string, packets []model.PacketRecord, rtt []model.RttSample) (model.MeasureResult, error) {
	fn, ok := metrics[id]
	if !ok {
		return model.MeasureResult{}, verrors.New(verrors.UnsupportedCodec, "unknown qos metric id "+id)
	}
	r, err := fn(packets, rtt)
	if err != nil {
		logger.Default().DebugMetrics("qos metric failed", "id", id, "error", err)
	}
	return r, err
}

// latency is the mean over RTT samples of (response-request)*500: the *500
// converts seconds to milliseconds and halves the round trip to estimate a
// one-way delay.
func latency(_ []model.PacketRecord, rtt []model.RttSample) (model.MeasureResult, error) {
	if len(rtt) == 0 {
		return model.MeasureResult{}, verrors.New(verrors.RttUnderSampled, "no rtt samples available")
	}
	sum := 0.0
	for _, s := range rtt {
		sum += (s.ResponseTS - s.RequestTS) * 500
	}
	return model.NewScalar("latency", "ms", sum/float64(len(rtt))), nil
}

// delta is the inter-arrival time between consecutive packets, in ms; the
// first sample is 0 since it has no predecessor.
func delta(packets []model.PacketRecord, _ []model.RttSample) (model.MeasureResult, error) {
	x, y := make([]float64, len(packets)), make([]float64, len(packets))
	for i, p := range packets {
		x[i] = p.ArrivalTime
		if i > 0 {
			y[i] = (p.ArrivalTime - packets[i-1].ArrivalTime) * 1000
		}
	}
	return model.NewPlot("delta", model.KindPlot, "s", "ms", x, y), nil
}

// jitter is RFC 3550 §A.8's running estimate over the difference between
// consecutive (arrival - rtp send time) deltas.
func jitter(packets []model.PacketRecord, _ []model.RttSample) (model.MeasureResult, error) {
	x, y := make([]float64, len(packets)), make([]float64, len(packets))
	j := 0.0
	for i, p := range packets {
		x[i] = p.ArrivalTime
		if i > 0 {
			prev := packets[i-1]
			d := ((p.ArrivalTime - p.RTPTimeSeconds) - (prev.ArrivalTime - prev.RTPTimeSeconds)) * 1000
			if d < 0 {
				d = -d
			}
			j = j + (d-j)/16
		}
		y[i] = j
	}
	return model.NewPlot("jitter", model.KindPlot, "s", "ms", x, y), nil
}

// skew is the drift between the RTP media clock and wall-clock arrival.
func skew(packets []model.PacketRecord, _ []model.RttSample) (model.MeasureResult, error) {
	x, y := make([]float64, len(packets)), make([]float64, len(packets))
	for i, p := range packets {
		x[i] = p.ArrivalTime
		y[i] = (p.RTPTimeSeconds - p.ArrivalTime) * 1000
	}
	return model.NewPlot("skew", model.KindPlot, "s", "ms", x, y), nil
}

// bandwidth sums length*8/1000 kbits over a trailing 1-second window per
// sample, after stable-sorting by arrival time and collapsing duplicate
// timestamps (keep the first occurrence, matching arrival order).
func bandwidth(packets []model.PacketRecord, _ []model.RttSample) (model.MeasureResult, error) {
	sorted := make([]model.PacketRecord, len(packets))
	copy(sorted, packets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ArrivalTime < sorted[j].ArrivalTime })

	var dedup []model.PacketRecord
	for i, p := range sorted {
		if i > 0 && p.ArrivalTime == sorted[i-1].ArrivalTime {
			continue
		}
		dedup = append(dedup, p)
	}

	x, y := make([]float64, len(dedup)), make([]float64, len(dedup))
	for i, p := range dedup {
		x[i] = p.ArrivalTime
		sum := 0.0
		for j := 0; j <= i; j++ {
			if dedup[j].ArrivalTime > p.ArrivalTime-1.0 {
				sum += float64(dedup[j].Length) * 8 / 1000
			}
		}
		y[i] = sum
	}
	return model.NewPlot("bandwidth", model.KindPlot, "s", "kbps", x, y), nil
}

// packetLossRate is the fraction of expected-but-missing sequence numbers
// across the whole session, relative to the last observed sequence plus 1.
func packetLossRate(packets []model.PacketRecord, _ []model.RttSample) (model.MeasureResult, error) {
	if len(packets) == 0 {
		return model.MeasureResult{}, verrors.New(verrors.ParseUnderrun, "no packets to compute loss rate from")
	}
	losses := 0.0
	for i := 1; i < len(packets); i++ {
		losses += float64(int64(packets[i].Seq)-int64(packets[i-1].Seq)) - 1
	}
	last := packets[len(packets)-1].Seq
	return model.NewScalar("plr", "", losses/float64(last+1)), nil
}

// packetLossDistribution buckets the timeline into 1-second windows and
// reports, per window, losses observed in that window over packets
// observed in that window.
func packetLossDistribution(packets []model.PacketRecord, _ []model.RttSample) (model.MeasureResult, error) {
	if len(packets) == 0 {
		return model.MeasureResult{}, verrors.New(verrors.ParseUnderrun, "no packets to compute loss distribution from")
	}

	type bucket struct {
		count, loss float64
	}
	buckets := map[int]*bucket{}
	for i, p := range packets {
		idx := int(p.ArrivalTime)
		b, ok := buckets[idx]
		if !ok {
			b = &bucket{}
			buckets[idx] = b
		}
		b.count++
		if i > 0 {
			gap := float64(int64(p.Seq)-int64(packets[i-1].Seq)) - 1
			if gap > 0 {
				b.loss += gap
			}
		}
	}

	var keys []int
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	x, y := make([]float64, len(keys)), make([]float64, len(keys))
	for i, k := range keys {
		b := buckets[k]
		x[i] = float64(k)
		if b.count > 0 {
			y[i] = b.loss / b.count
		}
	}
	return model.NewPlot("pld", model.KindBar, "s", "", x, y), nil
}
