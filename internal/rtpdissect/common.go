// Package rtpdissect recovers an ordered, deduplicated, normalized list
// of model.PacketRecord from a captured RTP sub-stream, over UDP or
// tunneled inside the RTSP TCP connection. Sequence unwrapping,
// stable-sorting and normalization are shared by both transports.
package rtpdissect

import (
	"sort"

	"github.com/pion/rtp"

	"github.com/ethan/videotester-go/internal/model"
)

// sample is one decoded RTP packet still carrying its raw 16-bit sequence
// number, before wraparound extension, sorting and normalization.
type sample struct {
	seq16  uint16
	ext    uint32
	time   float64
	rtpTs  uint32
	length int
}

// decodeRTPHeader reads marker+PT, sequence and RTP timestamp from the
// fixed RTP header using pion/rtp's decoder (PT at +1 masked 0x7F,
// sequence u16 BE at +2, timestamp u32 BE at +4).
func decodeRTPHeader(payload []byte) (pt uint8, seq uint16, ts uint32, ok bool) {
	var h rtp.Header
	if _, err := h.Unmarshal(payload); err != nil {
		return 0, 0, 0, false
	}
	return h.PayloadType, h.SequenceNumber, h.Timestamp, true
}

// unwrapExtend assigns each sample's 32-bit extended sequence by walking
// the samples in accumulation (file/arrival) order and tracking a
// wraparound accumulator.
func unwrapExtend(samples []sample) {
	var add uint32
	var prev uint16
	var have bool
	for i := range samples {
		s := samples[i].seq16
		if have && prev == 0xFFFF && s < prev {
			add += 0x10000
		} else if have && s < prev && prev-s > 0x8000 {
			// A smaller-looking sequence that isn't actually a regression
			// (e.g. prev=65000, s=100) also signals a wrap when the gap is
			// implausibly large for in-order loss.
			add += 0x10000
		}
		samples[i].ext = uint32(s) + add
		prev = s
		have = true
	}
}

// dedupeBySeq16 keeps the first sample seen for each raw 16-bit sequence;
// loopback captures observe every packet twice.
func dedupeBySeq16(samples []sample) []sample {
	seen := make(map[uint16]bool, len(samples))
	out := make([]sample, 0, len(samples))
	for _, s := range samples {
		if seen[s.seq16] {
			continue
		}
		seen[s.seq16] = true
		out = append(out, s)
	}
	return out
}

// sortAndNormalize stable-sorts samples by extended sequence, then
// subtracts seqBase from every seq, subtracts the first arrival time from
// every arrival time, and converts RTP timestamps to seconds-since-first
// divided by clockRate.
func sortAndNormalize(samples []sample, seqBase uint32, clockRate uint32) []model.PacketRecord {
	if len(samples) == 0 {
		return nil
	}

	sort.SliceStable(samples, func(i, j int) bool { return samples[i].ext < samples[j].ext })

	t0 := samples[0].time
	ts0 := samples[0].rtpTs
	rate := float64(clockRate)
	if rate == 0 {
		rate = 1
	}

	out := make([]model.PacketRecord, len(samples))
	for i, s := range samples {
		out[i] = model.PacketRecord{
			Length:         s.length,
			ArrivalTime:    s.time - t0,
			Seq:            s.ext - seqBase,
			RTPTime:        s.rtpTs,
			RTPTimeSeconds: float64(int64(s.rtpTs)-int64(ts0)) / rate,
		}
	}
	return out
}
