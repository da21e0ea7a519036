package rtpdissect

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/ethan/videotester-go/internal/model"
	"github.com/ethan/videotester-go/internal/pcapio"
	"github.com/ethan/videotester-go/internal/verrors"
	"github.com/ethan/videotester-go/pkg/logger"
)

const (
	minInterleavedSegment = 74
	interleaveMagic       = 0x24
	interleaveChannel     = 0x00
)

// segment is a parallel-metadata entry for one surviving TCP payload:
// its position in the concatenated byte stream, arrival time and whether
// a gap was detected immediately after it. Carrying the metadata beside
// the stream avoids in-band sentinel tokens in the reassembled bytes.
type segment struct {
	tcpSeq    uint32
	start     int // offset of this segment's payload within the concatenated stream
	length    int
	arrival   float64
	lossAfter bool
}

// FromTCP reassembles the interleaved RTSP/TCP byte stream from
// possibly-lossy, possibly-reordered captured segments and recovers
// PacketRecords by walking an iterative cursor, resynchronizing on magic
// mismatch. The cursor walk bounds memory for long sessions where a
// recursive parse would not.
func FromTCP(caps model.SessionCaps, records []pcapio.Record) ([]model.PacketRecord, error) {
	log := logger.Default()
	segs, stream := buildSegments(caps, records)
	if len(segs) == 0 {
		return nil, nil
	}

	samples := make([]sample, 0, len(segs))
	cursor := 0

	for len(stream)-cursor >= 5 {
		if stream[cursor] != interleaveMagic || stream[cursor+1] != interleaveChannel {
			cursor++
			continue
		}
		if cursor+4 > len(stream) {
			break
		}
		length := int(binary.BigEndian.Uint16(stream[cursor+2 : cursor+4]))
		frameEnd := cursor + 4 + length
		if frameEnd > len(stream) {
			log.DebugDissect("stopping tcp walk", "error", verrors.New(verrors.ParseUnderrun, "declared length runs past buffer"), "cursor", cursor)
			break
		}

		if crossesGap(segs, cursor, frameEnd) {
			log.DebugDissect("resyncing after gap", "error", verrors.New(verrors.DissectionGap, "frame spans a tcp loss boundary"), "cursor", cursor)
			cursor++
			continue
		}

		payload := stream[cursor+4 : frameEnd]
		pt, seq, ts, ok := decodeRTPHeader(payload)
		if ok && pt == caps.PayloadType {
			seg := segmentAt(segs, cursor)
			samples = append(samples, sample{
				seq16:  seq,
				time:   seg.arrival,
				rtpTs:  ts,
				length: length,
			})
		}
		cursor = frameEnd
	}

	samples = dedupeBySeq16(samples)
	unwrapExtend(samples)
	return sortAndNormalize(samples, caps.SeqBase, caps.ClockRate), nil
}

// buildSegments filters the capture down to data-channel segments,
// sorts them by tcp_seq, computes the gap mask, then concatenates the
// payloads into one byte stream with a parallel segment-metadata vector.
func buildSegments(caps model.SessionCaps, records []pcapio.Record) ([]segment, []byte) {
	type raw struct {
		tcpSeq  uint32
		payload []byte
		arrival float64
	}

	var candidates []raw
	for _, rec := range records {
		if rec.Offsets.Proto != 6 { // TCP
			continue
		}
		network := rec.Raw[rec.Offsets.Network:]
		if len(network) < 4 {
			continue
		}
		srcPort := int(network[0])<<8 | int(network[1])
		dstPort := int(network[2])<<8 | int(network[3])
		if srcPort != caps.RTSPSPort || dstPort != caps.RTSPDPort {
			continue
		}

		payload := rec.Raw[rec.Offsets.Transport:]
		if len(payload) <= minInterleavedSegment {
			continue
		}
		if bytes.Contains(payload, []byte("RTSP/1.0")) || bytes.Contains(payload, []byte("GStreamer")) {
			continue
		}

		tcpSeq := binary.BigEndian.Uint32(network[4:8])
		candidates = append(candidates, raw{
			tcpSeq:  tcpSeq,
			payload: payload,
			arrival: float64(rec.Timestamp.UnixNano()) / 1e9,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].tcpSeq < candidates[j].tcpSeq })

	segs := make([]segment, len(candidates))
	var stream bytes.Buffer
	for i, c := range candidates {
		segs[i] = segment{tcpSeq: c.tcpSeq, start: stream.Len(), length: len(c.payload), arrival: c.arrival}
		stream.Write(c.payload)
		if i+1 < len(candidates) {
			if c.tcpSeq+uint32(len(c.payload)) < candidates[i+1].tcpSeq {
				segs[i].lossAfter = true
			}
		}
	}
	return segs, stream.Bytes()
}

// crossesGap reports whether [start, end) in the concatenated stream spans
// a segment boundary flagged with a loss, meaning the bytes in that range
// cannot be trusted as one contiguous RTP packet.
func crossesGap(segs []segment, start, end int) bool {
	for _, s := range segs {
		boundary := s.start + s.length
		if s.lossAfter && boundary > start && boundary < end {
			return true
		}
	}
	return false
}

// segmentAt returns the segment containing offset, falling back to the
// last segment when offset runs past the end of the concatenated stream.
func segmentAt(segs []segment, offset int) segment {
	for i, s := range segs {
		end := s.start + s.length
		if offset >= s.start && offset < end {
			return s
		}
		if i+1 < len(segs) && offset < segs[i+1].start {
			return s
		}
	}
	return segs[len(segs)-1]
}
