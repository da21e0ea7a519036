package rtpdissect

import (
	"github.com/ethan/videotester-go/internal/model"
	"github.com/ethan/videotester-go/internal/pcapio"
	"github.com/ethan/videotester-go/pkg/logger"
)

const udpHeaderLen = 8

// FromUDP extracts the RTP sub-stream carried over UDP to the session's
// RTP destination port. pcapio's pure-Go reader has no BPF evaluator, so
// the `udp and dst port` narrowing happens here on the decoded offsets
// instead; the server host is not checked here.
func FromUDP(caps model.SessionCaps, records []pcapio.Record) ([]model.PacketRecord, error) {
	log := logger.Default()
	samples := make([]sample, 0, len(records))

	for _, rec := range records {
		if rec.Offsets.Proto != 17 { // UDP
			continue
		}
		network := rec.Raw[rec.Offsets.Network:]
		if len(network) < 4 {
			continue
		}
		dstPort := int(network[2])<<8 | int(network[3])
		if dstPort != caps.UDPDPort {
			continue
		}

		payload := rec.Raw[rec.Offsets.Transport:]
		pt, seq, ts, ok := decodeRTPHeader(payload)
		if !ok {
			log.DebugDissect("short rtp header, skipping", "dport", dstPort)
			continue
		}
		if pt != caps.PayloadType {
			continue
		}

		samples = append(samples, sample{
			seq16:  seq,
			time:   float64(rec.Timestamp.UnixNano()) / 1e9,
			rtpTs:  ts,
			length: rec.CapturedLength - rec.Offsets.DataLink,
		})
	}

	samples = dedupeBySeq16(samples)
	unwrapExtend(samples)
	return sortAndNormalize(samples, caps.SeqBase, caps.ClockRate), nil
}
