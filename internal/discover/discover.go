// Package discover runs a two-pass scan over a capture, recovering the
// RTSP control channel's client-side port and a handful of
// round-trip-time samples. Everything else in model.SessionCaps (payload
// type, clock rate, RTP sequence base, video dimensions) is supplied by
// the media-pipeline collaborator before discovery runs.
package discover

import (
	"bytes"

	"github.com/ethan/videotester-go/internal/model"
	"github.com/ethan/videotester-go/internal/pcapio"
	"github.com/ethan/videotester-go/internal/verrors"
	"github.com/ethan/videotester-go/pkg/logger"
)

const requiredRttSamples = 3

const (
	flagsPSHACK byte = 0x18
	flagsACK    byte = 0x10
)

// Discover runs both passes and returns an updated copy of caps (with
// RTSPDPort filled in) plus the RTT samples observed. A non-nil
// verrors.RttUnderSampled error accompanies fewer than 3 samples; the
// caller should treat it as informational and proceed with the partial
// list.
func Discover(caps model.SessionCaps, records []pcapio.Record) (model.SessionCaps, []model.RttSample, error) {
	log := logger.Default()

	if dport, ok := findSDPAnswer(caps, records); ok {
		caps.RTSPDPort = dport
	}

	samples := findRttSamples(caps, records)
	log.DebugDissect("discover: found rtt samples", "count", len(samples), "rtsp_dport", caps.RTSPDPort)

	if len(samples) < requiredRttSamples {
		return caps, samples, verrors.New(verrors.RttUnderSampled, "fewer than 3 request/response pairs observed")
	}
	return caps, samples, nil
}

// findSDPAnswer implements pass 1: locate the segment carrying
// caps.SDPSessionID and read the destination port 2 bytes into the
// transport header (the same dst-port field layout TCP and UDP share).
func findSDPAnswer(caps model.SessionCaps, records []pcapio.Record) (int, bool) {
	if len(caps.SDPSessionID) == 0 {
		return 0, false
	}
	for _, rec := range records {
		network := rec.Raw[rec.Offsets.Network:]
		if len(network) < 4 {
			continue
		}
		payload := rec.Raw[rec.Offsets.Transport:]
		if !bytes.Contains(payload, caps.SDPSessionID) {
			continue
		}
		dstPort := int(network[2])<<8 | int(network[3])
		return dstPort, true
	}
	return 0, false
}

// findRttSamples implements pass 2: pair client->server PSH+ACK segments
// with the next server->client pure-ACK segment on the reverse
// (rtsp_dport, rtsp_sport) socket pair, in capture order.
func findRttSamples(caps model.SessionCaps, records []pcapio.Record) []model.RttSample {
	var samples []model.RttSample
	var pendingRequest *float64

	for _, rec := range records {
		if rec.Offsets.Proto != 6 { // TCP only; RTSP control is always TCP
			continue
		}
		network := rec.Raw[rec.Offsets.Network:]
		if len(network) < 14 {
			continue
		}
		srcPort := int(network[0])<<8 | int(network[1])
		dstPort := int(network[2])<<8 | int(network[3])
		flags := network[13]
		ts := float64(rec.Timestamp.UnixNano()) / 1e9

		switch {
		case srcPort == caps.RTSPDPort && dstPort == caps.RTSPSPort && flags == flagsPSHACK:
			reqTS := ts
			pendingRequest = &reqTS
		case srcPort == caps.RTSPSPort && dstPort == caps.RTSPDPort && flags == flagsACK && pendingRequest != nil:
			samples = append(samples, model.RttSample{RequestTS: *pendingRequest, ResponseTS: ts})
			pendingRequest = nil
		}
	}
	return samples
}
