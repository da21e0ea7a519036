// Package model holds the data types shared across the capture, dissection
// and metric-engine packages.
package model

// SessionCaps carries the parameters recovered from the RTSP/SDP exchange
// and used to steer dissection. Populated partly by the media-pipeline
// collaborator (ptype, clock rate, seq base, video dimensions, pixel
// format, rtsp_sport, udp_dport, sdp_session_id) and partly by discovery
// over the capture (rtsp_dport, RTT samples). Read-only once discovery
// completes.
type SessionCaps struct {
	RTSPSPort    int
	RTSPDPort    int
	SDPSessionID []byte
	UDPDPort     int
	PayloadType  uint8
	ClockRate    uint32
	SeqBase      uint32
	VideoWidth   int
	VideoHeight  int
	PixelFormat  string
}

// PacketRecord is one observed RTP packet after dissection.
//
// Invariants: Seq is monotonically non-decreasing in list order after
// sorting, and no two records share a Seq (duplicates are discarded on
// loopback).
type PacketRecord struct {
	Length      int
	ArrivalTime float64
	Seq         uint32
	RTPTime     uint32

	// RTPTimeSeconds is RTPTime converted to seconds-since-first,
	// (RTPTime[i]-RTPTime[0])/ClockRate. QoS jitter/skew operate on this
	// rather than the raw tick count.
	RTPTimeSeconds float64
}

// RttSample is one RTSP request/response transaction's PCAP timestamps,
// used to estimate end-to-end latency.
type RttSample struct {
	RequestTS  float64
	ResponseTS float64
}

// FrameType is the compressed-frame classification recovered by a codec
// bitstream scanner.
type FrameType string

const (
	FrameI  FrameType = "I"
	FrameP  FrameType = "P"
	FrameB  FrameType = "B"
	FrameSI FrameType = "SI"
	FrameSP FrameType = "SP"
	FrameS  FrameType = "S"
)

// FrameRecord is one compressed frame recovered from a bitstream. Length is
// the byte span from this frame's start code to the next one's,
// inclusive of the start code; the final frame in a stream never gets a
// Length entry (see the codec parser's FrameList.Lengths invariant).
type FrameRecord struct {
	Type   FrameType
	Length int
}

// FrameList is the output of a codec bitstream scanner. len(Types) ==
// len(Lengths)+1 always holds: the last frame's length is never known
// because there is no next start code to close it.
type FrameList struct {
	Types   []FrameType
	Lengths []int
}

// YUVFrame holds the three planar byte slices of one I420 video frame.
type YUVFrame struct {
	Width  int
	Height int
	Y      []byte
	U      []byte
	V      []byte
}
