package pcapio

import "github.com/ethan/videotester-go/internal/verrors"

// Offsets is the triple of header boundaries computed once per packet so
// every downstream dissector can skip straight to its layer in O(1) rather
// than re-parsing the link/network/transport headers.
type Offsets struct {
	DataLink  int // start of the network-layer header
	Network   int // start of the transport-layer header
	Transport int // start of the payload
	Proto     byte
}

// Link-layer type numbers recognized by ComputeOffsets, matching libpcap's
// DLT_* constants.
const (
	LinkTypeEthernet = 1   // DLT_EN10MB
	LinkTypeLinuxSLL = 113 // DLT_LINUX_SLL
)

const (
	protoTCP = 6
	protoUDP = 17
)

// ComputeOffsets resolves the three boundaries: data-link offset by link
// type, network offset by IP version, transport offset by next-header
// protocol.
func ComputeOffsets(linkType int, raw []byte) (Offsets, error) {
	var dataLink int
	switch linkType {
	case LinkTypeEthernet:
		dataLink = 14
	case LinkTypeLinuxSLL:
		dataLink = 16
	default:
		return Offsets{}, verrors.New(verrors.UnsupportedLink, "unsupported link type")
	}
	if len(raw) < dataLink+1 {
		return Offsets{}, verrors.New(verrors.UnsupportedLink, "truncated link header")
	}

	versionNibble := raw[dataLink] >> 4
	var networkLen int
	var protoByte byte
	switch versionNibble {
	case 4:
		if len(raw) < dataLink+10 {
			return Offsets{}, verrors.New(verrors.UnsupportedNetwork, "truncated ipv4 header")
		}
		ihl := raw[dataLink] & 0x0F
		networkLen = int(ihl) * 4
		protoByte = raw[dataLink+9]
	case 6:
		if len(raw) < dataLink+40 {
			return Offsets{}, verrors.New(verrors.UnsupportedNetwork, "truncated ipv6 header")
		}
		networkLen = 40
		protoByte = raw[dataLink+6]
	default:
		return Offsets{}, verrors.New(verrors.UnsupportedNetwork, "unsupported network version")
	}

	network := dataLink + networkLen
	var transportLen int
	switch protoByte {
	case protoTCP:
		if len(raw) < network+13 {
			return Offsets{}, verrors.New(verrors.UnsupportedTransport, "truncated tcp header")
		}
		dataOffsetNibble := raw[network+12] >> 4
		transportLen = int(dataOffsetNibble) * 4
	case protoUDP:
		if len(raw) < network+8 {
			return Offsets{}, verrors.New(verrors.UnsupportedTransport, "truncated udp header")
		}
		transportLen = 8
	default:
		return Offsets{}, verrors.New(verrors.UnsupportedTransport, "unsupported transport protocol")
	}

	return Offsets{
		DataLink:  dataLink,
		Network:   network,
		Transport: network + transportLen,
		Proto:     protoByte,
	}, nil
}
