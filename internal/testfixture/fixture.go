// Package testfixture builds synthetic Ethernet/IPv4/UDP or TCP frames
// carrying RTP (or RTSP-interleaved RTP) payloads, for exercising the
// dissection packages without a real capture file.
package testfixture

import (
	"encoding/binary"
)

// EthernetIPv4UDP builds one Ethernet-II/IPv4/UDP frame with the given RTP
// payload bytes already assembled by the caller.
func EthernetIPv4UDP(srcPort, dstPort int, payload []byte) []byte {
	udp := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint16(udp[0:2], uint16(srcPort))
	binary.BigEndian.PutUint16(udp[2:4], uint16(dstPort))
	binary.BigEndian.PutUint16(udp[4:6], uint16(len(udp)))
	copy(udp[8:], payload)

	return ethernetIPv4(17, udp)
}

// EthernetIPv4TCP builds one Ethernet-II/IPv4/TCP frame with the given
// sequence number and payload, PSH+ACK flags set (0x18) as on the RTSP
// data channel.
func EthernetIPv4TCP(srcPort, dstPort int, seq uint32, payload []byte) []byte {
	return EthernetIPv4TCPFlags(srcPort, dstPort, seq, 0x18, payload)
}

// EthernetIPv4TCPFlags is EthernetIPv4TCP with an explicit TCP flags byte,
// for exercising the RTSP control-channel PSH+ACK/ACK pairing in
// discovery.
func EthernetIPv4TCPFlags(srcPort, dstPort int, seq uint32, flags byte, payload []byte) []byte {
	tcp := make([]byte, 20+len(payload))
	binary.BigEndian.PutUint16(tcp[0:2], uint16(srcPort))
	binary.BigEndian.PutUint16(tcp[2:4], uint16(dstPort))
	binary.BigEndian.PutUint32(tcp[4:8], seq)
	tcp[12] = 5 << 4 // data offset: 5 words, no options
	tcp[13] = flags
	copy(tcp[20:], payload)

	return ethernetIPv4(6, tcp)
}

func ethernetIPv4(proto byte, transportSegment []byte) []byte {
	eth := make([]byte, 14)
	// destination/source MAC and ethertype are irrelevant to offset
	// computation; left zeroed except for IPv4 ethertype.
	eth[12], eth[13] = 0x08, 0x00

	ip := make([]byte, 20+len(transportSegment))
	ip[0] = 0x45 // version 4, IHL 5
	binary.BigEndian.PutUint16(ip[2:4], uint16(len(ip)))
	ip[9] = proto
	copy(ip[20:], transportSegment)

	return append(eth, ip...)
}

// RTPPacket builds one 12-byte RTP header (no CSRC/extension) followed by
// the given payload bytes.
func RTPPacket(pt uint8, seq uint16, ts uint32, payload []byte) []byte {
	pkt := make([]byte, 12+len(payload))
	pkt[0] = 0x80 // version 2
	pkt[1] = pt & 0x7F
	binary.BigEndian.PutUint16(pkt[2:4], seq)
	binary.BigEndian.PutUint32(pkt[4:8], ts)
	binary.BigEndian.PutUint32(pkt[8:12], 0x11223344) // SSRC, unused downstream
	copy(pkt[12:], payload)
	return pkt
}

// Interleaved wraps an RTP packet with the RFC 2326 §10.12 interleaved
// framing: magic 0x24, channel 0x00, big-endian 16-bit length.
func Interleaved(rtpPacket []byte) []byte {
	out := make([]byte, 4+len(rtpPacket))
	out[0] = 0x24
	out[1] = 0x00
	binary.BigEndian.PutUint16(out[2:4], uint16(len(rtpPacket)))
	copy(out[4:], rtpPacket)
	return out
}
