package rtpdissect_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethan/videotester-go/internal/model"
	"github.com/ethan/videotester-go/internal/pcapio"
	"github.com/ethan/videotester-go/internal/rtpdissect"
	"github.com/ethan/videotester-go/internal/testfixture"
)

func mustRecord(t *testing.T, raw []byte, ts time.Time) pcapio.Record {
	t.Helper()
	offsets, err := pcapio.ComputeOffsets(pcapio.LinkTypeEthernet, raw)
	require.NoError(t, err)
	return pcapio.Record{CapturedLength: len(raw), Raw: raw, Timestamp: ts, Offsets: offsets}
}

func udpRecord(t *testing.T, dport int, pt uint8, seq uint16, rtpTS uint32, ts time.Time) pcapio.Record {
	t.Helper()
	rtp := testfixture.RTPPacket(pt, seq, rtpTS, make([]byte, 100))
	raw := testfixture.EthernetIPv4UDP(40000, dport, rtp)
	return mustRecord(t, raw, ts)
}

func TestFromUDPNoLoss(t *testing.T) {
	caps := model.SessionCaps{UDPDPort: 5000, PayloadType: 96, ClockRate: 90000, SeqBase: 1000}

	base := time.Unix(1000, 0)
	var records []pcapio.Record
	for i := 0; i < 500; i++ {
		ts := base.Add(time.Duration(i) * 40 * time.Millisecond)
		records = append(records, udpRecord(t, 5000, 96, uint16(1000+i), uint32(i*3600), ts))
	}

	out, err := rtpdissect.FromUDP(caps, records)
	require.NoError(t, err)
	require.Len(t, out, 500)
	require.EqualValues(t, 0, out[0].Seq)
	require.InDelta(t, 0, out[0].ArrivalTime, 1e-9)

	for i := 1; i < len(out); i++ {
		require.Greater(t, out[i].Seq, out[i-1].Seq)
		require.InDelta(t, 0.04, out[i].ArrivalTime-out[i-1].ArrivalTime, 1e-6)
	}
}

func TestFromUDPSequenceWrap(t *testing.T) {
	caps := model.SessionCaps{UDPDPort: 5000, PayloadType: 96, ClockRate: 90000, SeqBase: 65534}

	base := time.Unix(2000, 0)
	seqs := []uint16{65534, 65535, 0, 1}
	var records []pcapio.Record
	for i, s := range seqs {
		ts := base.Add(time.Duration(i) * 20 * time.Millisecond)
		records = append(records, udpRecord(t, 5000, 96, s, uint32(i*1000), ts))
	}

	out, err := rtpdissect.FromUDP(caps, records)
	require.NoError(t, err)
	require.Len(t, out, 4)
	for i, rec := range out {
		require.EqualValues(t, i, rec.Seq)
	}
}

func TestFromUDPDropsDuplicateSeq(t *testing.T) {
	caps := model.SessionCaps{UDPDPort: 5000, PayloadType: 96, ClockRate: 90000, SeqBase: 10}
	base := time.Unix(3000, 0)
	records := []pcapio.Record{
		udpRecord(t, 5000, 96, 10, 0, base),
		udpRecord(t, 5000, 96, 10, 0, base.Add(time.Millisecond)), // duplicate, loopback
		udpRecord(t, 5000, 96, 11, 3600, base.Add(40*time.Millisecond)),
	}

	out, err := rtpdissect.FromUDP(caps, records)
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestFromUDPSkipsMismatchedPayloadType(t *testing.T) {
	caps := model.SessionCaps{UDPDPort: 5000, PayloadType: 96, ClockRate: 90000, SeqBase: 0}
	records := []pcapio.Record{
		udpRecord(t, 5000, 97, 0, 0, time.Unix(0, 0)),
	}
	out, err := rtpdissect.FromUDP(caps, records)
	require.NoError(t, err)
	require.Empty(t, out)
}
