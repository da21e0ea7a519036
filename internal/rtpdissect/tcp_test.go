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

func tcpRecord(t *testing.T, sport, dport int, seq uint32, payload []byte, ts time.Time) pcapio.Record {
	t.Helper()
	raw := testfixture.EthernetIPv4TCP(sport, dport, seq, payload)
	return mustRecord(t, raw, ts)
}

// TestFromTCPFragmented reproduces the literal scenario 3 end-to-end case:
// one RTP packet of length 1300 split across two TCP segments of 700+600
// bytes with matching tcp_seq.
func TestFromTCPFragmented(t *testing.T) {
	caps := model.SessionCaps{RTSPSPort: 554, RTSPDPort: 50000, PayloadType: 96, ClockRate: 90000, SeqBase: 1}

	rtpPayload := make([]byte, 1300-12)
	frame := testfixture.Interleaved(testfixture.RTPPacket(96, 1, 0, rtpPayload))
	require.Len(t, frame, 1304)

	first, second := frame[:700], frame[700:]

	records := []pcapio.Record{
		tcpRecord(t, 554, 50000, 1000, first, time.Unix(0, 0)),
		tcpRecord(t, 554, 50000, 1000+700, second, time.Unix(0, 10_000_000)),
	}

	out, err := rtpdissect.FromTCP(caps, records)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.InDelta(t, 1300, out[0].Length, 0)
}

// TestFromTCPGapResync exercises the resync path: a partially-captured
// segment desynchronizes the interleaved framing, and the cursor walk must
// recover by scanning forward for the next valid magic byte pair rather
// than misparsing garbage as a packet header.
func TestFromTCPGapResync(t *testing.T) {
	caps := model.SessionCaps{RTSPSPort: 554, RTSPDPort: 50000, PayloadType: 96, ClockRate: 90000, SeqBase: 5}

	pkt1 := testfixture.Interleaved(testfixture.RTPPacket(96, 5, 0, make([]byte, 80)))
	pkt2 := testfixture.Interleaved(testfixture.RTPPacket(96, 6, 3600, make([]byte, 80)))
	pkt3 := testfixture.Interleaved(testfixture.RTPPacket(96, 7, 7200, make([]byte, 80)))

	const missingPrefix = 20
	partial := pkt2[missingPrefix:]

	seg1Start := uint32(2000 + len(pkt1))
	partialStart := seg1Start + missingPrefix // the first 20 bytes of pkt2 were lost
	pkt3Start := partialStart + uint32(len(partial))

	records := []pcapio.Record{
		tcpRecord(t, 554, 50000, 2000, pkt1, time.Unix(0, 0)),
		tcpRecord(t, 554, 50000, partialStart, partial, time.Unix(0, 10_000_000)),
		tcpRecord(t, 554, 50000, pkt3Start, pkt3, time.Unix(0, 20_000_000)),
	}

	out, err := rtpdissect.FromTCP(caps, records)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.EqualValues(t, 0, out[0].Seq)
	require.EqualValues(t, 2, out[1].Seq)
}
