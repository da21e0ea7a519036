// Package pcapio opens a saved PCAP file for offline iteration and
// computes the per-packet header offsets every dissector downstream
// reuses.
package pcapio

import (
	"errors"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/ethan/videotester-go/pkg/logger"
)

// Record is one packet yielded by Iterator: captured length, raw bytes,
// PCAP timestamp and the precomputed header offsets.
type Record struct {
	CapturedLength int
	Raw            []byte
	Timestamp      time.Time
	Offsets        Offsets
}

// Iterator reads a saved PCAP file in file order, computing Offsets for
// every packet against its link type.
type Iterator struct {
	reader   *pcapgo.Reader
	ngReader *pcapgo.NgReader
	linkType layers.LinkType
	log      *logger.Logger
}

// OpenFile opens path for offline iteration, auto-detecting classic pcap
// vs. pcapng by trying pcapgo.NewReader first.
func OpenFile(path string) (*Iterator, func() error, error) {
	f, err := openFileHandle(path)
	if err != nil {
		return nil, nil, err
	}

	it := &Iterator{log: logger.Default()}
	if r, err := pcapgo.NewReader(f); err == nil {
		it.reader = r
		it.linkType = r.LinkType()
		return it, f.Close, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, err
	}
	ngr, err := pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	it.ngReader = ngr
	it.linkType = ngr.LinkType()
	return it, f.Close, nil
}

// Next returns the next Record, or io.EOF when the file is exhausted.
func (it *Iterator) Next() (Record, error) {
	var raw []byte
	var ci gopacket.CaptureInfo
	var err error

	if it.reader != nil {
		raw, ci, err = it.reader.ReadPacketData()
	} else {
		raw, ci, err = it.ngReader.ReadPacketData()
	}
	if err != nil {
		return Record{}, err
	}

	offsets, oerr := ComputeOffsets(int(it.linkType), raw)
	if oerr != nil {
		it.log.DebugCapture("skipping packet with unsupported headers", "error", oerr)
		return Record{
			CapturedLength: ci.CaptureLength,
			Raw:            raw,
			Timestamp:      ci.Timestamp,
		}, oerr
	}

	return Record{
		CapturedLength: ci.CaptureLength,
		Raw:            raw,
		Timestamp:      ci.Timestamp,
		Offsets:        offsets,
	}, nil
}

// All drains the iterator, returning every record whose offsets were
// computable; unsupported-header packets are logged and skipped rather
// than aborting the whole file.
func (it *Iterator) All() ([]Record, error) {
	var out []Record
	for {
		rec, err := it.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			// An offset-computation error still yields a (partial) Record
			// above; any other error (short read, corrupt block) ends the
			// scan early with what was collected.
			if rec.Raw != nil {
				continue
			}
			return out, err
		}
		out = append(out, rec)
	}
}
