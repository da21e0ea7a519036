// Package capture runs a live capture on a named interface, filtered by
// a BPF expression, writing every matching frame to a PCAP file until
// cancelled.
package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/google/gopacket/pcapgo"

	"github.com/ethan/videotester-go/internal/verrors"
	"github.com/ethan/videotester-go/pkg/logger"
)

const snapLen = 65536

// Task owns one live capture running against a named interface.
type Task struct {
	iface    string
	filter   string
	outPath  string
	log      *logger.Logger
	handle   *pcap.Handle
	wg       sync.WaitGroup
	mu       sync.Mutex
	packets  uint64
	startErr error
}

// NewTask builds a capture task with the BPF filter
// `host <serverIP> and (tcp or udp)`.
func NewTask(iface, serverIP, outPath string) *Task {
	return &Task{
		iface:   iface,
		filter:  fmt.Sprintf("host %s and (tcp or udp)", serverIP),
		outPath: outPath,
		log:     logger.Default(),
	}
}

// Start opens the live capture and begins writing to outPath in a
// background goroutine. Start returns once the capture is confirmed
// open, so the media-pipeline task can run alongside it; ctx
// cancellation ends it.
func (t *Task) Start(ctx context.Context) error {
	handle, err := pcap.OpenLive(t.iface, snapLen, true, pcap.BlockForever)
	if err != nil {
		return verrors.Wrap(verrors.CaptureInit, "open live capture on "+t.iface, err)
	}
	if err := handle.SetBPFFilter(t.filter); err != nil {
		handle.Close()
		return verrors.Wrap(verrors.CaptureInit, "set bpf filter", err)
	}
	t.handle = handle

	w, closeFile, err := newWriter(t.outPath, handle.LinkType())
	if err != nil {
		handle.Close()
		return verrors.Wrap(verrors.CaptureInit, "open capture output file", err)
	}

	t.wg.Add(1)
	go t.run(ctx, w, closeFile)
	return nil
}

func (t *Task) run(ctx context.Context, w *pcapgo.NgWriter, closeFile func() error) {
	defer t.wg.Done()
	defer closeFile()
	defer t.handle.Close()

	source := gopacket.NewPacketSource(t.handle, t.handle.LinkType())
	packets := source.Packets()

	for {
		select {
		case <-ctx.Done():
			t.log.DebugCapture("capture cancelled", "packets", t.packetCount())
			return
		case pkt, ok := <-packets:
			if !ok {
				return
			}
			ci := pkt.Metadata().CaptureInfo
			if err := w.WritePacket(ci, pkt.Data()); err != nil {
				t.log.Error("capture write failed", "error", err)
				t.mu.Lock()
				t.startErr = err
				t.mu.Unlock()
				return
			}
			t.mu.Lock()
			t.packets++
			t.mu.Unlock()
		}
	}
}

func (t *Task) packetCount() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.packets
}

// Wait blocks until the capture goroutine has exited (ctx cancelled or an
// unrecoverable write error) and reports any write error encountered.
func (t *Task) Wait() error {
	t.wg.Wait()
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startErr
}

func newWriter(path string, linkType layers.LinkType) (*pcapgo.NgWriter, func() error, error) {
	f, err := createFile(path)
	if err != nil {
		return nil, nil, err
	}
	w, err := pcapgo.NewNgWriter(f, linkType)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return w, func() error {
		if ferr := w.Flush(); ferr != nil {
			f.Close()
			return ferr
		}
		return f.Close()
	}, nil
}
