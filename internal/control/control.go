// Package control implements the reference-counted control plane: a
// request/response surface with two methods, run(bitrate, framerate) and
// stop(bitrate, framerate), where the first caller for a given (bitrate,
// framerate) pair spawns the RTSP server and subsequent callers just
// bump a client count, with the last Stop tearing it down. Run/stop
// churn from repeated session starts is rate-limited.
package control

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ethan/videotester-go/internal/pipeline"
	"github.com/ethan/videotester-go/internal/verrors"
	"github.com/ethan/videotester-go/pkg/logger"
)

// ControlPlane is the contract the engine requires of the control-plane
// collaborator.
type ControlPlane interface {
	Run(ctx context.Context, bitrate, framerate int) (int, error)
	Stop(ctx context.Context, bitrate, framerate int) error
}

// key identifies one (bitrate, framerate) server instance; two sessions
// sharing both values share one RTSP server.
type key struct {
	bitrate, framerate int
}

type entry struct {
	port     int
	refCount int
}

// RefCountedPlane is the in-process reference implementation of
// ControlPlane: run spawns the pipeline's RTSP server on first call for a
// (bitrate, framerate) pair and increments a client count on every
// subsequent call; stop decrements and tears down the server when the
// count reaches zero.
type RefCountedPlane struct {
	pipeline pipeline.MediaPipeline
	basePort int
	log      *logger.Logger

	limiter *rate.Limiter

	mu       sync.Mutex
	entries  map[key]*entry
	nextPort int
}

// NewRefCountedPlane builds a RefCountedPlane that hands out ports
// starting at basePort and rate-limits run/stop calls to qps per second
// with no burst allowance.
func NewRefCountedPlane(pl pipeline.MediaPipeline, basePort int, qps float64) *RefCountedPlane {
	return &RefCountedPlane{
		pipeline: pl,
		basePort: basePort,
		nextPort: basePort,
		log:      logger.Default(),
		limiter:  rate.NewLimiter(rate.Limit(qps), 1),
		entries:  make(map[key]*entry),
	}
}

// Run returns the RTSP port for the (bitrate, framerate) session,
// starting a new server on first call and incrementing the client count
// on every call thereafter.
func (p *RefCountedPlane) Run(ctx context.Context, bitrate, framerate int) (int, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	k := key{bitrate, framerate}
	if e, ok := p.entries[k]; ok {
		e.refCount++
		p.log.DebugRTSP("control: run joins existing server", "bitrate", bitrate, "framerate", framerate, "ref_count", e.refCount)
		return e.port, nil
	}

	port := p.nextPort
	p.nextPort++

	if err := p.pipeline.StartServer(ctx, port); err != nil {
		p.nextPort--
		return 0, verrors.Wrap(verrors.PipelineError, "start rtsp server", err)
	}

	p.entries[k] = &entry{port: port, refCount: 1}
	p.log.DebugRTSP("control: run spawns new server", "bitrate", bitrate, "framerate", framerate, "port", port)
	return port, nil
}

// Stop decrements the client count for (bitrate, framerate); the last
// caller tears down the server.
func (p *RefCountedPlane) Stop(ctx context.Context, bitrate, framerate int) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	k := key{bitrate, framerate}
	e, ok := p.entries[k]
	if !ok {
		return fmt.Errorf("stop: no running server for bitrate=%d framerate=%d", bitrate, framerate)
	}

	e.refCount--
	p.log.DebugRTSP("control: stop decrements server", "bitrate", bitrate, "framerate", framerate, "ref_count", e.refCount)
	if e.refCount > 0 {
		return nil
	}

	delete(p.entries, k)
	if err := p.pipeline.Close(); err != nil {
		return verrors.Wrap(verrors.PipelineError, "stop rtsp server", err)
	}
	return nil
}
