// Command videotester runs one end-to-end QoS/BS/VQ measurement session
// against an RTSP video source: load the option table, spawn the
// control plane, capture and receive
// concurrently, make the reference, then compute and persist every
// requested metric.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethan/videotester-go/internal/control"
	"github.com/ethan/videotester-go/internal/engine"
	"github.com/ethan/videotester-go/internal/pipeline/gstlaunch"
	"github.com/ethan/videotester-go/pkg/config"
	"github.com/ethan/videotester-go/pkg/logger"
)

func main() {
	fs := flag.NewFlagSet("videotester", flag.ExitOnError)
	logFlags := logger.RegisterFlags(fs)
	configPath := fs.String("config", ".env", "path to the session configuration file")
	gstBinary := fs.String("gst-launch", "", "gst-launch-1.0 binary to invoke (default: look up on PATH)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Measures QoS/BS/VQ metrics for one RTSP video session.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		logger.PrintUsageExamples()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing flags: %v\n", err)
		os.Exit(1)
	}

	logConfig, err := logFlags.ToConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error configuring logger: %v\n", err)
		os.Exit(1)
	}
	lgr, err := logger.New(logConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer lgr.Close()
	logger.SetDefault(lgr)

	opts, err := config.Load(*configPath)
	if err != nil {
		lgr.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if err := opts.Validate(); err != nil {
		lgr.Error("invalid config", "error", err)
		os.Exit(1)
	}

	lgr.Info("starting session",
		"video", opts.Video, "codec", opts.Codec, "protocol", opts.Protocol,
		"bitrate", opts.Bitrate, "framerate", opts.Framerate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pl := gstlaunch.New(*gstBinary)
	defer pl.Close()

	ctl := control.NewRefCountedPlane(pl, opts.Port, 5)

	sess := engine.NewSession(opts, pl, ctl)
	result, err := sess.Run(ctx)
	if err != nil {
		lgr.Error("session failed", "error", err)
		os.Exit(1)
	}

	lgr.Info("session complete", "dir", result.Layout.Dir, "prefix", result.Layout.Prefix)
	for _, r := range result.Metrics {
		lgr.Info("metric computed", "name", r.Name, "kind", r.Kind)
	}
}
