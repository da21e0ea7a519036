package logger_test

import (
	"fmt"
	"os"

	"github.com/ethan/videotester-go/pkg/logger"
)

// Example showing basic logger usage
func ExampleLogger_basic() {
	cfg := logger.NewConfig()
	cfg.Level = logger.LevelInfo
	cfg.Format = logger.FormatText

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Close()

	log.Info("application started", "version", "1.0.0")
	log.Warn("deprecated config key used", "key", "old_temp_path")
	log.Error("failed to open capture", "error", "no such device")
}

// Example showing debug category usage
func ExampleLogger_categories() {
	cfg := logger.NewConfig()
	cfg.Level = logger.LevelDebug
	cfg.EnableCategory(logger.DebugDissect)
	cfg.EnableCategory(logger.DebugMetrics)

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Close()

	// Only logged if DebugDissect is enabled
	log.DebugDissect("rtp packet dissected", "seq", 12345)

	// Only logged if DebugMetrics is enabled
	log.DebugMetrics("qos metric computed", "id", "plr")
}

// Example showing command-line flags integration
func ExampleFlags() {
	// In main.go:
	// import (
	//     "flag"
	//     "github.com/ethan/videotester-go/pkg/logger"
	// )
	//
	// fs := flag.NewFlagSet("videotester", flag.ExitOnError)
	// logFlags := logger.RegisterFlags(fs)
	// fs.Parse(os.Args[1:])
	//
	// logConfig, _ := logFlags.ToConfig()
	// log, _ := logger.New(logConfig)
	// defer log.Close()

	fmt.Println("See cmd/videotester/main.go for a complete example")
	// Output: See cmd/videotester/main.go for a complete example
}

// Example showing JSON format output
func ExampleLogger_json() {
	cfg := logger.NewConfig()
	cfg.Level = logger.LevelInfo
	cfg.Format = logger.FormatJSON
	cfg.OutputFile = "app.json"

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Close()
	defer os.Remove("app.json")

	log.Info("session complete",
		"video", "video0",
		"codec", "h264",
		"duration_ms", 250)

	// Output will be in JSON format:
	// {"time":"...","level":"INFO","msg":"session complete","video":"video0","codec":"h264","duration_ms":250}
}

// Example showing conditional debug logging
func ExampleLogger_conditional() {
	cfg := logger.NewConfig()
	cfg.EnableCategory(logger.DebugCapture)

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Close()

	// Category methods automatically check if enabled; no manual check
	// needed, and zero cost (beyond the call itself) if disabled.
	log.DebugCapture("packet captured", "bytes", 1024)
}
