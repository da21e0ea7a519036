package logger

import (
	"flag"
	"fmt"
	"strings"
)

// Flags holds all logging-related command-line flags
type Flags struct {
	LogLevel        string
	LogFormat       string
	LogFile         string
	DebugRTSP       bool
	DebugCapture    bool
	DebugDissect    bool
	DebugBitstream  bool
	DebugMetrics    bool
	DebugAll        bool
}

// RegisterFlags registers logging flags with the given FlagSet
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}

	fs.StringVar(&f.LogLevel, "log-level", "info",
		"Log level: debug, info, warn, error")
	fs.StringVar(&f.LogLevel, "l", "info",
		"Log level (shorthand)")

	fs.StringVar(&f.LogFormat, "log-format", "text",
		"Log output format: text, json")

	fs.StringVar(&f.LogFile, "log-file", "",
		"Log output file path (default: stdout)")
	fs.StringVar(&f.LogFile, "o", "",
		"Log output file path (shorthand)")

	// Debug category flags
	fs.BoolVar(&f.DebugRTSP, "debug-rtsp", false,
		"Enable RTSP/SDP discovery debugging")
	fs.BoolVar(&f.DebugCapture, "debug-capture", false,
		"Enable PCAP capture/iteration debugging")
	fs.BoolVar(&f.DebugDissect, "debug-dissect", false,
		"Enable RTP-over-UDP/TCP dissection debugging")
	fs.BoolVar(&f.DebugBitstream, "debug-bitstream", false,
		"Enable codec bitstream frame-parser debugging")
	fs.BoolVar(&f.DebugMetrics, "debug-metrics", false,
		"Enable QoS/BS/VQ metric-engine debugging")
	fs.BoolVar(&f.DebugAll, "debug-all", false,
		"Enable all debug categories")

	return f
}

// ToConfig converts Flags to a logger Config
func (f *Flags) ToConfig() (*Config, error) {
	cfg := NewConfig()

	// Parse log level
	level, err := ParseLevel(f.LogLevel)
	if err != nil {
		return nil, err
	}
	cfg.Level = level

	// Parse format
	format, err := ParseFormat(f.LogFormat)
	if err != nil {
		return nil, err
	}
	cfg.Format = format

	// Set output file
	cfg.OutputFile = f.LogFile

	// Enable debug categories
	if f.DebugAll {
		cfg.EnableCategory(DebugAll)
		// Force debug level when any debug category is enabled
		cfg.Level = LevelDebug
	} else {
		if f.DebugRTSP {
			cfg.EnableCategory(DebugRTSP)
			cfg.Level = LevelDebug
		}
		if f.DebugCapture {
			cfg.EnableCategory(DebugCapture)
			cfg.Level = LevelDebug
		}
		if f.DebugDissect {
			cfg.EnableCategory(DebugDissect)
			cfg.Level = LevelDebug
		}
		if f.DebugBitstream {
			cfg.EnableCategory(DebugBitstream)
			cfg.Level = LevelDebug
		}
		if f.DebugMetrics {
			cfg.EnableCategory(DebugMetrics)
			cfg.Level = LevelDebug
		}
	}

	return cfg, nil
}

// PrintUsageExamples prints usage examples for logging flags
func PrintUsageExamples() {
	examples := `
Logging Examples:

  Basic usage (INFO level, text format to stdout):
    ./videotester

  Enable DEBUG level:
    ./videotester --log-level debug
    ./videotester -l debug

  Log to file:
    ./videotester --log-file session.log
    ./videotester -o session.log

  JSON format for structured logging:
    ./videotester --log-format json -o session.json

  Debug dissection only:
    ./videotester --debug-dissect

  Debug multiple categories:
    ./videotester --debug-capture --debug-dissect --debug-bitstream

  Debug everything:
    ./videotester --debug-all -o debug.log

  Production logging (WARN level, JSON to file):
    ./videotester -l warn --log-format json -o production.log
`
	fmt.Println(examples)
}

// String returns a string representation of enabled flags
func (f *Flags) String() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("level=%s", f.LogLevel))
	parts = append(parts, fmt.Sprintf("format=%s", f.LogFormat))

	if f.LogFile != "" {
		parts = append(parts, fmt.Sprintf("output=%s", f.LogFile))
	} else {
		parts = append(parts, "output=stdout")
	}

	var debugCategories []string
	if f.DebugAll {
		debugCategories = append(debugCategories, "all")
	} else {
		if f.DebugRTSP {
			debugCategories = append(debugCategories, "rtsp")
		}
		if f.DebugCapture {
			debugCategories = append(debugCategories, "capture")
		}
		if f.DebugDissect {
			debugCategories = append(debugCategories, "dissect")
		}
		if f.DebugBitstream {
			debugCategories = append(debugCategories, "bitstream")
		}
		if f.DebugMetrics {
			debugCategories = append(debugCategories, "metrics")
		}
	}

	if len(debugCategories) > 0 {
		parts = append(parts, fmt.Sprintf("debug=[%s]", strings.Join(debugCategories, ",")))
	}

	return strings.Join(parts, " ")
}
