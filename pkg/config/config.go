// Package config loads the session configuration option table from a
// flat key=value file.
package config

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Protocol is the RTP transport selected for a session.
type Protocol string

const (
	ProtocolUDP      Protocol = "udp"
	ProtocolTCP      Protocol = "tcp"
	ProtocolUDPMcast Protocol = "udp-mcast"
)

// Codec is the selected video encoding.
type Codec string

const (
	CodecH263   Codec = "h263"
	CodecH264   Codec = "h264"
	CodecMPEG4  Codec = "mpeg4"
	CodecTheora Codec = "theora"
)

// Options holds the configuration keys the core recognizes. All other
// keys in the source file are ignored.
type Options struct {
	Iface     string
	IP        string
	Port      int
	Video     string
	Codec     Codec
	Bitrate   int
	Framerate int
	Protocol  Protocol
	QoS       []string
	BS        []string
	VQ        []string
	Temp      string
}

// defaults mirrors the zero-value fallbacks a session can run with when a
// key is absent from the file.
func defaults() Options {
	return Options{
		Port:      8554,
		Bitrate:   500,
		Framerate: 25,
		Protocol:  ProtocolUDP,
		Temp:      os.TempDir(),
	}
}

// Load reads configuration from a flat key=value file, with
// comma-separated list values recognized for qos/bs/vq.
func Load(path string) (*Options, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	opts := defaults()
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		decoded, err := url.QueryUnescape(value)
		if err != nil {
			decoded = value
		}

		if err := opts.set(key, decoded); err != nil {
			return nil, fmt.Errorf("config key %q: %w", key, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan config file: %w", err)
	}

	return &opts, nil
}

func (o *Options) set(key, value string) error {
	switch key {
	case "iface":
		o.Iface = value
	case "ip":
		o.IP = value
	case "port":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		o.Port = n
	case "video":
		o.Video = value
	case "codec":
		o.Codec = Codec(value)
	case "bitrate":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		o.Bitrate = n
	case "framerate":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		o.Framerate = n
	case "protocol":
		o.Protocol = Protocol(value)
	case "qos":
		o.QoS = splitList(value)
	case "bs":
		o.BS = splitList(value)
	case "vq":
		o.VQ = splitList(value)
	case "temp":
		o.Temp = value
	default:
		// Unrecognized keys are ignored.
	}
	return nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	raw := strings.Split(value, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

// Validate checks the fields required to run a session.
func (o *Options) Validate() error {
	if o.Iface == "" {
		return fmt.Errorf("missing iface")
	}
	if o.IP == "" {
		return fmt.Errorf("missing ip")
	}
	if o.Video == "" {
		return fmt.Errorf("missing video")
	}
	switch o.Codec {
	case CodecH263, CodecH264, CodecMPEG4, CodecTheora:
	default:
		return fmt.Errorf("unsupported codec %q", o.Codec)
	}
	switch o.Protocol {
	case ProtocolUDP, ProtocolTCP, ProtocolUDPMcast:
	default:
		return fmt.Errorf("unsupported protocol %q", o.Protocol)
	}
	if o.Bitrate <= 0 {
		return fmt.Errorf("bitrate must be positive")
	}
	if o.Framerate <= 0 {
		return fmt.Errorf("framerate must be positive")
	}
	return nil
}
