// ABOUTME: Registry of configuration fields with defaults and descriptions
// ABOUTME: Every key here is settable from termvid.toml, TERMVID_ env vars or flags
package config

import (
	"strings"
	"time"

	"github.com/harperreed/termvid/internal/key"
	"github.com/harperreed/termvid/internal/version"
)

// Field is one configuration entry
type Field struct {
	Key         string
	Value       any
	Description string
}

// Env returns the environment variable that overrides this field
func (f Field) Env() string {
	return strings.ToUpper(version.Binary + "_" + EnvKeyReplacer.Replace(f.Key))
}

// Default holds every registered field by key
var Default = make(map[string]Field)

// EnvExposed lists keys bound to environment variables
var EnvExposed []string

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		Default[k] = Field{Key: k, Value: v, Description: desc}
		EnvExposed = append(EnvExposed, k)
	}

	register(key.PlayerSeekStep, 5*time.Second, "Distance jumped by the seek keys")
	register(key.PlayerMinWait, 5*time.Millisecond, "Lower bound on the input poll timeout while playing")
	register(key.PlayerRefresh, 250*time.Millisecond, "Overlay refresh interval when no video frame is pending")

	register(key.AudioEnabled, true, "Play audio when the file has an audio track")
	register(key.AudioSampleRate, 48000, "Output device sample rate")
	register(key.AudioChannels, 2, "Output device channel count")
	register(key.AudioEncoding, "s16", "Output sample encoding: s16 or f32")
	register(key.AudioBuffer, 100*time.Millisecond, "Device buffer size")
	register(key.AudioFrameSamples, 1024, "Sample frames per decoded audio chunk")

	register(key.DecoderFFmpeg, "ffmpeg", "Path to the ffmpeg executable")
	register(key.DecoderFFprobe, "ffprobe", "Path to the ffprobe executable")
	register(key.DecoderNativeAudio, true, "Decode mp3, flac and opus audio in-process")

	register(key.RemoteEnabled, false, "Serve the websocket remote control and metrics")
	register(key.RemotePort, 8928, "Remote control listen port")
	register(key.RemoteMDNS, false, "Advertise the remote control over mDNS")
	register(key.RemoteName, version.Product, "Instance name advertised over mDNS")

	register(key.LogsWrite, false, "Write logs to the log directory")
	register(key.LogsLevel, "info", "Log level: panic, fatal, error, warn, info, debug, trace")
	register(key.LogsJSON, false, "Use json format for logs")
}
