// ABOUTME: Configuration key names shared by config, flags and consumers
// ABOUTME: Dotted keys map to TERMVID_ environment variables
package key

const (
	PlayerSeekStep = "player.seek_step"
	PlayerMinWait  = "player.min_wait"
	PlayerRefresh  = "player.refresh"

	AudioEnabled      = "audio.enabled"
	AudioSampleRate   = "audio.sample_rate"
	AudioChannels     = "audio.channels"
	AudioEncoding     = "audio.encoding"
	AudioBuffer       = "audio.buffer"
	AudioFrameSamples = "audio.frame_samples"

	DecoderFFmpeg      = "decoder.ffmpeg"
	DecoderFFprobe     = "decoder.ffprobe"
	DecoderNativeAudio = "decoder.native_audio"

	RemoteEnabled = "remote.enabled"
	RemotePort    = "remote.port"
	RemoteMDNS    = "remote.mdns"
	RemoteName    = "remote.name"

	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJSON  = "logs.json"
)
