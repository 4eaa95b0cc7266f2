// ABOUTME: Main player application orchestration
// ABOUTME: Opens tracks, audio output, terminal and remote control, then runs the controller
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/termvid/internal/decode"
	"github.com/harperreed/termvid/internal/key"
	"github.com/harperreed/termvid/internal/log"
	"github.com/harperreed/termvid/internal/media"
	"github.com/harperreed/termvid/internal/metrics"
	"github.com/harperreed/termvid/internal/player"
	"github.com/harperreed/termvid/internal/protocol"
	"github.com/harperreed/termvid/internal/remote"
	"github.com/harperreed/termvid/internal/ui"
	"github.com/spf13/viper"
)

// prefetchWindow is how much audio is decoded ahead of the device
const prefetchWindow = 500 * time.Millisecond

// Config holds player configuration
type Config struct {
	Path string

	SeekStep time.Duration
	MinWait  time.Duration
	Refresh  time.Duration

	AudioEnabled bool
	AudioFormat  media.AudioFormat
	AudioBuffer  time.Duration
	FrameSamples int

	FFmpeg      string
	FFprobe     string
	NativeAudio bool

	Remote     bool
	RemotePort int
	MDNS       bool
	Name       string
}

// ConfigFromViper reads every player setting from the loaded configuration
func ConfigFromViper(path string) (Config, error) {
	enc, err := media.ParseEncoding(viper.GetString(key.AudioEncoding))
	if err != nil {
		return Config{}, err
	}

	return Config{
		Path:     path,
		SeekStep: viper.GetDuration(key.PlayerSeekStep),
		MinWait:  viper.GetDuration(key.PlayerMinWait),
		Refresh:  viper.GetDuration(key.PlayerRefresh),

		AudioEnabled: viper.GetBool(key.AudioEnabled),
		AudioFormat: media.AudioFormat{
			SampleRate: viper.GetInt(key.AudioSampleRate),
			Channels:   viper.GetInt(key.AudioChannels),
			Encoding:   enc,
		},
		AudioBuffer:  viper.GetDuration(key.AudioBuffer),
		FrameSamples: viper.GetInt(key.AudioFrameSamples),

		FFmpeg:      viper.GetString(key.DecoderFFmpeg),
		FFprobe:     viper.GetString(key.DecoderFFprobe),
		NativeAudio: viper.GetBool(key.DecoderNativeAudio),

		Remote:     viper.GetBool(key.RemoteEnabled),
		RemotePort: viper.GetInt(key.RemotePort),
		MDNS:       viper.GetBool(key.RemoteMDNS),
		Name:       viper.GetString(key.RemoteName),
	}, nil
}

// terminal is what the player needs from the screen
type terminal interface {
	Terminal
	Inject(ev ui.Event) error
	Close() error
}

// Player represents the main player application
type Player struct {
	config  Config
	session string
	metrics *metrics.Metrics

	openTerminal func() terminal

	term     terminal
	output   *player.Output
	renderer *player.Renderer
	prefetch *player.Prefetcher
	track    decode.AudioTrack
	video    *decode.Video
	remote   *remote.Server
}

// New creates a new player
func New(config Config) *Player {
	return &Player{
		config:       config,
		session:      uuid.New().String(),
		metrics:      metrics.New(),
		openTerminal: func() terminal { return ui.NewTerminal() },
	}
}

// Session returns the playback session id
func (p *Player) Session() string {
	return p.session
}

// Metrics returns the player's metrics
func (p *Player) Metrics() *metrics.Metrics {
	return p.metrics
}

// Run plays the configured file until the user quits or ctx is cancelled
func (p *Player) Run(ctx context.Context) (err error) {
	log.SetSession(p.session)
	log.Infof("Opening %s", p.config.Path)

	info, err := decode.Probe(ctx, p.config.FFprobe, p.config.Path)
	if err != nil {
		return err
	}
	if info.Video == nil && (info.Audio == nil || !p.config.AudioEnabled) {
		return &media.OpenError{Path: p.config.Path, Err: media.ErrUnsupported}
	}

	p.term = p.openTerminal()
	defer func() {
		err = errors.Join(err, p.teardown())
	}()

	cols, rows, err := p.term.Size()
	if err != nil {
		return &media.TerminalError{Op: "size", Err: err}
	}

	var video VideoSource
	if info.Video != nil {
		w, h := ui.VideoArea(cols, rows)
		p.video, err = decode.OpenVideo(p.config.FFmpeg, p.config.Path, info, w, h)
		if err != nil {
			return err
		}
		video = p.video
	}

	var sink CommandSink
	if sender := p.openAudio(info); sender != nil {
		sink = sender
	}

	title := filepath.Base(p.config.Path)
	var status StatusPublisher
	if p.config.Remote {
		p.remote = remote.New(remote.Config{
			Port:       p.config.RemotePort,
			Name:       p.config.Name,
			EnableMDNS: p.config.MDNS,
			Session:    p.session,
			File:       title,
		}, p.term, p.metrics)
		if err := p.remote.Start(); err != nil {
			return err
		}
		status = p.remote
	}

	stop := context.AfterFunc(ctx, func() {
		_ = p.term.Inject(ui.RemoteEvent(protocol.Request{Command: protocol.RequestQuit}))
	})
	defer stop()

	ctrl := NewController(ControllerConfig{
		Session:  p.session,
		Title:    title,
		Duration: info.Duration,
		SeekStep: p.config.SeekStep,
		MinWait:  p.config.MinWait,
		Refresh:  p.config.Refresh,
		HasAudio: sink != nil,
	}, p.term, video, sink, status, p.metrics)

	if err := ctrl.Run(); err != nil {
		return fmt.Errorf("playback: %w", err)
	}
	log.Infof("Playback finished at %s", media.FormatClock(ctrl.Position()))
	return nil
}

// openAudio starts the audio path. Any failure leaves playback video-only
// and returns nil.
func (p *Player) openAudio(info decode.Info) *protocol.Sender {
	if !p.config.AudioEnabled || info.Audio == nil {
		return nil
	}

	track, err := decode.OpenAudio(p.config.Path, info, decode.AudioOptions{
		FFmpeg:       p.config.FFmpeg,
		Format:       p.config.AudioFormat,
		FrameSamples: p.config.FrameSamples,
		Native:       p.config.NativeAudio,
	})
	if err != nil {
		log.Warnf("Audio track unavailable, continuing without sound: %v", err)
		return nil
	}

	frames := p.config.FrameSamples
	if frames <= 0 {
		frames = 1024
	}
	frameSize := frames * p.config.AudioFormat.BytesPerFrame()
	capacity := 2
	if d := p.config.AudioFormat.DurationOf(frameSize); d > 0 {
		capacity = int(prefetchWindow/d) + 1
	}
	prefetch := player.NewPrefetcher(track, capacity, frameSize)
	prefetch.Start()

	sender, receiver := protocol.NewChannel()
	renderer := player.NewRenderer(prefetch, receiver, p.metrics)
	output, err := player.OpenOutput(p.config.AudioFormat, p.config.AudioBuffer, renderer)
	if err != nil {
		var devErr *media.DeviceError
		if errors.As(err, &devErr) {
			log.Warnf("Audio device unavailable, continuing without sound: %v", err)
		}
		renderer.Close()
		prefetch.Close()
		track.Close()
		return nil
	}

	p.track = track
	p.prefetch = prefetch
	p.renderer = renderer
	p.output = output
	return sender
}

// teardown releases everything Run opened, terminal first so the screen is
// restored even if a later close hangs or fails.
func (p *Player) teardown() error {
	var errs []error
	if p.term != nil {
		if err := p.term.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.output != nil {
		if err := p.output.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.renderer != nil {
		p.renderer.Close()
	}
	if p.prefetch != nil {
		p.prefetch.Close()
	}
	if p.track != nil {
		if err := p.track.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close audio: %w", err))
		}
	}
	if p.video != nil {
		if err := p.video.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close video: %w", err))
		}
	}
	if p.remote != nil {
		if err := p.remote.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close remote: %w", err))
		}
	}
	return errors.Join(errs...)
}
