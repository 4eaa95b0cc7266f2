// ABOUTME: Transport controller driving video presentation from the playback clock
// ABOUTME: Single-threaded loop: pull frames, pace via input poll, apply and forward commands
package app

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/harperreed/termvid/internal/log"
	"github.com/harperreed/termvid/internal/media"
	"github.com/harperreed/termvid/internal/metrics"
	"github.com/harperreed/termvid/internal/protocol"
	"github.com/harperreed/termvid/internal/sync"
	"github.com/harperreed/termvid/internal/ui"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// State is the controller's playback state
type State int

const (
	StatePlaying State = iota
	StatePaused
	StateExited
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "exited"
	}
}

// keyHints is shown in the overlay
var keyHints = ui.Keys.Hints()

// statusInterval is the media-time spacing of status publications during playback
const statusInterval = time.Second

// Terminal renders views and supplies input events
type Terminal interface {
	Size() (int, int, error)
	Poll(timeout time.Duration) (bool, error)
	Read() (ui.Event, error)
	Draw(v ui.View) error
}

// VideoSource is a scaled video track
type VideoSource interface {
	NextFrame() (media.Frame, error)
	Seek(target media.Timestamp) error
	Flush()
	SetOutputSize(width, height int)
	FrameRate() float64
	Dimensions() (int, int)
}

// CommandSink receives every command the controller applies
type CommandSink interface {
	Send(cmd protocol.Command) error
}

// StatusPublisher receives status snapshots
type StatusPublisher interface {
	Publish(status protocol.Status)
}

// ControllerConfig holds the controller's tunables
type ControllerConfig struct {
	Session  string
	Title    string
	Duration media.Timestamp
	SeekStep time.Duration
	MinWait  time.Duration
	Refresh  time.Duration
	HasAudio bool
	Time     sync.TimeSource
}

// shownFrame is the frame on screen with the grid it was decoded at
type shownFrame struct {
	frame  media.Frame
	width  int
	height int
}

// Controller owns the playback clock and the video track. It is used from
// a single goroutine.
type Controller struct {
	config  ControllerConfig
	term    Terminal
	video   VideoSource
	audio   CommandSink
	status  StatusPublisher
	metrics *metrics.Metrics
	clock   *sync.Clock

	state   State
	pending mo.Option[media.Frame]
	shown   mo.Option[shownFrame]
	eos     bool

	cols, rows     int
	videoW, videoH int
	lastStatus     media.Timestamp
}

// NewController creates a controller. video, audio, status and m may be nil.
func NewController(config ControllerConfig, term Terminal, video VideoSource, audio CommandSink, status StatusPublisher, m *metrics.Metrics) *Controller {
	if config.SeekStep <= 0 {
		config.SeekStep = 5 * time.Second
	}
	if config.Refresh <= 0 {
		config.Refresh = 250 * time.Millisecond
	}
	return &Controller{
		config:  config,
		term:    term,
		video:   video,
		audio:   audio,
		status:  status,
		metrics: m,
		clock:   sync.NewClock(config.Time),
		state:   StatePlaying,
		pending: mo.None[media.Frame](),
		shown:   mo.None[shownFrame](),
	}
}

// State returns the current playback state
func (c *Controller) State() State {
	return c.state
}

// Position returns the clock's media position
func (c *Controller) Position() media.Timestamp {
	return c.clock.Now()
}

// Run drives playback until the user quits or the terminal fails
func (c *Controller) Run() error {
	w, h, err := c.term.Size()
	if err != nil {
		return &media.TerminalError{Op: "input", Err: err}
	}
	c.Apply(protocol.Resize(w, h))

	for c.state != StateExited {
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step runs one iteration of the control loop
func (c *Controller) Step() error {
	if c.state == StatePlaying {
		c.advance()
	}

	ready, err := c.term.Poll(c.waitBudget())
	if err != nil {
		return &media.TerminalError{Op: "input", Err: err}
	}
	if ready {
		ev, err := c.term.Read()
		if err != nil {
			return &media.TerminalError{Op: "input", Err: err}
		}
		if cmd, ok := c.handleEvent(ev); ok {
			c.Apply(cmd)
		}
	}
	if c.state == StateExited {
		return nil
	}

	c.present()
	if err := c.term.Draw(c.view()); err != nil {
		return &media.TerminalError{Op: "render", Err: err}
	}
	c.maybePublish()
	return nil
}

// advance pulls the next frame to present, skipping frames whose display
// interval has already passed.
func (c *Controller) advance() {
	if c.video == nil || c.eos || c.pending.IsPresent() {
		return
	}

	interval := frameInterval(c.video.FrameRate())
	for {
		frame, err := c.video.NextFrame()
		if err != nil {
			if errors.Is(err, media.ErrEndOfStream) {
				log.Infof("Video reached end of stream at %s", media.FormatClock(c.clock.Now()))
				c.eos = true
				c.publish()
				return
			}
			log.Warnf("Video decode failed, pausing: %v", err)
			if c.metrics != nil {
				c.metrics.DecodeErrors.WithLabelValues("video").Inc()
			}
			c.Apply(protocol.Pause())
			return
		}

		if frame.PTS+interval < c.clock.Now() {
			if c.metrics != nil {
				c.metrics.FramesSkipped.Inc()
			}
			continue
		}
		c.pending = mo.Some(frame)
		return
	}
}

// waitBudget returns how long to poll for input. Negative waits forever.
func (c *Controller) waitBudget() time.Duration {
	if c.state == StatePaused {
		return -1
	}
	if frame, ok := c.pending.Get(); ok {
		return max(media.Sub(frame.PTS, c.clock.Now()), c.config.MinWait)
	}
	return c.config.Refresh
}

// present moves the pending frame on screen once its time has come
func (c *Controller) present() {
	frame, ok := c.pending.Get()
	if !ok || frame.PTS > c.clock.Now() {
		return
	}
	c.shown = mo.Some(shownFrame{frame: frame, width: c.videoW, height: c.videoH})
	c.pending = mo.None[media.Frame]()
	if c.metrics != nil {
		c.metrics.FramesRendered.Inc()
	}
}

// handleEvent maps input to a command. Quit is handled here directly.
func (c *Controller) handleEvent(ev ui.Event) (protocol.Command, bool) {
	switch ev.Kind {
	case ui.EventKey:
		switch {
		case ui.Matches(ev, ui.Keys.Quit):
			c.quit()
		case ui.Matches(ev, ui.Keys.Toggle):
			return c.toggle(), true
		case ui.Matches(ev, ui.Keys.Back):
			return c.seekBy(-c.config.SeekStep), true
		case ui.Matches(ev, ui.Keys.Forward):
			return c.seekBy(c.config.SeekStep), true
		}
	case ui.EventResize:
		return protocol.Resize(ev.Width, ev.Height), true
	case ui.EventRemote:
		return c.handleRequest(ev.Request)
	}
	return protocol.Command{}, false
}

// handleRequest maps a remote control request to a command
func (c *Controller) handleRequest(req protocol.Request) (protocol.Command, bool) {
	switch req.Command {
	case protocol.RequestPause:
		return protocol.Pause(), c.state == StatePlaying
	case protocol.RequestResume:
		return protocol.Resume(), c.state == StatePaused
	case protocol.RequestToggle:
		return c.toggle(), true
	case protocol.RequestSeek:
		target := media.Clamp(time.Duration(req.PositionMs)*time.Millisecond, c.config.Duration)
		return protocol.Seek(target), true
	case protocol.RequestSeekRelative:
		return c.seekBy(time.Duration(req.OffsetMs) * time.Millisecond), true
	case protocol.RequestQuit:
		c.quit()
	default:
		log.Warnf("Ignoring unknown remote request %q", req.Command)
	}
	return protocol.Command{}, false
}

func (c *Controller) toggle() protocol.Command {
	if c.state == StatePaused {
		return protocol.Resume()
	}
	return protocol.Pause()
}

func (c *Controller) seekBy(offset time.Duration) protocol.Command {
	target := c.clock.Now() + offset
	if c.config.Duration > 0 {
		target = lo.Clamp(target, 0, c.config.Duration)
	} else {
		target = max(target, 0)
	}
	return protocol.Seek(target)
}

func (c *Controller) quit() {
	log.Infof("Quit requested at %s", media.FormatClock(c.clock.Now()))
	c.state = StateExited
}

// Apply performs cmd locally then forwards it to the audio renderer.
// Commands that do not change anything locally are not forwarded.
func (c *Controller) Apply(cmd protocol.Command) {
	switch cmd.Kind {
	case protocol.KindPause:
		if c.state != StatePlaying {
			return
		}
		c.state = StatePaused
		c.clock.Pause()

	case protocol.KindResume:
		if c.state != StatePaused {
			return
		}
		c.state = StatePlaying
		c.clock.Resume()

	case protocol.KindSeek:
		if c.video != nil {
			if err := c.video.Seek(cmd.Target); err != nil {
				log.Warnf("Seek to %s rejected: %v", media.FormatClock(cmd.Target), err)
				return
			}
			c.video.Flush()
		}
		c.pending = mo.None[media.Frame]()
		c.eos = false
		c.clock.Seek(cmd.Target)
		c.state = StatePlaying

	case protocol.KindResize:
		c.cols, c.rows = cmd.Width, cmd.Height
		w, h := ui.VideoArea(cmd.Width, cmd.Height)
		if w != c.videoW || h != c.videoH {
			c.videoW, c.videoH = w, h
			if c.video != nil {
				c.video.SetOutputSize(w, h)
			}
			// a decoded frame at the old size no longer fits
			c.pending = mo.None[media.Frame]()
		}
	}

	log.WithField("command", cmd.String()).Debug("Applied command")
	if c.metrics != nil {
		c.metrics.Commands.WithLabelValues(cmd.Kind.String()).Inc()
	}
	if c.audio != nil {
		_ = c.audio.Send(cmd)
	}
	c.publish()
}

// view assembles the frame and overlay for drawing
func (c *Controller) view() ui.View {
	now := c.clock.Now()
	if c.config.Duration > 0 {
		now = min(now, c.config.Duration)
	}

	v := ui.View{
		Overlay: ui.Overlay{
			Title:    c.config.Title,
			Stream:   c.streamInfo(),
			Position: media.FormatClock(now) + " / " + media.FormatClock(c.config.Duration),
			State:    c.stateLabel(),
			Hints:    keyHints,
		},
	}
	if shown, ok := c.shown.Get(); ok {
		v.Pixels = shown.frame.Data
		v.Width = shown.width
		v.Height = shown.height
	}
	if c.metrics != nil {
		c.metrics.Position.Set(now.Seconds())
	}
	return v
}

func (c *Controller) streamInfo() string {
	if c.video == nil {
		if c.config.HasAudio {
			return "audio only"
		}
		return ""
	}
	w, h := c.video.Dimensions()
	rate := strconv.FormatFloat(math.Round(c.video.FrameRate()*100)/100, 'f', -1, 64)
	return fmt.Sprintf("%s fps %dx%d", rate, w, h)
}

func (c *Controller) stateLabel() string {
	if c.eos && c.state == StatePlaying {
		return "ended"
	}
	return c.state.String()
}

// maybePublish sends a status snapshot once per statusInterval of playback
func (c *Controller) maybePublish() {
	if c.status == nil || c.state != StatePlaying {
		return
	}
	now := c.clock.Now()
	if now < c.lastStatus || now-c.lastStatus >= statusInterval {
		c.publish()
	}
}

func (c *Controller) publish() {
	if c.status == nil {
		return
	}
	now := c.clock.Now()
	c.lastStatus = now
	c.status.Publish(protocol.Status{
		Session:    c.config.Session,
		File:       c.config.Title,
		State:      c.stateLabel(),
		PositionMs: now.Milliseconds(),
		DurationMs: c.config.Duration.Milliseconds(),
		HasAudio:   c.config.HasAudio,
		HasVideo:   c.video != nil,
	})
}

// frameInterval returns the display interval of one frame at rate
func frameInterval(rate float64) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / rate)
}
