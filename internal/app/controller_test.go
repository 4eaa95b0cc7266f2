// ABOUTME: Tests for the transport controller state machine and frame pacing
// ABOUTME: Uses a scripted terminal, a synthetic video track and a fake time source
package app

import (
	"errors"
	"testing"
	"time"

	"github.com/harperreed/termvid/internal/media"
	"github.com/harperreed/termvid/internal/metrics"
	"github.com/harperreed/termvid/internal/protocol"
	"github.com/harperreed/termvid/internal/sync"
	"github.com/harperreed/termvid/internal/ui"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoInput = errors.New("no scripted input")

// scriptedTerminal replays queued events. An empty poll advances fake time
// by the full timeout, as a real poll would sleep.
type scriptedTerminal struct {
	clock  *sync.FakeTime
	events []ui.Event
	polls  []time.Duration
	views  []ui.View
	width  int
	height int
}

func (s *scriptedTerminal) Size() (int, int, error) { return s.width, s.height, nil }

func (s *scriptedTerminal) Poll(timeout time.Duration) (bool, error) {
	s.polls = append(s.polls, timeout)
	if len(s.events) > 0 {
		return true, nil
	}
	if timeout < 0 {
		return false, errNoInput
	}
	s.clock.Advance(timeout)
	return false, nil
}

func (s *scriptedTerminal) Read() (ui.Event, error) {
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, nil
}

func (s *scriptedTerminal) Draw(v ui.View) error {
	s.views = append(s.views, v)
	return nil
}

func (s *scriptedTerminal) push(events ...ui.Event) {
	s.events = append(s.events, events...)
}

func (s *scriptedTerminal) lastView() ui.View {
	return s.views[len(s.views)-1]
}

// syntheticVideo produces 25 fps frames until end
type syntheticVideo struct {
	start   media.Timestamp
	index   int
	end     media.Timestamp
	err     error
	seekErr error
	seeks   []media.Timestamp
	flushes int
	sizes   [][2]int
}

func (v *syntheticVideo) NextFrame() (media.Frame, error) {
	if v.err != nil {
		return media.Frame{}, v.err
	}
	pts := v.start + time.Duration(v.index)*40*time.Millisecond
	if pts >= v.end {
		return media.Frame{}, media.ErrEndOfStream
	}
	v.index++
	return media.Frame{Data: []byte{1, 2, 3}, PTS: pts}, nil
}

func (v *syntheticVideo) Seek(target media.Timestamp) error {
	if v.seekErr != nil {
		return v.seekErr
	}
	v.seeks = append(v.seeks, target)
	v.start, v.index = target, 0
	return nil
}

func (v *syntheticVideo) Flush()                { v.flushes++ }
func (v *syntheticVideo) FrameRate() float64    { return 25 }
func (v *syntheticVideo) Dimensions() (int, int) { return 320, 240 }

func (v *syntheticVideo) SetOutputSize(width, height int) {
	v.sizes = append(v.sizes, [2]int{width, height})
}

type commandLog struct {
	commands []protocol.Command
}

func (c *commandLog) Send(cmd protocol.Command) error {
	c.commands = append(c.commands, cmd)
	return nil
}

func (c *commandLog) kinds() []protocol.Kind {
	kinds := make([]protocol.Kind, 0, len(c.commands))
	for _, cmd := range c.commands {
		kinds = append(kinds, cmd.Kind)
	}
	return kinds
}

type statusLog struct {
	statuses []protocol.Status
}

func (s *statusLog) Publish(status protocol.Status) {
	s.statuses = append(s.statuses, status)
}

type harness struct {
	ctrl    *Controller
	term    *scriptedTerminal
	video   *syntheticVideo
	sink    *commandLog
	status  *statusLog
	metrics *metrics.Metrics
	clock   *sync.FakeTime
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ft := sync.NewFakeTime(time.Unix(1700000000, 0))
	h := &harness{
		term:    &scriptedTerminal{clock: ft, width: 80, height: 24},
		video:   &syntheticVideo{end: time.Minute},
		sink:    &commandLog{},
		status:  &statusLog{},
		metrics: metrics.New(),
		clock:   ft,
	}
	h.ctrl = NewController(ControllerConfig{
		Session:  "test",
		Title:    "clip.mp4",
		Duration: time.Minute,
		SeekStep: 5 * time.Second,
		MinWait:  5 * time.Millisecond,
		Refresh:  250 * time.Millisecond,
		HasAudio: true,
		Time:     ft,
	}, h.term, h.video, h.sink, h.status, h.metrics)

	h.ctrl.Apply(protocol.Resize(80, 24))
	h.sink.commands = nil
	return h
}

func (h *harness) stepUntil(t *testing.T, target media.Timestamp) {
	t.Helper()
	for i := 0; h.ctrl.Position() < target; i++ {
		require.Less(t, i, 10000, "clock never reached %v", target)
		require.NoError(t, h.ctrl.Step())
	}
}

func TestFirstFramePresentedImmediately(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.Step())

	view := h.term.lastView()
	assert.Equal(t, []byte{1, 2, 3}, view.Pixels)
	assert.Equal(t, 80, view.Width)
	assert.Equal(t, 44, view.Height)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.FramesRendered))
}

func TestWaitBudgetHasFloor(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.Step())
	require.NoError(t, h.ctrl.Step())

	// the first poll already spent the 5ms floor
	assert.Equal(t, 5*time.Millisecond, h.term.polls[0])
	assert.Equal(t, 35*time.Millisecond, h.term.polls[1])
	for _, wait := range h.term.polls {
		assert.GreaterOrEqual(t, wait, 5*time.Millisecond)
	}
}

func TestCatchUpSkipsLateFrames(t *testing.T) {
	h := newHarness(t)
	h.clock.Advance(time.Second)

	require.NoError(t, h.ctrl.Step())

	// frames 0..23 end before 1s, frame 24 at 960ms is still on screen
	assert.Equal(t, 24.0, testutil.ToFloat64(h.metrics.FramesSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.FramesRendered))
}

func TestDecodeFailurePauses(t *testing.T) {
	h := newHarness(t)
	h.video.err = &media.DecodeError{Stream: "video", Err: errors.New("corrupt packet")}
	h.term.push(ui.Event{})

	require.NoError(t, h.ctrl.Step())

	assert.Equal(t, StatePaused, h.ctrl.State())
	assert.Equal(t, []protocol.Kind{protocol.KindPause}, h.sink.kinds())
	assert.Equal(t, time.Duration(-1), h.term.polls[0])
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.DecodeErrors.WithLabelValues("video")))
}

func TestEndOfStreamKeepsPlaying(t *testing.T) {
	h := newHarness(t)
	h.video.end = 80 * time.Millisecond

	h.stepUntil(t, 500*time.Millisecond)

	assert.Equal(t, StatePlaying, h.ctrl.State())
	assert.Equal(t, "ended", h.term.lastView().Overlay.State)
	assert.Equal(t, 250*time.Millisecond, h.term.polls[len(h.term.polls)-1])
	assert.NotNil(t, h.term.lastView().Pixels)
}

func TestToggleKey(t *testing.T) {
	h := newHarness(t)
	h.clock.Advance(1500 * time.Millisecond)

	h.term.push(ui.KeyEvent("k"))
	require.NoError(t, h.ctrl.Step())
	assert.Equal(t, StatePaused, h.ctrl.State())
	frozen := h.ctrl.Position()

	h.clock.Advance(3 * time.Second)
	assert.Equal(t, frozen, h.ctrl.Position())

	h.term.push(ui.KeyEvent("space"))
	require.NoError(t, h.ctrl.Step())
	assert.Equal(t, StatePlaying, h.ctrl.State())
	assert.Equal(t, []protocol.Kind{protocol.KindPause, protocol.KindResume}, h.sink.kinds())
	assert.GreaterOrEqual(t, h.ctrl.Position(), frozen)
}

func TestSeekFromPausedResumes(t *testing.T) {
	h := newHarness(t)
	h.clock.Advance(2 * time.Second)

	h.term.push(ui.KeyEvent("k"), ui.KeyEvent("l"))
	require.NoError(t, h.ctrl.Step())
	require.NoError(t, h.ctrl.Step())

	assert.Equal(t, StatePlaying, h.ctrl.State())
	assert.Equal(t, 7*time.Second, h.ctrl.Position())
	assert.Equal(t, []media.Timestamp{7 * time.Second}, h.video.seeks)
	assert.Equal(t, 1, h.video.flushes)
	require.Len(t, h.sink.commands, 2)
	assert.Equal(t, protocol.Seek(7*time.Second), h.sink.commands[1])
}

func TestSeekKeysClamp(t *testing.T) {
	h := newHarness(t)

	h.term.push(ui.KeyEvent("left"))
	require.NoError(t, h.ctrl.Step())
	assert.Equal(t, protocol.Seek(0), h.sink.commands[0])

	h.term.push(ui.RemoteEvent(protocol.Request{Command: protocol.RequestSeek, PositionMs: 58000}))
	require.NoError(t, h.ctrl.Step())
	h.term.push(ui.KeyEvent("right"))
	require.NoError(t, h.ctrl.Step())

	assert.Equal(t, protocol.Seek(time.Minute), h.sink.commands[2])
}

func TestSeekFailureLeavesStateAlone(t *testing.T) {
	h := newHarness(t)
	h.video.seekErr = &media.SeekError{Target: 5 * time.Second, Err: media.ErrUnsupported}

	h.term.push(ui.KeyEvent("k"), ui.KeyEvent("l"))
	require.NoError(t, h.ctrl.Step())
	require.NoError(t, h.ctrl.Step())

	assert.Equal(t, StatePaused, h.ctrl.State())
	assert.Equal(t, []protocol.Kind{protocol.KindPause}, h.sink.kinds())
}

func TestResizeForwarded(t *testing.T) {
	h := newHarness(t)

	h.term.push(ui.ResizeEvent(120, 40))
	require.NoError(t, h.ctrl.Step())

	assert.Equal(t, StatePlaying, h.ctrl.State())
	assert.Equal(t, [2]int{120, 76}, h.video.sizes[len(h.video.sizes)-1])
	assert.Equal(t, []protocol.Command{protocol.Resize(120, 40)}, h.sink.commands)
}

func TestRepeatedResizeKeepsPendingFrame(t *testing.T) {
	h := newHarness(t)

	h.term.push(ui.ResizeEvent(80, 24))
	require.NoError(t, h.ctrl.Step())

	assert.Len(t, h.video.sizes, 1, "unchanged size is not reconfigured")
	assert.Equal(t, []byte{1, 2, 3}, h.term.lastView().Pixels)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.FramesRendered))
	assert.Equal(t, []protocol.Command{protocol.Resize(80, 24)}, h.sink.commands)
}

func TestQuit(t *testing.T) {
	for _, ev := range []ui.Event{
		ui.KeyEvent("q"),
		ui.KeyEvent("ctrl+c"),
		ui.RemoteEvent(protocol.Request{Command: protocol.RequestQuit}),
	} {
		t.Run(ev.String(), func(t *testing.T) {
			h := newHarness(t)
			h.term.push(ev)

			require.NoError(t, h.ctrl.Run())
			assert.Equal(t, StateExited, h.ctrl.State())
		})
	}
}

func TestRunReportsTerminalFailure(t *testing.T) {
	h := newHarness(t)
	h.video.err = &media.DecodeError{Stream: "video", Err: errors.New("bad")}

	err := h.ctrl.Run()

	var termErr *media.TerminalError
	require.ErrorAs(t, err, &termErr)
	assert.ErrorIs(t, err, errNoInput)
}

func TestRemoteRequests(t *testing.T) {
	h := newHarness(t)

	h.term.push(
		ui.RemoteEvent(protocol.Request{Command: protocol.RequestResume}),
		ui.RemoteEvent(protocol.Request{Command: protocol.RequestPause}),
		ui.RemoteEvent(protocol.Request{Command: protocol.RequestPause}),
		ui.RemoteEvent(protocol.Request{Command: protocol.RequestSeekRelative, OffsetMs: 3000}),
		ui.RemoteEvent(protocol.Request{Command: "rewind"}),
	)
	for len(h.term.events) > 0 {
		require.NoError(t, h.ctrl.Step())
	}

	assert.Equal(t, []protocol.Kind{protocol.KindPause, protocol.KindSeek}, h.sink.kinds())
	assert.Equal(t, 3*time.Second, h.sink.commands[1].Target)
}

func TestOverlay(t *testing.T) {
	h := newHarness(t)
	h.clock.Advance(65 * time.Second)

	require.NoError(t, h.ctrl.Step())

	overlay := h.term.lastView().Overlay
	assert.Equal(t, "clip.mp4", overlay.Title)
	assert.Equal(t, "25 fps 320x240", overlay.Stream)
	assert.Equal(t, "01:00 / 01:00", overlay.Position)
	assert.Equal(t, keyHints, overlay.Hints)
}

func TestStatusPublished(t *testing.T) {
	h := newHarness(t)
	h.status.statuses = nil

	h.term.push(ui.KeyEvent("k"))
	require.NoError(t, h.ctrl.Step())

	require.NotEmpty(t, h.status.statuses)
	last := h.status.statuses[len(h.status.statuses)-1]
	assert.Equal(t, "paused", last.State)
	assert.Equal(t, "test", last.Session)
	assert.Equal(t, int64(60000), last.DurationMs)
	assert.True(t, last.HasVideo)
}

func TestEndToEndScenario(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, media.Timestamp(0), h.ctrl.Position())

	h.stepUntil(t, 3*time.Second)
	assert.InDelta(t, float64(3*time.Second), float64(h.ctrl.Position()), float64(50*time.Millisecond))

	h.term.push(ui.RemoteEvent(protocol.Request{Command: protocol.RequestSeek, PositionMs: 7000}))
	require.NoError(t, h.ctrl.Step())
	assert.Equal(t, 7*time.Second, h.ctrl.Position())

	h.term.push(ui.KeyEvent("k"))
	require.NoError(t, h.ctrl.Step())
	h.clock.Advance(2 * time.Second)

	assert.Equal(t, StatePaused, h.ctrl.State())
	assert.Equal(t, 7*time.Second, h.ctrl.Position())
	assert.Equal(t, []protocol.Kind{protocol.KindSeek, protocol.KindPause}, h.sink.kinds())
}

func TestWithoutVideo(t *testing.T) {
	ft := sync.NewFakeTime(time.Unix(0, 0))
	term := &scriptedTerminal{clock: ft, width: 80, height: 24}
	ctrl := NewController(ControllerConfig{Duration: time.Minute, HasAudio: true, Time: ft}, term, nil, nil, nil, nil)

	require.NoError(t, ctrl.Step())

	assert.Equal(t, 250*time.Millisecond, term.polls[0])
	assert.Equal(t, "audio only", term.lastView().Overlay.Stream)
}
