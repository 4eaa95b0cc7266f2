// ABOUTME: Remote control message definitions
// ABOUTME: JSON requests accepted over the control websocket and the status snapshot sent back
package protocol

// Remote request names
const (
	RequestPause        = "pause"
	RequestResume       = "resume"
	RequestToggle       = "toggle"
	RequestSeek         = "seek"
	RequestSeekRelative = "seek_relative"
	RequestQuit         = "quit"
)

// Message is the envelope for everything sent to remote clients
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Request is a control message from a remote client
type Request struct {
	Command    string `json:"command"`
	PositionMs int64  `json:"position_ms,omitempty"`
	OffsetMs   int64  `json:"offset_ms,omitempty"`
}

// Status is a snapshot of the player published after every applied command
type Status struct {
	Session    string `json:"session"`
	File       string `json:"file"`
	State      string `json:"state"`
	PositionMs int64  `json:"position_ms"`
	DurationMs int64  `json:"duration_ms"`
	HasAudio   bool   `json:"has_audio"`
	HasVideo   bool   `json:"has_video"`
}

// ErrorReply reports a rejected request
type ErrorReply struct {
	Error string `json:"error"`
}
