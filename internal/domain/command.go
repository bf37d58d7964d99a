package domain

// Command is one inbound slash command invocation.
type Command struct {
	RequestID   string
	UserID      string
	UserName    string
	ChannelID   string
	ChannelName string
	Text        string
	ResponseURL string
}

type Selection int

const (
	// SelectRequesterPlusActive draws active users to join the requester.
	SelectRequesterPlusActive Selection = iota
	// SelectChannelRoster takes every active member of the invoking channel.
	SelectChannelRoster
	// SelectHelp selects nobody.
	SelectHelp
)

type Grouping int

const (
	GroupingPartition Grouping = iota
	GroupingNone
)

// Variant is the strategy pair derived from the command argument.
type Variant struct {
	Selection Selection
	Grouping  Grouping
	// Size is the number of participants including the requester.
	// Unused for channel roster selection.
	Size int
}

// Channel names the chat platform reports for non-public contexts.
const (
	ChannelNamePrivate       = "privategroup"
	ChannelNameDirectMessage = "directmessage"
)

type State string

const (
	StateReceived             State = "RECEIVED"
	StateValidated            State = "VALIDATED"
	StatePoolSelected         State = "POOL_SELECTED"
	StatePartitioned          State = "PARTITIONED"
	StateDispatched           State = "DISPATCHED"
	StateNotified             State = "NOTIFIED"
	StateResponded            State = "RESPONDED"
	StateRejectedUnauthorized State = "REJECTED_UNAUTHORIZED"
	StateRejectedContext      State = "REJECTED_CONTEXT"
	StateRejectedArgument     State = "REJECTED_ARGUMENT"
	StateInsufficientUsers    State = "INSUFFICIENT_USERS"
)

// Terminal reports whether the state ends an invocation early.
func (s State) Terminal() bool {
	switch s {
	case StateRejectedUnauthorized, StateRejectedContext, StateRejectedArgument, StateInsufficientUsers, StateResponded:
		return true
	}
	return false
}

// GroupResult is the per-group outcome of dispatch.
type GroupResult struct {
	Group   Group
	Meeting MeetingResult
	Err     error
}

// Outcome summarises one invocation.
type Outcome struct {
	RequestID string
	State     State
	Groups    []Group
	Results   []GroupResult
}

// Event is published for every pairing milestone.
type Event struct {
	Type      string   `json:"type"`
	RequestID string   `json:"requestId"`
	Members   []string `json:"members"`
	JoinURL   string   `json:"joinUrl,omitempty"`
	Error     string   `json:"error,omitempty"`
}

const (
	EventPairingCreated = "pairing.created"
	EventMeetingCreated = "meeting.created"
	EventMeetingFailed  = "meeting.failed"
)
