package ir

import "fmt"

// State is a lifecycle state of a handle instance.
//
//	Unborn -> Live -> (Borrowed -> Live)* -> Released
//	Unborn -> LiveAlias -> Revoked        (owner released)
//	Live   -> LiveAlias                   (handed to a container)
//
// Poisoned is entered only in permissive replay after a violation.
type State string

const (
	StateUnborn    State = "Unborn"
	StateLive      State = "Live"
	StateBorrowed  State = "Borrowed"
	StateLiveAlias State = "LiveAlias"
	StateReleased  State = "Released"
	StateRevoked   State = "Revoked"
	StatePoisoned  State = "Poisoned"
)

// IsLive reports whether an instance in this state may be used.
func (s State) IsLive() bool {
	return s == StateLive || s == StateLiveAlias
}

// NoOwner marks an alias that is not tied to any owning instance.
const NoOwner = -1

// HandleInstance is one handle created during a replay.
// Instances live in an arena owned by a single tracker and reference each
// other by id, never by pointer.
type HandleInstance struct {
	ID      int    `json:"id"`
	Type    string `json:"type"`
	State   State  `json:"state"`
	Site    Site   `json:"site"`
	Owner   int    `json:"owner"`   // owning instance for aliases, NoOwner otherwise
	Aliases []int  `json:"aliases"` // live alias ids referencing this instance
}

// Site identifies the call that created an instance.
type Site struct {
	Index    int    `json:"index"`
	Line     int    `json:"line,omitempty"`
	Function string `json:"function"`
}

func (s Site) String() string {
	if s.Line > 0 {
		return fmt.Sprintf("#%d %s (line %d)", s.Index, s.Function, s.Line)
	}
	return fmt.Sprintf("#%d %s", s.Index, s.Function)
}

// Transition is one exercised edge of the lifecycle FSM.
type Transition struct {
	Type string `json:"type"`
	From State  `json:"from"`
	To   State  `json:"to"`
}

func (t Transition) String() string {
	return fmt.Sprintf("%s:%s->%s", t.Type, t.From, t.To)
}
