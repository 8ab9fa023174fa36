// Package hermes publishes chatlens activity events on NATS.
package hermes

import (
	"time"

	"github.com/google/uuid"
)

// SubjectPrefix roots every event subject; subscribe to SubjectPrefix+">"
// for all of them.
const SubjectPrefix = "chatlens."

// Event kinds, one per served operation.
const (
	KindSearch         = "search"
	KindRandom         = "random"
	KindChat           = "chat"
	KindMultiWOZSearch = "multiwoz.search"
	KindMultiWOZRandom = "multiwoz.random"
	KindMultiWOZChat   = "multiwoz.chat"
)

// Event records one served request.
type Event struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	Source  string    `json:"source,omitempty"`
	Config  string    `json:"config,omitempty"`
	Split   string    `json:"split,omitempty"`
	Item    string    `json:"item,omitempty"`
	Keyword string    `json:"keyword,omitempty"`
	Results int       `json:"results"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

func NewEvent(kind string) Event {
	return Event{
		ID:   uuid.NewString(),
		Kind: kind,
		At:   time.Now().UTC(),
	}
}

func (e Event) Subject() string {
	return SubjectPrefix + e.Kind
}
