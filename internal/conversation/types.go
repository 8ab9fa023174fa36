// Package conversation turns dataset records into ordered user/assistant
// turn pairs for chat rendering.
package conversation

// Side is the half of a turn pair an utterance belongs to.
type Side int

const (
	User Side = iota
	Assistant
)

func (s Side) String() string {
	if s == Assistant {
		return "assistant"
	}
	return "user"
}

// Turn is one utterance by one speaker, as found in the source record.
type Turn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// TurnPair is one rendered exchange. An empty side has not arrived yet.
type TurnPair struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// Utterance is a turn whose side has already been decided.
type Utterance struct {
	Side Side
	Text string
}

// Dialogue is a MultiWOZ-style conversation with its service domains.
type Dialogue struct {
	ID       string   `json:"dialogue_id"`
	Services []string `json:"services"`
	Turns    []Turn   `json:"turns"`
}
