// Package schema infers how a record encodes its conversation.
package schema

import (
	"sort"
	"strings"

	"github.com/MikeSquared-Agency/chatlens/internal/record"
)

// Kind tags the variant carried by a Hint.
type Kind int

const (
	Unknown          Kind = iota
	Container             // one field holds a list of turn-like entries
	PromptResponse        // two scalar fields form one turn pair
	SessionDialogues      // several fields, each one session, concatenated in rank order
)

func (k Kind) String() string {
	switch k {
	case Container:
		return "container"
	case PromptResponse:
		return "prompt_response"
	case SessionDialogues:
		return "session_dialogues"
	default:
		return "unknown"
	}
}

// Hint describes where the conversation lives in a record. Only the fields
// belonging to Kind are set.
type Hint struct {
	Kind        Kind
	Key         string   // Container
	PromptKey   string   // PromptResponse
	ResponseKey string   // PromptResponse
	SessionKeys []string // SessionDialogues, in rank order
}

// ContainerKeys are the list-valued field names recognized as message
// containers, in priority order.
var ContainerKeys = []string{
	"messages",
	"conversations",
	"conversation",
	"dialogue",
	"dialog",
	"turns",
	"utterances",
	"sessions",
}

const (
	promptKey   = "prompt"
	responseKey = "response"
)

// Detect inspects one sample record. The first matching rule wins.
func Detect(sample record.Record) Hint {
	for _, k := range ContainerKeys {
		if v, ok := sample.Get(k); ok && isList(v) {
			return Hint{Kind: Container, Key: k}
		}
	}
	if sample.Has(promptKey) && sample.Has(responseKey) {
		return Hint{Kind: PromptResponse, PromptKey: promptKey, ResponseKey: responseKey}
	}
	return Hint{Kind: Unknown}
}

var sessionRanks = []string{"first", "second", "third", "fourth", "fifth", "sixth"}

const unrankedSession = 999

// DetectSessions collects the list-valued fields whose name contains
// "dialogue", ordered by the ordinal word in the name and then by name.
func DetectSessions(rec record.Record) Hint {
	var keys []string
	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		if isList(v) && strings.Contains(strings.ToLower(k), "dialogue") {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return Hint{Kind: Unknown}
	}

	sort.SliceStable(keys, func(i, j int) bool {
		ri, rj := sessionRank(keys[i]), sessionRank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	return Hint{Kind: SessionDialogues, SessionKeys: keys}
}

func sessionRank(key string) int {
	lower := strings.ToLower(key)
	for i, word := range sessionRanks {
		if strings.Contains(lower, word) {
			return i + 1
		}
	}
	return unrankedSession
}

func isList(v any) bool {
	_, ok := v.([]any)
	return ok
}
