package conversation

import (
	"strings"

	"github.com/MikeSquared-Agency/chatlens/internal/record"
	"github.com/MikeSquared-Agency/chatlens/internal/schema"
)

// MaxDumpRunes bounds the opaque rendering of records with no known shape.
const MaxDumpRunes = 2000

// strategy converts a record, or reports that it does not apply.
type strategy func(rec record.Record) ([]TurnPair, bool)

// Normalize converts rec using a hint detected from rec itself.
func Normalize(rec record.Record) []TurnPair {
	return NormalizeWithHint(rec, schema.Detect(rec))
}

// NormalizeWithHint converts rec into turn pairs. Session-keyed records are
// tried first; otherwise hint decides. It never fails: records with no usable
// shape come back as one pair holding their JSON dump.
func NormalizeWithHint(rec record.Record, hint schema.Hint) []TurnPair {
	strategies := []strategy{
		sessionStrategy,
		hintedStrategy(hint),
	}
	for _, s := range strategies {
		if pairs, ok := s(rec); ok {
			return pairs
		}
	}
	return opaque(rec)
}

func sessionStrategy(rec record.Record) ([]TurnPair, bool) {
	hint := schema.DetectSessions(rec)
	if hint.Kind != schema.SessionDialogues {
		return nil, false
	}
	pairs := sessionPairs(rec, hint.SessionKeys)
	return pairs, hasContent(pairs)
}

func hintedStrategy(hint schema.Hint) strategy {
	return func(rec record.Record) ([]TurnPair, bool) {
		switch hint.Kind {
		case schema.Container:
			v, _ := rec.Get(hint.Key)
			return containerPairs(v), true
		case schema.PromptResponse:
			p, _ := rec.Get(hint.PromptKey)
			r, _ := rec.Get(hint.ResponseKey)
			return []TurnPair{{User: record.Text(p), Assistant: record.Text(r)}}, true
		case schema.SessionDialogues:
			if pairs := sessionPairs(rec, hint.SessionKeys); hasContent(pairs) {
				return pairs, true
			}
			return opaque(rec), true
		default:
			return opaque(rec), true
		}
	}
}

// sessionPairs concatenates the sessions named by keys into one dialogue.
// Turns by the main speaker go on the user side; with no main speaker every
// turn is an assistant turn.
func sessionPairs(rec record.Record, keys []string) []TurnPair {
	main, hasMain := mainSpeaker(rec)
	pairs := []TurnPair{}
	for _, k := range keys {
		v, _ := rec.Get(k)
		for _, t := range sessionTurns(v) {
			side := Assistant
			if hasMain && t.Speaker == main {
				side = User
			}
			pairs = Append(pairs, side, t.Text)
		}
	}
	return pairs
}

func mainSpeaker(rec record.Record) (string, bool) {
	if v, ok := rec.Get("main_speaker"); ok && truthy(v) {
		return record.Text(v), true
	}
	if v, ok := rec.Get("speaker_list"); ok {
		if list, ok := v.([]any); ok && len(list) > 0 && truthy(list[0]) {
			return record.Text(list[0]), true
		}
	}
	return "", false
}

// sessionTurns reads one session in either the paired-lists encoding
// [[speakers...], [utterances...]] or as a list of message objects. Any
// other shape yields no turns.
func sessionTurns(v any) []Turn {
	list, ok := v.([]any)
	if !ok {
		return nil
	}

	if len(list) == 2 {
		speakers, okS := list[0].([]any)
		utterances, okU := list[1].([]any)
		if okS && okU {
			n := min(len(speakers), len(utterances))
			turns := make([]Turn, 0, n)
			for i := 0; i < n; i++ {
				turns = append(turns, Turn{
					Speaker: record.Text(speakers[i]),
					Text:    record.Text(utterances[i]),
				})
			}
			return turns
		}
	}

	turns := make([]Turn, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(record.Record)
		if !ok {
			return nil
		}
		turns = append(turns, Turn{
			Speaker: firstText(m, "speaker", "role", "from"),
			Text:    firstText(m, "text", "content", "value"),
		})
	}
	return turns
}

func containerPairs(v any) []TurnPair {
	list, _ := v.([]any)
	pairs := []TurnPair{}
	for _, entry := range list {
		m, ok := entry.(record.Record)
		if !ok {
			pairs = Append(pairs, User, record.Text(entry))
			continue
		}
		role := strings.ToLower(firstText(m, "role", "from", "speaker"))
		content := firstText(m, "content", "value", "text", "utterance")
		pairs = Append(pairs, roleSide(role), content)
	}
	return pairs
}

// roleSide maps a lower-cased role. Unrecognized roles count as user turns
// so the dialogue keeps advancing.
func roleSide(role string) Side {
	switch role {
	case "assistant", "system", "gpt", "bot":
		return Assistant
	default:
		return User
	}
}

func opaque(rec record.Record) []TurnPair {
	return []TurnPair{{User: truncateRunes(record.Dump(rec), MaxDumpRunes)}}
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func hasContent(pairs []TurnPair) bool {
	for _, p := range pairs {
		if p.User != "" || p.Assistant != "" {
			return true
		}
	}
	return false
}

// firstText returns the first truthy value among keys, rendered as text.
func firstText(m record.Record, keys ...string) string {
	for _, k := range keys {
		if v, _ := m.Get(k); truthy(v) {
			return record.Text(v)
		}
	}
	return ""
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case int64:
		return t != 0
	case int:
		return t != 0
	case []any:
		return len(t) > 0
	case record.Record:
		return t.Len() > 0
	}
	return true
}
