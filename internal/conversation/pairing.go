package conversation

import "strings"

// Append folds one utterance into pairs and returns the new sequence.
//
// A user utterance always opens a new pair. An assistant utterance fills the
// last pair when its assistant side is still empty, otherwise it opens a new
// pair with an empty user side. The slice passed in is never written to.
func Append(pairs []TurnPair, side Side, text string) []TurnPair {
	n := len(pairs)
	if side == Assistant && n > 0 && pairs[n-1].Assistant == "" {
		last := pairs[n-1]
		last.Assistant = text
		return append(pairs[:n-1:n-1], last)
	}

	next := TurnPair{User: text}
	if side == Assistant {
		next = TurnPair{Assistant: text}
	}
	return append(pairs[:n:n], next)
}

// Fold pairs a whole utterance sequence.
func Fold(utterances []Utterance) []TurnPair {
	pairs := []TurnPair{}
	for _, u := range utterances {
		pairs = Append(pairs, u.Side, u.Text)
	}
	return pairs
}

// PairMultiWOZ pairs turns labelled USER / SYSTEM (case-insensitive). A
// trailing user turn is kept with an empty assistant side; turns by any other
// speaker are shown as standalone assistant bubbles.
func PairMultiWOZ(turns []Turn) []TurnPair {
	pairs := []TurnPair{}
	for _, t := range turns {
		switch strings.ToUpper(t.Speaker) {
		case "USER":
			pairs = Append(pairs, User, t.Text)
		case "SYSTEM":
			pairs = Append(pairs, Assistant, t.Text)
		default:
			pairs = append(pairs[:len(pairs):len(pairs)], TurnPair{Assistant: t.Text})
		}
	}
	return pairs
}
