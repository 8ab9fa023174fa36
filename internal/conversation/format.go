package conversation

import "strings"

// UnknownID stands in for dialogues that carry no id.
const UnknownID = "<unknown>"

// FormatTranscript renders pairs as a User:/Assistant: transcript. Empty
// sides are left out.
func FormatTranscript(pairs []TurnPair) string {
	var sb strings.Builder
	for _, p := range pairs {
		if p.User != "" {
			sb.WriteString("User: ")
			sb.WriteString(p.User)
			sb.WriteString("\n\n")
		}
		if p.Assistant != "" {
			sb.WriteString("Assistant: ")
			sb.WriteString(p.Assistant)
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

// Markdown renders a dialogue as a heading, its services when there are
// any, and one bold speaker line per turn.
func (d Dialogue) Markdown() string {
	id := d.ID
	if id == "" {
		id = UnknownID
	}
	lines := []string{"### " + id}
	if len(d.Services) > 0 {
		lines = append(lines, "Services: "+strings.Join(d.Services, ", "))
	}
	lines = append(lines, "")
	for _, t := range d.Turns {
		speaker := t.Speaker
		if speaker == "" {
			speaker = "?"
		}
		lines = append(lines, "**"+speaker+"**: "+t.Text)
	}
	return strings.Join(lines, "\n")
}

// Utterances joins the text of every turn, one per line.
func (d Dialogue) Utterances() string {
	parts := make([]string, len(d.Turns))
	for i, t := range d.Turns {
		parts[i] = t.Text
	}
	return strings.Join(parts, "\n")
}

// HasService reports whether name is one of the dialogue's services,
// ignoring case.
func (d Dialogue) HasService(name string) bool {
	for _, s := range d.Services {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}
