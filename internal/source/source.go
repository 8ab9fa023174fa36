// Package source classifies a raw dataset source string as a remote dataset
// id or a local file path.
package source

import (
	"os"
	"regexp"
	"strings"
)

// RemotePrefix marks a string as a remote dataset id regardless of shape.
const RemotePrefix = "hf://"

// Kind is the origin of a dataset source.
type Kind int

const (
	LocalFile Kind = iota
	RemoteDataset
)

func (k Kind) String() string {
	if k == RemoteDataset {
		return "remote"
	}
	return "local"
}

// Descriptor is a resolved source for one request.
type Descriptor struct {
	Kind     Kind
	Location string // dataset id without prefix, or file path
	Config   string
	Split    string
	// Indeterminate is set when no rule matched and the source defaulted to
	// a local path; opening it should report the source as unresolvable.
	Indeterminate bool
}

var remoteIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// Resolve classifies raw and normalizes it into a Descriptor.
func Resolve(raw, config, split string) Descriptor {
	kind, indeterminate := classify(raw)
	loc := strings.TrimSpace(raw)
	if kind == RemoteDataset {
		loc = NormalizeRemoteID(loc)
	}
	return Descriptor{
		Kind:          kind,
		Location:      loc,
		Config:        strings.TrimSpace(config),
		Split:         strings.TrimSpace(split),
		Indeterminate: indeterminate,
	}
}

// Classify applies the classification rules in order. It never fails:
// strings that match no rule are treated as local files.
func Classify(raw string) Kind {
	kind, _ := classify(raw)
	return kind
}

// NormalizeRemoteID strips the remote prefix and surrounding whitespace.
func NormalizeRemoteID(id string) string {
	return strings.TrimSpace(strings.Replace(id, RemotePrefix, "", 1))
}

func classify(raw string) (Kind, bool) {
	s := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(s, RemotePrefix):
		return RemoteDataset, false
	case strings.HasPrefix(s, "/"), strings.HasPrefix(s, "./"), strings.HasPrefix(s, "../"):
		return LocalFile, false
	case s != "" && exists(s):
		return LocalFile, false
	case remoteIDPattern.MatchString(s):
		return RemoteDataset, false
	}
	return LocalFile, true
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
