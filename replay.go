package jsonmerge

import (
	"encoding/json"
	"fmt"
)

// Replay applies patches to base one after another. The patches must already
// be in their agreed order; no transformation between them takes place. If
// any patch fails the whole replay fails with a *ReplayError.
func Replay(base Record, patches []Patch) (Record, error) {
	doc := base
	for i, patch := range patches {
		next, err := Apply(doc, patch)
		if err != nil {
			return Record{}, &ReplayError{Index: i, Err: err}
		}
		doc = next
	}
	return doc, nil
}

// LogEntry is one patch of an append-only edit log together with the
// sequence number its order authority assigned.
type LogEntry struct {
	Seq   uint64 `json:"seq"`
	Patch Patch  `json:"patch"`
}

// ReplayLog checks that entries carry strictly increasing sequence numbers
// and replays their patches over base.
func ReplayLog(base Record, entries []LogEntry) (Record, error) {
	patches := make([]Patch, len(entries))
	for i, e := range entries {
		if i > 0 && e.Seq <= entries[i-1].Seq {
			return Record{}, fmt.Errorf("%w: entry %d has seq %d after %d", ErrOutOfOrder, i, e.Seq, entries[i-1].Seq)
		}
		patches[i] = e.Patch
	}
	return Replay(base, patches)
}

// DecodeLog decodes the JSON form of an edit log, validating every operation
// as DecodePatch does.
func DecodeLog(data []byte) ([]LogEntry, error) {
	var entries []LogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPatch, err)
	}
	for i, e := range entries {
		for j, op := range e.Patch {
			if err := op.Validate(); err != nil {
				return nil, fmt.Errorf("%w: entry %d operation %d: %w", ErrMalformedPatch, i, j, err)
			}
		}
	}
	return entries, nil
}
