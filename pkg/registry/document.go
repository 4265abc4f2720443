package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
)

// DocumentStore persists the registry as one logical document.
// Implementations must make Save atomic: a reader never observes a partial document.
type DocumentStore interface {
	// Load returns the last saved document or ErrDocumentNotFound.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the stored document.
	Save(ctx context.Context, doc []byte) error
}

// document is the persisted shape: {"files": {"<id>": Record}, "retired": ["<id>", ...]}.
type document struct {
	Files   map[string]Record `json:"files"`
	Retired []string          `json:"retired,omitempty"`
}

// snapshot is an immutable committed registry state.
// Mutations build a new snapshot; published snapshots are never modified.
type snapshot struct {
	files      map[string]Record
	retired    []string // oldest first
	retiredSet map[string]struct{}
}

func emptySnapshot() *snapshot {
	return &snapshot{
		files:      map[string]Record{},
		retiredSet: map[string]struct{}{},
	}
}

// clone copies the file map. Retired tracking is shared until modified.
func (s *snapshot) clone() *snapshot {
	return &snapshot{
		files:      maps.Clone(s.files),
		retired:    s.retired,
		retiredSet: s.retiredSet,
	}
}

// retire marks ids as used forever, keeping at most limit entries (0 = no limit).
func (s *snapshot) retire(limit int, ids ...string) {
	if len(ids) == 0 {
		return
	}
	retired := make([]string, 0, len(s.retired)+len(ids))
	retired = append(retired, s.retired...)
	retired = append(retired, ids...)
	if limit > 0 && len(retired) > limit {
		retired = retired[len(retired)-limit:]
	}

	set := make(map[string]struct{}, len(retired))
	for _, id := range retired {
		set[id] = struct{}{}
	}
	s.retired = retired
	s.retiredSet = set
}

func (s *snapshot) used(id string) bool {
	if _, ok := s.files[id]; ok {
		return true
	}
	_, ok := s.retiredSet[id]
	return ok
}

func (s *snapshot) encode() ([]byte, error) {
	return json.Marshal(document{Files: s.files, Retired: s.retired})
}

func decodeSnapshot(data []byte) (*snapshot, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}

	snap := emptySnapshot()
	for key, rec := range doc.Files {
		if rec.ID == "" {
			rec.ID = key
		}
		if rec.ID != key {
			return nil, fmt.Errorf("%w: record %q stored under key %q", ErrCorruptDocument, rec.ID, key)
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
		}
		snap.files[key] = rec
	}
	snap.retire(0, doc.Retired...)

	return snap, nil
}
