// Package mapping persists learned identifier-to-name facts across runs.
//
// The store is a small JSON file: phone_to_name holds individual lookups
// keyed by any of the phone variant forms, group_chats holds thread-level
// entries keyed by chat identifier. Load once per run, mutate in memory,
// save atomically at the end.
package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Napageneral/transcript/internal/phone"
)

const schemaVersion = 1

// GroupChat is the stored record for a group thread: the explicit display
// name from the source (may be empty), the raw participant identifiers, and
// a synthesized name built from resolved participants when no explicit name
// exists.
type GroupChat struct {
	DisplayName         string   `json:"display_name"`
	Participants        []string `json:"participants"`
	ResolvedDisplayName string   `json:"resolved_display_name,omitempty"`
}

// Store holds the learned mappings for one run.
type Store struct {
	Version     int                  `json:"version"`
	PhoneToName map[string]string    `json:"phone_to_name"`
	GroupChats  map[string]GroupChat `json:"group_chats"`
}

// New returns an empty store with the current schema version.
func New() *Store {
	return &Store{
		Version:     schemaVersion,
		PhoneToName: make(map[string]string),
		GroupChats:  make(map[string]GroupChat),
	}
}

// Load reads the store from path. A missing or unreadable file yields a
// fresh empty store, never an error: losing learned names degrades output
// quality but must not block an extraction.
func Load(path string) *Store {
	data, err := os.ReadFile(path)
	if err != nil {
		return New()
	}
	var s Store
	if err := json.Unmarshal(data, &s); err != nil {
		return New()
	}
	if s.Version == 0 {
		s.Version = schemaVersion
	}
	if s.PhoneToName == nil {
		s.PhoneToName = make(map[string]string)
	}
	if s.GroupChats == nil {
		s.GroupChats = make(map[string]GroupChat)
	}
	return &s
}

// Save writes the store atomically: marshal to a temp file in the same
// directory, then rename over the destination.
func (s *Store) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal mappings: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create mappings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".mappings-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp mappings file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write mappings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close mappings file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace mappings file: %w", err)
	}
	return nil
}

// LookupName probes phone_to_name with the raw identifier and then each
// generated variant. First hit wins.
func (s *Store) LookupName(identifier string) (string, bool) {
	for _, v := range phone.Variants(identifier) {
		if name, ok := s.PhoneToName[v]; ok && name != "" {
			return name, true
		}
	}
	return "", false
}

// LearnName records identifier -> name under every variant form so future
// probes hit regardless of which shape the source hands us. Newer writes
// override older ones.
func (s *Store) LearnName(identifier, name string) {
	if identifier == "" || name == "" {
		return
	}
	for _, v := range phone.Variants(identifier) {
		s.PhoneToName[v] = name
	}
}

// LookupGroup returns the stored entry for a group thread key.
func (s *Store) LookupGroup(chatKey string) (GroupChat, bool) {
	g, ok := s.GroupChats[chatKey]
	return g, ok
}

// SetGroup stores or replaces a group thread entry.
func (s *Store) SetGroup(chatKey string, g GroupChat) {
	s.GroupChats[chatKey] = g
}
