// Package dataset defines the persisted extraction snapshot: contacts,
// messages, images, statistics. One snapshot per run; incremental runs merge
// into the previous one.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Message is one extracted message. Immutable once created; the ID is the
// source store's ROWID and is globally unique, which makes it the dedup key
// for merges.
type Message struct {
	ID        int64  `json:"id"`
	ContactID int64  `json:"contactId"`
	Content   string `json:"content"`
	Date      string `json:"date"`
	IsFromMe  bool   `json:"isFromMe"`
}

// Contact is one conversation thread, individual or group. ID is derived
// from CanonicalKey (see assemble.ContactID) so it is stable across runs;
// CanonicalKey is the source store's thread or handle identifier and the
// true join key.
type Contact struct {
	ID           int64    `json:"id"`
	CanonicalKey string   `json:"canonicalKey"`
	Name         string   `json:"name"`
	Phone        string   `json:"phone"`
	MessageCount int      `json:"messageCount"`
	IsGroupChat  bool     `json:"isGroupChat"`
	DisplayName  string   `json:"displayName,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

// Statistics summarizes a message set. Recomputed from scratch after every
// assembly or merge, never carried over.
type Statistics struct {
	TotalMessages      int       `json:"totalMessages"`
	MessagesSent       int       `json:"messagesSent"`
	MessagesReceived   int       `json:"messagesReceived"`
	UniqueContacts     int       `json:"uniqueContacts"`
	AvgMessageLength   float64   `json:"avgMessageLength"`
	DateRange          DateRange `json:"dateRange"`
	HourlyDistribution [24]int   `json:"hourlyDistribution"`
	TotalImages        int       `json:"totalImages,omitempty"`
}

// DateRange holds min/max timestamps as ISO-8601 strings. The strings
// compare lexicographically, so min/max over them is a plain string compare.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Dataset is the unit of persistence. Images are produced by the external
// attachment pipeline; the core path carries them through merges untouched.
type Dataset struct {
	Contacts   []Contact         `json:"contacts"`
	Messages   []Message         `json:"messages"`
	Images     []json.RawMessage `json:"images"`
	Statistics Statistics        `json:"statistics"`
}

// SortContacts orders contacts by message count descending, the invariant
// expected after every assembly or merge. Ties break on canonical key so
// the order is deterministic.
func (d *Dataset) SortContacts() {
	sort.SliceStable(d.Contacts, func(i, j int) bool {
		if d.Contacts[i].MessageCount != d.Contacts[j].MessageCount {
			return d.Contacts[i].MessageCount > d.Contacts[j].MessageCount
		}
		return d.Contacts[i].CanonicalKey < d.Contacts[j].CanonicalKey
	})
}

// LatestMessageDate returns the maximum message date, or "" when there are
// no dated messages. Used as the since-filter for incremental runs.
func (d *Dataset) LatestMessageDate() string {
	latest := ""
	for _, m := range d.Messages {
		if m.Date > latest {
			latest = m.Date
		}
	}
	return latest
}

// Load reads a snapshot from path.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	var d Dataset
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	return &d, nil
}

// Save writes the snapshot atomically, preserving any existing file as a
// timestamped backup alongside it first.
func (d *Dataset) Save(path string) error {
	if _, err := os.Stat(path); err == nil {
		backup := backupPath(path, time.Now())
		if data, err := os.ReadFile(path); err == nil {
			_ = os.WriteFile(backup, data, 0644)
		}
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".dataset-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp dataset file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close dataset file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace dataset file: %w", err)
	}
	return nil
}

func backupPath(path string, now time.Time) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	return filepath.Join(dir, fmt.Sprintf("%s_backup_%d%s", stem, now.Unix(), ext))
}
