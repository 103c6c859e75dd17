package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	d := &Dataset{
		Contacts: []Contact{
			{ID: 42, CanonicalKey: "+15551234567", Name: "Alice", Phone: "+15551234567", MessageCount: 1},
		},
		Messages: []Message{
			{ID: 1, ContactID: 42, Content: "hi", Date: "2024-03-01 09:15:00", IsFromMe: true},
		},
	}
	if err := d.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Contacts) != 1 || loaded.Contacts[0].Name != "Alice" {
		t.Errorf("contacts mangled: %+v", loaded.Contacts)
	}
	if len(loaded.Messages) != 1 || loaded.Messages[0].Content != "hi" {
		t.Errorf("messages mangled: %+v", loaded.Messages)
	}
}

func TestSaveBacksUpExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	d := &Dataset{}
	if err := d.Save(path); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := d.Save(path); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	foundBackup := false
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "data_backup_") {
			foundBackup = true
		}
	}
	if !foundBackup {
		t.Error("expected a backup file after overwriting an existing snapshot")
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing snapshot")
	}
}

func TestSortContacts(t *testing.T) {
	d := &Dataset{
		Contacts: []Contact{
			{CanonicalKey: "b", MessageCount: 1},
			{CanonicalKey: "a", MessageCount: 5},
			{CanonicalKey: "c", MessageCount: 3},
		},
	}
	d.SortContacts()
	if d.Contacts[0].CanonicalKey != "a" || d.Contacts[1].CanonicalKey != "c" || d.Contacts[2].CanonicalKey != "b" {
		t.Errorf("unexpected order: %+v", d.Contacts)
	}
}

func TestLatestMessageDate(t *testing.T) {
	d := &Dataset{
		Messages: []Message{
			{Date: "2024-01-01 10:00:00"},
			{Date: "2024-06-15 08:00:00"},
			{Date: "2023-12-31 23:59:59"},
		},
	}
	if got := d.LatestMessageDate(); got != "2024-06-15 08:00:00" {
		t.Errorf("LatestMessageDate = %q", got)
	}

	empty := &Dataset{}
	if got := empty.LatestMessageDate(); got != "" {
		t.Errorf("expected empty for no messages, got %q", got)
	}
}
