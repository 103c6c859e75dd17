package mapping

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "nope.json"))
	if s == nil {
		t.Fatal("expected a store")
	}
	if s.Version != 1 {
		t.Errorf("expected version 1, got %d", s.Version)
	}
	if len(s.PhoneToName) != 0 || len(s.GroupChats) != 0 {
		t.Error("expected empty maps")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := Load(path)
	if len(s.PhoneToName) != 0 {
		t.Error("corrupt file should yield a fresh store")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.json")

	s := New()
	s.LearnName("+1 (555) 123-4567", "Alice")
	s.SetGroup("chat123", GroupChat{
		DisplayName:  "Family",
		Participants: []string{"+15551234567", "+15559876543"},
	})

	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := Load(path)
	if name, ok := loaded.LookupName("5551234567"); !ok || name != "Alice" {
		t.Errorf("LookupName after reload = %q, %v", name, ok)
	}
	g, ok := loaded.LookupGroup("chat123")
	if !ok {
		t.Fatal("expected group entry after reload")
	}
	if g.DisplayName != "Family" || len(g.Participants) != 2 {
		t.Errorf("group entry mangled: %+v", g)
	}
}

func TestLearnNameWritesAllVariants(t *testing.T) {
	s := New()
	s.LearnName("+1 (555) 123-4567", "Alice")

	for _, key := range []string{"+1 (555) 123-4567", "15551234567", "+15551234567", "5551234567"} {
		if s.PhoneToName[key] != "Alice" {
			t.Errorf("variant %q not learned", key)
		}
	}
}

func TestLookupNameVariantMatch(t *testing.T) {
	s := New()
	s.PhoneToName["5551234567"] = "Alice"

	// Raw form differs from the stored variant; the probe chain must find it.
	if name, ok := s.LookupName("+15551234567"); !ok || name != "Alice" {
		t.Errorf("LookupName = %q, %v; expected variant match", name, ok)
	}
}

func TestLookupNameUnresolved(t *testing.T) {
	s := New()
	if _, ok := s.LookupName("+15550000000"); ok {
		t.Error("expected unresolved for unknown identifier")
	}
}

func TestLastWriteWins(t *testing.T) {
	s := New()
	s.LearnName("5551234567", "Old Name")
	s.LearnName("+15551234567", "New Name")

	if name, _ := s.LookupName("5551234567"); name != "New Name" {
		t.Errorf("expected newer write to override, got %q", name)
	}
}
