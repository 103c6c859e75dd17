package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TRANSCRIPT_CONFIG_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MessageLimit != 500000 {
		t.Errorf("MessageLimit = %d", cfg.MessageLimit)
	}
	if cfg.UpdateLimit != 10000 {
		t.Errorf("UpdateLimit = %d", cfg.UpdateLimit)
	}
	if cfg.Oracle.TimeoutSeconds != 5 || cfg.Oracle.SweepLimit != 100 || cfg.Oracle.Workers != 4 {
		t.Errorf("oracle defaults = %+v", cfg.Oracle)
	}
	if cfg.Watch.DebounceSeconds != 2 {
		t.Errorf("watch defaults = %+v", cfg.Watch)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("TRANSCRIPT_CONFIG_DIR", t.TempDir())

	cfg := (&Config{
		ChatDBPath:   "/tmp/chat.db",
		MessageLimit: 1000,
		Oracle:       OracleConfig{Enabled: true, Workers: 8},
	}).withDefaults()
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ChatDBPath != "/tmp/chat.db" || loaded.MessageLimit != 1000 {
		t.Errorf("round trip mangled: %+v", loaded)
	}
	if !loaded.Oracle.Enabled || loaded.Oracle.Workers != 8 {
		t.Errorf("oracle round trip mangled: %+v", loaded.Oracle)
	}
}

func TestDataPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRANSCRIPT_DATA_DIR", dir)

	ds, err := DatasetPath()
	if err != nil {
		t.Fatalf("DatasetPath: %v", err)
	}
	if ds != filepath.Join(dir, "transcript_data.json") {
		t.Errorf("DatasetPath = %q", ds)
	}

	mp, err := MappingsPath()
	if err != nil {
		t.Fatalf("MappingsPath: %v", err)
	}
	if mp != filepath.Join(dir, "contact_mappings.json") {
		t.Errorf("MappingsPath = %q", mp)
	}
}
