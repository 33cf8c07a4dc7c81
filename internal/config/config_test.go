package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.DBPath != "./data/edupath.db" {
		t.Errorf("Expected default db path, got %s", cfg.DBPath)
	}
	if cfg.RetrievalURL != "" {
		t.Errorf("Expected retrieval disabled by default, got %s", cfg.RetrievalURL)
	}
	if cfg.RetrievalTimeout != 5*time.Second {
		t.Errorf("Expected default retrieval timeout 5s, got %s", cfg.RetrievalTimeout)
	}
	if cfg.EventLog.Enabled {
		t.Error("Expected event log disabled by default")
	}
	if cfg.EventLog.QueueSize != 1000 {
		t.Errorf("Expected default queue size 1000, got %d", cfg.EventLog.QueueSize)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RETRIEVAL_URL", "http://rag:8181")
	t.Setenv("RETRIEVAL_TIMEOUT", "2s")
	t.Setenv("EVENT_LOG_ENABLED", "true")
	t.Setenv("EVENT_LOG_PATH", "/tmp/events.ndjson")
	t.Setenv("EVENT_LOG_QUEUE_SIZE", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
	if cfg.RetrievalURL != "http://rag:8181" {
		t.Errorf("Expected retrieval url, got %s", cfg.RetrievalURL)
	}
	if cfg.RetrievalTimeout != 2*time.Second {
		t.Errorf("Expected retrieval timeout 2s, got %s", cfg.RetrievalTimeout)
	}
	if !cfg.EventLog.Enabled {
		t.Error("Expected event log enabled")
	}
	if cfg.EventLog.QueueSize != 50 {
		t.Errorf("Expected queue size 50, got %d", cfg.EventLog.QueueSize)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("RETRIEVAL_TIMEOUT", "soon")
	t.Setenv("EVENT_LOG_QUEUE_SIZE", "lots")
	t.Setenv("EVENT_LOG_ENABLED", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.RetrievalTimeout != 5*time.Second {
		t.Errorf("Expected fallback timeout 5s, got %s", cfg.RetrievalTimeout)
	}
	if cfg.EventLog.QueueSize != 1000 {
		t.Errorf("Expected fallback queue size 1000, got %d", cfg.EventLog.QueueSize)
	}
	if cfg.EventLog.Enabled {
		t.Error("Expected fallback event log disabled")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"empty port", func(c *Config) { c.Port = "" }, true},
		{"empty db path", func(c *Config) { c.DBPath = "" }, true},
		{"zero retrieval timeout", func(c *Config) { c.RetrievalTimeout = 0 }, true},
		{"event log enabled without path", func(c *Config) {
			c.EventLog.Enabled = true
			c.EventLog.Path = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Port:             "8080",
				DBPath:           "./data/edupath.db",
				RetrievalTimeout: 5 * time.Second,
				EventLog:         EventLogConfig{Path: "./x.ndjson", QueueSize: 10},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		frontendURL string
		want        bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:3000", true},
		{"https://edupath.example.com", false},
	}

	for _, tt := range tests {
		cfg := &Config{FrontendURL: tt.frontendURL}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment(%q) = %v, want %v", tt.frontendURL, got, tt.want)
		}
	}
}
