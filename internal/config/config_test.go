package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(lookupFrom(nil), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr=%q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.Mode != ModeDev {
		t.Errorf("Mode=%q, want %q", cfg.Mode, ModeDev)
	}
	if cfg.LogFormat != LogFormatText {
		t.Errorf("LogFormat=%q, want %q", cfg.LogFormat, LogFormatText)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel=%v, want %v", cfg.LogLevel, slog.LevelDebug)
	}
	if cfg.ShutdownTimeout != DefaultShutdown {
		t.Errorf("ShutdownTimeout=%v, want %v", cfg.ShutdownTimeout, DefaultShutdown)
	}
	if cfg.MaxMessageBytes != DefaultMaxMessageBytes {
		t.Errorf("MaxMessageBytes=%d, want %d", cfg.MaxMessageBytes, DefaultMaxMessageBytes)
	}
	if cfg.MaxMessagesPerSecond != DefaultMaxMessagesPerSecond {
		t.Errorf("MaxMessagesPerSecond=%d, want %d", cfg.MaxMessagesPerSecond, DefaultMaxMessagesPerSecond)
	}
	if cfg.AllowedOrigins != nil {
		t.Errorf("AllowedOrigins=%v, want nil", cfg.AllowedOrigins)
	}
}

func TestLoad_ProdModeSwitchesLogDefaults(t *testing.T) {
	env := map[string]string{
		"WAVECALL_SIGNAL_RELAY_MODE": "prod",
	}
	cfg, err := load(lookupFrom(env), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogFormat != LogFormatJSON {
		t.Errorf("LogFormat=%q, want %q", cfg.LogFormat, LogFormatJSON)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel=%v, want %v", cfg.LogLevel, slog.LevelInfo)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	env := map[string]string{
		"WAVECALL_SIGNAL_RELAY_LISTEN_ADDR":      "0.0.0.0:9000",
		"WAVECALL_SIGNAL_RELAY_SHUTDOWN_TIMEOUT": "3s",
		"ALLOWED_ORIGINS":                        "https://app.example.com, https://other.example.com",
		"SIGNALING_WS_IDLE_TIMEOUT":              "90s",
		"SIGNALING_WS_PING_INTERVAL":             "15s",
		"MAX_SIGNALING_MESSAGE_BYTES":            "1024",
		"MAX_SIGNALING_MESSAGES_PER_SECOND":      "10",
	}
	cfg, err := load(lookupFrom(env), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Errorf("ListenAddr=%q", cfg.ListenAddr)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("ShutdownTimeout=%v", cfg.ShutdownTimeout)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://app.example.com" {
		t.Errorf("AllowedOrigins=%v", cfg.AllowedOrigins)
	}
	if cfg.WSIdleTimeout != 90*time.Second {
		t.Errorf("WSIdleTimeout=%v", cfg.WSIdleTimeout)
	}
	if cfg.WSPingInterval != 15*time.Second {
		t.Errorf("WSPingInterval=%v", cfg.WSPingInterval)
	}
	if cfg.MaxMessageBytes != 1024 {
		t.Errorf("MaxMessageBytes=%d", cfg.MaxMessageBytes)
	}
	if cfg.MaxMessagesPerSecond != 10 {
		t.Errorf("MaxMessagesPerSecond=%d", cfg.MaxMessagesPerSecond)
	}
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	env := map[string]string{
		"WAVECALL_SIGNAL_RELAY_LISTEN_ADDR": "127.0.0.1:7000",
	}
	cfg, err := load(lookupFrom(env), []string{"-listen-addr", "127.0.0.1:7001", "-mode", "prod"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:7001" {
		t.Errorf("ListenAddr=%q, want flag value", cfg.ListenAddr)
	}
	if cfg.Mode != ModeProd {
		t.Errorf("Mode=%q, want %q", cfg.Mode, ModeProd)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad mode", map[string]string{"WAVECALL_SIGNAL_RELAY_MODE": "staging"}},
		{"bad log format", map[string]string{"WAVECALL_SIGNAL_RELAY_LOG_FORMAT": "xml"}},
		{"bad log level", map[string]string{"WAVECALL_SIGNAL_RELAY_LOG_LEVEL": "loud"}},
		{"bad duration", map[string]string{"WAVECALL_SIGNAL_RELAY_SHUTDOWN_TIMEOUT": "soon"}},
		{"bad int", map[string]string{"MAX_SIGNALING_MESSAGES_PER_SECOND": "many"}},
		{"non-positive message bytes", map[string]string{"MAX_SIGNALING_MESSAGE_BYTES": "0"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := load(lookupFrom(tc.env), nil); err == nil {
				t.Fatalf("load succeeded, want error")
			}
		})
	}
}

func TestNewLogger_RejectsUnknownFormat(t *testing.T) {
	_, err := NewLogger(Config{LogFormat: "yaml"})
	if err == nil || !strings.Contains(err.Error(), "unsupported log format") {
		t.Fatalf("err=%v, want unsupported log format", err)
	}
}
