package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Backend.BaseURL != "http://localhost:8080" {
		t.Fatalf("unexpected backend url: %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TranscribePath != "/transcribe" || cfg.Backend.ConvertPath != "/convert" || cfg.Backend.ExecutePath != "/execute" {
		t.Fatalf("unexpected backend paths: %+v", cfg.Backend)
	}
	if cfg.Backend.Timeout != time.Minute {
		t.Fatalf("unexpected timeout: %s", cfg.Backend.Timeout)
	}
	if cfg.Transcriber != TranscriberBackend {
		t.Fatalf("unexpected transcriber: %q", cfg.Transcriber)
	}
	if cfg.Rules.Path != filepath.Join(home, ".config", "voxquery", "rules.yaml") {
		t.Fatalf("unexpected rules path: %q", cfg.Rules.Path)
	}
	if cfg.Log.Level != "info" || !strings.HasPrefix(cfg.Log.File, home) {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
}

func TestLoadRespectsOverrides(t *testing.T) {
	home := t.TempDir()
	rules := filepath.Join(home, "my.yaml")

	t.Setenv("HOME", home)
	t.Setenv("VOXQUERY_BACKEND_URL", "https://query.example.com/api/")
	t.Setenv("VOXQUERY_TRANSCRIBE_PATH", "/v2/transcribe")
	t.Setenv("VOXQUERY_HTTP_TIMEOUT_MS", "1500")
	t.Setenv("VOXQUERY_TRANSCRIBER", "Deepgram")
	t.Setenv("DEEPGRAM_API_KEY", "test-key")
	t.Setenv("DEEPGRAM_API_BASE", "https://example.com/v1")
	t.Setenv("DEEPGRAM_MODEL", "nova-3")
	t.Setenv("DEEPGRAM_LANGUAGE", "en")
	t.Setenv("DEEPGRAM_SMART_FORMAT", "false")
	t.Setenv("VOXQUERY_FFMPEG_COMMAND", "my-ffmpeg")
	t.Setenv("VOXQUERY_AUDIO_INPUT_FORMAT", "alsa")
	t.Setenv("VOXQUERY_AUDIO_INPUT_DEVICE", "mic0")
	t.Setenv("VOXQUERY_SAMPLE_RATE", "22050")
	t.Setenv("VOXQUERY_CHANNELS", "2")
	t.Setenv("VOXQUERY_AUDIO_CHUNK_SIZE", "512")
	t.Setenv("VOXQUERY_RULES_FILE", rules)
	t.Setenv("VOXQUERY_RULE_ITERATION_LIMIT", "42")
	t.Setenv("VOXQUERY_LOG_LEVEL", "DEBUG")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Backend.BaseURL != "https://query.example.com/api" || cfg.Backend.TranscribePath != "/v2/transcribe" {
		t.Fatalf("unexpected backend config: %+v", cfg.Backend)
	}
	if cfg.Backend.Timeout != 1500*time.Millisecond {
		t.Fatalf("unexpected timeout: %s", cfg.Backend.Timeout)
	}
	if cfg.Transcriber != TranscriberDeepgram {
		t.Fatalf("unexpected transcriber: %q", cfg.Transcriber)
	}
	if cfg.Deepgram.APIKey != "test-key" || cfg.Deepgram.APIBaseURL != "https://example.com/v1" {
		t.Fatalf("unexpected deepgram config: %+v", cfg.Deepgram)
	}
	if cfg.Deepgram.Model != "nova-3" || cfg.Deepgram.Language != "en" || cfg.Deepgram.SmartFormat {
		t.Fatalf("unexpected deepgram model/language/smart format: %+v", cfg.Deepgram)
	}
	if cfg.Audio.RecorderCommand != "my-ffmpeg" || cfg.Audio.InputFormat != "alsa" || cfg.Audio.InputDevice != "mic0" {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	if cfg.Audio.SampleRate != 22050 || cfg.Audio.Channels != 2 || cfg.Audio.ChunkSize != 512 {
		t.Fatalf("unexpected sample/channels/chunk: %+v", cfg.Audio)
	}
	if cfg.Rules.Path != rules || cfg.Rules.IterationLimit != 42 {
		t.Fatalf("unexpected rules config: %+v", cfg.Rules)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.Log.Level)
	}
}

func TestLoadUnparseableNumbersFallBack(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VOXQUERY_SAMPLE_RATE", "bad")
	t.Setenv("VOXQUERY_RULE_ITERATION_LIMIT", "many")
	t.Setenv("DEEPGRAM_SMART_FORMAT", "not-bool")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Fatalf("expected default sample rate, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Rules.IterationLimit != 30 {
		t.Fatalf("expected default iteration limit, got %d", cfg.Rules.IterationLimit)
	}
	if !cfg.Deepgram.SmartFormat {
		t.Fatalf("expected default smart format true")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"relative backend url", map[string]string{"VOXQUERY_BACKEND_URL": "localhost"}, "VOXQUERY_BACKEND_URL"},
		{"unknown transcriber", map[string]string{"VOXQUERY_TRANSCRIBER": "whisper"}, "VOXQUERY_TRANSCRIBER"},
		{"path without slash", map[string]string{"VOXQUERY_CONVERT_PATH": "convert"}, "VOXQUERY_CONVERT_PATH"},
		{"tiny chunk", map[string]string{"VOXQUERY_AUDIO_CHUNK_SIZE": "5"}, "VOXQUERY_AUDIO_CHUNK_SIZE"},
		{"negative channels", map[string]string{"VOXQUERY_CHANNELS": "-1"}, "VOXQUERY_CHANNELS"},
		{"zero timeout", map[string]string{"VOXQUERY_HTTP_TIMEOUT_MS": "0"}, "VOXQUERY_HTTP_TIMEOUT_MS"},
		{"unknown log level", map[string]string{"VOXQUERY_LOG_LEVEL": "loud"}, "VOXQUERY_LOG_LEVEL"},
		{"deepgram without key", map[string]string{"VOXQUERY_TRANSCRIBER": "deepgram", "DEEPGRAM_API_KEY": ""}, "DEEPGRAM_API_KEY"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			for key, value := range tc.env {
				t.Setenv(key, value)
			}

			_, err := Load("")
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %s in error, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	home := t.TempDir()
	envFile := filepath.Join(home, "voxquery.env")
	contents := "VOXQUERY_BACKEND_URL=http://10.0.0.5:9000\nVOXQUERY_LOG_LEVEL=warn\n"
	if err := os.WriteFile(envFile, []byte(contents), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("HOME", home)
	// Registered so the values godotenv sets are restored after the test.
	t.Setenv("VOXQUERY_BACKEND_URL", "")
	t.Setenv("VOXQUERY_LOG_LEVEL", "error")
	os.Unsetenv("VOXQUERY_BACKEND_URL")

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Backend.BaseURL != "http://10.0.0.5:9000" {
		t.Fatalf("expected url from env file, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Log.Level != "error" {
		t.Fatalf("environment must win over env file, got %q", cfg.Log.Level)
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected missing env file error")
	}
}
