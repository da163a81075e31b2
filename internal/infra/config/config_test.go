package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"folio/internal/domain"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Assistant.Model != "gemini-2.5-flash" {
		t.Errorf("Model = %q, want %q", cfg.Assistant.Model, "gemini-2.5-flash")
	}
	if !cfg.Assistant.MapsGrounding {
		t.Error("MapsGrounding should default to true")
	}
	if cfg.Assistant.APIKey != "" {
		t.Errorf("APIKey = %q, want empty", cfg.Assistant.APIKey)
	}
	if cfg.Logger.Level != "info" {
		t.Errorf("Logger.Level = %q, want %q", cfg.Logger.Level, "info")
	}
}

func TestLoadNonExistentReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Assistant.Provider != "gemini" {
		t.Errorf("expected defaults, got provider=%q", cfg.Assistant.Provider)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
assistant:
  model: "gemini-2.0-flash"
  api_key: "test-key"
  maps_grounding: false
  resp_timeout: 45s
chat:
  greeting: "Hello!"
logger:
  level: "debug"
ui:
  ascii_symbols: true
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FOLIO_ASSISTANT_API_KEY", "")
	t.Setenv("FOLIO_ASSISTANT_MODEL", "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Assistant.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %q", cfg.Assistant.Model)
	}
	if cfg.Assistant.APIKey != "test-key" {
		t.Errorf("APIKey = %q", cfg.Assistant.APIKey)
	}
	if cfg.Assistant.MapsGrounding {
		t.Error("MapsGrounding should be false")
	}
	if cfg.Assistant.RespTimeout != 45*time.Second {
		t.Errorf("RespTimeout = %v", cfg.Assistant.RespTimeout)
	}
	if cfg.Chat.Greeting != "Hello!" {
		t.Errorf("Greeting = %q", cfg.Chat.Greeting)
	}
	if !cfg.UI.ASCIISymbols {
		t.Error("ASCIISymbols should be true")
	}
	// Untouched sections keep their defaults.
	if cfg.Assistant.BaseURL != "https://generativelanguage.googleapis.com" {
		t.Errorf("BaseURL = %q", cfg.Assistant.BaseURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FOLIO_ASSISTANT_MODEL", "gemini-pro")
	t.Setenv("FOLIO_ASSISTANT_MAPS_GROUNDING", "false")
	t.Setenv("FOLIO_LOGGER_LEVEL", "debug")
	t.Setenv("FOLIO_ASCII_SYMBOLS", "1")
	t.Setenv("FOLIO_ASSISTANT_FALLBACK_MODELS", "gemini-2.0-flash, ,gemini-1.5-flash")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	if cfg.Assistant.Model != "gemini-pro" {
		t.Errorf("Model = %q, want %q", cfg.Assistant.Model, "gemini-pro")
	}
	if cfg.Assistant.MapsGrounding {
		t.Error("MapsGrounding should be false")
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q, want %q", cfg.Logger.Level, "debug")
	}
	if !cfg.UI.ASCIISymbols {
		t.Error("ASCIISymbols should be true")
	}
	if len(cfg.Assistant.FallbackModels) != 2 || cfg.Assistant.FallbackModels[1] != "gemini-1.5-flash" {
		t.Errorf("FallbackModels = %v", cfg.Assistant.FallbackModels)
	}
}

func TestApplyEnvOverridesAPIKeyFallbacks(t *testing.T) {
	t.Setenv("FOLIO_ASSISTANT_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "generic-key")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)
	if cfg.Assistant.APIKey != "generic-key" {
		t.Errorf("APIKey = %q, want %q", cfg.Assistant.APIKey, "generic-key")
	}

	t.Setenv("GEMINI_API_KEY", "gemini-key")
	cfg = Defaults()
	ApplyEnvOverrides(cfg)
	if cfg.Assistant.APIKey != "gemini-key" {
		t.Errorf("APIKey = %q, want %q", cfg.Assistant.APIKey, "gemini-key")
	}

	t.Setenv("FOLIO_ASSISTANT_API_KEY", "folio-key")
	cfg = Defaults()
	ApplyEnvOverrides(cfg)
	if cfg.Assistant.APIKey != "folio-key" {
		t.Errorf("APIKey = %q, want %q", cfg.Assistant.APIKey, "folio-key")
	}
}

func TestApplyEnvOverridesFallbackSkipsConfiguredKey(t *testing.T) {
	t.Setenv("FOLIO_ASSISTANT_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg := Defaults()
	cfg.Assistant.APIKey = "file-key"
	ApplyEnvOverrides(cfg)
	if cfg.Assistant.APIKey != "file-key" {
		t.Errorf("APIKey = %q, want %q", cfg.Assistant.APIKey, "file-key")
	}
}

func TestApplyEnvOverridesTracer(t *testing.T) {
	t.Setenv("FOLIO_TRACER_ENABLED", "true")
	t.Setenv("FOLIO_TRACER_EXPORTER", "stdout")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)
	if !cfg.Tracer.Enabled {
		t.Error("Tracer.Enabled should be true")
	}
	if cfg.Tracer.Exporter != "stdout" {
		t.Errorf("Tracer.Exporter = %q, want %q", cfg.Tracer.Exporter, "stdout")
	}
}

func TestApplyEnvOverridesIgnoresBadValues(t *testing.T) {
	t.Setenv("FOLIO_ASSISTANT_MAPS_GROUNDING", "maybe")
	t.Setenv("FOLIO_ASSISTANT_RESP_TIMEOUT", "soon")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)
	if !cfg.Assistant.MapsGrounding {
		t.Error("MapsGrounding should keep its default")
	}
	if cfg.Assistant.RespTimeout != 120*time.Second {
		t.Errorf("RespTimeout = %v", cfg.Assistant.RespTimeout)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	passphrase := "test-pass"
	encrypted, err := EncryptValue("my-secret", passphrase)
	if err != nil {
		t.Fatalf("EncryptValue: %v", err)
	}

	decrypted, err := DecryptValue(encrypted, passphrase)
	if err != nil {
		t.Fatalf("DecryptValue: %v", err)
	}
	if decrypted != "my-secret" {
		t.Errorf("decrypted = %q, want %q", decrypted, "my-secret")
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	encrypted, err := EncryptValue("secret", "right")
	if err != nil {
		t.Fatal(err)
	}
	_, err = DecryptValue(encrypted, "wrong")
	if !errors.Is(err, domain.ErrDecryption) {
		t.Errorf("err = %v, want ErrDecryption", err)
	}
}

func TestDecryptValueInvalidInputs(t *testing.T) {
	cases := map[string]string{
		"no separator":   "abcdef",
		"bad salt":       "zz:aabb",
		"bad ciphertext": "aabb:zz",
		"too short":      "aabbccddee112233aabbccddee112233:aabb",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecryptValue(in, "passphrase"); !errors.Is(err, domain.ErrDecryption) {
				t.Errorf("err = %v, want ErrDecryption", err)
			}
		})
	}
}

func TestDecryptSecretsNoEncPrefix(t *testing.T) {
	cfg := Defaults()
	cfg.Assistant.APIKey = "plain-key"
	if err := decryptSecrets(cfg, "pass"); err != nil {
		t.Fatalf("decryptSecrets: %v", err)
	}
	if cfg.Assistant.APIKey != "plain-key" {
		t.Errorf("APIKey = %q, want unchanged", cfg.Assistant.APIKey)
	}
}

func TestLoadWithConfigKey(t *testing.T) {
	passphrase := "test-load-key"
	plainKey := "AIza-loadtest"

	encrypted, err := EncryptValue(plainKey, passphrase)
	if err != nil {
		t.Fatalf("EncryptValue: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
assistant:
  api_key: "enc:` + encrypted + `"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FOLIO_ASSISTANT_API_KEY", "")
	t.Setenv("FOLIO_CONFIG_KEY", passphrase)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Assistant.APIKey != plainKey {
		t.Errorf("APIKey = %q, want %q", cfg.Assistant.APIKey, plainKey)
	}
}

func TestLoadDecryptSecretsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
assistant:
  api_key: "enc:invalid-not-hex"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FOLIO_ASSISTANT_API_KEY", "")
	t.Setenv("FOLIO_CONFIG_KEY", "some-passphrase")
	_, err := Load(path)
	if !errors.Is(err, domain.ErrDecryption) {
		t.Errorf("err = %v, want ErrDecryption", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("invalid: [yaml: bad"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, domain.ErrConfigLoad) {
		t.Errorf("err = %v, want ErrConfigLoad", err)
	}
}

func TestLoadInsecurePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "insecure.yaml")
	if err := os.WriteFile(path, []byte("assistant:\n  model: x\n"), 0600); err != nil {
		t.Fatal(err)
	}
	// WriteFile is subject to umask; chmod sets the exact mode.
	if err := os.Chmod(path, 0666); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for insecure permissions")
	}
}

func TestLoadInvalidConfigFailsValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("assistant:\n  provider: openai\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
}

func TestValidatePermissions(t *testing.T) {
	dir := t.TempDir()

	for _, tc := range []struct {
		name    string
		mode    os.FileMode
		wantErr bool
	}{
		{"owner only", 0600, false},
		{"world readable", 0644, false},
		{"world writable", 0666, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".yaml")
			if err := os.WriteFile(path, []byte("test"), 0600); err != nil {
				t.Fatal(err)
			}
			if err := os.Chmod(path, tc.mode); err != nil {
				t.Fatal(err)
			}
			err := validatePermissions(path)
			if (err != nil) != tc.wantErr {
				t.Errorf("validatePermissions(%o) err = %v, wantErr %v", tc.mode, err, tc.wantErr)
			}
		})
	}
}

func TestValidatePermissionsStatError(t *testing.T) {
	err := validatePermissions(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, domain.ErrConfigLoad) {
		t.Errorf("err = %v, want ErrConfigLoad", err)
	}
}
