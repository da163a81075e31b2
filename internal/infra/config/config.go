package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"

	"folio/internal/domain"
)

// Config is the top-level application configuration.
type Config struct {
	Assistant AssistantConfig `yaml:"assistant"`
	Chat      ChatConfig      `yaml:"chat"`
	Portfolio PortfolioConfig `yaml:"portfolio"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
	UI        UIConfig        `yaml:"ui"`
}

// AssistantConfig holds the hosted assistant API settings.
type AssistantConfig struct {
	Provider       string               `yaml:"provider"`
	BaseURL        string               `yaml:"base_url"`
	APIKey         string               `yaml:"api_key"`
	Model          string               `yaml:"model"`
	FallbackModels []string             `yaml:"fallback_models"`
	MapsGrounding  bool                 `yaml:"maps_grounding"`
	ConnTimeout    time.Duration        `yaml:"conn_timeout"`
	RespTimeout    time.Duration        `yaml:"resp_timeout"`
	Pool           PoolConfig           `yaml:"pool"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig holds circuit breaker settings for stream initiation.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// PoolConfig holds HTTP connection pool settings.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// ChatConfig holds the widget's user-facing strings. Empty values fall back
// to the controller defaults.
type ChatConfig struct {
	Greeting      string `yaml:"greeting"`
	ErrorMessage  string `yaml:"error_message"`
	CitationLabel string `yaml:"citation_label"`
}

// PortfolioConfig points at an alternative catalog file. Empty uses the
// built-in catalog.
type PortfolioConfig struct {
	Path string `yaml:"path"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	AltScreen    bool `yaml:"alt_screen"`
	ASCIISymbols bool `yaml:"ascii_symbols"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Assistant: AssistantConfig{
			Provider:      "gemini",
			BaseURL:       "https://generativelanguage.googleapis.com",
			Model:         "gemini-2.5-flash",
			MapsGrounding: true,
			ConnTimeout:   30 * time.Second,
			RespTimeout:   120 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		UI: UIConfig{
			AltScreen: true,
		},
	}
}

// Load reads a YAML config file, applies env var overrides, and decrypts secrets.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := decryptFromEnv(cfg); err != nil {
				return nil, err
			}
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: read config: %w", domain.ErrConfigLoad, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve config path: %w", domain.ErrConfigLoad, err)
	}

	if err := validatePermissions(absPath); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse config: %w", domain.ErrConfigLoad, err)
	}

	ApplyEnvOverrides(cfg)

	if err := decryptFromEnv(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decryptFromEnv(cfg *Config) error {
	passphrase := os.Getenv("FOLIO_CONFIG_KEY")
	if passphrase == "" {
		return nil
	}
	if err := decryptSecrets(cfg, passphrase); err != nil {
		return fmt.Errorf("decrypt secrets: %w", err)
	}
	return nil
}

// ApplyEnvOverrides maps FOLIO_* env vars to config fields. The credential
// also falls back to GEMINI_API_KEY and API_KEY when nothing else set it.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FOLIO_ASSISTANT_MODEL"); v != "" {
		cfg.Assistant.Model = v
	}
	if v := os.Getenv("FOLIO_ASSISTANT_FALLBACK_MODELS"); v != "" {
		cfg.Assistant.FallbackModels = splitList(v)
	}
	if v := os.Getenv("FOLIO_ASSISTANT_BASE_URL"); v != "" {
		cfg.Assistant.BaseURL = v
	}
	if v := os.Getenv("FOLIO_ASSISTANT_API_KEY"); v != "" {
		cfg.Assistant.APIKey = v
	}
	if cfg.Assistant.APIKey == "" {
		for _, key := range []string{"GEMINI_API_KEY", "API_KEY"} {
			if v := os.Getenv(key); v != "" {
				cfg.Assistant.APIKey = v
				break
			}
		}
	}
	if v := os.Getenv("FOLIO_ASSISTANT_MAPS_GROUNDING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Assistant.MapsGrounding = b
		}
	}
	if v := os.Getenv("FOLIO_ASSISTANT_RESP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Assistant.RespTimeout = d
		}
	}
	if v := os.Getenv("FOLIO_CIRCUIT_BREAKER_ENABLED"); v != "" {
		cfg.Assistant.CircuitBreaker.Enabled = v == "true"
	}
	if v := os.Getenv("FOLIO_PORTFOLIO_PATH"); v != "" {
		cfg.Portfolio.Path = v
	}
	if v := os.Getenv("FOLIO_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("FOLIO_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("FOLIO_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("FOLIO_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("FOLIO_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("FOLIO_ASCII_SYMBOLS"); v == "1" || strings.EqualFold(v, "true") {
		cfg.UI.ASCIISymbols = true
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// decryptSecrets finds an "enc:..." assistant API key and decrypts it.
func decryptSecrets(cfg *Config, passphrase string) error {
	key := cfg.Assistant.APIKey
	if !strings.HasPrefix(key, "enc:") {
		return nil
	}
	decrypted, err := DecryptValue(strings.TrimPrefix(key, "enc:"), passphrase)
	if err != nil {
		return fmt.Errorf("assistant api_key: %w", err)
	}
	cfg.Assistant.APIKey = decrypted
	return nil
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a passphrase.
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := deriveKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	// Format: hex(salt) + ":" + hex(nonce+ciphertext)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptValue decrypts an AES-256-GCM encrypted value.
func DecryptValue(encrypted, passphrase string) (string, error) {
	parts := strings.SplitN(encrypted, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: invalid encrypted format", domain.ErrDecryption)
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: decode salt: %w", domain.ErrDecryption, err)
	}

	data, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %w", domain.ErrDecryption, err)
	}

	key := deriveKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create gcm: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", domain.ErrDecryption)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrDecryption, err)
	}

	return string(plaintext), nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions checks the config file has restrictive permissions.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: stat config: %w", domain.ErrConfigLoad, err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644 (readable by others but not writable)
	if mode&0o077 > 0o044 {
		return fmt.Errorf("%w: config file %s has insecure permissions %o (want 0600 or 0644)", domain.ErrConfigLoad, path, mode)
	}
	return nil
}
