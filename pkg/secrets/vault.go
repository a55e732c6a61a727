// Package secrets fills the process environment from a HashiCorp Vault KV
// secret before configuration is loaded, so that JWT_SECRET, DB_PASSWORD and
// the storage keys never have to live in the deployment manifest.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/servicemapcy/servicemap/backend/pkg/retry"
)

// VaultConfig locates the secret to read
type VaultConfig struct {
	Enabled   bool
	Addr      string
	Token     string
	Namespace string
	Mount     string
	Path      string
	KVVersion int
	Timeout   time.Duration
	// Overwrite replaces variables that are already set
	Overwrite bool
}

// Result reports what Apply did
type Result struct {
	Path    string
	Loaded  int
	Skipped int
}

// ConfigFromEnv reads VAULT_* variables. defaultPath is used when VAULT_PATH
// is unset, which lets each binary keep its own secret.
func ConfigFromEnv(defaultPath string) VaultConfig {
	cfg := VaultConfig{
		Enabled:   strings.EqualFold(os.Getenv("VAULT_ENABLED"), "true"),
		Addr:      os.Getenv("VAULT_ADDR"),
		Token:     os.Getenv("VAULT_TOKEN"),
		Namespace: os.Getenv("VAULT_NAMESPACE"),
		Mount:     "secret",
		Path:      defaultPath,
		KVVersion: 2,
		Timeout:   5 * time.Second,
		Overwrite: strings.EqualFold(os.Getenv("VAULT_OVERWRITE"), "true"),
	}
	if v := os.Getenv("VAULT_MOUNT"); v != "" {
		cfg.Mount = v
	}
	if v := os.Getenv("VAULT_PATH"); v != "" {
		cfg.Path = v
	}
	if v, err := strconv.Atoi(os.Getenv("VAULT_KV_VERSION")); err == nil {
		cfg.KVVersion = v
	}
	if v, err := strconv.Atoi(os.Getenv("VAULT_TIMEOUT_MS")); err == nil && v > 0 {
		cfg.Timeout = time.Duration(v) * time.Millisecond
	}
	return cfg
}

// Fetch reads the secret's key/value pairs
func Fetch(ctx context.Context, cfg VaultConfig) (map[string]string, error) {
	if cfg.Addr == "" || cfg.Token == "" || cfg.Path == "" {
		return nil, errors.New("vault configuration incomplete (VAULT_ADDR, VAULT_TOKEN, VAULT_PATH)")
	}
	url, err := secretURL(cfg)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: cfg.Timeout}
	var body []byte
	err = retry.Do(ctx, retry.DefaultConfig(), "vault", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("X-Vault-Token", cfg.Token)
		if cfg.Namespace != "" {
			req.Header.Set("X-Vault-Namespace", cfg.Namespace)
		}

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("vault returned %s", resp.Status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return decodeSecret(body, cfg.KVVersion)
}

// Apply exports the secret into the environment. It is a no-op when Vault is
// disabled.
func Apply(ctx context.Context, cfg VaultConfig) (Result, error) {
	result := Result{Path: cfg.Path}
	if !cfg.Enabled {
		return result, nil
	}

	data, err := Fetch(ctx, cfg)
	if err != nil {
		return result, err
	}
	for key, value := range data {
		if !cfg.Overwrite && os.Getenv(key) != "" {
			result.Skipped++
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return result, err
		}
		result.Loaded++
	}

	log.Info().
		Str("path", result.Path).
		Int("loaded", result.Loaded).
		Int("skipped", result.Skipped).
		Msg("applied vault secrets")
	return result, nil
}

func secretURL(cfg VaultConfig) (string, error) {
	addr := strings.TrimRight(cfg.Addr, "/")
	mount := strings.Trim(cfg.Mount, "/")
	path := strings.TrimLeft(cfg.Path, "/")
	if addr == "" || mount == "" || path == "" {
		return "", errors.New("vault address, mount and path must be set")
	}
	if cfg.KVVersion == 1 {
		return fmt.Sprintf("%s/v1/%s/%s", addr, mount, path), nil
	}
	return fmt.Sprintf("%s/v1/%s/data/%s", addr, mount, path), nil
}

// decodeSecret unwraps the KV envelope. Version 2 nests the pairs one level
// deeper than version 1.
func decodeSecret(body []byte, kvVersion int) (map[string]string, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode vault response: %w", err)
	}
	raw := envelope.Data
	if kvVersion != 1 {
		var inner struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("decode vault response: %w", err)
		}
		raw = inner.Data
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("vault response missing data for KV v%d", kvVersion)
	}

	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decode vault data: %w", err)
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = stringify(v)
	}
	return out, nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
