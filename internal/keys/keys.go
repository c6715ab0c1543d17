// Package keys stores provider API keys in keys.json under the user
// config directory and resolves which key a provider should use.
package keys

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/manash/iconforge/pkg/models"
)

const appName = "iconforge"

// Store handles API key storage and retrieval
type Store struct {
	configDir string
}

type KeyEntry struct {
	Key string `json:"key"`
}

// Keys represents the keys.json structure
type Keys map[string]KeyEntry

func NewStore() (*Store, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return &Store{configDir: configDir}, nil
}

// NewStoreAt uses dir instead of the platform config directory.
func NewStoreAt(dir string) *Store {
	return &Store{configDir: dir}
}

// ConfigDir is <user config dir>/iconforge. ICONFORGE_CONFIG_DIR overrides
// it.
func ConfigDir() (string, error) {
	if dir := os.Getenv("ICONFORGE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(base, appName), nil
}

func (s *Store) Path() string {
	return filepath.Join(s.configDir, "keys.json")
}

func (s *Store) load() (Keys, error) {
	keys := make(Keys)
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return keys, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse keys.json: %w", err)
	}
	return keys, nil
}

// save replaces keys.json through a temp file so a crash never leaves a
// truncated key file behind. The file is owner read/write only.
func (s *Store) save(keys Keys) error {
	if err := os.MkdirAll(s.configDir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.configDir, ".keys-*.json")
	if err != nil {
		return fmt.Errorf("failed to write keys.json: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write keys.json: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path())
}

// Set stores a key for the given provider
func (s *Store) Set(provider models.ProviderType, key string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: %s", models.ErrInvalidProvider, provider)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty key for %s", provider)
	}

	keys, err := s.load()
	if err != nil {
		return err
	}
	keys[string(provider)] = KeyEntry{Key: key}
	return s.save(keys)
}

// Get returns the stored key, or "" when none is stored.
func (s *Store) Get(provider models.ProviderType) (string, error) {
	keys, err := s.load()
	if err != nil {
		return "", err
	}
	return keys[string(provider)].Key, nil
}

func (s *Store) Delete(provider models.ProviderType) error {
	keys, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := keys[string(provider)]; !ok {
		return fmt.Errorf("no key found for %s", provider)
	}

	delete(keys, string(provider))
	return s.save(keys)
}

// List returns the providers with a stored key, sorted.
func (s *Store) List() ([]models.ProviderType, error) {
	keys, err := s.load()
	if err != nil {
		return nil, err
	}

	providers := make([]models.ProviderType, 0, len(keys))
	for p := range keys {
		providers = append(providers, models.ProviderType(p))
	}
	slices.Sort(providers)
	return providers, nil
}

// MaskKey returns a masked version of the key for display
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// EnvVar names the environment variable holding a provider's key.
func EnvVar(provider models.ProviderType) string {
	switch provider {
	case models.ProviderGoogle:
		return "GOOGLE_AI_API_KEY"
	case models.ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return strings.ToUpper(string(provider)) + "_API_KEY"
	}
}

// Resolve picks a provider key in priority order: explicit value, stored
// key, environment variable. It returns the key and where it came from;
// an empty key means the provider is not configured, which is not an
// error. store may be nil.
func Resolve(store *Store, explicit string, provider models.ProviderType, getenv func(string) string) (key, source string) {
	if explicit != "" {
		return explicit, "command-line flag"
	}

	if store != nil {
		if stored, err := store.Get(provider); err == nil && stored != "" {
			return stored, "stored key (" + store.Path() + ")"
		}
	}

	envVar := EnvVar(provider)
	if getenv != nil {
		if v := getenv(envVar); v != "" {
			return v, fmt.Sprintf("environment variable (%s)", envVar)
		}
	}
	return "", ""
}

// ResolveAll resolves every known provider. explicit holds flag values by
// provider.
func ResolveAll(store *Store, explicit map[models.ProviderType]string, getenv func(string) string) map[models.ProviderType]string {
	out := make(map[models.ProviderType]string)
	for _, p := range models.KnownProviders() {
		if key, _ := Resolve(store, explicit[p], p, getenv); key != "" {
			out[p] = key
		}
	}
	return out
}
