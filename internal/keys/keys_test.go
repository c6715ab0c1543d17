package keys

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/manash/iconforge/pkg/models"
)

func TestNewStore(t *testing.T) {
	t.Setenv("ICONFORGE_CONFIG_DIR", t.TempDir())
	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store.Path() == "" {
		t.Error("Store.Path() should not be empty")
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewStoreAt(tmpDir)

	if err := store.Set(models.ProviderOpenAI, " sk-test-key-12345 "); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(tmpDir, "keys.json"))
	if err != nil {
		t.Fatalf("keys.json not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("keys.json permissions = %v, want 0600", info.Mode().Perm())
	}

	key, err := store.Get(models.ProviderOpenAI)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if key != "sk-test-key-12345" {
		t.Errorf("Get() = %v, want sk-test-key-12345", key)
	}

	key, err = store.Get(models.ProviderGoogle)
	if err != nil || key != "" {
		t.Errorf("Get(missing) = %q, %v; want empty", key, err)
	}

	if err := store.Delete(models.ProviderOpenAI); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(models.ProviderOpenAI); err == nil {
		t.Error("Delete() of missing key should fail")
	}
}

func TestStore_SetRejects(t *testing.T) {
	store := NewStoreAt(t.TempDir())
	if err := store.Set("stability", "k"); err == nil {
		t.Error("Set() accepted an unknown provider")
	}
	if err := store.Set(models.ProviderGoogle, "  "); err == nil {
		t.Error("Set() accepted an empty key")
	}
}

func TestStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "keys.json"), []byte("{"), 0600)
	if _, err := NewStoreAt(dir).Get(models.ProviderGoogle); err == nil || !strings.Contains(err.Error(), "keys.json") {
		t.Errorf("Get() error = %v, want parse error", err)
	}
}

func TestStore_List(t *testing.T) {
	store := NewStoreAt(t.TempDir())
	store.Set(models.ProviderOpenAI, "openai-key")
	store.Set(models.ProviderGoogle, "google-key")

	got, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []models.ProviderType{models.ProviderGoogle, models.ProviderOpenAI}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"short", "*****"},
		{"12345678", "********"},
		{"AIzaSyExample1234", "AIza*********1234"},
	}

	for _, tt := range tests {
		if got := MaskKey(tt.key); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestResolve_Priority(t *testing.T) {
	store := NewStoreAt(t.TempDir())
	env := map[string]string{"OPENAI_API_KEY": "env-key", "GOOGLE_AI_API_KEY": "google-env"}
	getenv := func(k string) string { return env[k] }

	if key, src := Resolve(store, "flag-key", models.ProviderOpenAI, getenv); key != "flag-key" || src != "command-line flag" {
		t.Errorf("explicit: %q from %q", key, src)
	}

	if key, src := Resolve(store, "", models.ProviderOpenAI, getenv); key != "env-key" || !strings.Contains(src, "OPENAI_API_KEY") {
		t.Errorf("env: %q from %q", key, src)
	}

	store.Set(models.ProviderOpenAI, "stored-key")
	if key, src := Resolve(store, "", models.ProviderOpenAI, getenv); key != "stored-key" || !strings.Contains(src, "keys.json") {
		t.Errorf("stored: %q from %q", key, src)
	}

	if key, src := Resolve(nil, "", models.ProviderGoogle, func(string) string { return "" }); key != "" || src != "" {
		t.Errorf("missing: %q from %q", key, src)
	}
}

func TestResolveAll(t *testing.T) {
	store := NewStoreAt(t.TempDir())
	store.Set(models.ProviderGoogle, "stored-google")

	got := ResolveAll(store, nil, func(string) string { return "" })
	want := map[models.ProviderType]string{models.ProviderGoogle: "stored-google"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ResolveAll() = %v, want %v", got, want)
	}

	got = ResolveAll(store, map[models.ProviderType]string{models.ProviderOpenAI: "flag"}, nil)
	if got[models.ProviderOpenAI] != "flag" || got[models.ProviderGoogle] != "stored-google" {
		t.Errorf("ResolveAll() with flags = %v", got)
	}
}
