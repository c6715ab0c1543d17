package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/manash/iconforge/internal/store"
)

// MaxRecentPrompts caps the recent prompt list.
const MaxRecentPrompts = 10

func decodeSettings(data []byte) Settings {
	s := DefaultSettings()
	if len(data) == 0 {
		return s
	}
	if err := json.Unmarshal(data, &s); err != nil {
		slog.Warn("ignoring unreadable user settings", "error", err)
		return DefaultSettings()
	}
	return s
}

// UserSettings returns the stored settings merged over the defaults.
func (s *Store) UserSettings(ctx context.Context) (Settings, error) {
	data, err := s.kv.Get(ctx, KeyUserSettings)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Settings{}, err
	}
	return decodeSettings(data), nil
}

// SaveUserSettings merges patch into the stored settings.
func (s *Store) SaveUserSettings(ctx context.Context, patch SettingsPatch) (Settings, error) {
	var merged Settings
	err := s.kv.Update(ctx, KeyUserSettings, func(cur []byte) ([]byte, error) {
		merged = decodeSettings(cur)
		patch.Apply(&merged)
		data, err := json.Marshal(merged)
		if err != nil {
			return nil, fmt.Errorf("failed to encode settings: %w", err)
		}
		return data, nil
	})
	if err != nil {
		return Settings{}, s.checkQuota("save settings", err)
	}
	return merged, nil
}

func (s *Store) ResetUserSettings(ctx context.Context) error {
	return s.kv.Delete(ctx, KeyUserSettings)
}

func (s *Store) RecentPrompts(ctx context.Context) ([]string, error) {
	data, err := s.kv.Get(ctx, KeyRecentPrompts)
	if errors.Is(err, store.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodePrompts(data), nil
}

func decodePrompts(data []byte) []string {
	prompts := []string{}
	if len(data) == 0 {
		return prompts
	}
	if err := json.Unmarshal(data, &prompts); err != nil {
		slog.Warn("ignoring unreadable recent prompts", "error", err)
		return []string{}
	}
	return prompts
}

// AddRecentPrompt moves prompt to the front of the list, dropping any
// earlier copy and anything past MaxRecentPrompts.
func (s *Store) AddRecentPrompt(ctx context.Context, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil
	}
	err := s.kv.Update(ctx, KeyRecentPrompts, func(cur []byte) ([]byte, error) {
		prompts := []string{prompt}
		for _, p := range decodePrompts(cur) {
			if p != prompt && len(prompts) < MaxRecentPrompts {
				prompts = append(prompts, p)
			}
		}
		return json.Marshal(prompts)
	})
	return s.checkQuota("add recent prompt", err)
}

func (s *Store) ClearRecentPrompts(ctx context.Context) error {
	return s.kv.Delete(ctx, KeyRecentPrompts)
}
