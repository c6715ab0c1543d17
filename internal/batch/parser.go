package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/manash/iconforge/internal/project"
	"github.com/manash/iconforge/internal/style"
	"github.com/manash/iconforge/pkg/models"
)

// Item is one queue entry read from a prompt file. Empty fields take the
// project defaults when queued.
type Item struct {
	Name        string             `json:"name,omitempty"`
	Prompt      string             `json:"prompt"`
	Priority    int                `json:"priority,omitempty"`
	Provider    string             `json:"provider,omitempty"`
	Model       string             `json:"model,omitempty"`
	Quality     string             `json:"quality,omitempty"`
	Style       string             `json:"style,omitempty"`
	ArtStyle    string             `json:"artStyle,omitempty"`
	AspectRatio models.AspectRatio `json:"aspectRatio,omitempty"`
	Background  bool               `json:"createBackground,omitempty"`
	Monochrome  bool               `json:"monochrome,omitempty"`
	Transparent bool               `json:"noBackground,omitempty"`
}

// QueueItem builds the queue entry for it on top of p's defaults.
func (it Item) QueueItem(p *project.Project) (project.QueueItem, error) {
	q := project.NewQueueItem(p, it.Name, it.Prompt)
	if it.Priority != 0 {
		q.Priority = it.Priority
	}
	if it.Provider != "" {
		q.Provider = models.ProviderType(it.Provider)
	}
	if it.Model != "" {
		q.Model = it.Model
	}
	if it.Quality != "" {
		q.Quality = it.Quality
	}
	if it.Style != "" {
		q.Style = it.Style
	}
	if it.AspectRatio != "" {
		q.AspectRatio = it.AspectRatio
	}
	if it.ArtStyle != "" {
		preset, ok := style.Lookup(it.ArtStyle)
		if !ok {
			return q, fmt.Errorf("unknown art style %q", it.ArtStyle)
		}
		q.SelectedStyle = &preset
	}
	q.CreateBackground = it.Background
	q.Monochrome = it.Monochrome
	q.NoBackground = it.Transparent
	return q, nil
}

func ParseFile(path string) ([]Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return ParseJSON(file)
	case ".txt", "":
		return ParseText(file)
	default:
		return nil, fmt.Errorf("unsupported file format %q: use .txt or .json", ext)
	}
}

// ParseText reads one prompt per line. Blank lines and lines starting
// with # are skipped.
func ParseText(r io.Reader) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		items = append(items, Item{Prompt: line})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no prompts found in file")
	}

	return items, nil
}

func ParseJSON(r io.Reader) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no prompts found in file")
	}

	for i := range items {
		if strings.TrimSpace(items[i].Prompt) == "" {
			return nil, fmt.Errorf("item %d has empty prompt", i+1)
		}
		if items[i].AspectRatio != "" && !items[i].AspectRatio.IsValid() {
			return nil, fmt.Errorf("item %d has invalid aspect ratio %q", i+1, items[i].AspectRatio)
		}
	}

	return items, nil
}
