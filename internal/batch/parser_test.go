package batch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/manash/iconforge/internal/project"
	"github.com/manash/iconforge/pkg/models"
)

func TestParseText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{
			name:    "basic prompts",
			input:   "prompt one\nprompt two\nprompt three",
			want:    3,
			wantErr: false,
		},
		{
			name:    "with empty lines",
			input:   "prompt one\n\nprompt two\n\n",
			want:    2,
			wantErr: false,
		},
		{
			name:    "with comments",
			input:   "# this is a comment\nprompt one\n# another comment\nprompt two",
			want:    2,
			wantErr: false,
		},
		{
			name:    "empty file",
			input:   "",
			want:    0,
			wantErr: true,
		},
		{
			name:    "only comments",
			input:   "# comment\n# another",
			want:    0,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseText(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseText() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && len(items) != tt.want {
				t.Errorf("ParseText() got %d items, want %d", len(items), tt.want)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{
			name:    "basic array",
			input:   `[{"prompt": "one"}, {"prompt": "two"}]`,
			want:    2,
			wantErr: false,
		},
		{
			name:    "with options",
			input:   `[{"prompt": "one", "model": "dall-e-3", "quality": "hd"}]`,
			want:    1,
			wantErr: false,
		},
		{
			name:    "empty array",
			input:   `[]`,
			want:    0,
			wantErr: true,
		},
		{
			name:    "empty prompt",
			input:   `[{"prompt": ""}]`,
			want:    0,
			wantErr: true,
		},
		{
			name:    "invalid json",
			input:   `[{"prompt": "one"`,
			want:    0,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseJSON(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseJSON() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && len(items) != tt.want {
				t.Errorf("ParseJSON() got %d items, want %d", len(items), tt.want)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		want     int
		wantErr  bool
	}{
		{
			name:     "txt file",
			filename: "test.txt",
			content:  "prompt one\nprompt two",
			want:     2,
			wantErr:  false,
		},
		{
			name:     "json file",
			filename: "test.json",
			content:  `[{"prompt": "one"}, {"prompt": "two"}]`,
			want:     2,
			wantErr:  false,
		},
		{
			name:     "unsupported extension",
			filename: "test.yaml",
			content:  "prompt: test",
			want:     0,
			wantErr:  true,
		},
		{
			name:     "no extension treated as txt",
			filename: "prompts",
			content:  "prompt one\nprompt two",
			want:     2,
			wantErr:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			filePath := filepath.Join(tmpDir, tt.filename)
			if err := os.WriteFile(filePath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write test file: %v", err)
			}

			items, err := ParseFile(filePath)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseFile() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && len(items) != tt.want {
				t.Errorf("ParseFile() got %d items, want %d", len(items), tt.want)
			}
		})
	}
}

func TestParseFile_NotFound(t *testing.T) {
	_, err := ParseFile("/nonexistent/file.txt")
	if err == nil {
		t.Error("ParseFile() expected error for non-existent file")
	}
}

func TestParseJSON_Fields(t *testing.T) {
	items, err := ParseJSON(strings.NewReader(`[{"name":"Bow","prompt":"a bow","priority":3,"artStyle":"pixel-art","aspectRatio":"vertical","noBackground":true}]`))
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	it := items[0]
	if it.Name != "Bow" || it.Priority != 3 || it.ArtStyle != "pixel-art" || !it.Transparent {
		t.Errorf("item = %+v", it)
	}

	if _, err := ParseJSON(strings.NewReader(`[{"prompt":"x","aspectRatio":"4:3"}]`)); err == nil {
		t.Error("ParseJSON() accepted an invalid aspect ratio")
	}
}

func TestItem_QueueItem(t *testing.T) {
	p := &project.Project{Settings: project.DefaultSettings()}

	q, err := Item{Prompt: "a bow", Priority: 2, ArtStyle: "cyberpunk", Quality: "hd", AspectRatio: models.AspectHorizontal}.QueueItem(p)
	if err != nil {
		t.Fatalf("QueueItem() error = %v", err)
	}
	if q.Priority != 2 || q.Quality != "hd" || q.AspectRatio != models.AspectHorizontal {
		t.Errorf("overrides lost: %+v", q)
	}
	if q.SelectedStyle == nil || q.SelectedStyle.ID != "cyberpunk" {
		t.Errorf("SelectedStyle = %+v", q.SelectedStyle)
	}
	if q.Model != p.Settings.DefaultModel || !q.UseProjectPalette || !q.NoText {
		t.Errorf("project defaults lost: %+v", q)
	}

	if _, err := (Item{Prompt: "x", ArtStyle: "baroque"}).QueueItem(p); err == nil {
		t.Error("QueueItem() accepted an unknown art style")
	}
}
