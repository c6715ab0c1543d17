// Package image writes generated icons to disk.
package image

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/manash/iconforge/internal/project"
	"github.com/manash/iconforge/internal/security"
)

// maxDownload bounds a single downloaded image.
const maxDownload = 32 << 20

var (
	ErrNoImage        = errors.New("no image data available")
	ErrBadDataURI     = errors.New("malformed data URI")
	nonWordPattern    = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

type Saver struct {
	httpClient *http.Client
	now        func() time.Time
}

func NewSaver() *Saver {
	return &Saver{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		now: time.Now,
	}
}

// Fetch returns the bytes behind an icon URL: either an inline base64 data
// URI or an HTTPS URL.
func (s *Saver) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	switch {
	case imageURL == "":
		return nil, ErrNoImage
	case strings.HasPrefix(imageURL, "data:"):
		return decodeDataURI(imageURL)
	default:
		if err := security.ValidateImageURL(imageURL, false); err != nil {
			return nil, fmt.Errorf("refusing to download image: %w", err)
		}
		data, err := s.downloadFromURL(ctx, imageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to download image: %w", err)
		}
		return data, nil
	}
}

func decodeDataURI(uri string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, ErrBadDataURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDataURI, err)
	}
	return data, nil
}

// Save writes the image behind imageURL to path, creating parent
// directories.
func (s *Saver) Save(ctx context.Context, imageURL, path string) error {
	data, err := s.Fetch(ctx, imageURL)
	if err != nil {
		return err
	}

	if err := s.ensureDir(path); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// ProjectDir is the folder a project's icons are written to.
func ProjectDir(baseDir, projectName string) string {
	return filepath.Join(baseDir, security.DirName(projectName)+"_Images")
}

// SaveProject writes every icon of p into ProjectDir. Icons that fail are
// skipped; their errors are joined into the returned error.
func (s *Saver) SaveProject(ctx context.Context, p *project.Project, baseDir string) ([]string, error) {
	dir := ProjectDir(baseDir, p.Name)
	paths := make([]string, 0, len(p.Icons))
	taken := make(map[string]bool)
	var errs []error

	for _, icon := range p.Icons {
		if err := ctx.Err(); err != nil {
			return paths, err
		}

		name := FileName(icon.Name, s.now())
		path := filepath.Join(dir, name)
		for n := 2; taken[path]; n++ {
			ext := filepath.Ext(name)
			path = filepath.Join(dir, fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n, ext))
		}

		if err := s.Save(ctx, icon.ImageURL, path); err != nil {
			errs = append(errs, fmt.Errorf("icon %q: %w", icon.Name, err))
			continue
		}
		taken[path] = true
		paths = append(paths, path)
	}

	return paths, errors.Join(errs...)
}

// FileName builds "<safe_name>_<timestamp>.png" for an icon.
func FileName(iconName string, t time.Time) string {
	safe := nonWordPattern.ReplaceAllString(iconName, "")
	safe = strings.ToLower(whitespacePattern.ReplaceAllString(strings.TrimSpace(safe), "_"))
	if safe == "" {
		safe = "icon"
	}
	if err := security.ValidateSavePath(safe + ".png"); err != nil {
		safe = "icon_" + safe
	}
	return fmt.Sprintf("%s_%s.png", safe, t.UTC().Format("2006-01-02T15-04-05"))
}

func (s *Saver) downloadFromURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxDownload))
}

func (s *Saver) ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
