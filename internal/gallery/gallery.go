// Package gallery lists the images in the static gallery directory.
package gallery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/manash/iconforge/internal/security"
)

const listKey = "list"

// Extensions are the recognized image file extensions.
var Extensions = []string{".png", ".jpg", ".jpeg", ".webp", ".gif"}

type Image struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	// CreatedAt is the modification time; file birth time is not
	// portable.
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
	Size       int64     `json:"size"`
	SizeHuman  string    `json:"sizeHuman"`
}

type Gallery struct {
	dir     string
	urlBase string
	cache   *cache.Cache
}

// New returns a gallery over dir whose listing is cached for ttl. Files
// are addressed as urlBase + filename.
func New(dir, urlBase string, ttl time.Duration) *Gallery {
	return &Gallery{
		dir:     dir,
		urlBase: strings.TrimRight(urlBase, "/") + "/",
		cache:   cache.New(ttl, 2*ttl),
	}
}

func (g *Gallery) Dir() string {
	return g.dir
}

func IsImage(name string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(name)))
}

// List returns every image in the directory, newest first. A missing
// directory is created and yields an empty list.
func (g *Gallery) List(ctx context.Context) ([]Image, error) {
	if cached, ok := g.cache.Get(listKey); ok {
		return slices.Clone(cached.([]Image)), nil
	}

	entries, err := os.ReadDir(g.dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(g.dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create gallery directory: %w", err)
		}
		return []Image{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read gallery directory: %w", err)
	}

	var files []os.DirEntry
	for _, e := range entries {
		if e.Type().IsRegular() && IsImage(e.Name()) && security.ValidateFileName(e.Name()) == nil {
			files = append(files, e)
		}
	}

	images := make([]Image, len(files))
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(8)
	for i, e := range files {
		eg.Go(func() error {
			info, err := e.Info()
			if err != nil {
				return fmt.Errorf("failed to stat %s: %w", e.Name(), err)
			}
			name := e.Name()
			images[i] = Image{
				ID:         name,
				Name:       strings.TrimSuffix(name, filepath.Ext(name)),
				Filename:   name,
				URL:        g.urlBase + name,
				CreatedAt:  info.ModTime().UTC(),
				ModifiedAt: info.ModTime().UTC(),
				Size:       info.Size(),
				SizeHuman:  humanize.Bytes(uint64(info.Size())),
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(images, func(i, j int) bool {
		if images[i].CreatedAt.Equal(images[j].CreatedAt) {
			return images[i].Filename < images[j].Filename
		}
		return images[i].CreatedAt.After(images[j].CreatedAt)
	})

	g.cache.SetDefault(listKey, images)
	return slices.Clone(images), nil
}

// Path resolves a gallery file name to its path on disk.
func (g *Gallery) Path(name string) (string, error) {
	if err := security.ValidateFileName(name); err != nil {
		return "", err
	}
	if !IsImage(name) {
		return "", fmt.Errorf("%w: not an image", security.ErrInvalidFileName)
	}
	return filepath.Join(g.dir, name), nil
}

// Invalidate drops the cached listing.
func (g *Gallery) Invalidate() {
	g.cache.Delete(listKey)
}

// Watch invalidates the cached listing whenever the directory changes.
// It blocks until ctx is done.
func (g *Gallery) Watch(ctx context.Context) error {
	if err := os.MkdirAll(g.dir, 0755); err != nil {
		return fmt.Errorf("failed to create gallery directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(g.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", g.dir, err)
	}
	slog.Debug("watching gallery", "dir", g.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			slog.Debug("gallery changed", "event", ev.Op.String(), "file", filepath.Base(ev.Name))
			g.Invalidate()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("gallery watcher error", "error", err)
		}
	}
}
