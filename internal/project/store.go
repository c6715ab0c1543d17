// Package project persists projects, their icons and generation queues,
// along with user settings and recent prompts, in the key-value store.
//
// Every mutation loads the project document, changes it and writes it
// back inside a single store transaction.
package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/manash/iconforge/internal/palette"
	"github.com/manash/iconforge/internal/store"
	"github.com/manash/iconforge/pkg/models"
)

const (
	KeyProjects      = "icon-generator-projects"
	KeyCurrent       = "icon-generator-current-project"
	KeyUserSettings  = "icon-generator-user-settings"
	KeyRecentPrompts = "icon-generator-recent-prompts"
)

const (
	DefaultProjectName        = "My First Project"
	DefaultProjectDescription = "Collection of magical game icons"
)

// errSkip aborts a mutation without writing anything.
var errSkip = errors.New("skip")

type Store struct {
	kv  *store.Store
	now func() time.Time
}

func NewStore(kv *store.Store) *Store {
	return &Store{kv: kv, now: time.Now}
}

func (s *Store) mutate(ctx context.Context, op string, fn func(tx *store.Tx, doc *document) error) error {
	err := s.kv.Tx(ctx, func(tx *store.Tx) error {
		doc, err := loadDocument(tx)
		if err != nil {
			return err
		}
		if err := fn(tx, doc); err != nil {
			return err
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode projects: %w", err)
		}
		return tx.Put(KeyProjects, data)
	})
	if errors.Is(err, errSkip) {
		return nil
	}
	return s.checkQuota(op, err)
}

func (s *Store) checkQuota(op string, err error) error {
	if errors.Is(err, store.ErrQuotaExceeded) {
		slog.Warn("storage quota exceeded, change not saved", "op", op, "error", err)
	}
	return err
}

func loadDocument(tx *store.Tx) (*document, error) {
	data, err := tx.Get(KeyProjects)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return decodeDocument(data)
}

func (s *Store) read(ctx context.Context) (*document, error) {
	data, err := s.kv.Get(ctx, KeyProjects)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return decodeDocument(data)
}

func (d *document) find(id string) (int, *Project) {
	for i, p := range d.Projects {
		if p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

func (d *document) mustFind(id string) (*Project, error) {
	_, p := d.find(id)
	if p == nil {
		return nil, projectNotFound(id)
	}
	return p, nil
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// Create adds a new project whose palette is the preset of theme. An
// empty or unknown theme yields the fantasy palette.
func (s *Store) Create(ctx context.Context, name, description string, theme palette.Theme) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Message: "Project name is required"}
	}

	now := s.timestamp()
	settings := DefaultSettings()
	settings.ProjectTheme = theme
	p := &Project{
		ID:              uuid.NewString(),
		Name:            name,
		Description:     strings.TrimSpace(description),
		Icons:           []SavedIcon{},
		GenerationQueue: []QueueItem{},
		ColorPalette:    palette.Default(theme),
		CreatedAt:       now,
		UpdatedAt:       now,
		Settings:        settings,
	}

	err := s.mutate(ctx, "create project", func(_ *store.Tx, doc *document) error {
		doc.Projects = append(doc.Projects, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Project, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return doc.mustFind(id)
}

func (s *Store) List(ctx context.Context) ([]*Project, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Projects, nil
}

// Update applies fn to the project and bumps UpdatedAt. An unknown id is
// a silent no-op. fn must not change the project id.
func (s *Store) Update(ctx context.Context, id string, fn func(p *Project)) error {
	return s.mutate(ctx, "update project", func(_ *store.Tx, doc *document) error {
		_, p := doc.find(id)
		if p == nil {
			return errSkip
		}
		fn(p)
		p.ID = id
		p.UpdatedAt = s.timestamp()
		return nil
	})
}

// Delete removes the project and clears the current pointer when it
// referenced it. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete project", func(tx *store.Tx, doc *document) error {
		i, _ := doc.find(id)
		if i < 0 {
			return errSkip
		}
		doc.Projects = append(doc.Projects[:i], doc.Projects[i+1:]...)

		cur, err := currentSnapshot(tx)
		if err != nil {
			return err
		}
		if cur != nil && cur.ID == id {
			return tx.Delete(KeyCurrent)
		}
		return nil
	})
}

func currentSnapshot(tx *store.Tx) (*Project, error) {
	data, err := tx.Get(KeyCurrent)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		slog.Warn("discarding unreadable current project", "error", err)
		return nil, nil
	}
	return &p, nil
}

func putCurrent(tx *store.Tx, p *Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode current project: %w", err)
	}
	return tx.Put(KeyCurrent, data)
}

func (s *Store) SetCurrent(ctx context.Context, id string) (*Project, error) {
	var cur *Project
	err := s.kv.Tx(ctx, func(tx *store.Tx) error {
		doc, err := loadDocument(tx)
		if err != nil {
			return err
		}
		if cur, err = doc.mustFind(id); err != nil {
			return err
		}
		return putCurrent(tx, cur)
	})
	if err != nil {
		return nil, s.checkQuota("set current project", err)
	}
	return cur, nil
}

// Current returns the current project. The stored snapshot only
// identifies it; the live project wins when it still exists.
func (s *Store) Current(ctx context.Context) (*Project, error) {
	var cur *Project
	err := s.kv.Tx(ctx, func(tx *store.Tx) error {
		snap, err := currentSnapshot(tx)
		if err != nil {
			return err
		}
		if snap == nil {
			return &NotFoundError{Resource: "current project", ID: "none"}
		}
		doc, err := loadDocument(tx)
		if err != nil {
			return err
		}
		if _, live := doc.find(snap.ID); live != nil {
			cur = live
		} else {
			cur = snap
		}
		return errSkip
	})
	if err != nil && !errors.Is(err, errSkip) {
		return nil, err
	}
	return cur, nil
}

// EnsureDefault returns the current project, making the first project
// current when none is set and creating the default project when there
// are no projects at all.
func (s *Store) EnsureDefault(ctx context.Context) (*Project, error) {
	var cur *Project
	err := s.kv.Tx(ctx, func(tx *store.Tx) error {
		doc, err := loadDocument(tx)
		if err != nil {
			return err
		}
		snap, err := currentSnapshot(tx)
		if err != nil {
			return err
		}
		if snap != nil {
			if _, live := doc.find(snap.ID); live != nil {
				cur = live
				return errSkip
			}
		}

		if len(doc.Projects) > 0 {
			cur = doc.Projects[0]
			return putCurrent(tx, cur)
		}

		now := s.timestamp()
		cur = &Project{
			ID:              uuid.NewString(),
			Name:            DefaultProjectName,
			Description:     DefaultProjectDescription,
			Icons:           []SavedIcon{},
			GenerationQueue: []QueueItem{},
			ColorPalette:    palette.Default(palette.ThemeFantasy),
			CreatedAt:       now,
			UpdatedAt:       now,
			Settings:        DefaultSettings(),
		}
		doc.Projects = append(doc.Projects, cur)
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode projects: %w", err)
		}
		if err := tx.Put(KeyProjects, data); err != nil {
			return err
		}
		slog.Info("created default project", "id", cur.ID)
		return putCurrent(tx, cur)
	})
	if err != nil && !errors.Is(err, errSkip) {
		return nil, s.checkQuota("ensure default project", err)
	}
	return cur, nil
}

// AddIcon keeps a successful result as an icon and records its cost.
// Results without an image are ignored and return a nil icon.
func (s *Store) AddIcon(ctx context.Context, projectID string, result *models.Result, prompt, name string) (*SavedIcon, error) {
	if !result.HasImage() {
		return nil, nil
	}

	var icon *SavedIcon
	err := s.mutate(ctx, "add icon", func(tx *store.Tx, doc *document) error {
		p, err := doc.mustFind(projectID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Icon %d", len(p.Icons)+1)
		}
		now := s.timestamp()
		icon = &SavedIcon{
			ID:             uuid.NewString(),
			Name:           name,
			Prompt:         prompt,
			ImageURL:       result.ImageURL,
			Provider:       result.Provider,
			Model:          result.Model,
			GeneratedAt:    now,
			Cost:           result.Cost,
			GenerationTime: result.GenerationTimeMs,
			Tags:           ExtractTags(prompt),
		}
		p.Icons = append(p.Icons, *icon)
		p.UpdatedAt = now

		return tx.LogCost(&store.CostEntry{
			ProjectID: projectID,
			IconID:    icon.ID,
			Provider:  string(result.Provider),
			Model:     result.Model,
			Cost:      result.Cost,
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return icon, nil
}

func (s *Store) RemoveIcon(ctx context.Context, projectID, iconID string) error {
	return s.mutate(ctx, "remove icon", func(_ *store.Tx, doc *document) error {
		p, err := doc.mustFind(projectID)
		if err != nil {
			return err
		}
		for i := range p.Icons {
			if p.Icons[i].ID == iconID {
				p.Icons = append(p.Icons[:i], p.Icons[i+1:]...)
				p.UpdatedAt = s.timestamp()
				return nil
			}
		}
		return errSkip
	})
}

// UpdatePalette replaces the project palette with a validated copy of pal.
func (s *Store) UpdatePalette(ctx context.Context, projectID string, pal *palette.Palette) (*palette.Palette, error) {
	if pal == nil {
		return nil, &ValidationError{Message: "palette is required"}
	}
	if err := pal.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	owned := pal.Clone()
	if owned.Custom == nil {
		owned.Custom = []palette.CustomColor{}
	}

	err := s.mutate(ctx, "update palette", func(_ *store.Tx, doc *document) error {
		p, err := doc.mustFind(projectID)
		if err != nil {
			return err
		}
		p.ColorPalette = owned
		p.UpdatedAt = s.timestamp()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return owned.Clone(), nil
}

// Export returns the project as indented JSON.
func (s *Store) Export(ctx context.Context, id string) ([]byte, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(p, "", "  ")
}

// Import adds a project from exported JSON under a fresh id with reset
// timestamps. Missing queue, palette and settings are back-filled.
func (s *Store) Import(ctx context.Context, data []byte) (*Project, error) {
	p, err := parseImport(data)
	if err != nil {
		return nil, &ValidationError{Message: "Failed to import project: " + err.Error()}
	}

	backfill(p)
	now := s.timestamp()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now

	err = s.mutate(ctx, "import project", func(_ *store.Tx, doc *document) error {
		doc.Projects = append(doc.Projects, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func parseImport(data []byte) (*Project, error) {
	var probe struct {
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Icons json.RawMessage `json:"icons"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	icons := strings.TrimSpace(string(probe.Icons))
	if probe.ID == "" || probe.Name == "" || !strings.HasPrefix(icons, "[") {
		return nil, errors.New("Invalid project format")
	}

	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// NewQueueItem returns a pending item carrying the project's generation
// defaults.
func NewQueueItem(p *Project, name, prompt string) QueueItem {
	return QueueItem{
		Name:              name,
		Prompt:            prompt,
		Priority:          1,
		Status:            StatusPending,
		Provider:          p.Settings.DefaultProvider,
		Model:             p.Settings.DefaultModel,
		Quality:           p.Settings.DefaultQuality,
		Style:             p.Settings.DefaultStyle,
		UseProjectPalette: p.Settings.GenerateWithPalette,
		NoText:            true,
		AspectRatio:       models.AspectSquare,
	}
}

// AddToQueue appends item to the project queue as pending. Empty
// generation fields take the project defaults.
func (s *Store) AddToQueue(ctx context.Context, projectID string, item QueueItem) (*QueueItem, error) {
	item.Prompt = strings.TrimSpace(item.Prompt)
	if item.Prompt == "" {
		return nil, &ValidationError{Message: "Prompt is required"}
	}
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		item.Name = truncate(item.Prompt, 30)
	}
	if item.AspectRatio != "" && !item.AspectRatio.IsValid() {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid aspect ratio %q", item.AspectRatio)}
	}

	err := s.mutate(ctx, "add to queue", func(_ *store.Tx, doc *document) error {
		p, err := doc.mustFind(projectID)
		if err != nil {
			return err
		}
		item.ID = uuid.NewString()
		item.Status = StatusPending
		item.CreatedAt = s.timestamp()
		item.Result = nil
		item.Error = ""
		if item.Priority <= 0 {
			item.Priority = 1
		}
		if item.Provider == "" {
			item.Provider = p.Settings.DefaultProvider
		}
		if item.Model == "" {
			item.Model = p.Settings.DefaultModel
		}
		if item.Quality == "" {
			item.Quality = p.Settings.DefaultQuality
		}
		if item.Style == "" {
			item.Style = p.Settings.DefaultStyle
		}
		if item.AspectRatio == "" {
			item.AspectRatio = models.AspectSquare
		}
		p.GenerationQueue = append(p.GenerationQueue, item)
		p.UpdatedAt = item.CreatedAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// UpdateQueueItem applies fn to one queue item and returns the result.
func (s *Store) UpdateQueueItem(ctx context.Context, projectID, itemID string, fn func(item *QueueItem)) (*QueueItem, error) {
	var out QueueItem
	err := s.mutate(ctx, "update queue item", func(_ *store.Tx, doc *document) error {
		p, err := doc.mustFind(projectID)
		if err != nil {
			return err
		}
		i := p.findQueueItem(itemID)
		if i < 0 {
			return &NotFoundError{Resource: "queue item", ID: itemID}
		}
		fn(&p.GenerationQueue[i])
		p.GenerationQueue[i].ID = itemID
		p.UpdatedAt = s.timestamp()
		out = p.GenerationQueue[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) RemoveFromQueue(ctx context.Context, projectID, itemID string) error {
	return s.mutate(ctx, "remove from queue", func(_ *store.Tx, doc *document) error {
		p, err := doc.mustFind(projectID)
		if err != nil {
			return err
		}
		i := p.findQueueItem(itemID)
		if i < 0 {
			return errSkip
		}
		p.GenerationQueue = append(p.GenerationQueue[:i], p.GenerationQueue[i+1:]...)
		p.UpdatedAt = s.timestamp()
		return nil
	})
}

// ClearCompletedQueue drops completed and failed items and reports how
// many were removed.
func (s *Store) ClearCompletedQueue(ctx context.Context, projectID string) (int, error) {
	removed := 0
	err := s.mutate(ctx, "clear queue", func(_ *store.Tx, doc *document) error {
		p, err := doc.mustFind(projectID)
		if err != nil {
			return err
		}
		kept := p.GenerationQueue[:0]
		for _, item := range p.GenerationQueue {
			if item.Status == StatusCompleted || item.Status == StatusFailed {
				removed++
				continue
			}
			kept = append(kept, item)
		}
		if removed == 0 {
			return errSkip
		}
		p.GenerationQueue = kept
		p.UpdatedAt = s.timestamp()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// SortQueue returns a copy of items ordered by priority, highest first.
// Equal priorities keep their insertion order.
func SortQueue(items []QueueItem) []QueueItem {
	out := make([]QueueItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// Usage reports the bytes held by the store and its quota.
func (s *Store) Usage(ctx context.Context) (used, quota int64, err error) {
	used, err = s.kv.Usage(ctx)
	if err != nil {
		return 0, 0, err
	}
	return used, s.kv.Quota(), nil
}

// ClearAll removes every project, the current pointer, user settings,
// recent prompts and the cost history.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.kv.Clear(ctx); err != nil {
		return err
	}
	slog.Info("cleared all stored data")
	return nil
}

