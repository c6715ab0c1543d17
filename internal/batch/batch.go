// Package batch runs a project's generation queue.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/manash/iconforge/internal/project"
	"github.com/manash/iconforge/internal/prompt"
	"github.com/manash/iconforge/pkg/models"
)

// DefaultDelay separates consecutive items in RunAll.
const DefaultDelay = time.Second

var (
	ErrItemRunning    = errors.New("queue item is already generating")
	ErrAlreadyRunning = errors.New("queue is already running for this project")

	errNotPending = errors.New("queue item is no longer pending")
)

type Generator interface {
	Generate(ctx context.Context, req *models.Request) (*models.Result, error)
}

type ProjectStore interface {
	Get(ctx context.Context, id string) (*project.Project, error)
	UpdateQueueItem(ctx context.Context, projectID, itemID string, fn func(item *project.QueueItem)) (*project.QueueItem, error)
	AddIcon(ctx context.Context, projectID string, result *models.Result, prompt, name string) (*project.SavedIcon, error)
}

type ItemResult struct {
	ItemID string         `json:"itemId"`
	Name   string         `json:"name"`
	Prompt string         `json:"prompt"`
	Status project.Status `json:"status"`
	Cost   float64        `json:"cost,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type Summary struct {
	ProjectID string        `json:"projectId"`
	Results   []ItemResult  `json:"results"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	TotalCost float64       `json:"totalCost"`
	Duration  time.Duration `json:"durationNs"`
}

type Runner struct {
	Projects   ProjectStore
	Dispatcher Generator
	// Delay is waited between consecutive items of RunAll.
	Delay    time.Duration
	Notifier Notifier

	mu      sync.Mutex
	running map[string]bool
}

func NewRunner(projects ProjectStore, dispatcher Generator, notifier Notifier) *Runner {
	return &Runner{
		Projects:   projects,
		Dispatcher: dispatcher,
		Delay:      DefaultDelay,
		Notifier:   notifier,
	}
}

func (r *Runner) notify(e Event) {
	if r.Notifier != nil {
		r.Notifier.Notify(e)
	}
}

// RunItem generates one queue item whatever its current status, unless it
// is already generating. Generation failures are recorded on the item and
// do not produce an error; the error return is reserved for lookup and
// persistence failures.
//
// Once started, an item runs to completion even if ctx is canceled.
func (r *Runner) RunItem(ctx context.Context, projectID, itemID string) (*project.QueueItem, error) {
	return r.runItem(ctx, projectID, itemID, false, 0, 0)
}

// runItem moves the item to generating, dispatches it and records the
// outcome. With pendingOnly set, an item that left pending since the run
// was planned is skipped with errNotPending.
func (r *Runner) runItem(ctx context.Context, projectID, itemID string, pendingOnly bool, index, total int) (*project.QueueItem, error) {
	ctx = context.WithoutCancel(ctx)

	p, err := r.Projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var startErr error
	item, err := r.Projects.UpdateQueueItem(ctx, projectID, itemID, func(q *project.QueueItem) {
		switch {
		case q.Status == project.StatusGenerating:
			startErr = ErrItemRunning
			return
		case pendingOnly && q.Status != project.StatusPending:
			startErr = errNotPending
			return
		}
		q.Status = project.StatusGenerating
		q.Error = ""
		q.Result = nil
	})
	if err != nil {
		return nil, err
	}
	if startErr != nil {
		return nil, fmt.Errorf("%w: %s", startErr, itemID)
	}
	r.notify(Event{Type: EventItem, ProjectID: projectID, Item: *item, Index: index, Total: total})

	finalPrompt := prompt.Compose(item.Prompt, composeOptions(p, item))
	req := &models.Request{
		Prompt:   finalPrompt,
		Provider: item.Provider,
		Model:    item.Model,
		Quality:  item.Quality,
		Style:    item.Style,
		Size:     prompt.SizeFor(item.AspectRatio),
	}

	result, genErr := r.Dispatcher.Generate(ctx, req)

	item, err = r.finish(ctx, projectID, *item, result, genErr)
	if err != nil {
		r.notify(Event{Type: EventItem, ProjectID: projectID, Item: *item, Index: index, Total: total})
		return item, err
	}

	if item.Status == project.StatusCompleted {
		if _, err := r.Projects.AddIcon(ctx, projectID, result, finalPrompt, item.Name); err != nil {
			slog.Warn("generated icon not saved", "project", projectID, "item", itemID, "error", err)
		}
	}

	r.notify(Event{Type: EventItem, ProjectID: projectID, Item: *item, Index: index, Total: total})
	return item, nil
}

// finish persists the outcome of a generation. The stored item keeps the
// result metadata only; inline image data lives on the saved icon. If that
// write fails the item is stored as failed with the storage error so it can
// be re-submitted. The returned item always carries the full in-memory
// result. An error is returned only when neither write succeeded.
func (r *Runner) finish(ctx context.Context, projectID string, started project.QueueItem, result *models.Result, genErr error) (*project.QueueItem, error) {
	item, err := r.Projects.UpdateQueueItem(ctx, projectID, started.ID, func(q *project.QueueItem) {
		if genErr != nil {
			q.Status = project.StatusFailed
			q.Error = genErr.Error()
			return
		}
		q.Status = project.StatusCompleted
		q.Result = storedResult(result)
	})
	if err == nil {
		item.Result = result
		return item, nil
	}
	slog.Warn("queue item outcome not saved", "project", projectID, "item", started.ID, "error", err)

	saveErr := err
	msg := "result not saved: " + saveErr.Error()
	if genErr != nil {
		msg = genErr.Error()
	}
	item, err = r.Projects.UpdateQueueItem(ctx, projectID, started.ID, func(q *project.QueueItem) {
		q.Status = project.StatusFailed
		q.Error = msg
		q.Result = nil
	})
	if err == nil {
		item.Result = result
		return item, nil
	}

	started.Status = project.StatusFailed
	started.Error = msg
	started.Result = result
	return &started, errors.Join(saveErr, err)
}

// storedResult drops inline image data from a result kept on a queue item.
func storedResult(res *models.Result) *models.Result {
	if res == nil {
		return nil
	}
	out := *res
	if strings.HasPrefix(out.ImageURL, "data:") {
		out.ImageURL = ""
	}
	return &out
}

func composeOptions(p *project.Project, item *project.QueueItem) prompt.Options {
	opts := prompt.Options{
		Palette:          p.ColorPalette,
		UsePalette:       item.UseProjectPalette,
		CreateBackground: item.CreateBackground,
		NoText:           item.NoText,
		NoBackground:     item.NoBackground,
		Monochrome:       item.Monochrome,
		AspectRatio:      item.AspectRatio,
	}
	if item.SelectedStyle != nil {
		opts.StyleInjection = item.SelectedStyle.Injection
	}
	return opts
}

// RunAll runs the pending items among itemIDs one after another, waiting
// Delay between consecutive items. With no ids it runs every pending item
// of the project in priority order. Items that stop being pending before
// their turn, for example because RunItem ran them meanwhile, are skipped.
// Item failures never stop the run; ctx cancellation stops it before the
// next item.
func (r *Runner) RunAll(ctx context.Context, projectID string, itemIDs []string) (*Summary, error) {
	if !r.acquire(projectID) {
		return nil, ErrAlreadyRunning
	}
	defer r.release(projectID)
	return r.runAll(ctx, projectID, itemIDs)
}

// Start reserves the project's queue and runs it in the background. It
// returns ErrAlreadyRunning at once when a run is active. done, if set,
// receives the outcome after the reservation is released.
func (r *Runner) Start(ctx context.Context, projectID string, itemIDs []string, done func(*Summary, error)) error {
	if !r.acquire(projectID) {
		return ErrAlreadyRunning
	}
	go func() {
		summary, err := r.runAll(ctx, projectID, itemIDs)
		r.release(projectID)
		if done != nil {
			done(summary, err)
		}
	}()
	return nil
}

func (r *Runner) runAll(ctx context.Context, projectID string, itemIDs []string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{ProjectID: projectID, Results: []ItemResult{}}

	p, err := r.Projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ids := pendingIDs(p, itemIDs)

	slog.Info("batch started", "project", projectID, "items", len(ids))
	r.notify(Event{Type: EventBatchStarted, ProjectID: projectID, Total: len(ids)})

	ran := 0
	for i, id := range ids {
		if ran > 0 && r.Delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(r.Delay):
			}
		}
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}

		item, err := r.runItem(ctx, projectID, id, true, i+1, len(ids))
		if errors.Is(err, errNotPending) || errors.Is(err, ErrItemRunning) {
			slog.Debug("queue item no longer pending", "project", projectID, "item", id)
			continue
		}
		ran++
		if item == nil {
			slog.Warn("queue item skipped", "project", projectID, "item", id, "error", err)
			summary.Failed++
			summary.Results = append(summary.Results, ItemResult{ItemID: id, Status: project.StatusFailed, Error: err.Error()})
			continue
		}

		res := ItemResult{ItemID: item.ID, Name: item.Name, Prompt: item.Prompt, Status: item.Status, Error: item.Error}
		if item.Status == project.StatusCompleted {
			summary.Completed++
			if item.Result != nil {
				res.Cost = item.Result.Cost
				summary.TotalCost += item.Result.Cost
			}
		} else {
			summary.Failed++
		}
		summary.Results = append(summary.Results, res)
	}

	summary.Duration = time.Since(start)
	slog.Info("batch finished", "project", projectID, "completed", summary.Completed, "failed", summary.Failed)
	r.notify(Event{Type: EventBatchFinished, ProjectID: projectID, Total: len(ids), Summary: summary})
	return summary, nil
}

func pendingIDs(p *project.Project, requested []string) []string {
	var candidates []project.QueueItem
	if len(requested) == 0 {
		candidates = project.SortQueue(p.GenerationQueue)
	} else {
		byID := make(map[string]project.QueueItem, len(p.GenerationQueue))
		for _, item := range p.GenerationQueue {
			byID[item.ID] = item
		}
		for _, id := range requested {
			if item, ok := byID[id]; ok {
				candidates = append(candidates, item)
			}
		}
	}

	ids := []string{}
	for _, item := range candidates {
		if item.Status == project.StatusPending {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

func (r *Runner) acquire(projectID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running == nil {
		r.running = make(map[string]bool)
	}
	if r.running[projectID] {
		return false
	}
	r.running[projectID] = true
	return true
}

func (r *Runner) release(projectID string) {
	r.mu.Lock()
	delete(r.running, projectID)
	r.mu.Unlock()
}
