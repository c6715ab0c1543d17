package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/manash/iconforge/internal/batch"
	"github.com/manash/iconforge/internal/dispatch"
	"github.com/manash/iconforge/internal/gallery"
	"github.com/manash/iconforge/internal/palette"
	"github.com/manash/iconforge/internal/project"
	"github.com/manash/iconforge/internal/prompt"
	"github.com/manash/iconforge/internal/store"
	"github.com/manash/iconforge/internal/style"
	"github.com/manash/iconforge/pkg/models"
)

// Deps are the collaborators the handlers need.
type Deps struct {
	Dispatcher *dispatch.Dispatcher
	Projects   *project.Store
	Costs      *store.Store
	Runner     *batch.Runner
	Gallery    *gallery.Gallery
	Hub        *Hub
}

type Handler struct {
	dispatcher *dispatch.Dispatcher
	projects   *project.Store
	costs      *store.Store
	runner     *batch.Runner
	gallery    *gallery.Gallery
	hub        *Hub

	// bg outlives requests; queue runs started over HTTP use it.
	bg context.Context
	wg sync.WaitGroup
}

func NewHandler(ctx context.Context, d Deps) *Handler {
	return &Handler{
		dispatcher: d.Dispatcher,
		projects:   d.Projects,
		costs:      d.Costs,
		runner:     d.Runner,
		gallery:    d.Gallery,
		hub:        d.Hub,
		bg:         ctx,
	}
}

// Wait blocks until background queue runs have returned.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/generate", h.generate)
	mux.HandleFunc("POST /api/compose", h.compose)
	mux.HandleFunc("GET /api/gallery", h.listGallery)
	mux.HandleFunc("GET /img/{filename}", h.serveImage)

	mux.HandleFunc("GET /api/providers", h.listProviders)
	mux.HandleFunc("GET /api/styles", h.listStyles)
	mux.HandleFunc("GET /api/palettes", h.listPalettes)

	mux.HandleFunc("GET /api/settings", h.getSettings)
	mux.HandleFunc("PATCH /api/settings", h.updateSettings)
	mux.HandleFunc("DELETE /api/settings", h.resetSettings)
	mux.HandleFunc("GET /api/recent-prompts", h.listRecentPrompts)
	mux.HandleFunc("POST /api/recent-prompts", h.addRecentPrompt)
	mux.HandleFunc("DELETE /api/recent-prompts", h.clearRecentPrompts)

	mux.HandleFunc("GET /api/storage", h.getStorage)
	mux.HandleFunc("DELETE /api/storage", h.clearStorage)
	mux.HandleFunc("GET /api/costs", h.getCosts)

	mux.HandleFunc("GET /api/projects", h.listProjects)
	mux.HandleFunc("POST /api/projects", h.createProject)
	mux.HandleFunc("POST /api/projects/import", h.importProject)
	mux.HandleFunc("GET /api/projects/current", h.getCurrentProject)
	mux.HandleFunc("PUT /api/projects/current", h.setCurrentProject)
	mux.HandleFunc("GET /api/projects/{id}", h.getProject)
	mux.HandleFunc("PATCH /api/projects/{id}", h.updateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", h.deleteProject)
	mux.HandleFunc("GET /api/projects/{id}/export", h.exportProject)
	mux.HandleFunc("POST /api/projects/{id}/icons", h.addIcon)
	mux.HandleFunc("DELETE /api/projects/{id}/icons/{iconId}", h.removeIcon)
	mux.HandleFunc("PUT /api/projects/{id}/palette", h.updatePalette)

	mux.HandleFunc("GET /api/projects/{id}/queue", h.listQueue)
	mux.HandleFunc("POST /api/projects/{id}/queue", h.addToQueue)
	mux.HandleFunc("POST /api/projects/{id}/queue/run", h.runQueue)
	mux.HandleFunc("POST /api/projects/{id}/queue/clear", h.clearQueue)
	mux.HandleFunc("PATCH /api/projects/{id}/queue/{itemId}", h.updateQueueItem)
	mux.HandleFunc("DELETE /api/projects/{id}/queue/{itemId}", h.removeQueueItem)
	mux.HandleFunc("POST /api/projects/{id}/queue/{itemId}/run", h.runQueueItem)

	if h.hub != nil {
		mux.HandleFunc("GET /api/ws", h.hub.ServeWS)
	}
}

// generateRequest is a finalized request plus the raw text it was composed
// from, which is what recent prompts remember.
type generateRequest struct {
	models.Request
	RawPrompt string `json:"rawPrompt,omitempty"`
}

type generateResponse struct {
	Success        bool                `json:"success"`
	ImageURL       string              `json:"imageUrl"`
	Provider       models.ProviderType `json:"provider"`
	Model          string              `json:"model"`
	Cost           float64             `json:"cost"`
	GenerationTime int64               `json:"generationTime"`
	RevisedPrompt  string              `json:"revisedPrompt,omitempty"`
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.dispatcher.Generate(r.Context(), &req.Request)
	if err != nil {
		Error(w, err)
		return
	}

	recent := req.RawPrompt
	if strings.TrimSpace(recent) == "" {
		recent = req.Prompt
	}
	if err := h.projects.AddRecentPrompt(r.Context(), recent); err != nil {
		slog.Warn("failed to record recent prompt", "error", err)
	}

	JSON(w, http.StatusOK, generateResponse{
		Success:        true,
		ImageURL:       result.ImageURL,
		Provider:       result.Provider,
		Model:          result.Model,
		Cost:           result.Cost,
		GenerationTime: result.GenerationTimeMs,
		RevisedPrompt:  result.RevisedPrompt,
	})
}

type composeRequest struct {
	Prompt           string             `json:"prompt"`
	ProjectID        string             `json:"projectId,omitempty"`
	StyleID          string             `json:"styleId,omitempty"`
	UsePalette       bool               `json:"usePalette"`
	CreateBackground bool               `json:"createBackground"`
	NoText           bool               `json:"noText"`
	NoBackground     bool               `json:"noBackground"`
	Monochrome       bool               `json:"monochrome"`
	AspectRatio      models.AspectRatio `json:"aspectRatio,omitempty"`
}

type composeResponse struct {
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
}

// compose previews the finalized prompt for raw text and modifiers, using
// the palette of the named project.
func (h *Handler) compose(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		BadRequest(w, "Prompt is required")
		return
	}

	opts := prompt.Options{
		UsePalette:       req.UsePalette,
		CreateBackground: req.CreateBackground,
		NoText:           req.NoText,
		NoBackground:     req.NoBackground,
		Monochrome:       req.Monochrome,
		AspectRatio:      req.AspectRatio,
	}
	if req.StyleID != "" {
		preset, ok := style.Lookup(req.StyleID)
		if !ok {
			BadRequest(w, fmt.Sprintf("Unknown style: %s", req.StyleID))
			return
		}
		opts.StyleInjection = preset.Injection
	}
	if req.UsePalette && req.ProjectID != "" {
		p, err := h.projects.Get(r.Context(), req.ProjectID)
		if err != nil {
			Error(w, err)
			return
		}
		opts.Palette = p.ColorPalette
	}

	JSON(w, http.StatusOK, composeResponse{
		Prompt: prompt.Compose(req.Prompt, opts),
		Size:   prompt.SizeFor(req.AspectRatio),
	})
}

func (h *Handler) listGallery(w http.ResponseWriter, r *http.Request) {
	images, err := h.gallery.List(r.Context())
	if err != nil {
		JSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load gallery images"})
		return
	}
	JSON(w, http.StatusOK, images)
}

func (h *Handler) serveImage(w http.ResponseWriter, r *http.Request) {
	path, err := h.gallery.Path(r.PathValue("filename"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

type modelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	CostText    string `json:"costText,omitempty"`
	Default     bool   `json:"default"`
}

type providerInfo struct {
	models.ProviderInfo
	Available bool        `json:"available"`
	Models    []modelInfo `json:"models"`
}

func (h *Handler) listProviders(w http.ResponseWriter, r *http.Request) {
	reg := h.dispatcher.Registry()
	available := h.dispatcher.Available()

	out := make([]providerInfo, 0, len(models.KnownProviders()))
	for _, pt := range models.KnownProviders() {
		info, _ := models.LookupProvider(pt)
		pi := providerInfo{ProviderInfo: info, Models: []modelInfo{}}
		for _, a := range available {
			if a == pt {
				pi.Available = true
			}
		}
		def := reg.DefaultModel(pt)
		for _, name := range reg.ListByProvider(pt) {
			caps, _ := reg.Get(name)
			pi.Models = append(pi.Models, modelInfo{
				Name:        caps.Name,
				DisplayName: caps.DisplayName,
				Description: caps.Description,
				CostText:    caps.CostText,
				Default:     name == def,
			})
		}
		out = append(out, pi)
	}
	JSON(w, http.StatusOK, out)
}

func (h *Handler) listStyles(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, style.All())
}

type themeInfo struct {
	Theme   palette.Theme    `json:"theme"`
	Palette *palette.Palette `json:"palette"`
}

func (h *Handler) listPalettes(w http.ResponseWriter, r *http.Request) {
	out := make([]themeInfo, 0, len(palette.Themes()))
	for _, t := range palette.Themes() {
		out = append(out, themeInfo{Theme: t, Palette: palette.Default(t)})
	}
	JSON(w, http.StatusOK, out)
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.projects.UserSettings(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, s)
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch project.SettingsPatch
	if !decode(w, r, &patch) {
		return
	}
	s, err := h.projects.SaveUserSettings(r.Context(), patch)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, s)
}

func (h *Handler) resetSettings(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.ResetUserSettings(r.Context()); err != nil {
		Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listRecentPrompts(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.projects.RecentPrompts(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, prompts)
}

func (h *Handler) addRecentPrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		BadRequest(w, "Prompt is required")
		return
	}
	if err := h.projects.AddRecentPrompt(r.Context(), req.Prompt); err != nil {
		Error(w, err)
		return
	}
	h.listRecentPrompts(w, r)
}

func (h *Handler) clearRecentPrompts(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.ClearRecentPrompts(r.Context()); err != nil {
		Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type storageResponse struct {
	Used      int64   `json:"used"`
	Quota     int64   `json:"quota"`
	Percent   float64 `json:"percent"`
	UsedHuman string  `json:"usedHuman"`
}

func (h *Handler) getStorage(w http.ResponseWriter, r *http.Request) {
	used, quota, err := h.projects.Usage(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	resp := storageResponse{Used: used, Quota: quota, UsedHuman: humanize.Bytes(uint64(used))}
	if quota > 0 {
		resp.Percent = float64(used) / float64(quota) * 100
	}
	JSON(w, http.StatusOK, resp)
}

func (h *Handler) clearStorage(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.ClearAll(r.Context()); err != nil {
		Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type costsResponse struct {
	Total      *store.CostSummary          `json:"total"`
	ByProvider []store.ProviderCostSummary `json:"byProvider"`
	Project    *store.CostSummary          `json:"project,omitempty"`
	Range      *store.CostSummary          `json:"range,omitempty"`
}

// getCosts reports spend from the cost log. Optional query parameters:
// project, and from/to as RFC 3339 timestamps.
func (h *Handler) getCosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var resp costsResponse
	var err error
	if resp.Total, err = h.costs.GetTotalCost(ctx); err != nil {
		Error(w, err)
		return
	}
	if resp.ByProvider, err = h.costs.GetCostByProvider(ctx); err != nil {
		Error(w, err)
		return
	}
	if resp.ByProvider == nil {
		resp.ByProvider = []store.ProviderCostSummary{}
	}

	if id := q.Get("project"); id != "" {
		if resp.Project, err = h.costs.GetProjectCost(ctx, id); err != nil {
			Error(w, err)
			return
		}
	}

	if q.Has("from") || q.Has("to") {
		from, to := time.Time{}, time.Now()
		if v := q.Get("from"); v != "" {
			if from, err = time.Parse(time.RFC3339, v); err != nil {
				BadRequest(w, "Invalid from timestamp")
				return
			}
		}
		if v := q.Get("to"); v != "" {
			if to, err = time.Parse(time.RFC3339, v); err != nil {
				BadRequest(w, "Invalid to timestamp")
				return
			}
		}
		if resp.Range, err = h.costs.GetCostByDateRange(ctx, from, to); err != nil {
			Error(w, err)
			return
		}
	}

	JSON(w, http.StatusOK, resp)
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, projects)
}

type createProjectRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Theme       palette.Theme `json:"theme"`
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.projects.Create(r.Context(), req.Name, req.Description, req.Theme)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusCreated, p)
}

func (h *Handler) importProject(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		BadRequest(w, "Invalid request body")
		return
	}
	p, err := h.projects.Import(r.Context(), data)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusCreated, p)
}

// getCurrentProject returns the current project, creating the default one
// on first use.
func (h *Handler) getCurrentProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.EnsureDefault(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, p)
}

func (h *Handler) setCurrentProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !decode(w, r, &req) {
		return
	}
	p, err := h.projects.SetCurrent(r.Context(), req.ID)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, p)
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, p)
}

type updateProjectRequest struct {
	Name        *string                `json:"name,omitempty"`
	Description *string                `json:"description,omitempty"`
	Settings    *project.SettingsPatch `json:"settings,omitempty"`
}

func (h *Handler) updateProject(w http.ResponseWriter, r *http.Request) {
	var req updateProjectRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		BadRequest(w, "Project name is required")
		return
	}

	id := r.PathValue("id")
	if _, err := h.projects.Get(r.Context(), id); err != nil {
		Error(w, err)
		return
	}
	err := h.projects.Update(r.Context(), id, func(p *project.Project) {
		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.Settings != nil {
			req.Settings.Apply(&p.Settings)
		}
	})
	if err != nil {
		Error(w, err)
		return
	}
	h.getProject(w, r)
}

func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.Delete(r.Context(), r.PathValue("id")); err != nil {
		Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) exportProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := h.projects.Get(r.Context(), id)
	if err != nil {
		Error(w, err)
		return
	}
	data, err := h.projects.Export(r.Context(), id)
	if err != nil {
		Error(w, err)
		return
	}

	filename := strings.ToLower(strings.Join(strings.Fields(p.Name), "-")) + "-project.json"
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type addIconRequest struct {
	Result *models.Result `json:"result"`
	Prompt string         `json:"prompt"`
	Name   string         `json:"name,omitempty"`
}

func (h *Handler) addIcon(w http.ResponseWriter, r *http.Request) {
	var req addIconRequest
	if !decode(w, r, &req) {
		return
	}
	if !req.Result.HasImage() {
		BadRequest(w, "Result has no image")
		return
	}
	icon, err := h.projects.AddIcon(r.Context(), r.PathValue("id"), req.Result, req.Prompt, req.Name)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusCreated, icon)
}

func (h *Handler) removeIcon(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.RemoveIcon(r.Context(), r.PathValue("id"), r.PathValue("iconId")); err != nil {
		Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updatePalette(w http.ResponseWriter, r *http.Request) {
	var pal palette.Palette
	if !decode(w, r, &pal) {
		return
	}
	saved, err := h.projects.UpdatePalette(r.Context(), r.PathValue("id"), &pal)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, saved)
}

// listQueue returns the queue in run order: priority first, then
// insertion.
func (h *Handler) listQueue(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, project.SortQueue(p.GenerationQueue))
}

func (h *Handler) addToQueue(w http.ResponseWriter, r *http.Request) {
	var in batch.Item
	if !decode(w, r, &in) {
		return
	}

	id := r.PathValue("id")
	p, err := h.projects.Get(r.Context(), id)
	if err != nil {
		Error(w, err)
		return
	}
	qi, err := in.QueueItem(p)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	item, err := h.projects.AddToQueue(r.Context(), id, qi)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusCreated, item)
}

type updateQueueItemRequest struct {
	Name     *string `json:"name,omitempty"`
	Prompt   *string `json:"prompt,omitempty"`
	Priority *int    `json:"priority,omitempty"`
}

// updateQueueItem edits an item that has not started. A failed item can be
// edited too; editing it returns it to pending.
func (h *Handler) updateQueueItem(w http.ResponseWriter, r *http.Request) {
	var req updateQueueItemRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Prompt != nil && strings.TrimSpace(*req.Prompt) == "" {
		BadRequest(w, "Prompt is required")
		return
	}

	var conflict bool
	item, err := h.projects.UpdateQueueItem(r.Context(), r.PathValue("id"), r.PathValue("itemId"), func(it *project.QueueItem) {
		if it.Status == project.StatusGenerating || it.Status == project.StatusCompleted {
			conflict = true
			return
		}
		if req.Name != nil {
			it.Name = *req.Name
		}
		if req.Prompt != nil {
			it.Prompt = strings.TrimSpace(*req.Prompt)
		}
		if req.Priority != nil {
			it.Priority = *req.Priority
		}
		it.Status = project.StatusPending
		it.Error = ""
	})
	if err != nil {
		Error(w, err)
		return
	}
	if conflict {
		JSON(w, http.StatusConflict, map[string]string{"error": fmt.Sprintf("Queue item is %s", item.Status)})
		return
	}
	JSON(w, http.StatusOK, item)
}

func (h *Handler) removeQueueItem(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.RemoveFromQueue(r.Context(), r.PathValue("id"), r.PathValue("itemId")); err != nil {
		Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearQueue(w http.ResponseWriter, r *http.Request) {
	n, err := h.projects.ClearCompletedQueue(r.Context(), r.PathValue("id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (h *Handler) runQueueItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.runner.RunItem(r.Context(), r.PathValue("id"), r.PathValue("itemId"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, item)
}

type runQueueRequest struct {
	ItemIDs []string `json:"itemIds,omitempty"`
}

// runQueue starts a run over the pending items. With ?wait=true it
// responds with the summary; otherwise it responds 202 at once and
// progress is pushed over /api/ws.
func (h *Handler) runQueue(w http.ResponseWriter, r *http.Request) {
	var req runQueueRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	id := r.PathValue("id")
	if _, err := h.projects.Get(r.Context(), id); err != nil {
		Error(w, err)
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		summary, err := h.runner.RunAll(r.Context(), id, req.ItemIDs)
		if err != nil {
			Error(w, err)
			return
		}
		JSON(w, http.StatusOK, summary)
		return
	}

	h.wg.Add(1)
	err := h.runner.Start(h.bg, id, req.ItemIDs, func(_ *batch.Summary, err error) {
		defer h.wg.Done()
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("queue run failed", "project", id, "error", err)
		}
	})
	if err != nil {
		h.wg.Done()
		Error(w, err)
		return
	}
	JSON(w, http.StatusAccepted, map[string]string{"status": "started", "projectId": id})
}
