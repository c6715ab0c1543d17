package project

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/manash/iconforge/internal/palette"
	"github.com/manash/iconforge/pkg/models"
)

// schemaVersion is written with every save. Version 0 is the bare project
// array written before the document wrapper existed.
const schemaVersion = 1

type document struct {
	SchemaVersion int        `json:"schemaVersion"`
	Projects      []*Project `json:"projects"`
}

func decodeDocument(data []byte) (*document, error) {
	doc := &document{SchemaVersion: schemaVersion, Projects: []*Project{}}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return doc, nil
	}

	if data[0] == '[' {
		doc.SchemaVersion = 0
		if err := json.Unmarshal(data, &doc.Projects); err != nil {
			return nil, fmt.Errorf("failed to decode projects: %w", err)
		}
	} else if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}

	migrate(doc)
	return doc, nil
}

// migrate upgrades doc in place to the current schema version.
func migrate(doc *document) {
	if doc.Projects == nil {
		doc.Projects = []*Project{}
	}
	if doc.SchemaVersion >= schemaVersion {
		return
	}
	for _, p := range doc.Projects {
		backfill(p)
	}
	doc.SchemaVersion = schemaVersion
}

// backfill fills every field that older data or imported files may lack.
func backfill(p *Project) {
	if p.Icons == nil {
		p.Icons = []SavedIcon{}
	}
	for i := range p.Icons {
		if p.Icons[i].Tags == nil {
			p.Icons[i].Tags = ExtractTags(p.Icons[i].Prompt)
		}
	}

	if p.GenerationQueue == nil {
		p.GenerationQueue = []QueueItem{}
	}
	for i := range p.GenerationQueue {
		item := &p.GenerationQueue[i]
		if item.Status == "" {
			item.Status = StatusPending
		}
		if item.Priority == 0 {
			item.Priority = 1
		}
		if item.AspectRatio == "" {
			item.AspectRatio = models.AspectSquare
		}
	}

	if p.ColorPalette == nil {
		p.ColorPalette = palette.Default(palette.ThemeFantasy)
	}
	if p.ColorPalette.Custom == nil {
		p.ColorPalette.Custom = []palette.CustomColor{}
	}

	def := DefaultSettings()
	s := &p.Settings
	if s.DefaultProvider == "" {
		*s = def
		return
	}
	if s.DefaultModel == "" {
		s.DefaultModel = def.DefaultModel
	}
	if s.DefaultQuality == "" {
		s.DefaultQuality = def.DefaultQuality
	}
	if s.DefaultStyle == "" {
		s.DefaultStyle = def.DefaultStyle
	}
	if s.BatchSize == 0 {
		s.BatchSize = def.BatchSize
	}
}
