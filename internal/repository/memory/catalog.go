// Package memory is an in-process local catalog, used when no MongoDB is
// configured and for seeding.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"mookka/searchservice/internal/domain"
	"mookka/searchservice/internal/textmatch"
)

const defaultFindLimit = 20

type Catalog struct {
	mu    sync.RWMutex
	items []domain.MediaDetail
}

func NewCatalog(items []domain.MediaDetail) *Catalog {
	c := &Catalog{}
	c.Replace(items)
	return c
}

// Replace swaps the whole catalog content. Items without a valid type or
// a title are skipped.
func (c *Catalog) Replace(items []domain.MediaDetail) {
	kept := make([]domain.MediaDetail, 0, len(items))
	for _, item := range items {
		if !item.Type.Valid() || strings.TrimSpace(item.Title) == "" {
			continue
		}
		item = item.Clone()
		if strings.TrimSpace(item.ID) == "" {
			item.ID = string(item.Type) + ":" + strings.TrimSpace(item.ExternalID)
		}
		if item.Genres == nil {
			item.Genres = []string{}
		}
		item.PlatformCount = len(item.Platforms)
		item.FromLocalStore = true
		item.Source = "local"
		kept = append(kept, item)
	}
	c.mu.Lock()
	c.items = kept
	c.mu.Unlock()
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// All returns a copy of every entry.
func (c *Catalog) All() []domain.MediaDetail {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.MediaDetail, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item.Clone())
	}
	return out
}

// FindByTypeAndText matches text case and accent insensitively inside the
// title, author or director. Best rated items come first.
func (c *Catalog) FindByTypeAndText(ctx context.Context, mediaType domain.MediaType, text string, limit int) ([]domain.MediaSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	needle := textmatch.Fold(text)
	if needle == "" {
		return []domain.MediaSummary{}, nil
	}
	if limit <= 0 {
		limit = defaultFindLimit
	}

	c.mu.RLock()
	matches := make([]domain.MediaSummary, 0)
	for _, item := range c.items {
		if item.Type != mediaType {
			continue
		}
		if matchesText(item.MediaSummary, needle) {
			matches = append(matches, item.MediaSummary.Clone())
		}
	}
	c.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Rating != matches[j].Rating {
			return matches[i].Rating > matches[j].Rating
		}
		return matches[i].Title < matches[j].Title
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (c *Catalog) Get(ctx context.Context, mediaType domain.MediaType, id string) (domain.MediaDetail, error) {
	if err := ctx.Err(); err != nil {
		return domain.MediaDetail{}, err
	}
	id = strings.TrimSpace(id)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if item.Type != mediaType {
			continue
		}
		if item.ID == id || (item.ExternalID != "" && item.ExternalID == id) {
			return item.Clone(), nil
		}
	}
	return domain.MediaDetail{}, domain.ErrNotFound
}

func matchesText(item domain.MediaSummary, needle string) bool {
	for _, field := range []string{item.Title, item.AuthorValue(), item.DirectorValue()} {
		if field != "" && strings.Contains(textmatch.Fold(field), needle) {
			return true
		}
	}
	return false
}

// LoadFile reads a JSON array of catalog entries in the API's MediaDetail
// shape.
func LoadFile(path string) ([]domain.MediaDetail, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var items []domain.MediaDetail
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return items, nil
}
