package discovery

import (
	"fmt"
	"sync"

	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
)

// FilterState holds at most one selected category, or none for "all", and
// whether the category picker is open. The zero value is ready to use.
type FilterState struct {
	mu         sync.RWMutex
	categories map[string]*entities.Category
	ordered    []*entities.Category
	selected   *string
	open       bool
}

// SetCategories replaces the known categories. A selection that no longer
// exists is cleared; it reports whether that happened.
func (f *FilterState) SetCategories(categories []*entities.Category) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.categories = make(map[string]*entities.Category, len(categories))
	for _, c := range categories {
		f.categories[c.ID] = c
	}
	f.ordered = append([]*entities.Category(nil), categories...)

	if f.selected != nil {
		if _, ok := f.categories[*f.selected]; !ok {
			f.selected = nil
			return true
		}
	}
	return false
}

// Categories returns the known categories in load order
func (f *FilterState) Categories() []*entities.Category {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]*entities.Category(nil), f.ordered...)
}

// Select sets the filter to a known category and closes the picker
func (f *FilterState) Select(categoryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.categories[categoryID]; !ok {
		return apperrors.NewValidationError(fmt.Sprintf("unknown category %q", categoryID))
	}
	id := categoryID
	f.selected = &id
	f.open = false
	return nil
}

// Clear selects "all" and closes the picker
func (f *FilterState) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = nil
	f.open = false
}

// Selected returns a copy of the selected category id, or nil
func (f *FilterState) Selected() *string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.selected == nil {
		return nil
	}
	id := *f.selected
	return &id
}

// SelectedCategory returns the selected category, or nil
func (f *FilterState) SelectedCategory() *entities.Category {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.selected == nil {
		return nil
	}
	return f.categories[*f.selected]
}

// Open shows the picker
func (f *FilterState) Open() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = true
}

// IsOpen reports whether the picker is shown
func (f *FilterState) IsOpen() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.open
}
