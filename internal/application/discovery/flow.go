// Package discovery drives the nearby-provider screen: permission, position
// fix, nearby query and category filtering.
package discovery

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/servicemapcy/servicemap/backend/internal/application/services"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/providers"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
)

// State is a step of the discovery flow
type State string

const (
	StateIdle                 State = "idle"
	StateRequestingPermission State = "requesting_permission"
	StatePermissionDenied     State = "permission_denied"
	StateAcquiringLocation    State = "acquiring_location"
	StateLocationFailed       State = "location_failed"
	StateQuerying             State = "querying"
	StateLoaded               State = "loaded"
	StateQueryFailed          State = "query_failed"
)

// NearbyFinder runs the nearby query
type NearbyFinder interface {
	FindNearby(ctx context.Context, q services.NearbyQuery) ([]*entities.NearbyProvider, error)
}

// CategoryLister loads the category taxonomy
type CategoryLister interface {
	ListCategories(ctx context.Context) ([]*entities.Category, error)
}

// Snapshot is an immutable view of the flow
type Snapshot struct {
	State       State
	Coordinates *entities.Coordinates
	CategoryID  *string
	Providers   []*entities.NearbyProvider
	Err         error
	// Seq is the id of the request that produced this snapshot
	Seq uint64
}

// Observer receives every transition. Observers run synchronously in
// transition order and must not call back into the flow's mutating methods.
type Observer func(Snapshot)

// Flow is the discovery state machine. Responses are fenced by request id:
// only the latest request may move the flow out of an in-flight state, so a
// slow stale response can never overwrite a newer one.
type Flow struct {
	location   providers.LocationProvider
	finder     NearbyFinder
	categories CategoryLister
	filter     *FilterState
	radiusKm   float64
	accuracy   entities.Accuracy

	mu        sync.Mutex
	state     State
	coords    *entities.Coordinates
	providers []*entities.NearbyProvider
	err       error
	seq       uint64

	notifyMu  sync.Mutex
	observers map[int]Observer
	nextObs   int
}

// NewFlow creates a flow in the idle state. radiusKm <= 0 uses the service
// default.
func NewFlow(location providers.LocationProvider, finder NearbyFinder, categories CategoryLister, radiusKm float64) *Flow {
	return &Flow{
		location:   location,
		finder:     finder,
		categories: categories,
		filter:     &FilterState{},
		radiusKm:   radiusKm,
		accuracy:   entities.AccuracyBalanced,
		state:      StateIdle,
		observers:  make(map[int]Observer),
	}
}

// Filter returns the category filter of the flow
func (f *Flow) Filter() *FilterState {
	return f.filter
}

// Observe registers an observer and returns a function removing it
func (f *Flow) Observe(o Observer) func() {
	f.notifyMu.Lock()
	defer f.notifyMu.Unlock()
	id := f.nextObs
	f.nextObs++
	f.observers[id] = o
	return func() {
		f.notifyMu.Lock()
		defer f.notifyMu.Unlock()
		delete(f.observers, id)
	}
}

// Snapshot returns the current view
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Flow) snapshotLocked() Snapshot {
	return Snapshot{
		State:       f.state,
		Coordinates: f.coords,
		CategoryID:  f.filter.Selected(),
		Providers:   f.providers,
		Err:         f.err,
		Seq:         f.seq,
	}
}

// LoadCategories fills the filter with the category taxonomy
func (f *Flow) LoadCategories(ctx context.Context) ([]*entities.Category, error) {
	categories, err := f.categories.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if f.filter.SetCategories(categories) {
		log.Debug().Msg("selected category no longer exists, filter cleared")
	}
	return categories, nil
}

// Activate starts the flow from the permission request. It is also the
// retry entry after PermissionDenied or LocationFailed. It returns the
// snapshot the run ended in.
func (f *Flow) Activate(ctx context.Context) Snapshot {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.mu.Unlock()

	return f.locateAndQuery(ctx, seq)
}

// SelectCategory selects a category and re-runs the query when results are
// on screen
func (f *Flow) SelectCategory(ctx context.Context, categoryID string) (Snapshot, error) {
	if err := f.filter.Select(categoryID); err != nil {
		return f.Snapshot(), err
	}
	return f.filterChanged(ctx), nil
}

// ClearCategory selects "all"
func (f *Flow) ClearCategory(ctx context.Context) Snapshot {
	f.filter.Clear()
	return f.filterChanged(ctx)
}

func (f *Flow) filterChanged(ctx context.Context) Snapshot {
	f.mu.Lock()
	switch f.state {
	case StateLoaded, StateQueryFailed, StateQuerying:
	case StateIdle, StateRequestingPermission, StateAcquiringLocation, StatePermissionDenied, StateLocationFailed:
		// Either nothing is shown yet or an in-flight run will read the
		// new filter when it reaches the query.
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap
	}

	f.seq++
	seq := f.seq
	coords := f.coords
	f.mu.Unlock()

	if coords == nil {
		return f.locateAndQuery(ctx, seq)
	}
	return f.query(ctx, seq, *coords)
}

func (f *Flow) locateAndQuery(ctx context.Context, seq uint64) Snapshot {
	if snap, ok := f.transition(seq, StateRequestingPermission, nil); !ok {
		return snap
	}

	status, err := f.location.RequestPermission(ctx)
	if err == nil && status != entities.PermissionGranted {
		err = apperrors.NewPermissionDeniedError("location permission was not granted")
	}
	if err != nil {
		if !apperrors.IsType(err, apperrors.ErrorTypePermissionDenied) {
			err = apperrors.NewPermissionDeniedError("location permission request failed")
		}
		snap, _ := f.transition(seq, StatePermissionDenied, err)
		return snap
	}

	if snap, ok := f.transition(seq, StateAcquiringLocation, nil); !ok {
		return snap
	}

	coords, err := f.location.CurrentCoordinates(ctx, f.accuracy)
	if err != nil {
		snap, _ := f.transition(seq, StateLocationFailed, err)
		return snap
	}

	f.mu.Lock()
	if seq == f.seq {
		f.coords = coords
	}
	f.mu.Unlock()

	return f.query(ctx, seq, *coords)
}

func (f *Flow) query(ctx context.Context, seq uint64, coords entities.Coordinates) Snapshot {
	if snap, ok := f.transition(seq, StateQuerying, nil); !ok {
		return snap
	}

	results, err := f.finder.FindNearby(ctx, services.NearbyQuery{
		Latitude:   coords.Latitude,
		Longitude:  coords.Longitude,
		RadiusKm:   f.radiusKm,
		CategoryID: f.filter.Selected(),
	})
	if err != nil {
		snap, _ := f.transition(seq, StateQueryFailed, err)
		return snap
	}

	f.mu.Lock()
	if seq != f.seq {
		snap := f.snapshotLocked()
		f.mu.Unlock()
		log.Debug().Uint64("seq", seq).Uint64("latest", snap.Seq).Msg("discarding stale nearby response")
		return snap
	}
	f.providers = results
	f.mu.Unlock()

	snap, _ := f.transition(seq, StateLoaded, nil)
	return snap
}

// transition moves to next when seq is still the latest request. It returns
// the resulting snapshot and whether the move happened.
func (f *Flow) transition(seq uint64, next State, err error) (Snapshot, bool) {
	f.mu.Lock()
	if seq != f.seq {
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap, false
	}

	f.state = next
	f.err = err
	if next == StatePermissionDenied || next == StateLocationFailed || next == StateQueryFailed {
		f.providers = nil
	}
	snap := f.snapshotLocked()

	// Taking notifyMu before releasing mu keeps notifications in
	// transition order.
	f.notifyMu.Lock()
	f.mu.Unlock()
	defer f.notifyMu.Unlock()

	for _, o := range f.observers {
		o(snap)
	}
	return snap, true
}
