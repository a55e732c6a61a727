package location

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/providers"
)

// ErrNoFix is returned when a provider has no position to report
var ErrNoFix = fmt.Errorf("no location fix available")

// cyprusCities maps lower-cased city names, in English and Greek, to their
// centre coordinates.
var cyprusCities = map[string]entities.Coordinates{
	"nicosia":    {Latitude: 35.1856, Longitude: 33.3823},
	"λευκωσία":   {Latitude: 35.1856, Longitude: 33.3823},
	"limassol":   {Latitude: 34.7071, Longitude: 33.0226},
	"λεμεσός":    {Latitude: 34.7071, Longitude: 33.0226},
	"larnaca":    {Latitude: 34.9003, Longitude: 33.6232},
	"λάρνακα":    {Latitude: 34.9003, Longitude: 33.6232},
	"paphos":     {Latitude: 34.7754, Longitude: 32.4245},
	"πάφος":      {Latitude: 34.7754, Longitude: 32.4245},
	"famagusta":  {Latitude: 35.1174, Longitude: 33.9415},
	"αμμόχωστος": {Latitude: 35.1174, Longitude: 33.9415},
	"kyrenia":    {Latitude: 35.3417, Longitude: 33.3167},
	"κερύνεια":   {Latitude: 35.3417, Longitude: 33.3167},
}

// LookupCity returns the coordinates of a Cyprus city by name
func LookupCity(name string) (entities.Coordinates, bool) {
	c, ok := cyprusCities[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// StaticProvider is a LocationProvider with a fixed position and a fixed
// permission answer. It backs the terminal front end and tests.
type StaticProvider struct {
	mu         sync.RWMutex
	permission entities.PermissionStatus
	coords     *entities.Coordinates
}

// NewStaticProvider returns a provider answering with coords. A nil coords
// makes every fix fail.
func NewStaticProvider(permission entities.PermissionStatus, coords *entities.Coordinates) *StaticProvider {
	return &StaticProvider{permission: permission, coords: coords}
}

// NewCityProvider returns a granted provider positioned at a Cyprus city
func NewCityProvider(city string) (*StaticProvider, error) {
	c, ok := LookupCity(city)
	if !ok {
		return nil, fmt.Errorf("unknown city %q", city)
	}
	return NewStaticProvider(entities.PermissionGranted, &c), nil
}

var _ providers.LocationProvider = (*StaticProvider)(nil)

// RequestPermission returns the configured answer
func (p *StaticProvider) RequestPermission(ctx context.Context) (entities.PermissionStatus, error) {
	if err := ctx.Err(); err != nil {
		return entities.PermissionUndetermined, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.permission, nil
}

// CurrentCoordinates returns the configured position regardless of accuracy
func (p *StaticProvider) CurrentCoordinates(ctx context.Context, _ entities.Accuracy) (*entities.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.coords == nil {
		return nil, ErrNoFix
	}
	c := *p.coords
	return &c, nil
}

// Move changes the reported position
func (p *StaticProvider) Move(coords *entities.Coordinates) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.coords = coords
}

// SetPermission changes the permission answer
func (p *StaticProvider) SetPermission(status entities.PermissionStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.permission = status
}
