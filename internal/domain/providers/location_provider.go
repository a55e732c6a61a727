package providers

import (
	"context"

	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
)

// LocationProvider is the device location capability consumed by discovery
type LocationProvider interface {
	// RequestPermission asks for foreground location access
	RequestPermission(ctx context.Context) (entities.PermissionStatus, error)

	// CurrentCoordinates returns the current position fix
	CurrentCoordinates(ctx context.Context, accuracy entities.Accuracy) (*entities.Coordinates, error)
}
