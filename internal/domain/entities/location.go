package entities

// Coordinates represents geographical coordinates
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Accuracy is the precision hint passed to a location source.
type Accuracy string

const (
	AccuracyLow      Accuracy = "low"
	AccuracyBalanced Accuracy = "balanced"
	AccuracyHigh     Accuracy = "high"
)

// PermissionStatus is the answer of a location source to a permission request.
type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)
