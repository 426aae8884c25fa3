package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed piece of infrastructure: the database,
// the blob store, the Redis lock client, the Kafka writer, the HTTP server.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is what a component reports about itself in the startup summary.
type Description struct {
	// Name is the display name. Defaults to the component's Name().
	Name string
	// Type is a category such as "database", "storage" or "server".
	Type string
	// Details is a one-line summary, e.g. "sqlite stenopro.db".
	Details string
	// Port is the primary port, 0 if not applicable.
	Port int
}

// Describable is optionally implemented by components that appear in the
// startup summary.
type Describable interface {
	Describe() Description
}
