package notification

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores durable push registrations
type Repository interface {
	// Save inserts a registration or refreshes the keys of an existing endpoint
	Save(ctx context.Context, reg *PushRegistration) error

	List(ctx context.Context) ([]*PushRegistration, error)

	Delete(ctx context.Context, id uuid.UUID) error

	DeleteByEndpoint(ctx context.Context, endpoint string) error
}
