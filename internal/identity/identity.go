// Package identity provides the staff and tenancy bounded context API.
package identity

import (
	"context"

	"dealer_crm_backend/internal/identity/transport"

	"github.com/google/uuid"
)

// Service defines the public interface for staff operations.
// Other domains should depend on this interface, not on concrete implementations.
type Service interface {
	// TelegramStatus returns the linking code and link state of a user.
	TelegramStatus(ctx context.Context, userID uuid.UUID) (transport.TelegramLinkResponse, error)
}
