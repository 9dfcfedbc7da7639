package provider

import (
	"context"

	"github.com/stoik/trustlayer/internal/models"
)

// Provider fetches stored emails from a mailbox provider (Google, Microsoft, etc.)
type Provider interface {
	// GetThread returns the primary message of a thread, or nil when the
	// provider has no such thread
	GetThread(ctx context.Context, threadID string) (*models.StoredEmail, error)

	// Type is the provider kind ("google", "microsoft")
	Type() string
}
