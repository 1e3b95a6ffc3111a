package driven

import (
	"context"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
)

// IdentityResolver turns directory object ids into names and user types.
// Implementations cache results for the duration of a run.
type IdentityResolver interface {
	// ResolvePrincipalName returns the UPN (or mail) of a user.
	// Input already containing "@" is returned unchanged.
	ResolvePrincipalName(ctx context.Context, id string) (string, bool)

	// ResolveGroupName returns the mail (or display name) of a group.
	// Input already containing "@" is returned unchanged.
	ResolveGroupName(ctx context.Context, id string) (string, bool)

	// ClassifyUser reports whether id names a user or a group.
	ClassifyUser(ctx context.Context, id string) domain.UserType

	// GroupIDsForEmail returns the ids of groups whose mail is email.
	GroupIDsForEmail(ctx context.Context, email string) []string

	// Reset empties all caches and logs their statistics.
	Reset()
}
