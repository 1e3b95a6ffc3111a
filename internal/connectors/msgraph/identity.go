package msgraph

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-graph/internal/cache"
	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-graph/internal/logger"
)

// Ensure IdentityResolver implements the interface.
var _ driven.IdentityResolver = (*IdentityResolver)(nil)

// lookup is a cached resolution. A negative result (not found) is cached too.
type lookup struct {
	value string
	found bool
}

// IdentityResolver resolves directory ids through four run-scoped caches.
type IdentityResolver struct {
	client  *Client
	backoff Backoff

	userTypes      *cache.LoadingCache[string, domain.UserType]
	groupsByEmail  *cache.LoadingCache[string, []string]
	principalNames *cache.LoadingCache[string, lookup]
	groupNames     *cache.LoadingCache[string, lookup]
}

// NewIdentityResolver creates a resolver whose caches hold up to maxSize entries each.
func NewIdentityResolver(client *Client, maxSize int, backoff Backoff) (*IdentityResolver, error) {
	r := &IdentityResolver{client: client, backoff: backoff}

	var err error
	if r.userTypes, err = cache.New("user-type", maxSize, r.loadUserType); err != nil {
		return nil, err
	}
	if r.groupsByEmail, err = cache.New("group-ids-by-email", maxSize, r.loadGroupIDs); err != nil {
		return nil, err
	}
	if r.principalNames, err = cache.New("principal-name", maxSize, r.loadPrincipalName); err != nil {
		return nil, err
	}
	if r.groupNames, err = cache.New("group-name", maxSize, r.loadGroupName); err != nil {
		return nil, err
	}
	return r, nil
}

// ResolvePrincipalName returns the UPN of a user id.
func (r *IdentityResolver) ResolvePrincipalName(ctx context.Context, id string) (string, bool) {
	if id == "" {
		return "", false
	}
	if domain.LooksLikeEmail(id) {
		return id, true
	}
	res, err := r.principalNames.Get(ctx, id)
	if err != nil {
		r.warn("principal name", id, err)
		return "", false
	}
	return res.value, res.found
}

// ResolveGroupName returns the mail, or display name, of a group id.
func (r *IdentityResolver) ResolveGroupName(ctx context.Context, id string) (string, bool) {
	if id == "" {
		return "", false
	}
	if domain.LooksLikeEmail(id) {
		return id, true
	}
	res, err := r.groupNames.Get(ctx, id)
	if err != nil {
		r.warn("group name", id, err)
		return "", false
	}
	return res.value, res.found
}

// ClassifyUser reports whether id names a user or a group.
func (r *IdentityResolver) ClassifyUser(ctx context.Context, id string) domain.UserType {
	if id == "" {
		return domain.UserTypeUnknown
	}
	t, err := r.userTypes.Get(ctx, id)
	if err != nil {
		r.warn("user type", id, err)
		return domain.UserTypeUnknown
	}
	return t
}

// GroupIDsForEmail returns the ids of groups with the given mail address.
func (r *IdentityResolver) GroupIDsForEmail(ctx context.Context, email string) []string {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	ids, err := r.groupsByEmail.Get(ctx, strings.ToLower(email))
	if err != nil {
		r.warn("group ids", email, err)
		return nil
	}
	return ids
}

// Reset logs cache statistics and empties every cache.
func (r *IdentityResolver) Reset() {
	for _, s := range r.Stats() {
		logger.Debug("identity cache %s", s)
	}
	r.userTypes.Reset()
	r.groupsByEmail.Reset()
	r.principalNames.Reset()
	r.groupNames.Reset()
}

// Stats returns the statistics of every cache.
func (r *IdentityResolver) Stats() []cache.Stats {
	return []cache.Stats{
		r.userTypes.Stats(),
		r.groupsByEmail.Stats(),
		r.principalNames.Stats(),
		r.groupNames.Stats(),
	}
}

func (r *IdentityResolver) warn(what, id string, err error) {
	logger.With(zap.String("id", id), zap.Error(err)).Warn(fmt.Sprintf("could not resolve %s", what))
}

func (r *IdentityResolver) loadPrincipalName(ctx context.Context, id string) (lookup, error) {
	var u User
	err := r.backoff.RetryOnce(ctx, "resolve principal", func() error {
		return r.client.Get(ctx, "/users/"+url.PathEscape(id), selectQuery("id,userPrincipalName,mail"), &u)
	})
	switch {
	case IsNotFound(err):
		return lookup{}, nil
	case err != nil:
		return lookup{}, err
	}

	name := u.UserPrincipalName
	if name == "" {
		name = u.Mail
	}
	return lookup{value: name, found: name != ""}, nil
}

func (r *IdentityResolver) loadGroupName(ctx context.Context, id string) (lookup, error) {
	var g Group
	err := r.backoff.RetryOnce(ctx, "resolve group", func() error {
		return r.client.Get(ctx, "/groups/"+url.PathEscape(id), selectQuery("id,displayName,mail"), &g)
	})
	switch {
	case IsNotFound(err):
		return lookup{}, nil
	case err != nil:
		return lookup{}, err
	}

	name := g.Mail
	if name == "" {
		name = g.DisplayName
	}
	return lookup{value: name, found: name != ""}, nil
}

func (r *IdentityResolver) loadUserType(ctx context.Context, id string) (domain.UserType, error) {
	var obj DirectoryObject
	err := r.backoff.RetryOnce(ctx, "classify user", func() error {
		return r.client.Get(ctx, "/directoryObjects/"+url.PathEscape(id), nil, &obj)
	})
	switch {
	case IsNotFound(err):
		return domain.UserTypeUnknown, nil
	case err != nil:
		return domain.UserTypeUnknown, err
	}

	switch obj.ODataType {
	case "#microsoft.graph.user":
		return domain.UserTypeUser, nil
	case "#microsoft.graph.group":
		return domain.UserTypeGroup, nil
	default:
		return domain.UserTypeUnknown, nil
	}
}

func (r *IdentityResolver) loadGroupIDs(ctx context.Context, email string) ([]string, error) {
	query := url.Values{
		"$filter": []string{fmt.Sprintf("mail eq '%s'", strings.ReplaceAll(email, "'", "''"))},
		"$select": []string{"id"},
	}

	var ids []string
	err := r.backoff.RetryOnce(ctx, "group ids by email", func() error {
		ids = ids[:0]
		return each(ctx, r.client, "/groups", query, func(g Group) error {
			ids = append(ids, g.ID)
			return nil
		})
	})
	switch {
	case IsNotFound(err):
		return []string{}, nil
	case err != nil:
		return nil, err
	}
	return ids, nil
}
