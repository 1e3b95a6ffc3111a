package services

import (
	"context"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
)

// PermissionAggregator turns raw grants into role tokens.
type PermissionAggregator struct {
	resolver     driven.IdentityResolver
	defaultRoles []string
}

// NewPermissionAggregator creates an aggregator. resolver may be nil, in
// which case only raw ids are emitted.
func NewPermissionAggregator(resolver driven.IdentityResolver, defaultRoles []string) *PermissionAggregator {
	return &PermissionAggregator{resolver: resolver, defaultRoles: defaultRoles}
}

// Aggregate returns the deduplicated, sorted role tokens of a resource.
//
// Users and groups contribute their id plus their resolved name when it
// differs. A user grant naming a group's mail also contributes that group,
// and a user id that is really a group object resolves as a group.
// Organization links contribute EveryoneRole. The configured default
// roles and the "roles" entry of the default fields are appended.
func (a *PermissionAggregator) Aggregate(ctx context.Context, grants []domain.Grant, defaults domain.OutputRecord) []string {
	roles := mapset.NewThreadUnsafeSet[string]()

	for _, g := range grants {
		for _, p := range g.Principals {
			switch p.Kind {
			case domain.PrincipalUser:
				a.addUser(ctx, roles, p.ID)
			case domain.PrincipalGroup:
				a.addResolved(roles, p.ID, a.groupName(ctx, p.ID))
			case domain.PrincipalLink:
				if strings.EqualFold(p.Scope, domain.LinkScopeOrganization) {
					roles.Add(domain.EveryoneRole)
				}
			}
		}
	}

	for _, r := range a.defaultRoles {
		addToken(roles, r)
	}
	for _, r := range rolesFromDefaults(defaults) {
		addToken(roles, r)
	}

	out := roles.ToSlice()
	sort.Strings(out)
	return out
}

func (a *PermissionAggregator) addResolved(roles mapset.Set[string], id, name string) {
	addToken(roles, id)
	if name != "" && name != id {
		roles.Add(name)
	}
}

func (a *PermissionAggregator) addUser(ctx context.Context, roles mapset.Set[string], id string) {
	if a.resolver == nil || id == "" {
		addToken(roles, id)
		return
	}
	if domain.LooksLikeEmail(id) {
		addToken(roles, id)
		for _, gid := range a.resolver.GroupIDsForEmail(ctx, id) {
			a.addResolved(roles, gid, a.groupName(ctx, gid))
		}
		return
	}
	if a.resolver.ClassifyUser(ctx, id) == domain.UserTypeGroup {
		a.addResolved(roles, id, a.groupName(ctx, id))
		return
	}
	a.addResolved(roles, id, a.principalName(ctx, id))
}

func (a *PermissionAggregator) principalName(ctx context.Context, id string) string {
	if a.resolver == nil || id == "" {
		return ""
	}
	name, _ := a.resolver.ResolvePrincipalName(ctx, id)
	return name
}

func (a *PermissionAggregator) groupName(ctx context.Context, id string) string {
	if a.resolver == nil || id == "" {
		return ""
	}
	name, _ := a.resolver.ResolveGroupName(ctx, id)
	return name
}

func addToken(roles mapset.Set[string], token string) {
	token = strings.TrimSpace(token)
	if token != "" {
		roles.Add(token)
	}
}

// rolesFromDefaults reads the roles default field as a comma list, []string or []any.
func rolesFromDefaults(defaults domain.OutputRecord) []string {
	switch v := defaults[domain.FieldRoles].(type) {
	case string:
		return domain.SplitList(v)
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
