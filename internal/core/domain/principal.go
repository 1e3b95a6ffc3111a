package domain

import "strings"

// PrincipalKind distinguishes the three shapes a grantee can take.
type PrincipalKind string

const (
	PrincipalUser  PrincipalKind = "user"
	PrincipalGroup PrincipalKind = "group"
	PrincipalLink  PrincipalKind = "link"
)

// Link scopes reported for sharing links.
const (
	LinkScopeOrganization = "organization"
	LinkScopeAnonymous    = "anonymous"
	LinkScopeUsers        = "users"
)

// EveryoneRole is the role token granted by organization-wide sharing links.
const EveryoneRole = "everyone"

// PrincipalRef names a grantee: a user object id, a group object id, or a link scope.
type PrincipalRef struct {
	Kind PrincipalKind

	// ID is the object id (users and groups). It may already be a UPN.
	ID string

	// Scope is the link scope (links only).
	Scope string
}

// Grant is one raw permission entry on a resource.
type Grant struct {
	// Principals are the grantees named by this entry.
	Principals []PrincipalRef

	// Roles are the upstream roles (read, write, owner). Informational.
	Roles []string
}

// UserGrant builds a grant for a single user id.
func UserGrant(id string) Grant {
	return Grant{Principals: []PrincipalRef{{Kind: PrincipalUser, ID: id}}}
}

// GroupGrant builds a grant for a single group id.
func GroupGrant(id string) Grant {
	return Grant{Principals: []PrincipalRef{{Kind: PrincipalGroup, ID: id}}}
}

// LinkGrant builds a grant for a sharing link scope.
func LinkGrant(scope string) Grant {
	return Grant{Principals: []PrincipalRef{{Kind: PrincipalLink, Scope: scope}}}
}

// UserType is the classification of a directory object.
type UserType string

const (
	UserTypeUser    UserType = "USER"
	UserTypeGroup   UserType = "GROUP"
	UserTypeUnknown UserType = "UNKNOWN"
)

// LooksLikeEmail reports whether id is already an email or UPN.
func LooksLikeEmail(id string) bool {
	return strings.Contains(id, "@")
}

// SplitList splits a comma-separated configuration value,
// trimming entries and dropping empties.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
