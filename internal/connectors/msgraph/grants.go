package msgraph

import (
	"github.com/custodia-labs/sercha-graph/internal/core/domain"
)

// GrantsFromPermissions converts drive item permissions into grants.
func GrantsFromPermissions(perms []Permission) []domain.Grant {
	grants := make([]domain.Grant, 0, len(perms))
	for _, p := range perms {
		g := domain.Grant{Roles: p.Roles}

		if p.Link != nil && p.Link.Scope != "" {
			g.Principals = append(g.Principals, domain.PrincipalRef{Kind: domain.PrincipalLink, Scope: p.Link.Scope})
		}
		if p.GrantedToV2 != nil {
			g.Principals = append(g.Principals, principalsOf(*p.GrantedToV2)...)
		}
		for _, set := range p.GrantedToIdentitiesV2 {
			g.Principals = append(g.Principals, principalsOf(set)...)
		}

		if len(g.Principals) > 0 {
			grants = append(grants, g)
		}
	}
	return grants
}

func principalsOf(set SharePointIdentitySet) []domain.PrincipalRef {
	var refs []domain.PrincipalRef
	switch {
	case set.User != nil && set.User.ID != "":
		refs = append(refs, domain.PrincipalRef{Kind: domain.PrincipalUser, ID: set.User.ID})
	case set.SiteUser != nil && set.SiteUser.Email != "":
		refs = append(refs, domain.PrincipalRef{Kind: domain.PrincipalUser, ID: set.SiteUser.Email})
	}
	switch {
	case set.Group != nil && set.Group.ID != "":
		refs = append(refs, domain.PrincipalRef{Kind: domain.PrincipalGroup, ID: set.Group.ID})
	case set.SiteGroup != nil && set.SiteGroup.DisplayName != "":
		refs = append(refs, domain.PrincipalRef{Kind: domain.PrincipalGroup, ID: set.SiteGroup.DisplayName})
	}
	return refs
}

// GrantsFromMembers converts conversation members into user grants.
func GrantsFromMembers(members []ConversationMember) []domain.Grant {
	grants := make([]domain.Grant, 0, len(members))
	for _, m := range members {
		id := m.UserID
		if id == "" {
			id = m.Email
		}
		if id == "" {
			continue
		}
		g := domain.UserGrant(id)
		g.Roles = m.Roles
		grants = append(grants, g)
	}
	return grants
}

// creatorGrant returns a user grant for the creator of a resource, if known.
func creatorGrant(set *IdentitySet) []domain.Grant {
	if set == nil || set.User == nil || set.User.ID == "" {
		return nil
	}
	return []domain.Grant{domain.UserGrant(set.User.ID)}
}
