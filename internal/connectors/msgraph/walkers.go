package msgraph

import (
	"context"
	"net/url"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
)

// Walkers returns the family table for the enabled families.
func Walkers(client *Client, cfg *Config) map[domain.ResourceFamily]driven.FamilyWalker {
	teams := cfg.Endpoints().TeamsBaseURL
	table := map[domain.ResourceFamily]driven.FamilyWalker{}
	for _, f := range cfg.EnabledFamilies() {
		switch f {
		case domain.FamilyDrive:
			table[f] = NewDriveWalker(client, cfg)
		case domain.FamilyNotebook:
			table[f] = NewNotebookWalker(client)
		case domain.FamilySite:
			table[f] = NewSiteWalker(client, cfg)
		case domain.FamilyTeam:
			table[f] = NewTeamWalker(client, cfg, teams)
		case domain.FamilyChat:
			table[f] = NewChatWalker(client, teams)
		}
	}
	return table
}

func userNode(u User) driven.Node {
	name := u.UserPrincipalName
	if name == "" {
		name = u.DisplayName
	}
	return driven.Node{Type: segUser, ID: u.ID, Name: name, Payload: u}
}

func siteNode(s Site, path []domain.PathSegment) driven.Node {
	return driven.Node{Type: segSite, ID: s.ID, Name: s.Title(), WebURL: s.WebURL, Path: path, Payload: s}
}

// listUsers lists every user of the tenant as branch roots.
func listUsers(ctx context.Context, c *Client) ([]driven.Node, error) {
	users, err := all[User](ctx, c, "/users", selectQuery("id,displayName,userPrincipalName,mail"))
	nodes := make([]driven.Node, 0, len(users))
	for _, u := range users {
		nodes = append(nodes, userNode(u))
	}
	return nodes, err
}

// listSites lists the tenant's sites, skipping excluded ids.
func listSites(ctx context.Context, c *Client, excluded domain.ExclusionList) ([]driven.Node, error) {
	query := url.Values{
		"search":  []string{"*"},
		"$select": []string{"id,name,displayName,webUrl"},
	}
	var nodes []driven.Node
	err := each(ctx, c, "/sites", query, func(s Site) error {
		if !excluded.Excludes(s.ID) {
			nodes = append(nodes, siteNode(s, nil))
		}
		return nil
	})
	return nodes, err
}
