package msgraph

import (
	"context"
	"net/url"
	"strings"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-graph/internal/logger"
)

const (
	nodeListItem = "item"
	nodeSitePage = "page"
)

// SiteWalker enumerates SharePoint sites, their subsites, lists, list items and pages.
// Document libraries are left to the drive family.
type SiteWalker struct {
	client *Client
	cfg    *Config
}

// Ensure SiteWalker implements the interface.
var _ driven.FamilyWalker = (*SiteWalker)(nil)

// NewSiteWalker creates a site walker.
func NewSiteWalker(client *Client, cfg *Config) *SiteWalker {
	return &SiteWalker{client: client, cfg: cfg}
}

// Family returns FamilySite.
func (w *SiteWalker) Family() domain.ResourceFamily {
	return domain.FamilySite
}

// Roots returns every non-excluded site.
func (w *SiteWalker) Roots(ctx context.Context) ([]driven.Node, error) {
	return listSites(ctx, w.client, w.cfg.ExcludeSites)
}

// Children lists subsites, lists and pages of a site, or the items of a list.
func (w *SiteWalker) Children(ctx context.Context, parent driven.Node, emit func(driven.Node) error) error {
	switch parent.Type {
	case segSite:
		return w.siteChildren(ctx, parent, emit)
	case segList:
		site, ok := ancestor(parent.Path, segSite)
		if !ok {
			return domain.ErrInvalidInput
		}
		childPath := parent.ChildPath()
		path := "/sites/" + escape(site.ID) + "/lists/" + escape(parent.ID) + "/items"
		query := url.Values{"$expand": []string{"fields"}}
		return each(ctx, w.client, path, query, func(item ListItem) error {
			return emit(driven.Node{Type: nodeListItem, ID: item.ID, Name: item.Title(), WebURL: item.WebURL, Path: childPath, Payload: item})
		})
	}
	return nil
}

//nolint:gocognit // three sibling collections per site
func (w *SiteWalker) siteChildren(ctx context.Context, parent driven.Node, emit func(driven.Node) error) error {
	base := "/sites/" + escape(parent.ID)
	childPath := parent.ChildPath()

	// 1. Lists
	err := each(ctx, w.client, base+"/lists", selectQuery("id,name,displayName,webUrl,list"), func(l List) error {
		if skip, reason := w.skipList(l); skip {
			logger.Debug("skipping list %s (%s): %s", l.ID, l.DisplayName, reason)
			return nil
		}
		return emit(driven.Node{Type: segList, ID: l.ID, Name: l.DisplayName, WebURL: l.WebURL, Path: childPath, Payload: l})
	})
	if err != nil {
		return err
	}

	// 2. Modern pages. Sites without the pages feature answer 404.
	err = each(ctx, w.client, base+"/pages/microsoft.graph.sitePage", nil, func(p SitePage) error {
		title := p.Title
		if title == "" {
			title = p.Name
		}
		return emit(driven.Node{Type: nodeSitePage, ID: p.ID, Name: title, WebURL: p.WebURL, Path: childPath, Payload: p})
	})
	if err != nil && !IsNotFound(err) {
		return err
	}

	// 3. Subsites
	return each(ctx, w.client, base+"/sites", selectQuery("id,name,displayName,webUrl"), func(s Site) error {
		if w.cfg.ExcludeSites.Excludes(s.ID) {
			return nil
		}
		return emit(siteNode(s, childPath))
	})
}

func (w *SiteWalker) skipList(l List) (bool, string) {
	switch {
	case w.cfg.ExcludeLists.Excludes(l.ID):
		return true, "excluded"
	case l.List != nil && l.List.Hidden:
		return true, "hidden"
	case l.List != nil && strings.EqualFold(l.List.Template, "documentLibrary"):
		return true, "document library"
	default:
		return false, ""
	}
}

// IsContainer reports whether node is a site or a list.
func (w *SiteWalker) IsContainer(node driven.Node) bool {
	return node.Type == segSite || node.Type == segList
}

// Leaf converts list items and pages into handles.
func (w *SiteWalker) Leaf(node driven.Node) (domain.ResourceHandle, bool) {
	h := domain.ResourceHandle{
		ID:      node.ID,
		Family:  domain.FamilySite,
		Path:    node.Path,
		Name:    node.Name,
		WebURL:  node.WebURL,
		Payload: node.Payload,
	}
	switch node.Type {
	case nodeListItem:
		h.Kind = domain.KindListItem
		if h.WebURL == "" {
			if list, ok := ancestor(node.Path, segList); ok {
				h.WebURL = ListItemURL(list.WebURL, node.ID)
			}
		}
	case nodeSitePage:
		h.Kind = domain.KindPage
	default:
		return domain.ResourceHandle{}, false
	}
	return h, true
}
