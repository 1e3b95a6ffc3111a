package msgraph

import (
	"context"
	"errors"
	"net/url"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
)

// NotebookWalker enumerates OneNote notebooks owned by users and groups.
// The hierarchy has a fixed depth: owner, then notebook. Sections and pages
// are read by the leaf source when the notebook content is assembled.
type NotebookWalker struct {
	client *Client
}

// Ensure NotebookWalker implements the interface.
var _ driven.FamilyWalker = (*NotebookWalker)(nil)

// NewNotebookWalker creates a notebook walker.
func NewNotebookWalker(client *Client) *NotebookWalker {
	return &NotebookWalker{client: client}
}

// Family returns FamilyNotebook.
func (w *NotebookWalker) Family() domain.ResourceFamily {
	return domain.FamilyNotebook
}

// Roots returns every user followed by every Microsoft 365 group.
func (w *NotebookWalker) Roots(ctx context.Context) ([]driven.Node, error) {
	users, userErr := listUsers(ctx, w.client)

	query := url.Values{
		"$filter": []string{"groupTypes/any(c:c eq 'Unified')"},
		"$select": []string{"id,displayName,mail"},
	}
	var groups []driven.Node
	groupErr := each(ctx, w.client, "/groups", query, func(g Group) error {
		groups = append(groups, driven.Node{Type: segGroup, ID: g.ID, Name: g.DisplayName, Payload: g})
		return nil
	})
	return append(users, groups...), errors.Join(userErr, groupErr)
}

// Children lists the notebooks of an owner.
func (w *NotebookWalker) Children(ctx context.Context, parent driven.Node, emit func(driven.Node) error) error {
	base := ownerBase(parent.Type, parent.ID)
	if base == "" {
		return nil
	}
	childPath := parent.ChildPath()
	return each(ctx, w.client, base+"/onenote/notebooks", nil, func(n Notebook) error {
		return emit(driven.Node{Type: "notebook", ID: n.ID, Name: n.DisplayName, WebURL: n.WebURL(), Path: childPath, Payload: n})
	})
}

// IsContainer reports whether node owns notebooks.
func (w *NotebookWalker) IsContainer(node driven.Node) bool {
	return node.Type == segUser || node.Type == segGroup
}

// Leaf converts a notebook node into a handle.
func (w *NotebookWalker) Leaf(node driven.Node) (domain.ResourceHandle, bool) {
	if node.Type != "notebook" {
		return domain.ResourceHandle{}, false
	}
	return domain.ResourceHandle{
		ID:      node.ID,
		Kind:    domain.KindNotebook,
		Family:  domain.FamilyNotebook,
		Path:    node.Path,
		Name:    node.Name,
		WebURL:  node.WebURL,
		Payload: node.Payload,
	}, true
}

// ownerBase returns the API prefix of a notebook owner.
func ownerBase(kind, id string) string {
	switch kind {
	case segUser:
		return "/users/" + escape(id)
	case segGroup:
		return "/groups/" + escape(id)
	case segSite:
		return "/sites/" + escape(id)
	default:
		return ""
	}
}
