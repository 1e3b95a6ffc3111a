package msgraph

import (
	"context"
	"errors"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
)

const driveItemSelect = "id,name,size,webUrl,createdDateTime,lastModifiedDateTime,file,folder,package,parentReference,createdBy,lastModifiedBy"

// DriveWalker enumerates users' OneDrives and site document libraries.
type DriveWalker struct {
	client *Client
	cfg    *Config
}

// Ensure DriveWalker implements the interface.
var _ driven.FamilyWalker = (*DriveWalker)(nil)

// NewDriveWalker creates a drive walker.
func NewDriveWalker(client *Client, cfg *Config) *DriveWalker {
	return &DriveWalker{client: client, cfg: cfg}
}

// Family returns FamilyDrive.
func (w *DriveWalker) Family() domain.ResourceFamily {
	return domain.FamilyDrive
}

// Roots returns every user followed by every non-excluded site.
func (w *DriveWalker) Roots(ctx context.Context) ([]driven.Node, error) {
	users, userErr := listUsers(ctx, w.client)
	sites, siteErr := listSites(ctx, w.client, w.cfg.ExcludeSites)
	return append(users, sites...), errors.Join(userErr, siteErr)
}

// Children lists drives of users and sites, and items of drives and folders.
func (w *DriveWalker) Children(ctx context.Context, parent driven.Node, emit func(driven.Node) error) error {
	switch parent.Type {
	case segUser:
		var d Drive
		if err := w.client.Get(ctx, "/users/"+escape(parent.ID)+"/drive", nil, &d); err != nil {
			return err
		}
		return emit(driveNode(d, parent.ChildPath()))

	case segSite:
		return each(ctx, w.client, "/sites/"+escape(parent.ID)+"/drives", nil, func(d Drive) error {
			return emit(driveNode(d, parent.ChildPath()))
		})

	case segDrive:
		return w.items(ctx, "/drives/"+escape(parent.ID)+"/root/children", parent, emit)

	case segFolder:
		drive, ok := ancestor(parent.Path, segDrive)
		if !ok {
			return domain.ErrInvalidInput
		}
		return w.items(ctx, "/drives/"+escape(drive.ID)+"/items/"+escape(parent.ID)+"/children", parent, emit)
	}
	return nil
}

func (w *DriveWalker) items(ctx context.Context, path string, parent driven.Node, emit func(driven.Node) error) error {
	childPath := parent.ChildPath()
	return each(ctx, w.client, path, selectQuery(driveItemSelect), func(item DriveItem) error {
		switch {
		case item.Package != nil:
			// OneNote notebooks and other packages are crawled by their own family.
			return nil
		case item.Folder != nil:
			return emit(driven.Node{Type: segFolder, ID: item.ID, Name: item.Name, WebURL: item.WebURL, Path: childPath, Payload: item})
		case item.File != nil:
			return emit(driven.Node{Type: "file", ID: item.ID, Name: item.Name, WebURL: item.WebURL, Path: childPath, Payload: item})
		default:
			return nil
		}
	})
}

// IsContainer reports whether node holds drives or items.
func (w *DriveWalker) IsContainer(node driven.Node) bool {
	switch node.Type {
	case segUser, segSite, segDrive, segFolder:
		return true
	default:
		return false
	}
}

// Leaf converts a file node into a drive-item handle.
func (w *DriveWalker) Leaf(node driven.Node) (domain.ResourceHandle, bool) {
	if node.Type != "file" {
		return domain.ResourceHandle{}, false
	}
	webURL := node.WebURL
	if webURL == "" {
		webURL = DriveItemURL(node.Path, node.Name)
	}
	return domain.ResourceHandle{
		ID:      node.ID,
		Kind:    domain.KindDriveItem,
		Family:  domain.FamilyDrive,
		Path:    node.Path,
		Name:    node.Name,
		WebURL:  webURL,
		Payload: node.Payload,
	}, true
}

func driveNode(d Drive, path []domain.PathSegment) driven.Node {
	return driven.Node{Type: segDrive, ID: d.ID, Name: d.Name, WebURL: d.WebURL, Path: path, Payload: d}
}
