package driven

import (
	"context"
	"io"
	"strings"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
)

// Node is one position in a resource tree: a branch root, container, or leaf.
type Node struct {
	// Type is family specific ("user", "drive", "folder", "file", "site", ...).
	Type string

	// ID is the upstream id.
	ID string

	// Name is the display name.
	Name string

	// WebURL is the browser URL, when known.
	WebURL string

	// Path holds the ancestors of this node.
	Path []domain.PathSegment

	// Payload is the decoded upstream object.
	Payload any
}

// Segment returns the path segment this node contributes to its children.
func (n Node) Segment() domain.PathSegment {
	return domain.PathSegment{Kind: n.Type, ID: n.ID, Name: n.Name, WebURL: n.WebURL}
}

// ChildPath returns the path of this node's children.
func (n Node) ChildPath() []domain.PathSegment {
	return domain.WithPath(n.Path, n.Segment())
}

// FamilyWalker enumerates one resource family.
type FamilyWalker interface {
	// Family returns the family this walker enumerates.
	Family() domain.ResourceFamily

	// Roots lists the branch roots.
	Roots(ctx context.Context) ([]Node, error)

	// Children calls emit for each direct child of a container, in upstream order.
	Children(ctx context.Context, parent Node, emit func(Node) error) error

	// Leaf converts a node into a resource handle.
	// ok is false when the node is a container or is skipped.
	Leaf(node Node) (domain.ResourceHandle, bool)

	// IsContainer reports whether the walk should descend into node.
	IsContainer(node Node) bool
}

// ContentDescriptor locates a leaf's content.
type ContentDescriptor struct {
	// Filename selects the extractor by extension.
	Filename string

	// Length is the declared size in bytes, or -1 when unknown.
	Length int64

	// Open fetches the content stream. Nil means the leaf has no content.
	Open func(ctx context.Context) (io.ReadCloser, error)
}

// HasContent reports whether the descriptor carries any content.
func (d ContentDescriptor) HasContent() bool {
	return d.Open != nil
}

// TextContent describes content that is already in memory.
func TextContent(filename, text string) ContentDescriptor {
	if text == "" {
		return ContentDescriptor{Filename: filename}
	}
	return ContentDescriptor{
		Filename: filename,
		Length:   int64(len(text)),
		Open: func(context.Context) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(text)), nil
		},
	}
}

// LeafDescription is everything the record builder needs about a leaf.
type LeafDescription struct {
	// Fields are the resource's own output fields (title, url, modified...).
	Fields domain.OutputRecord

	// Grants are the raw permission entries.
	Grants []domain.Grant

	// Content locates the leaf's content.
	Content ContentDescriptor

	// Discard is set when the leaf must not be indexed (system or deleted
	// messages). It holds the reason.
	Discard string
}

// LeafSource describes leaves discovered by the walkers.
type LeafSource interface {
	// Describe fetches fields, grants and the content descriptor of a leaf.
	Describe(ctx context.Context, handle domain.ResourceHandle) (*LeafDescription, error)
}

// LeafFilter decides whether a discovered leaf is indexed.
type LeafFilter interface {
	// Allow returns false and a reason when the leaf must be discarded.
	Allow(handle domain.ResourceHandle) (bool, string)
}
