package domain

import "strings"

// ResourceFamily groups the resource hierarchies the crawler knows how to walk.
type ResourceFamily string

const (
	FamilyDrive    ResourceFamily = "drive"
	FamilyNotebook ResourceFamily = "notebook"
	FamilySite     ResourceFamily = "site"
	FamilyTeam     ResourceFamily = "team"
	FamilyChat     ResourceFamily = "chat"
)

// AllFamilies returns the families in crawl order.
func AllFamilies() []ResourceFamily {
	return []ResourceFamily{FamilyDrive, FamilyNotebook, FamilySite, FamilyTeam, FamilyChat}
}

// ResourceKind tags a leaf resource.
type ResourceKind string

const (
	KindDriveItem      ResourceKind = "drive-item"
	KindNotebook       ResourceKind = "notebook"
	KindListItem       ResourceKind = "list-item"
	KindChannelMessage ResourceKind = "channel-message"
	KindChatMessage    ResourceKind = "chat-message"
	KindPage           ResourceKind = "page"
)

// PathSegment is one ancestor on the way from a branch root to a resource.
type PathSegment struct {
	// Kind names the container type (user, drive, site, list, team, channel, chat, ...).
	Kind string

	// ID is the upstream identifier of the container.
	ID string

	// Name is the display name, when known.
	Name string

	// WebURL is the container's browser URL, when known.
	WebURL string
}

// ResourceHandle identifies a discovered leaf resource.
// A handle is immutable once the walker emits it; it is consumed by exactly
// one dispatched task.
type ResourceHandle struct {
	// ID is the opaque upstream identifier.
	ID string

	// Kind is the leaf type.
	Kind ResourceKind

	// Family is the hierarchy the leaf was found in.
	Family ResourceFamily

	// Path holds the ancestors from branch root to direct parent.
	Path []PathSegment

	// Name is the leaf's display name or title.
	Name string

	// WebURL is the URL reported upstream. It may be empty.
	WebURL string

	// Payload is the decoded upstream object, owned by the connector.
	Payload any
}

// Parent returns the direct parent segment, if any.
func (h ResourceHandle) Parent() (PathSegment, bool) {
	if len(h.Path) == 0 {
		return PathSegment{}, false
	}
	return h.Path[len(h.Path)-1], true
}

// Ancestor returns the nearest ancestor of the given kind.
func (h ResourceHandle) Ancestor(kind string) (PathSegment, bool) {
	for i := len(h.Path) - 1; i >= 0; i-- {
		if h.Path[i].Kind == kind {
			return h.Path[i], true
		}
	}
	return PathSegment{}, false
}

// Label returns an audit label unique enough to retry the item later,
// e.g. "drive-item:user/u1/drive/d1/item-9".
func (h ResourceHandle) Label() string {
	var b strings.Builder
	b.WriteString(string(h.Kind))
	b.WriteByte(':')
	for _, seg := range h.Path {
		b.WriteString(seg.Kind)
		b.WriteByte('/')
		b.WriteString(seg.ID)
		b.WriteByte('/')
	}
	b.WriteString(h.ID)
	return b.String()
}

// WithPath returns a copy of path with seg appended. The input slice is never
// modified, so sibling handles never share a backing array.
func WithPath(path []PathSegment, seg PathSegment) []PathSegment {
	out := make([]PathSegment, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}
