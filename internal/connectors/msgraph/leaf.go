package msgraph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-graph/internal/cache"
	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
)

// Ensure LeafSource implements the interface.
var _ driven.LeafSource = (*LeafSource)(nil)

// LeafSource describes leaves found by the walkers: their fields, their
// permission grants and where their content lives.
type LeafSource struct {
	client  *Client
	members *cache.LoadingCache[string, []domain.Grant]
}

// NewLeafSource creates a leaf source. Member lists of chats and private
// channels are cached per run, bounded by maxSize entries.
func NewLeafSource(client *Client, maxSize int) (*LeafSource, error) {
	s := &LeafSource{client: client}
	members, err := cache.New("conversation-members", maxSize, s.loadMembers)
	if err != nil {
		return nil, err
	}
	s.members = members
	return s, nil
}

// Reset empties the member cache.
func (s *LeafSource) Reset() {
	s.members.Reset()
}

// Describe fetches the fields, grants and content descriptor of a leaf.
func (s *LeafSource) Describe(ctx context.Context, h domain.ResourceHandle) (*driven.LeafDescription, error) {
	switch h.Kind {
	case domain.KindDriveItem:
		return s.describeDriveItem(ctx, h)
	case domain.KindNotebook:
		return s.describeNotebook(h)
	case domain.KindListItem:
		return s.describeListItem(h)
	case domain.KindPage:
		return s.describeSitePage(h)
	case domain.KindChannelMessage, domain.KindChatMessage:
		return s.describeMessage(ctx, h)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, h.Kind)
	}
}

func baseFields(h domain.ResourceHandle) domain.OutputRecord {
	rec := domain.OutputRecord{
		domain.FieldID:     h.ID,
		domain.FieldTitle:  h.Name,
		domain.FieldKind:   string(h.Kind),
		domain.FieldFamily: string(h.Family),
	}
	if h.WebURL != "" {
		rec[domain.FieldURL] = h.WebURL
	}
	if parent, ok := h.Parent(); ok {
		rec[domain.FieldParent] = parent.Name
	}
	for _, seg := range h.Path {
		if seg.Name != "" {
			rec[seg.Kind] = seg.Name
		}
	}
	return rec
}

func setTimes(rec domain.OutputRecord, created, modified time.Time) {
	if !created.IsZero() {
		rec[domain.FieldCreated] = created.UTC().Format(time.RFC3339)
	}
	if !modified.IsZero() {
		rec[domain.FieldModified] = modified.UTC().Format(time.RFC3339)
	}
}

func (s *LeafSource) describeDriveItem(ctx context.Context, h domain.ResourceHandle) (*driven.LeafDescription, error) {
	item, _ := h.Payload.(DriveItem)
	drive, ok := ancestor(h.Path, segDrive)
	driveID := drive.ID
	if !ok && item.ParentReference != nil {
		driveID = item.ParentReference.DriveID
	}
	if driveID == "" {
		return nil, fmt.Errorf("%w: drive item %s has no drive", domain.ErrInvalidInput, h.ID)
	}
	itemPath := "/drives/" + escape(driveID) + "/items/" + escape(h.ID)

	perms, err := all[Permission](ctx, s.client, itemPath+"/permissions", nil)
	if err != nil {
		return nil, err
	}

	rec := baseFields(h)
	rec[domain.FieldSize] = item.Size
	rec[domain.FieldAuthor] = item.CreatedBy.Name()
	if item.File != nil {
		rec["mimetype"] = item.File.MimeType
	}
	setTimes(rec, item.CreatedDateTime, item.LastModifiedDateTime)

	return &driven.LeafDescription{
		Fields: rec,
		Grants: GrantsFromPermissions(perms),
		Content: driven.ContentDescriptor{
			Filename: h.Name,
			Length:   item.Size,
			Open: func(ctx context.Context) (io.ReadCloser, error) {
				body, err := s.client.GetRaw(ctx, itemPath+"/content")
				if err != nil {
					return nil, err
				}
				return io.NopCloser(bytes.NewReader(body)), nil
			},
		},
	}, nil
}

func (s *LeafSource) describeNotebook(h domain.ResourceHandle) (*driven.LeafDescription, error) {
	nb, _ := h.Payload.(Notebook)
	owner, ok := h.Parent()
	if !ok {
		return nil, fmt.Errorf("%w: notebook %s has no owner", domain.ErrInvalidInput, h.ID)
	}

	rec := baseFields(h)
	rec[domain.FieldAuthor] = nb.CreatedBy.Name()
	setTimes(rec, nb.CreatedDateTime, nb.LastModifiedDateTime)

	var grants []domain.Grant
	switch owner.Kind {
	case segUser:
		grants = []domain.Grant{domain.UserGrant(owner.ID)}
	case segGroup:
		grants = []domain.Grant{domain.GroupGrant(owner.ID)}
	}

	base := ownerBase(owner.Kind, owner.ID)
	return &driven.LeafDescription{
		Fields: rec,
		Grants: grants,
		Content: driven.ContentDescriptor{
			Filename: h.Name + ".html",
			Length:   -1,
			Open: func(ctx context.Context) (io.ReadCloser, error) {
				html, err := s.assembleNotebook(ctx, base, h.ID)
				if err != nil {
					return nil, err
				}
				return io.NopCloser(strings.NewReader(html)), nil
			},
		},
	}, nil
}

// assembleNotebook concatenates the HTML of every page of a notebook,
// section by section, oldest page first.
func (s *LeafSource) assembleNotebook(ctx context.Context, base, notebookID string) (string, error) {
	// 1. Sections, including those one level down in section groups
	sections, err := all[OnenoteSection](ctx, s.client, base+"/onenote/notebooks/"+escape(notebookID)+"/sections", nil)
	if err != nil {
		return "", err
	}
	groups, err := all[OnenoteSection](ctx, s.client, base+"/onenote/notebooks/"+escape(notebookID)+"/sectionGroups", nil)
	if err != nil && !IsNotFound(err) {
		return "", err
	}
	for _, g := range groups {
		nested, err := all[OnenoteSection](ctx, s.client, base+"/onenote/sectionGroups/"+escape(g.ID)+"/sections", nil)
		if err != nil && !IsNotFound(err) {
			return "", err
		}
		sections = append(sections, nested...)
	}

	// 2. Pages come back newest first; read them oldest first.
	var b strings.Builder
	for _, sec := range sections {
		pages, err := all[OnenotePage](ctx, s.client, base+"/onenote/sections/"+escape(sec.ID)+"/pages", nil)
		if err != nil {
			return "", err
		}
		ReverseInPlace(pages)

		for _, p := range pages {
			body, err := s.client.GetRaw(ctx, base+"/onenote/pages/"+escape(p.ID)+"/content")
			if err != nil {
				if IsNotFound(err) {
					continue
				}
				return "", err
			}
			b.WriteString("<h1>")
			b.WriteString(p.Title)
			b.WriteString("</h1>\n")
			b.Write(body)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// ReverseInPlace reverses a page-accumulated list.
func ReverseInPlace[T any](items []T) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

func (s *LeafSource) describeListItem(h domain.ResourceHandle) (*driven.LeafDescription, error) {
	item, _ := h.Payload.(ListItem)

	rec := baseFields(h)
	if rec.String(domain.FieldTitle) == "" {
		rec[domain.FieldTitle] = "Item " + h.ID
	}
	rec[domain.FieldAuthor] = item.CreatedBy.Name()
	setTimes(rec, item.CreatedDateTime, item.LastModifiedDateTime)

	columns := visibleColumns(item.Fields)
	if len(columns) > 0 {
		rec["fields"] = columns
	}

	return &driven.LeafDescription{
		Fields:  rec,
		Grants:  creatorGrant(item.CreatedBy),
		Content: driven.TextContent(h.ID+".txt", columnsText(columns)),
	}, nil
}

// visibleColumns drops OData annotations and internal underscore columns.
func visibleColumns(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if strings.HasPrefix(k, "@") || strings.HasPrefix(k, "_") || strings.Contains(k, "@odata") {
			continue
		}
		out[k] = v
	}
	return out
}

func columnsText(columns map[string]any) string {
	keys := make([]string, 0, len(columns))
	for k := range columns {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, columns[k])
	}
	return b.String()
}

// webPart is a web part of a modern page; text parts carry innerHtml.
type webPart struct {
	ODataType string `json:"@odata.type"`
	InnerHTML string `json:"innerHtml"`
}

func (s *LeafSource) describeSitePage(h domain.ResourceHandle) (*driven.LeafDescription, error) {
	page, _ := h.Payload.(SitePage)
	site, ok := ancestor(h.Path, segSite)
	if !ok {
		return nil, fmt.Errorf("%w: page %s has no site", domain.ErrInvalidInput, h.ID)
	}

	rec := baseFields(h)
	rec[domain.FieldAuthor] = page.CreatedBy.Name()
	if page.Description != "" {
		rec["description"] = page.Description
	}
	setTimes(rec, page.CreatedDateTime, page.LastModifiedDateTime)

	partsPath := "/sites/" + escape(site.ID) + "/pages/" + escape(h.ID) + "/microsoft.graph.sitePage/webParts"
	return &driven.LeafDescription{
		Fields: rec,
		Grants: creatorGrant(page.CreatedBy),
		Content: driven.ContentDescriptor{
			Filename: strings.TrimSuffix(page.Name, ".aspx") + ".html",
			Length:   -1,
			Open: func(ctx context.Context) (io.ReadCloser, error) {
				parts, err := all[webPart](ctx, s.client, partsPath, nil)
				if err != nil {
					return nil, err
				}
				var b strings.Builder
				b.WriteString("<p>")
				b.WriteString(page.Description)
				b.WriteString("</p>\n")
				for _, p := range parts {
					b.WriteString(p.InnerHTML)
					b.WriteString("\n")
				}
				return io.NopCloser(strings.NewReader(b.String())), nil
			},
		},
	}, nil
}

func (s *LeafSource) describeMessage(ctx context.Context, h domain.ResourceHandle) (*driven.LeafDescription, error) {
	msg, _ := h.Payload.(ChatMessage)

	rec := baseFields(h)
	rec[domain.FieldAuthor] = msg.From.Name()
	setTimes(rec, msg.CreatedDateTime, msg.LastModifiedDateTime)

	switch {
	case msg.IsDeleted():
		return &driven.LeafDescription{Fields: rec, Discard: "deleted message"}, nil
	case msg.IsSystem():
		return &driven.LeafDescription{Fields: rec, Discard: "system message " + msg.MessageType}, nil
	}

	grants, err := s.messageGrants(ctx, h)
	if err != nil {
		return nil, err
	}

	filename, text := "message.txt", ""
	if msg.Body != nil {
		text = msg.Body.Content
		if strings.EqualFold(msg.Body.ContentType, "html") {
			filename = "message.html"
		}
	}

	return &driven.LeafDescription{
		Fields:  rec,
		Grants:  grants,
		Content: driven.TextContent(filename, text),
	}, nil
}

// messageGrants returns chat members for chat messages, and the team group
// plus the channel members for channel messages. Member lists are cached per
// conversation, so private channels cost one call per run.
func (s *LeafSource) messageGrants(ctx context.Context, h domain.ResourceHandle) ([]domain.Grant, error) {
	if chat, ok := ancestor(h.Path, segChat); ok {
		return s.members.Get(ctx, "/chats/"+escape(chat.ID)+"/members")
	}

	team, ok := ancestor(h.Path, segTeam)
	if !ok {
		return nil, nil
	}
	grants := []domain.Grant{domain.GroupGrant(team.ID)}

	channel, ok := ancestor(h.Path, segChannel)
	if !ok {
		return grants, nil
	}
	members, err := s.members.Get(ctx, "/teams/"+escape(team.ID)+"/channels/"+escape(channel.ID)+"/members")
	if err != nil {
		return nil, err
	}
	return append(grants, members...), nil
}

func (s *LeafSource) loadMembers(ctx context.Context, path string) ([]domain.Grant, error) {
	members, err := all[ConversationMember](ctx, s.client, path, nil)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return GrantsFromMembers(members), nil
}
