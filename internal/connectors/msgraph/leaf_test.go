package msgraph

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
)

func newTestLeafSource(t *testing.T, ft *fakeTransport) *LeafSource {
	t.Helper()
	s, err := NewLeafSource(NewClient(ft, 0), 100)
	require.NoError(t, err)
	return s
}

func readAll(t *testing.T, open func(context.Context) (io.ReadCloser, error)) string {
	t.Helper()
	require.NotNil(t, open)
	rc, err := open(context.Background())
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestDescribe_DriveItem(t *testing.T) {
	ft := newFakeTransport()
	ft.json("/drives/d1/items/i1/permissions", page("",
		Permission{GrantedToV2: &SharePointIdentitySet{User: &Identity{ID: "u1"}}},
		Permission{Link: &SharingLink{Scope: "organization"}},
	))
	ft.raw("/drives/d1/items/i1/content", "hello")
	s := newTestLeafSource(t, ft)

	h := domain.ResourceHandle{
		ID: "i1", Kind: domain.KindDriveItem, Family: domain.FamilyDrive, Name: "a.txt",
		Path:    []domain.PathSegment{{Kind: segDrive, ID: "d1", Name: "Documents"}},
		Payload: DriveItem{ID: "i1", Name: "a.txt", Size: 5, File: &FileFacet{MimeType: "text/plain"}},
	}

	desc, err := s.Describe(context.Background(), h)

	require.NoError(t, err)
	assert.Equal(t, "a.txt", desc.Fields[domain.FieldTitle])
	assert.Equal(t, int64(5), desc.Fields[domain.FieldSize])
	assert.Equal(t, "Documents", desc.Fields["drive"])
	require.Len(t, desc.Grants, 2)
	assert.Equal(t, domain.PrincipalUser, desc.Grants[0].Principals[0].Kind)
	assert.Equal(t, domain.PrincipalLink, desc.Grants[1].Principals[0].Kind)
	assert.Equal(t, int64(5), desc.Content.Length)
	assert.Equal(t, 0, ft.count("/drives/d1/items/i1/content"), "content is fetched lazily")
	assert.Equal(t, "hello", readAll(t, desc.Content.Open))
}

func TestDescribe_NotebookPagesOldestFirst(t *testing.T) {
	ft := newFakeTransport()
	ft.json("/users/u1/onenote/notebooks/n1/sections", page("", OnenoteSection{ID: "s1"}))
	ft.status("/users/u1/onenote/notebooks/n1/sectionGroups", 404)
	ft.json("/users/u1/onenote/sections/s1/pages", page("", OnenotePage{ID: "p3", Title: "third"}, OnenotePage{ID: "p2", Title: "second"}, OnenotePage{ID: "p1", Title: "first"}))
	ft.raw("/users/u1/onenote/pages/p1/content", "<p>one</p>")
	ft.raw("/users/u1/onenote/pages/p2/content", "<p>two</p>")
	ft.raw("/users/u1/onenote/pages/p3/content", "<p>three</p>")
	s := newTestLeafSource(t, ft)

	h := domain.ResourceHandle{
		ID: "n1", Kind: domain.KindNotebook, Family: domain.FamilyNotebook, Name: "Notes",
		Path: []domain.PathSegment{{Kind: segUser, ID: "u1"}},
	}

	desc, err := s.Describe(context.Background(), h)
	require.NoError(t, err)
	require.Len(t, desc.Grants, 1)
	assert.Equal(t, "u1", desc.Grants[0].Principals[0].ID)

	html := readAll(t, desc.Content.Open)
	one := indexOf(html, "one")
	two := indexOf(html, "two")
	three := indexOf(html, "three")
	assert.True(t, one < two && two < three, html)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestDescribe_SystemMessageDiscarded(t *testing.T) {
	s := newTestLeafSource(t, newFakeTransport())
	h := domain.ResourceHandle{
		ID: "m1", Kind: domain.KindChatMessage,
		Path:    []domain.PathSegment{{Kind: segChat, ID: "c1"}},
		Payload: ChatMessage{ID: "m1", MessageType: "systemEventMessage"},
	}

	desc, err := s.Describe(context.Background(), h)

	require.NoError(t, err)
	assert.Contains(t, desc.Discard, "system")
}

func TestDescribe_ChatMessageMembersCached(t *testing.T) {
	ft := newFakeTransport()
	ft.json("/chats/c1/members", page("", ConversationMember{UserID: "u1"}, ConversationMember{UserID: "u2"}))
	s := newTestLeafSource(t, ft)

	for _, id := range []string{"m1", "m2"} {
		h := domain.ResourceHandle{
			ID: id, Kind: domain.KindChatMessage,
			Path:    []domain.PathSegment{{Kind: segChat, ID: "c1"}},
			Payload: ChatMessage{ID: id, MessageType: "message", Body: &ItemBody{ContentType: "html", Content: "<p>hi</p>"}},
		}
		desc, err := s.Describe(context.Background(), h)
		require.NoError(t, err)
		assert.Len(t, desc.Grants, 2)
		assert.Equal(t, "message.html", desc.Content.Filename)
	}
	assert.Equal(t, 1, ft.count("/chats/c1/members"))
}

func TestDescribe_ChannelMessageGrants(t *testing.T) {
	ft := newFakeTransport()
	ft.json("/teams/t1/channels/c1/members", page("", ConversationMember{UserID: "u9"}))
	s := newTestLeafSource(t, ft)

	h := domain.ResourceHandle{
		ID: "m1", Kind: domain.KindChannelMessage,
		Path:    []domain.PathSegment{{Kind: segTeam, ID: "t1"}, {Kind: segChannel, ID: "c1"}},
		Payload: ChatMessage{ID: "m1", MessageType: "message"},
	}

	desc, err := s.Describe(context.Background(), h)

	require.NoError(t, err)
	require.Len(t, desc.Grants, 2)
	assert.Equal(t, domain.PrincipalGroup, desc.Grants[0].Principals[0].Kind)
	assert.Equal(t, "u9", desc.Grants[1].Principals[0].ID)
	assert.False(t, desc.Content.HasContent(), "empty body")
}

func TestDescribe_ListItem(t *testing.T) {
	s := newTestLeafSource(t, newFakeTransport())
	h := domain.ResourceHandle{
		ID: "7", Kind: domain.KindListItem,
		Payload: ListItem{
			ID:        "7",
			CreatedBy: &IdentitySet{User: &Identity{ID: "u1", DisplayName: "Jane"}},
			Fields:    map[string]any{"Title": "Fix", "Status": "Open", "@odata.etag": "x", "_UIVersion": 1},
		},
	}

	desc, err := s.Describe(context.Background(), h)

	require.NoError(t, err)
	assert.Equal(t, "Item 7", desc.Fields[domain.FieldTitle])
	assert.Equal(t, "Jane", desc.Fields[domain.FieldAuthor])
	text := readAll(t, desc.Content.Open)
	assert.Equal(t, "Status: Open\nTitle: Fix\n", text)
	require.Len(t, desc.Grants, 1)
}

func TestDescribe_UnsupportedKind(t *testing.T) {
	s := newTestLeafSource(t, newFakeTransport())
	_, err := s.Describe(context.Background(), domain.ResourceHandle{Kind: "unknown"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestGrantsFromPermissions(t *testing.T) {
	perms := []Permission{
		{GrantedToIdentitiesV2: []SharePointIdentitySet{
			{User: &Identity{ID: "u1"}},
			{SiteUser: &Identity{Email: "ext@fabrikam.com"}},
			{Group: &Identity{ID: "g1"}},
		}},
		{},
	}

	grants := GrantsFromPermissions(perms)

	require.Len(t, grants, 1)
	ids := []string{}
	for _, p := range grants[0].Principals {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"u1", "ext@fabrikam.com", "g1"}, ids)
}
