package msgraph

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
)

// ChatWalker enumerates chats through their members and the chat messages.
// A chat shared by several users is walked once per run.
type ChatWalker struct {
	client    *Client
	teamsBase string
	seen      mapset.Set[string]
}

// Ensure ChatWalker implements the interface.
var _ driven.FamilyWalker = (*ChatWalker)(nil)

// NewChatWalker creates a chat walker.
func NewChatWalker(client *Client, teamsBase string) *ChatWalker {
	return &ChatWalker{client: client, teamsBase: teamsBase, seen: mapset.NewSet[string]()}
}

// Family returns FamilyChat.
func (w *ChatWalker) Family() domain.ResourceFamily {
	return domain.FamilyChat
}

// Roots returns every user.
func (w *ChatWalker) Roots(ctx context.Context) ([]driven.Node, error) {
	w.seen.Clear()
	return listUsers(ctx, w.client)
}

// Children lists the chats of a user or the messages of a chat.
func (w *ChatWalker) Children(ctx context.Context, parent driven.Node, emit func(driven.Node) error) error {
	switch parent.Type {
	case segUser:
		// Chats are keyed by chat id alone so later users reuse the first path.
		return each(ctx, w.client, "/users/"+escape(parent.ID)+"/chats", nil, func(c Chat) error {
			if !w.seen.Add(c.ID) {
				return nil
			}
			name := c.Topic
			if name == "" {
				name = c.ChatType + " chat"
			}
			return emit(driven.Node{Type: segChat, ID: c.ID, Name: name, WebURL: c.WebURL, Payload: c})
		})

	case segChat:
		childPath := parent.ChildPath()
		return each(ctx, w.client, "/chats/"+escape(parent.ID)+"/messages", nil, func(m ChatMessage) error {
			return emit(messageNode(segMessage, m, childPath))
		})
	}
	return nil
}

// IsContainer reports whether node is a user or a chat.
func (w *ChatWalker) IsContainer(node driven.Node) bool {
	return node.Type == segUser || node.Type == segChat
}

// Leaf converts a message node into a chat-message handle.
func (w *ChatWalker) Leaf(node driven.Node) (domain.ResourceHandle, bool) {
	if node.Type != segMessage {
		return domain.ResourceHandle{}, false
	}

	webURL := node.WebURL
	if webURL == "" {
		chat, _ := ancestor(node.Path, segChat)
		webURL = ChatMessageURL(w.teamsBase, chat.ID, node.ID)
	}

	return domain.ResourceHandle{
		ID:      node.ID,
		Kind:    domain.KindChatMessage,
		Family:  domain.FamilyChat,
		Path:    node.Path,
		Name:    node.Name,
		WebURL:  webURL,
		Payload: node.Payload,
	}, true
}
