package msgraph

import (
	"context"
	"net/url"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
)

const nodeReply = "reply"

// TeamWalker enumerates teams, their channels, channel messages and replies.
type TeamWalker struct {
	client    *Client
	cfg       *Config
	teamsBase string
}

// Ensure TeamWalker implements the interface.
var _ driven.FamilyWalker = (*TeamWalker)(nil)

// NewTeamWalker creates a team walker. teamsBase is the Teams web host used for deep links.
func NewTeamWalker(client *Client, cfg *Config, teamsBase string) *TeamWalker {
	return &TeamWalker{client: client, cfg: cfg, teamsBase: teamsBase}
}

// Family returns FamilyTeam.
func (w *TeamWalker) Family() domain.ResourceFamily {
	return domain.FamilyTeam
}

// Roots returns every non-excluded team.
func (w *TeamWalker) Roots(ctx context.Context) ([]driven.Node, error) {
	query := url.Values{
		"$filter": []string{"resourceProvisioningOptions/Any(x:x eq 'Team')"},
		"$select": []string{"id,displayName,mail,resourceProvisioningOptions"},
	}
	var nodes []driven.Node
	err := each(ctx, w.client, "/groups", query, func(g Group) error {
		if w.cfg.ExcludeTeams.Excludes(g.ID) {
			return nil
		}
		nodes = append(nodes, driven.Node{Type: segTeam, ID: g.ID, Name: g.DisplayName, Payload: g})
		return nil
	})
	return nodes, err
}

// Children lists channels of a team, messages of a channel, replies of a message.
func (w *TeamWalker) Children(ctx context.Context, parent driven.Node, emit func(driven.Node) error) error {
	childPath := parent.ChildPath()

	switch parent.Type {
	case segTeam:
		return each(ctx, w.client, "/teams/"+escape(parent.ID)+"/channels", nil, func(c Channel) error {
			return emit(driven.Node{Type: segChannel, ID: c.ID, Name: c.DisplayName, WebURL: c.WebURL, Path: childPath, Payload: c})
		})

	case segChannel:
		team, ok := ancestor(parent.Path, segTeam)
		if !ok {
			return domain.ErrInvalidInput
		}
		path := "/teams/" + escape(team.ID) + "/channels/" + escape(parent.ID) + "/messages"
		return each(ctx, w.client, path, nil, func(m ChatMessage) error {
			return emit(messageNode(segMessage, m, childPath))
		})

	case segMessage:
		team, okTeam := ancestor(parent.Path, segTeam)
		channel, okChannel := ancestor(parent.Path, segChannel)
		if !okTeam || !okChannel {
			return domain.ErrInvalidInput
		}
		path := "/teams/" + escape(team.ID) + "/channels/" + escape(channel.ID) + "/messages/" + escape(parent.ID) + "/replies"
		return each(ctx, w.client, path, nil, func(m ChatMessage) error {
			return emit(messageNode(nodeReply, m, childPath))
		})
	}
	return nil
}

// IsContainer reports whether node is a team, a channel or a top-level message.
func (w *TeamWalker) IsContainer(node driven.Node) bool {
	switch node.Type {
	case segTeam, segChannel, segMessage:
		return true
	default:
		return false
	}
}

// Leaf converts messages and replies into channel-message handles.
func (w *TeamWalker) Leaf(node driven.Node) (domain.ResourceHandle, bool) {
	if node.Type != segMessage && node.Type != nodeReply {
		return domain.ResourceHandle{}, false
	}

	webURL := node.WebURL
	if webURL == "" {
		team, _ := ancestor(node.Path, segTeam)
		channel, _ := ancestor(node.Path, segChannel)
		parentID := ""
		if node.Type == nodeReply {
			if p, ok := ancestor(node.Path, segMessage); ok {
				parentID = p.ID
			}
		}
		webURL = ChannelMessageURL(w.teamsBase, team.ID, channel.ID, node.ID, parentID)
	}

	return domain.ResourceHandle{
		ID:      node.ID,
		Kind:    domain.KindChannelMessage,
		Family:  domain.FamilyTeam,
		Path:    node.Path,
		Name:    node.Name,
		WebURL:  webURL,
		Payload: node.Payload,
	}, true
}

func messageNode(typ string, m ChatMessage, path []domain.PathSegment) driven.Node {
	return driven.Node{Type: typ, ID: m.ID, Name: messageTitle(m), WebURL: m.WebURL, Path: path, Payload: m}
}

// messageTitle returns the subject, or a short title naming the sender.
func messageTitle(m ChatMessage) string {
	if m.Subject != "" {
		return m.Subject
	}
	if from := m.From.Name(); from != "" {
		return "Message from " + from
	}
	return "Message " + m.ID
}
