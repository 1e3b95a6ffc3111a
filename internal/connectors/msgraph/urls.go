package msgraph

import (
	"net/url"
	"strings"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
)

// Path segment kinds used by the walkers.
const (
	segUser    = "user"
	segGroup   = "group"
	segSite    = "site"
	segDrive   = "drive"
	segFolder  = "folder"
	segList    = "list"
	segTeam    = "team"
	segChannel = "channel"
	segChat    = "chat"
	segMessage = "message"
)

// DriveItemURL rebuilds a file URL from its library URL and folder names:
// {libraryWebUrl}/{folder}/.../{name}.
func DriveItemURL(path []domain.PathSegment, name string) string {
	base := ""
	var folders []string
	for _, seg := range path {
		switch seg.Kind {
		case segDrive:
			base = seg.WebURL
			folders = folders[:0]
		case segFolder:
			folders = append(folders, url.PathEscape(seg.Name))
		}
	}
	if base == "" || name == "" {
		return ""
	}

	parts := append([]string{strings.TrimRight(base, "/")}, folders...)
	parts = append(parts, url.PathEscape(name))
	return strings.Join(parts, "/")
}

// ListItemURL returns the display form URL of a list item.
func ListItemURL(listWebURL, itemID string) string {
	if listWebURL == "" || itemID == "" {
		return ""
	}
	return strings.TrimRight(listWebURL, "/") + "/DispForm.aspx?ID=" + url.QueryEscape(itemID)
}

// ChannelMessageURL returns the Teams deep link of a channel message or reply.
func ChannelMessageURL(teamsBase, teamID, channelID, messageID, parentID string) string {
	if channelID == "" || messageID == "" {
		return ""
	}
	q := url.Values{}
	if teamID != "" {
		q.Set("groupId", teamID)
	}
	if parentID == "" {
		parentID = messageID
	}
	q.Set("parentMessageId", parentID)
	return strings.TrimRight(teamsBase, "/") + "/l/message/" +
		url.PathEscape(channelID) + "/" + url.PathEscape(messageID) + "?" + q.Encode()
}

// ChatMessageURL returns the Teams deep link of a chat message.
func ChatMessageURL(teamsBase, chatID, messageID string) string {
	if chatID == "" || messageID == "" {
		return ""
	}
	q := url.Values{"context": []string{`{"contextType":"chat"}`}}
	return strings.TrimRight(teamsBase, "/") + "/l/message/" +
		url.PathEscape(chatID) + "/" + url.PathEscape(messageID) + "?" + q.Encode()
}

func escape(id string) string {
	return url.PathEscape(id)
}

// ancestor returns the nearest path segment of the given kind.
func ancestor(path []domain.PathSegment, kind string) (domain.PathSegment, bool) {
	return domain.ResourceHandle{Path: path}.Ancestor(kind)
}
