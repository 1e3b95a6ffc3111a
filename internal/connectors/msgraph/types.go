package msgraph

import (
	"strings"
	"time"
)

// Identity is a user, group, device or application reference.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

// IdentitySet holds the identities attached to an action (createdBy, modifiedBy).
type IdentitySet struct {
	User        *Identity `json:"user,omitempty"`
	Group       *Identity `json:"group,omitempty"`
	Application *Identity `json:"application,omitempty"`
}

// Name returns the most specific display name of the set.
func (s *IdentitySet) Name() string {
	if s == nil {
		return ""
	}
	for _, id := range []*Identity{s.User, s.Group, s.Application} {
		if id != nil && id.DisplayName != "" {
			return id.DisplayName
		}
	}
	return ""
}

// SharePointIdentitySet is the grantee of a permission.
type SharePointIdentitySet struct {
	User      *Identity `json:"user,omitempty"`
	Group     *Identity `json:"group,omitempty"`
	SiteUser  *Identity `json:"siteUser,omitempty"`
	SiteGroup *Identity `json:"siteGroup,omitempty"`
}

// User is a directory user.
type User struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
	Mail              string `json:"mail"`
}

// Group is a directory group (teams are groups with the Team provisioning option).
type Group struct {
	ID                          string   `json:"id"`
	DisplayName                 string   `json:"displayName"`
	Mail                        string   `json:"mail"`
	GroupTypes                  []string `json:"groupTypes"`
	ResourceProvisioningOptions []string `json:"resourceProvisioningOptions"`
}

// IsTeam reports whether the group is provisioned as a team.
func (g Group) IsTeam() bool {
	for _, o := range g.ResourceProvisioningOptions {
		if strings.EqualFold(o, "Team") {
			return true
		}
	}
	return false
}

// DirectoryObject is the polymorphic result of /directoryObjects/{id}.
type DirectoryObject struct {
	ODataType         string `json:"@odata.type"`
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
	Mail              string `json:"mail"`
}

// Drive is a document library or a user's OneDrive.
type Drive struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	DriveType string       `json:"driveType"`
	WebURL    string       `json:"webUrl"`
	Owner     *IdentitySet `json:"owner,omitempty"`
}

// FileFacet marks a drive item as a file.
type FileFacet struct {
	MimeType string `json:"mimeType"`
}

// FolderFacet marks a drive item as a folder.
type FolderFacet struct {
	ChildCount int `json:"childCount"`
}

// PackageFacet marks a drive item as a package (a OneNote notebook folder).
type PackageFacet struct {
	Type string `json:"type"`
}

// ItemReference points at the parent of a drive item.
type ItemReference struct {
	DriveID string `json:"driveId"`
	ID      string `json:"id"`
	Path    string `json:"path"`
	SiteID  string `json:"siteId"`
}

// DriveItem is a file, folder or package in a drive.
type DriveItem struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Size                 int64          `json:"size"`
	WebURL               string         `json:"webUrl"`
	CreatedDateTime      time.Time      `json:"createdDateTime"`
	LastModifiedDateTime time.Time      `json:"lastModifiedDateTime"`
	File                 *FileFacet     `json:"file,omitempty"`
	Folder               *FolderFacet   `json:"folder,omitempty"`
	Package              *PackageFacet  `json:"package,omitempty"`
	ParentReference      *ItemReference `json:"parentReference,omitempty"`
	CreatedBy            *IdentitySet   `json:"createdBy,omitempty"`
	LastModifiedBy       *IdentitySet   `json:"lastModifiedBy,omitempty"`
}

// SharingLink is the link facet of a permission.
type SharingLink struct {
	Scope  string `json:"scope"`
	Type   string `json:"type"`
	WebURL string `json:"webUrl"`
}

// Permission is one entry of a drive item's permission list.
type Permission struct {
	ID                    string                  `json:"id"`
	Roles                 []string                `json:"roles"`
	GrantedToV2           *SharePointIdentitySet  `json:"grantedToV2,omitempty"`
	GrantedToIdentitiesV2 []SharePointIdentitySet `json:"grantedToIdentitiesV2,omitempty"`
	Link                  *SharingLink            `json:"link,omitempty"`
}

// Site is a SharePoint site.
type Site struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	WebURL      string `json:"webUrl"`
}

// Title returns the display name, falling back to the name.
func (s Site) Title() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

// ListInfo is the list facet of a SharePoint list.
type ListInfo struct {
	Hidden   bool   `json:"hidden"`
	Template string `json:"template"`
}

// List is a SharePoint list.
type List struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	WebURL      string    `json:"webUrl"`
	List        *ListInfo `json:"list,omitempty"`
}

// ListItem is an item of a SharePoint list.
type ListItem struct {
	ID                   string         `json:"id"`
	WebURL               string         `json:"webUrl"`
	CreatedDateTime      time.Time      `json:"createdDateTime"`
	LastModifiedDateTime time.Time      `json:"lastModifiedDateTime"`
	CreatedBy            *IdentitySet   `json:"createdBy,omitempty"`
	LastModifiedBy       *IdentitySet   `json:"lastModifiedBy,omitempty"`
	Fields               map[string]any `json:"fields,omitempty"`
}

// Title returns the Title column of the item, if any.
func (i ListItem) Title() string {
	if s, ok := i.Fields["Title"].(string); ok {
		return s
	}
	return ""
}

// SitePage is a modern SharePoint page.
type SitePage struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	Title                string       `json:"title"`
	Description          string       `json:"description"`
	WebURL               string       `json:"webUrl"`
	CreatedDateTime      time.Time    `json:"createdDateTime"`
	LastModifiedDateTime time.Time    `json:"lastModifiedDateTime"`
	CreatedBy            *IdentitySet `json:"createdBy,omitempty"`
}

// NotebookLink is one link of a notebook's links facet.
type NotebookLink struct {
	Href string `json:"href"`
}

// NotebookLinks are the client and web URLs of a notebook.
type NotebookLinks struct {
	OneNoteWebURL *NotebookLink `json:"oneNoteWebUrl,omitempty"`
}

// Notebook is a OneNote notebook.
type Notebook struct {
	ID                   string         `json:"id"`
	DisplayName          string         `json:"displayName"`
	CreatedDateTime      time.Time      `json:"createdDateTime"`
	LastModifiedDateTime time.Time      `json:"lastModifiedDateTime"`
	CreatedBy            *IdentitySet   `json:"createdBy,omitempty"`
	Links                *NotebookLinks `json:"links,omitempty"`
}

// WebURL returns the OneNote web link, if present.
func (n Notebook) WebURL() string {
	if n.Links != nil && n.Links.OneNoteWebURL != nil {
		return n.Links.OneNoteWebURL.Href
	}
	return ""
}

// OnenoteSection is a section or section group of a notebook.
type OnenoteSection struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// OnenotePage is a page of a section.
type OnenotePage struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	CreatedDateTime      time.Time `json:"createdDateTime"`
	LastModifiedDateTime time.Time `json:"lastModifiedDateTime"`
}

// Channel is a team channel.
type Channel struct {
	ID             string `json:"id"`
	DisplayName    string `json:"displayName"`
	WebURL         string `json:"webUrl"`
	MembershipType string `json:"membershipType"`
}

// IsPrivate reports whether only channel members can see the channel.
func (c Channel) IsPrivate() bool {
	return c.MembershipType == "private" || c.MembershipType == "shared"
}

// Chat is a one-on-one, group or meeting chat.
type Chat struct {
	ID       string `json:"id"`
	Topic    string `json:"topic"`
	ChatType string `json:"chatType"`
	WebURL   string `json:"webUrl"`
}

// ItemBody is the body of a message.
type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// ChatMessage is a channel message, reply or chat message.
type ChatMessage struct {
	ID                   string       `json:"id"`
	ReplyToID            string       `json:"replyToId"`
	MessageType          string       `json:"messageType"`
	Subject              string       `json:"subject"`
	WebURL               string       `json:"webUrl"`
	CreatedDateTime      time.Time    `json:"createdDateTime"`
	LastModifiedDateTime time.Time    `json:"lastModifiedDateTime"`
	DeletedDateTime      *time.Time   `json:"deletedDateTime,omitempty"`
	From                 *IdentitySet `json:"from,omitempty"`
	Body                 *ItemBody    `json:"body,omitempty"`
}

// IsSystem reports whether the message is a system event rather than user content.
func (m ChatMessage) IsSystem() bool {
	return m.MessageType != "" && m.MessageType != "message"
}

// IsDeleted reports whether the message was deleted.
func (m ChatMessage) IsDeleted() bool {
	return m.DeletedDateTime != nil
}

// ConversationMember is a member of a chat, channel or team.
type ConversationMember struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	UserID      string   `json:"userId"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
}
