package domain

import "strings"

// ExclusionList is a parsed list of branch-root ids that must not be crawled.
//
// Two formats are accepted. When the value contains a semicolon, every
// semicolon-separated group is one id and commas inside a group belong to the
// id (SharePoint site ids look like "host,siteGuid,webGuid"). Without a
// semicolon the value is the legacy format: every comma-separated entry is one
// id. A single id containing commas is therefore written with a trailing ";".
type ExclusionList struct {
	ids map[string]struct{}
}

// ParseExclusionList parses a configuration value into an ExclusionList.
func ParseExclusionList(value string) ExclusionList {
	sep := ","
	if strings.Contains(value, ";") {
		sep = ";"
	}
	ids := make(map[string]struct{})
	for _, part := range strings.Split(value, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			ids[part] = struct{}{}
		}
	}
	return ExclusionList{ids: ids}
}

// Excludes reports whether id is excluded. Matching is exact, never substring.
func (l ExclusionList) Excludes(id string) bool {
	if len(l.ids) == 0 {
		return false
	}
	_, ok := l.ids[strings.TrimSpace(id)]
	return ok
}

// Len returns the number of excluded ids.
func (l ExclusionList) Len() int {
	return len(l.ids)
}

// IDs returns the excluded ids in no particular order.
func (l ExclusionList) IDs() []string {
	out := make([]string, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	return out
}
