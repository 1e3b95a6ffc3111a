package domain

import "time"

// Defaults for CrawlSettings.
const (
	DefaultThreads          = 4
	DefaultMaxContentLength = 10 * 1024 * 1024
	DefaultShutdownTimeout  = 60 * time.Second
)

// CrawlSettings are the engine options shared by every connector.
type CrawlSettings struct {
	// Threads is the requested worker count. The dispatcher caps it at 2x cores.
	Threads int `mapstructure:"threads"`

	CrawlDrives    bool `mapstructure:"crawl_drives"`
	CrawlNotebooks bool `mapstructure:"crawl_notebooks"`
	CrawlSites     bool `mapstructure:"crawl_sites"`
	CrawlTeams     bool `mapstructure:"crawl_teams"`
	CrawlChats     bool `mapstructure:"crawl_chats"`

	// IgnoreErrors keeps the run going after a per-item processing failure.
	IgnoreErrors bool `mapstructure:"ignore_errors"`

	// MaxContentLength is the content ceiling in bytes. Negative disables it.
	MaxContentLength int64 `mapstructure:"max_content_length"`

	// DefaultRoles is a comma-separated list of role tokens added to every record.
	DefaultRoles string `mapstructure:"default_roles"`

	// ShutdownTimeout bounds the wait for in-flight work at the end of a run.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// DefaultFields are merged first into every record.
	DefaultFields OutputRecord `mapstructure:"-"`

	// FieldMapping holds one mapping expression per output field.
	FieldMapping map[string]string `mapstructure:"-"`
}

// DefaultCrawlSettings returns the settings used when nothing is configured.
func DefaultCrawlSettings() CrawlSettings {
	return CrawlSettings{
		Threads:          DefaultThreads,
		CrawlDrives:      true,
		CrawlNotebooks:   true,
		CrawlSites:       true,
		CrawlTeams:       true,
		CrawlChats:       false,
		IgnoreErrors:     true,
		MaxContentLength: DefaultMaxContentLength,
		ShutdownTimeout:  DefaultShutdownTimeout,
	}
}

// EnabledFamilies returns the enabled families in crawl order.
func (s CrawlSettings) EnabledFamilies() []ResourceFamily {
	enabled := map[ResourceFamily]bool{
		FamilyDrive:    s.CrawlDrives,
		FamilyNotebook: s.CrawlNotebooks,
		FamilySite:     s.CrawlSites,
		FamilyTeam:     s.CrawlTeams,
		FamilyChat:     s.CrawlChats,
	}
	var out []ResourceFamily
	for _, f := range AllFamilies() {
		if enabled[f] {
			out = append(out, f)
		}
	}
	return out
}

// Roles returns the parsed default role tokens.
func (s CrawlSettings) Roles() []string {
	return SplitList(s.DefaultRoles)
}
