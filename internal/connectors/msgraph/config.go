package msgraph

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/mitchellh/mapstructure"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
)

// Config doubles as the leaf filter of a crawl.
var _ driven.LeafFilter = (*Config)(nil)

// Cloud selects a national Graph deployment.
type Cloud string

const (
	CloudGlobal Cloud = "global"
	CloudUSGov  Cloud = "usgov"
	CloudChina  Cloud = "china"
)

// Endpoints are the API and login hosts of a cloud.
type Endpoints struct {
	GraphBaseURL string
	LoginBaseURL string
	TeamsBaseURL string
}

var cloudEndpoints = map[Cloud]Endpoints{
	CloudGlobal: {
		GraphBaseURL: "https://graph.microsoft.com/v1.0",
		LoginBaseURL: "https://login.microsoftonline.com",
		TeamsBaseURL: "https://teams.microsoft.com",
	},
	CloudUSGov: {
		GraphBaseURL: "https://graph.microsoft.us/v1.0",
		LoginBaseURL: "https://login.microsoftonline.us",
		TeamsBaseURL: "https://gov.teams.microsoft.us",
	},
	CloudChina: {
		GraphBaseURL: "https://microsoftgraph.chinacloudapi.cn/v1.0",
		LoginBaseURL: "https://login.chinacloudapi.cn",
		TeamsBaseURL: "https://teams.microsoftonline.cn",
	},
}

// Defaults for connector options.
const (
	DefaultPageSize          = 100
	DefaultCacheMaxSize      = 10000
	DefaultRequestsPerSecond = 10.0
	DefaultBurst             = 10
)

// Config holds the parsed crawl configuration.
type Config struct {
	domain.CrawlSettings `mapstructure:",squash"`

	TenantID     string `mapstructure:"tenant_id"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`

	// Cloud picks default endpoints. GraphBaseURL overrides the API host.
	Cloud        string `mapstructure:"cloud"`
	GraphBaseURL string `mapstructure:"graph_base_url"`

	IncludeRegex string `mapstructure:"include_regex"`
	ExcludeRegex string `mapstructure:"exclude_regex"`

	ExcludeSitesValue string `mapstructure:"exclude_sites"`
	ExcludeTeamsValue string `mapstructure:"exclude_teams"`
	ExcludeListsValue string `mapstructure:"exclude_lists"`

	PageSize          int     `mapstructure:"page_size"`
	CacheMaxSize      int     `mapstructure:"cache_max_size"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`

	ExcludeSites domain.ExclusionList `mapstructure:"-"`
	ExcludeTeams domain.ExclusionList `mapstructure:"-"`
	ExcludeLists domain.ExclusionList `mapstructure:"-"`

	include *regexp2.Regexp
	exclude *regexp2.Regexp
}

// DefaultConfig returns a config with every default applied.
func DefaultConfig() *Config {
	return &Config{
		CrawlSettings:     domain.DefaultCrawlSettings(),
		Cloud:             string(CloudGlobal),
		PageSize:          DefaultPageSize,
		CacheMaxSize:      DefaultCacheMaxSize,
		RequestsPerSecond: DefaultRequestsPerSecond,
		Burst:             DefaultBurst,
	}
}

// ParseConfig decodes a flat key/value map over the defaults.
// Values may be strings (from --set or the environment) or typed TOML values.
func ParseConfig(values map[string]any) (*Config, error) {
	cfg := DefaultConfig()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      false,
		Result:           cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	// 1. Exclusion lists
	c.ExcludeSites = domain.ParseExclusionList(c.ExcludeSitesValue)
	c.ExcludeTeams = domain.ParseExclusionList(c.ExcludeTeamsValue)
	c.ExcludeLists = domain.ParseExclusionList(c.ExcludeListsValue)

	// 2. Filters
	var err error
	if c.include, err = compileFilter("include_regex", c.IncludeRegex); err != nil {
		return err
	}
	if c.exclude, err = compileFilter("exclude_regex", c.ExcludeRegex); err != nil {
		return err
	}

	// 3. Cloud and bounds
	cloud := Cloud(strings.ToLower(strings.TrimSpace(c.Cloud)))
	switch cloud {
	case "":
		cloud = CloudGlobal
	case "gov":
		cloud = CloudUSGov
	case "cn":
		cloud = CloudChina
	}
	if _, ok := cloudEndpoints[cloud]; !ok {
		return fmt.Errorf("%w: unknown cloud %q", ErrInvalidConfig, c.Cloud)
	}
	c.Cloud = string(cloud)

	if c.Threads <= 0 {
		c.Threads = 1
	}
	if c.PageSize <= 0 || c.PageSize > 999 {
		c.PageSize = DefaultPageSize
	}
	if c.CacheMaxSize <= 0 {
		c.CacheMaxSize = DefaultCacheMaxSize
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = domain.DefaultShutdownTimeout
	}
	return nil
}

func compileFilter(key, expr string) (*regexp2.Regexp, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	re, err := regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	re.MatchTimeout = time.Second
	return re, nil
}

// Endpoints returns the endpoints of the configured cloud, honouring graph_base_url.
func (c *Config) Endpoints() Endpoints {
	ep, ok := cloudEndpoints[Cloud(c.Cloud)]
	if !ok {
		ep = cloudEndpoints[CloudGlobal]
	}
	if c.GraphBaseURL != "" {
		ep.GraphBaseURL = strings.TrimRight(c.GraphBaseURL, "/")
	}
	return ep
}

// Validate checks the credentials needed by the HTTP transport.
func (c *Config) Validate() error {
	var missing []string
	if c.TenantID == "" {
		missing = append(missing, "tenant_id")
	}
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// Allow applies include_regex and exclude_regex to a leaf's URL and title.
// The reason is empty when the leaf is allowed.
func (c *Config) Allow(handle domain.ResourceHandle) (bool, string) {
	candidates := []string{handle.WebURL, handle.Name}

	if c.include != nil && !matchAny(c.include, candidates) {
		return false, "not matched by include_regex"
	}
	if c.exclude != nil && matchAny(c.exclude, candidates) {
		return false, "matched by exclude_regex"
	}
	return true, ""
}

func matchAny(re *regexp2.Regexp, values []string) bool {
	for _, v := range values {
		if v == "" {
			continue
		}
		// A match timeout counts as no match.
		if ok, err := re.MatchString(v); err == nil && ok {
			return true
		}
	}
	return false
}
