package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultMaxDepth is the deepest nesting level of sitemap indexes that is
	// followed. Root sitemaps are depth 0.
	DefaultMaxDepth = 5

	// DefaultMaxURLs caps the number of distinct leaf URLs collected per run.
	DefaultMaxURLs = 10000

	// DefaultTimeout is the per-request timeout for a single sitemap fetch.
	DefaultTimeout = 10 * time.Second

	// DefaultDelay is slept before every fetch attempt, retries included.
	DefaultDelay = 500 * time.Millisecond

	// DefaultRetries is the number of attempts made for one sitemap document.
	DefaultRetries = 3

	// DefaultWorkers is the number of sitemap documents fetched concurrently.
	DefaultWorkers = 10

	// AppName is the application name used for XDG directory paths.
	AppName = "sitemapcrawl"

	// DefaultUserAgent is a desktop browser User-Agent. Several CDNs answer
	// non-browser agents with challenge pages instead of the sitemap.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:128.0) Gecko/20100101 Firefox/128.0"

	// DefaultAccept is the Accept header sent with every sitemap request.
	DefaultAccept = "application/xml, text/xml;q=0.9, */*;q=0.8"

	// DefaultMaxBodySize matches the sitemaps.org limit of 50MB uncompressed.
	DefaultMaxBodySize = 50 * 1024 * 1024 // 50MB

	// DefaultSummaryFormat is the format of the run summary printed to stderr.
	DefaultSummaryFormat = SummaryFormatText
)

// Summary formats accepted by --summary-format.
const (
	SummaryFormatText     = "text"
	SummaryFormatJSON     = "json"
	SummaryFormatMarkdown = "markdown"
)

// Config holds all configuration options for one crawl run.
// It is populated from CLI flags and passed down explicitly; no package
// keeps its own copy.
type Config struct {
	// InputFile is the path of the file listing root sitemap URLs.
	InputFile string

	// OutputFile receives the sorted leaf URLs. Empty means stdout.
	OutputFile string

	// MaxDepth is the deepest sitemap nesting level that is fetched.
	// 0 fetches only the root sitemaps.
	MaxDepth int

	// MaxURLs is the upper bound on distinct leaf URLs collected.
	MaxURLs int

	// Timeout bounds each individual HTTP request.
	Timeout time.Duration

	// Delay is slept before every fetch attempt.
	Delay time.Duration

	// Retries is the number of attempts per sitemap document.
	Retries int

	// Workers is the number of concurrent fetches within one layer.
	Workers int

	// Verbose enables debug logging of every skip, retry and failure.
	Verbose bool

	// UserAgent is sent with every request unless a site entry overrides it.
	UserAgent string

	// MaxBodySize is the largest response body accepted, in bytes.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// Robots enables discovery of extra root sitemaps from robots.txt.
	Robots bool

	// Progress shows a progress bar on stderr while crawling.
	Progress bool

	// SummaryFormat is one of SummaryFormatText, SummaryFormatJSON or
	// SummaryFormatMarkdown.
	SummaryFormat string

	// LogFile, when set, also receives JSON logs with size-based rotation.
	LogFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, .sitemapcrawl is searched in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-host settings loaded from the config file.
	SiteConfigs *File

	// DBDir is the directory holding the run archive database.
	// Defaults to the XDG data directory (~/.local/share/sitemapcrawl on Linux).
	DBDir string

	// SaveToDB records the finished run in the archive.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxDepth:      DefaultMaxDepth,
		MaxURLs:       DefaultMaxURLs,
		Timeout:       DefaultTimeout,
		Delay:         DefaultDelay,
		Retries:       DefaultRetries,
		Workers:       DefaultWorkers,
		UserAgent:     DefaultUserAgent,
		MaxBodySize:   DefaultMaxBodySize,
		Progress:      true,
		SummaryFormat: DefaultSummaryFormat,
		DBDir:         XDGDataDir(),
		SaveToDB:      true,
	}
}

// XDGDataDir returns the XDG data directory for sitemapcrawl.
// On Linux: ~/.local/share/sitemapcrawl
// On macOS: ~/Library/Application Support/sitemapcrawl
// On Windows: %LOCALAPPDATA%\sitemapcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGStateDir returns the XDG state directory, used for default log files.
func XDGStateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the sentinel errors.
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return ErrNoInput
	}

	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}

	if c.MaxURLs <= 0 {
		return ErrInvalidMaxURLs
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	if c.Retries <= 0 {
		return ErrInvalidRetries
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	switch c.SummaryFormat {
	case SummaryFormatText, SummaryFormatJSON, SummaryFormatMarkdown:
	default:
		return ErrInvalidSummaryFormat
	}

	return nil
}

// DepthLimitFor returns the depth limit that applies to sitemaps on host.
// A site entry can only tighten the global MaxDepth, never raise it.
func (c *Config) DepthLimitFor(host string) int {
	if c.SiteConfigs == nil {
		return c.MaxDepth
	}
	site := c.SiteConfigs.GetSiteConfig(host)
	if site.Depth > 0 && site.Depth < c.MaxDepth {
		return site.Depth
	}
	return c.MaxDepth
}
