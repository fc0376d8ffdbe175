// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/place-menu-crawler/internal/crawler"
	"github.com/JakeFAU/place-menu-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/place-menu-crawler/internal/policy/ratelimit"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Search    SearchConfig    `mapstructure:"search"`
	Selectors SelectorsConfig `mapstructure:"selectors"`
	Timing    TimingConfig    `mapstructure:"timing"`
	Output    OutputConfig    `mapstructure:"output"`
	Geocode   GeocodeConfig   `mapstructure:"geocode"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// BrowserConfig configures the Chrome session.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless"`
	UserAgent         string        `mapstructure:"user_agent"`
	WindowWidth       int           `mapstructure:"window_width"`
	WindowHeight      int           `mapstructure:"window_height"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout"`
	ExecPath          string        `mapstructure:"exec_path"`
}

// SearchConfig describes the campaign: what to search and what to keep.
type SearchConfig struct {
	BaseURL            string   `mapstructure:"base_url"`
	Keywords           []string `mapstructure:"keywords"`
	Regions            []string `mapstructure:"regions"`
	Suffix             string   `mapstructure:"suffix"`
	ExcludeTerms       []string `mapstructure:"exclude_terms"`
	IncludeTerms       []string `mapstructure:"include_terms"`
	MaxPagesPerKeyword int      `mapstructure:"max_pages_per_keyword"`
	MaxEntriesPerPage  int      `mapstructure:"max_entries_per_page"`
}

// SelectorsConfig mirrors crawler.Selectors.
type SelectorsConfig struct {
	ResultsFrameName   string   `mapstructure:"results_frame_name"`
	ResultsURLFragment string   `mapstructure:"results_url_fragment"`
	EntryFrameName     string   `mapstructure:"entry_frame_name"`
	EntryURLFragment   string   `mapstructure:"entry_url_fragment"`
	ListEntry          string   `mapstructure:"list_entry"`
	EntryLink          string   `mapstructure:"entry_link"`
	PageButton         string   `mapstructure:"page_button"`
	Name               string   `mapstructure:"name"`
	Address            string   `mapstructure:"address"`
	Tab                string   `mapstructure:"tab"`
	MenuTabLabel       string   `mapstructure:"menu_tab_label"`
	LegacyItems        []string `mapstructure:"legacy_items"`
	LegacyName         string   `mapstructure:"legacy_name"`
	LegacyPrice        string   `mapstructure:"legacy_price"`
	CurrentName        string   `mapstructure:"current_name"`
	CurrentContainer   string   `mapstructure:"current_container"`
	CurrentPrice       string   `mapstructure:"current_price"`
	FlatText           string   `mapstructure:"flat_text"`
}

// TimingConfig mirrors crawler.Timings.
type TimingConfig struct {
	ResultsWait         time.Duration `mapstructure:"results_wait"`
	ResultsPollAttempts int           `mapstructure:"results_poll_attempts"`
	ResultsPollInterval time.Duration `mapstructure:"results_poll_interval"`
	ListWait            time.Duration `mapstructure:"list_wait"`
	EntrySettle         time.Duration `mapstructure:"entry_settle"`
	EntryWait           time.Duration `mapstructure:"entry_wait"`
	NameWait            time.Duration `mapstructure:"name_wait"`
	MenuSettle          time.Duration `mapstructure:"menu_settle"`
	PageSettle          time.Duration `mapstructure:"page_settle"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
}

// OutputConfig selects where records and summaries go. Only the local file
// is always written; the rest are enabled by setting their identifiers.
type OutputConfig struct {
	Path     string         `mapstructure:"path"`
	GCS      GCSConfig      `mapstructure:"gcs"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
}

// GCSConfig sets the bucket and object for the uploaded dataset.
type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
	Object string `mapstructure:"object"`
}

// PostgresConfig controls access to the relational store.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for campaign notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// GeocodeConfig configures address to coordinate enrichment.
type GeocodeConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Interval time.Duration `mapstructure:"interval"`
}

// MetricsConfig exposes the optional health and metrics server.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MENUCRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 720)
	v.SetDefault("browser.navigation_timeout", 45*time.Second)
	v.SetDefault("browser.action_timeout", 15*time.Second)

	v.SetDefault("search.base_url", "https://map.naver.com/p/search")
	v.SetDefault("search.keywords", []string{"강남역 두바이 쫀득 쿠키"})
	v.SetDefault("search.regions", []string{})
	v.SetDefault("search.suffix", "")
	v.SetDefault("search.exclude_terms", []string{})
	v.SetDefault("search.include_terms", []string{"두바이", "두쫀쿠"})
	v.SetDefault("search.max_pages_per_keyword", 3)
	v.SetDefault("search.max_entries_per_page", 0)

	sel := crawler.DefaultSelectors()
	v.SetDefault("selectors.results_frame_name", sel.ResultsFrameName)
	v.SetDefault("selectors.results_url_fragment", sel.ResultsURLFragment)
	v.SetDefault("selectors.entry_frame_name", sel.EntryFrameName)
	v.SetDefault("selectors.entry_url_fragment", sel.EntryURLFragment)
	v.SetDefault("selectors.list_entry", sel.ListEntry)
	v.SetDefault("selectors.entry_link", sel.EntryLink)
	v.SetDefault("selectors.page_button", sel.PageButton)
	v.SetDefault("selectors.name", sel.Name)
	v.SetDefault("selectors.address", sel.Address)
	v.SetDefault("selectors.tab", sel.Tab)
	v.SetDefault("selectors.menu_tab_label", sel.MenuTabLabel)
	v.SetDefault("selectors.legacy_items", sel.LegacyItems)
	v.SetDefault("selectors.legacy_name", sel.LegacyName)
	v.SetDefault("selectors.legacy_price", sel.LegacyPrice)
	v.SetDefault("selectors.current_name", sel.CurrentName)
	v.SetDefault("selectors.current_container", sel.CurrentContainer)
	v.SetDefault("selectors.current_price", sel.CurrentPrice)
	v.SetDefault("selectors.flat_text", sel.FlatText)

	tim := crawler.DefaultTimings()
	v.SetDefault("timing.results_wait", tim.ResultsWait)
	v.SetDefault("timing.results_poll_attempts", tim.ResultsPollAttempts)
	v.SetDefault("timing.results_poll_interval", tim.ResultsPollInterval)
	v.SetDefault("timing.list_wait", tim.ListWait)
	v.SetDefault("timing.entry_settle", tim.EntrySettle)
	v.SetDefault("timing.entry_wait", tim.EntryWait)
	v.SetDefault("timing.name_wait", tim.NameWait)
	v.SetDefault("timing.menu_settle", tim.MenuSettle)
	v.SetDefault("timing.page_settle", tim.PageSettle)
	v.SetDefault("timing.poll_interval", tim.PollInterval)

	v.SetDefault("output.path", "data/stores.json")
	v.SetDefault("output.gcs.bucket", "")
	v.SetDefault("output.gcs.object", "stores.json")
	v.SetDefault("output.postgres.dsn", "")
	v.SetDefault("output.postgres.max_conns", 4)
	v.SetDefault("output.pubsub.project_id", "")
	v.SetDefault("output.pubsub.topic_name", "")

	v.SetDefault("geocode.enabled", false)
	v.SetDefault("geocode.api_key", "")
	v.SetDefault("geocode.base_url", "https://dapi.kakao.com")
	v.SetDefault("geocode.timeout", 10*time.Second)
	v.SetDefault("geocode.interval", 100*time.Millisecond)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		return fmt.Errorf("browser.window_width and browser.window_height must be > 0")
	}
	if err := c.Options().Validate(); err != nil {
		return err
	}
	if err := c.Selectors.toCrawler().Validate(); err != nil {
		return err
	}
	if err := c.Timing.toCrawler().Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		return fmt.Errorf("output.path must be set")
	}
	if c.Output.GCS.Bucket != "" && c.Output.GCS.Object == "" {
		return fmt.Errorf("output.gcs.object must be set when output.gcs.bucket is set")
	}
	if c.Output.PubSub.TopicName != "" && c.Output.PubSub.ProjectID == "" {
		return fmt.Errorf("output.pubsub.project_id must be set when output.pubsub.topic_name is set")
	}
	if c.Geocode.Enabled && c.Geocode.APIKey == "" {
		return fmt.Errorf("geocode.api_key must be set when geocode is enabled")
	}
	if c.Geocode.Interval < 0 {
		return fmt.Errorf("geocode.interval must be >= 0")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr must be set when metrics are enabled")
	}
	return nil
}

// Options converts the search section into campaign options. Keywords are
// the explicit list followed by region combinations.
func (c Config) Options() crawler.Options {
	return crawler.Options{
		SearchBaseURL:      c.Search.BaseURL,
		Keywords:           crawler.BuildKeywords(c.Search.Keywords, c.Search.Regions, c.Search.Suffix),
		ExcludeTerms:       c.Search.ExcludeTerms,
		IncludeTerms:       c.Search.IncludeTerms,
		MaxPagesPerKeyword: c.Search.MaxPagesPerKeyword,
		MaxEntriesPerPage:  c.Search.MaxEntriesPerPage,
	}
}

// CrawlerSelectors converts the selectors section.
func (c Config) CrawlerSelectors() crawler.Selectors {
	return c.Selectors.toCrawler()
}

// CrawlerTimings converts the timing section.
func (c Config) CrawlerTimings() crawler.Timings {
	return c.Timing.toCrawler()
}

// HeadlessConfig converts the browser section.
func (c Config) HeadlessConfig() headless.Config {
	return headless.Config{
		Headless:          c.Browser.Headless,
		UserAgent:         c.Browser.UserAgent,
		WindowWidth:       c.Browser.WindowWidth,
		WindowHeight:      c.Browser.WindowHeight,
		NavigationTimeout: c.Browser.NavigationTimeout,
		ActionTimeout:     c.Browser.ActionTimeout,
		ExecPath:          c.Browser.ExecPath,
	}
}

// GeocodeLimit converts the request interval into a limiter config.
func (c Config) GeocodeLimit() ratelimit.Config {
	return ratelimit.FromInterval(c.Geocode.Interval)
}

func (s SelectorsConfig) toCrawler() crawler.Selectors {
	return crawler.Selectors{
		ResultsFrameName:   s.ResultsFrameName,
		ResultsURLFragment: s.ResultsURLFragment,
		EntryFrameName:     s.EntryFrameName,
		EntryURLFragment:   s.EntryURLFragment,
		ListEntry:          s.ListEntry,
		EntryLink:          s.EntryLink,
		PageButton:         s.PageButton,
		Name:               s.Name,
		Address:            s.Address,
		Tab:                s.Tab,
		MenuTabLabel:       s.MenuTabLabel,
		LegacyItems:        append([]string(nil), s.LegacyItems...),
		LegacyName:         s.LegacyName,
		LegacyPrice:        s.LegacyPrice,
		CurrentName:        s.CurrentName,
		CurrentContainer:   s.CurrentContainer,
		CurrentPrice:       s.CurrentPrice,
		FlatText:           s.FlatText,
	}
}

func (t TimingConfig) toCrawler() crawler.Timings {
	return crawler.Timings{
		ResultsWait:         t.ResultsWait,
		ResultsPollAttempts: t.ResultsPollAttempts,
		ResultsPollInterval: t.ResultsPollInterval,
		ListWait:            t.ListWait,
		EntrySettle:         t.EntrySettle,
		EntryWait:           t.EntryWait,
		NameWait:            t.NameWait,
		MenuSettle:          t.MenuSettle,
		PageSettle:          t.PageSettle,
		PollInterval:        t.PollInterval,
	}
}
