package fetch

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source is one fixed feed polled wholesale.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Region is one (region, language) pair used by search-mode backfill.
type Region struct {
	Code string `yaml:"code"`
	Lang string `yaml:"lang"`
}

// SourceConfig is the YAML source-list configuration.
type SourceConfig struct {
	Domestic      []Source `yaml:"domestic"`
	International []Source `yaml:"international"`
	// DomesticRegion parameterizes the generic-search backfill for the
	// domestic pool.
	DomesticRegion Region `yaml:"domestic_region"`
	// BackfillRegions is the fixed iteration order for international
	// backfill. Each pair selects the keyword list matching its language.
	BackfillRegions []Region `yaml:"backfill_regions"`
}

// LoadSources reads the source lists from a YAML file. A missing file is a
// normal cold start: built-in defaults are returned instead.
func LoadSources(path string) (*SourceConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSources(), nil
		}
		return nil, fmt.Errorf("open sources config: %w", err)
	}
	defer f.Close()

	var cfg SourceConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode sources config: %w", err)
	}
	if cfg.DomesticRegion.Code == "" {
		cfg.DomesticRegion = Region{Code: "TW", Lang: "zh-TW"}
	}
	if len(cfg.BackfillRegions) == 0 {
		cfg.BackfillRegions = DefaultSources().BackfillRegions
	}
	return &cfg, nil
}

// DefaultSources returns the built-in source lists.
func DefaultSources() *SourceConfig {
	return &SourceConfig{
		Domestic: []Source{
			{Name: "聯合報", URL: "https://udn.com/rssfeed/news/2/0"},
			{Name: "聯合報財經", URL: "https://udn.com/rssfeed/news/2/6645"},
			{Name: "自由時報", URL: "https://news.ltn.com.tw/rss/all.xml"},
			{Name: "自由財經", URL: "https://news.ltn.com.tw/rss/business.xml"},
			{Name: "ETtoday", URL: "https://feeds.feedburner.com/ettoday/realtime"},
			{Name: "ETtoday財經", URL: "https://feeds.feedburner.com/ettoday/finance"},
			{Name: "報導者", URL: "https://www.twreporter.org/a/rss2.xml"},
			{Name: "Google News TW", URL: "https://news.google.com/rss?hl=zh-TW&gl=TW&ceid=TW:zh-Hant"},
			{Name: "公視新聞", URL: "https://news.pts.org.tw/xml/newsfeed.xml"},
			{Name: "鏡週刊", URL: "https://www.mirrormedia.mg/rss/news.xml"},
		},
		International: []Source{
			{Name: "BBC News", URL: "https://feeds.bbci.co.uk/news/rss.xml"},
			{Name: "The Guardian", URL: "https://www.theguardian.com/world/rss"},
			{Name: "The Japan Times", URL: "https://www.japantimes.co.jp/feed"},
			{Name: "NHK (日文)", URL: "https://www3.nhk.or.jp/rss/news/cat0.xml"},
			{Name: "朝日新聞 (日文)", URL: "http://rss.asahi.com/rss/asahi/newsheadlines.rdf"},
		},
		DomesticRegion: Region{Code: "TW", Lang: "zh-TW"},
		BackfillRegions: []Region{
			{Code: "US", Lang: "en"},
			{Code: "GB", Lang: "en"},
			{Code: "JP", Lang: "ja"},
			{Code: "KR", Lang: "ko"},
		},
	}
}
