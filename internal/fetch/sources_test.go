package fetch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadSourcesMissingFileFallsBack(t *testing.T) {
	cfg, err := LoadSources(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Domestic)
	require.NotEmpty(t, cfg.International)
	require.Equal(t, Region{Code: "TW", Lang: "zh-TW"}, cfg.DomesticRegion)
	require.Len(t, cfg.BackfillRegions, 4)
}

func TestLoadSourcesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	body := `
domestic:
  - name: 測試來源
    url: https://example.com/rss
international:
  - name: Example World
    url: https://example.com/world.rss
backfill_regions:
  - code: US
    lang: en
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := LoadSources(path)
	require.NoError(t, err)
	require.Equal(t, []Source{{Name: "測試來源", URL: "https://example.com/rss"}}, cfg.Domestic)
	require.Len(t, cfg.International, 1)
	require.Equal(t, []Region{{Code: "US", Lang: "en"}}, cfg.BackfillRegions)
	// Omitted domestic region falls back to the default.
	require.Equal(t, "TW", cfg.DomesticRegion.Code)
}

func TestLoadSourcesRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte("domestic: [unclosed"), 0644))

	_, err := LoadSources(path)
	require.Error(t, err)
}
