package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/place-menu-crawler/internal/crawler"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewAppLoggingFlagsOverrideConfig(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, "logging:\n  development: false\n  level: error\n")

	app, err := newApp(context.Background(), rootFlags{cfgFile: cfgPath, dev: true, devSet: true, logLevel: "debug"})
	require.NoError(t, err)
	defer app.Close()
	require.True(t, app.Config.Logging.Development)
	require.Equal(t, "debug", app.Config.Logging.Level)
	require.True(t, app.Logger.Core().Enabled(zapcore.DebugLevel))

	app, err = newApp(context.Background(), rootFlags{cfgFile: cfgPath})
	require.NoError(t, err)
	defer app.Close()
	require.False(t, app.Config.Logging.Development)
	require.False(t, app.Logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewAppRejectsBadLogLevel(t *testing.T) {
	t.Parallel()

	_, err := newApp(context.Background(), rootFlags{cfgFile: writeConfig(t, "logging:\n  level: error\n"), logLevel: "loud"})
	require.ErrorContains(t, err, "loud")
}

func TestRootRegistersLoggingFlags(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	require.NotNil(t, root.PersistentFlags().Lookup("dev"))
	require.NotNil(t, root.PersistentFlags().Lookup("log-level"))
}

func TestCrawlWithoutKeywordsFailsBeforeBrowser(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, "logging:\n  level: error\nsearch:\n  keywords: [\"  \"]\n")

	root := newRootCmd()
	root.SetArgs([]string{"--config", cfgPath, "crawl", "--dry-run"})
	root.SetErr(new(discard))
	root.SetOut(new(discard))
	err := root.ExecuteContext(context.Background())
	require.ErrorContains(t, err, "no keywords to search")
}

func TestCheckCrawlOptions(t *testing.T) {
	t.Parallel()

	opts := crawler.Options{
		SearchBaseURL:      "https://map.example.com/p/search",
		Keywords:           []string{"성수 카페"},
		IncludeTerms:       []string{"두바이"},
		MaxPagesPerKeyword: 3,
	}

	core, logs := observer.New(zapcore.WarnLevel)
	require.NoError(t, checkCrawlOptions(opts, zap.New(core)))
	require.Zero(t, logs.Len())

	unfiltered := opts
	unfiltered.IncludeTerms = nil
	require.NoError(t, checkCrawlOptions(unfiltered, zap.New(core)))
	require.Equal(t, 1, logs.FilterMessageSnippet("include_terms").Len())

	noKeywords := opts
	noKeywords.Keywords = nil
	require.ErrorContains(t, checkCrawlOptions(noKeywords, zap.NewNop()), "no keywords")

	badPages := opts
	badPages.MaxPagesPerKeyword = 0
	require.ErrorContains(t, checkCrawlOptions(badPages, zap.NewNop()), "search.max_pages_per_keyword")
}
