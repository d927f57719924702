// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pubmed-fetcher/internal/output"
	"github.com/pdiddy/pubmed-fetcher/internal/search"
)

func testViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("GET_PAPERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// resetFlags restores every flag to its default so consecutive executions of
// the package-level commands do not leak state.
func resetFlags(cmds ...*cobra.Command) {
	for _, c := range cmds {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				f.Value.Set(f.DefValue)
				f.Changed = false
			})
		}
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd, historyCmd, cacheStatsCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func articleXML(title, affiliation string) string {
	return fmt.Sprintf(`<PubmedArticleSet><PubmedArticle><MedlineCitation><Article>`+
		`<Journal><JournalIssue><PubDate><Year>2024</Year><Month>Mar</Month><Day>7</Day></PubDate></JournalIssue></Journal>`+
		`<ArticleTitle>%s</ArticleTitle><AuthorList>`+
		`<Author><LastName>Roe</LastName><ForeName>Rick</ForeName><AffiliationInfo><Affiliation>%s</Affiliation></AffiliationInfo></Author>`+
		`</AuthorList></Article></MedlineCitation></PubmedArticle></PubmedArticleSet>`, title, affiliation)
}

// fakeEutils serves esearch with ids and efetch with one industry (PMID 1)
// and one academic (PMID 2) record.
func fakeEutils(t *testing.T, ids ...string) *httptest.Server {
	t.Helper()
	if ids == nil {
		ids = []string{}
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/esearch.fcgi":
			assert.Equal(t, "get-papers-list", r.URL.Query().Get("tool"))
			json.NewEncoder(w).Encode(map[string]any{
				"esearchresult": map[string]any{"idlist": ids},
			})
		case "/efetch.fcgi":
			switch r.URL.Query().Get("id") {
			case "1":
				w.Write([]byte(articleXML("Industry paper", "Acme Pharmaceuticals, Boston, MA. rick@acme.com")))
			case "2":
				w.Write([]byte(articleXML("Academic paper", "University of Oxford, UK")))
			default:
				http.NotFound(w, r)
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func setTestEnv(t *testing.T, baseURL string) {
	t.Helper()
	loadedSecrets = nil
	t.Setenv("GET_PAPERS_NCBI_BASE_URL", baseURL)
	t.Setenv("GET_PAPERS_NCBI_REQUEST_DELAY", "1ms")
	t.Setenv("GET_PAPERS_HTTP_BACKOFF", "1ms")
	t.Setenv("GET_PAPERS_LOG_LEVEL", "disabled")
	t.Setenv("GET_PAPERS_CACHE_DIR", t.TempDir())
}

// --- config ---

func TestLoadConfig_Defaults(t *testing.T) {
	loadedSecrets = nil
	cfg, err := loadConfig(testViper())
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 3, cfg.HTTP.MaxAttempts)
	assert.Equal(t, time.Second, cfg.HTTP.Backoff)
	assert.Equal(t, search.DefaultBaseURL, cfg.NCBI.BaseURL)
	assert.Equal(t, "get-papers-list", cfg.NCBI.Tool)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.False(t, cfg.Cache.Disabled)
	assert.Empty(t, cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	loadedSecrets = nil
	t.Setenv("GET_PAPERS_NCBI_EMAIL", "me@example.org")
	t.Setenv("GET_PAPERS_CACHE_TTL", "2h")
	t.Setenv("GET_PAPERS_CACHE_DISABLED", "true")

	cfg, err := loadConfig(testViper())
	require.NoError(t, err)
	assert.Equal(t, "me@example.org", cfg.NCBI.Email)
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL)
	assert.True(t, cfg.Cache.Disabled)
}

func TestLoadConfig_File(t *testing.T) {
	loadedSecrets = nil
	path := filepath.Join(t.TempDir(), "get-papers-list.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  timeout: 30s
  max_attempts: 5
ncbi:
  request_delay: 500ms
store:
  path: /tmp/history.db
log:
  format: json
`), 0o644))

	v := testViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 5, cfg.HTTP.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.NCBI.RequestDelay)
	assert.Equal(t, "/tmp/history.db", cfg.Store.Path)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_Invalid(t *testing.T) {
	loadedSecrets = nil
	v := testViper()
	v.Set("http.timeout", "0s")
	_, err := loadConfig(v)
	assert.ErrorContains(t, err, "http.timeout")

	v = testViper()
	v.Set("ncbi.request_delay", "-1s")
	_, err = loadConfig(v)
	assert.ErrorContains(t, err, "ncbi.request_delay")
}

func TestLoadConfig_SecretsFillEmptyCredentials(t *testing.T) {
	loadedSecrets = map[string]string{"ncbi-api-key": "from-file", "ncbi-email": "file@example.org"}
	defer func() { loadedSecrets = nil }()
	t.Setenv("GET_PAPERS_NCBI_EMAIL", "env@example.org")

	cfg, err := loadConfig(testViper())
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.NCBI.APIKey)
	assert.Equal(t, "env@example.org", cfg.NCBI.Email, "environment wins over .secrets")
}

// --- format ---

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		flag, file string
		want       output.Format
		wantErr    bool
	}{
		{"", "", output.FormatTable, false},
		{"details", "", output.FormatDetails, false},
		{"", "out.csv", output.FormatCSV, false},
		{"", "out.json", output.FormatJSON, false},
		{"", "out.yml", output.FormatYAML, false},
		{"", "out.txt", output.FormatCSV, false},
		{"", "out.table", output.FormatCSV, false},
		{"json", "out.csv", output.FormatJSON, false},
		{"xml", "", "", true},
	}
	for _, tt := range tests {
		got, err := resolveFormat(tt.flag, tt.file)
		if (err != nil) != tt.wantErr {
			t.Errorf("resolveFormat(%q, %q) error = %v, wantErr %v", tt.flag, tt.file, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("resolveFormat(%q, %q) = %q, want %q", tt.flag, tt.file, got, tt.want)
		}
	}
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 B", humanBytes(512))
	assert.Equal(t, "1.5 KiB", humanBytes(1536))
	assert.Equal(t, "2.0 MiB", humanBytes(2<<20))
}

// --- commands ---

func TestRoot_FetchToCSVThenResume(t *testing.T) {
	ts := fakeEutils(t, "1", "2")
	setTestEnv(t, ts.URL)
	dir := t.TempDir()
	path := filepath.Join(dir, "papers.csv")
	db := filepath.Join(dir, "history.db")

	out, err := execute(t, "cancer immunotherapy", "-f", path, "--history", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Results saved to "+path)

	f, err := os.Open(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(f).ReadAll()
	f.Close()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "Industry paper", "2024-03-07", "Rick Roe", "Acme Pharmaceuticals", "rick@acme.com"}, rows[1])

	_, err = execute(t, "cancer immunotherapy", "-f", path, "--history", db, "--resume")
	assert.ErrorIs(t, err, errNoPapers, "PMID 1 is already in the file and PMID 2 is academic")

	out, err = execute(t, "history", "--history", db, "--runs", "--json")
	require.NoError(t, err)
	var runs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	assert.Len(t, runs, 2)

	out, err = execute(t, "history", "--history", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Industry paper")
	assert.Contains(t, out, "1 papers")
}

func TestRoot_ConsoleDetails(t *testing.T) {
	ts := fakeEutils(t, "2", "1")
	setTestEnv(t, ts.URL)

	out, err := execute(t, "cancer", "--format", "details", "--no-cache")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "Paper Details:"))
	assert.Contains(t, out, "Company Affiliations: Acme Pharmaceuticals")
}

func TestRoot_NoPapers(t *testing.T) {
	ts := fakeEutils(t)
	setTestEnv(t, ts.URL)

	out, err := execute(t, "nothing matches this")
	assert.ErrorIs(t, err, errNoPapers)
	assert.Empty(t, out)
}

func TestRoot_RejectsBadArguments(t *testing.T) {
	setTestEnv(t, "http://eutils.invalid")

	_, err := execute(t, "cancer", "-m", "0")
	assert.ErrorContains(t, err, "--max-results")

	_, err = execute(t, "cancer", "-m", "1001")
	assert.ErrorContains(t, err, "--max-results")

	_, err = execute(t, "cancer", "-f", "out.json", "--resume")
	assert.ErrorContains(t, err, "--resume")

	_, err = execute(t, "one", "two")
	assert.Error(t, err, "exactly one query argument")
}

func TestCacheCommands(t *testing.T) {
	ts := fakeEutils(t, "1", "2")
	setTestEnv(t, ts.URL)
	cacheDir := t.TempDir()

	_, err := execute(t, "cancer", "--cache-dir", cacheDir, "-f", filepath.Join(t.TempDir(), "out.csv"))
	require.NoError(t, err)

	out, err := execute(t, "cache", "stats", "--cache-dir", cacheDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Directory: "+cacheDir)
	assert.Contains(t, out, "Entries:   2 (0 expired)")

	out, err = execute(t, "cache", "prune", "--cache-dir", cacheDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 entries")

	out, err = execute(t, "cache", "clear", "--cache-dir", cacheDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 2 entries")
}

func TestHistory_RequiresDatabase(t *testing.T) {
	setTestEnv(t, "http://eutils.invalid")
	_, err := execute(t, "history")
	assert.ErrorContains(t, err, "no history database")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "get-papers-list dev\n", out)
}
