package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
	"docqa/internal/identity"
)

const policyDoc = `The grace period for premium payment is thirty days after the due date.
Cataract surgery is covered after a waiting period of two years.
Organ donor expenses are covered when the insured is the recipient.`

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	assert.Equal(t, "docqa", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"ingest", "ask", "run", "chat"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestSourceFromArg(t *testing.T) {
	assert.Equal(t, domain.Source{URL: "https://x.io/a.pdf"}, sourceFromArg("https://x.io/a.pdf"))
	assert.Equal(t, domain.Source{URL: "HTTP://x.io/a.pdf"}, sourceFromArg("HTTP://x.io/a.pdf"))
	assert.Equal(t, domain.Source{Path: "./a.pdf"}, sourceFromArg("./a.pdf"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "warn", false)
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	newLogger(&buf, "nonsense", true).Debug("debugging")
	assert.Contains(t, buf.String(), "debugging")
}

func writeFixtures(t *testing.T, generatorURL string) (configPath, docPath string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("DOCQA_TEST_LLM_KEY", "k")

	docPath = filepath.Join(dir, "policy.txt")
	require.NoError(t, os.WriteFile(docPath, []byte(policyDoc), 0o644))

	configPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
chunker:
  max_size: 120
  overlap: 20
generator:
  base_url: `+generatorURL+`
  api_key_env: DOCQA_TEST_LLM_KEY
  model: test-model
log:
  level: error
`), 0o644))
	return configPath, docPath
}

func fakeGenerator(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		answer := "Not stated."
		if strings.Contains(req.Messages[0].Content, "waiting period of two years") {
			answer = "Two years."
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": answer}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunCmd_PrintsAnswersJSON(t *testing.T) {
	srv := fakeGenerator(t)
	configPath, docPath := writeFixtures(t, srv.URL)

	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--config", configPath, "run", docPath,
		"-q", "What is the waiting period for cataract surgery?",
		"-q", "Is dental covered?",
	})
	require.NoError(t, cmd.Execute(), errOut.String())

	var got runOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got.Answers, 2)
	assert.Equal(t, "Two years.", got.Answers[0])
}

func TestIngestCmd(t *testing.T) {
	srv := fakeGenerator(t)
	configPath, docPath := writeFixtures(t, srv.URL)

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", configPath, "ingest", docPath})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Document ID: "+identity.ForPath(docPath))
	assert.Contains(t, out.String(), "Successfully processed document")
}

func TestIngestCmd_MissingFile(t *testing.T) {
	srv := fakeGenerator(t)
	configPath, _ := writeFixtures(t, srv.URL)

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", configPath, "ingest", filepath.Join(t.TempDir(), "missing.pdf")})
	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)
}

func TestAskCmd_RequiresDoc(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"ask", "question?"})
	assert.Error(t, cmd.Execute())
}

func TestAskCmd_UnknownDocument(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "unexpected", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	configPath, _ := writeFixtures(t, srv.URL)

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", configPath, "ask", "--doc", "0123456789abcdef", "Is dental covered?"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "docqa run")
	assert.Empty(t, out.String())
	assert.Zero(t, calls)
}
