// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/ollama"
	"github.com/jeranaias/parley/internal/store"
)

// =============================================================================
// FIXTURES
// =============================================================================

// fakeOllama answers /api/chat with reply, or fails with status when set.
// It also serves the health check and the model list.
type fakeOllama struct {
	reply    string
	status   int
	requests atomic.Int32
	lastTurn atomic.Value
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	switch r.URL.Path {
	case "/":
		_, _ = w.Write([]byte("Ollama is running"))
		return
	case "/api/tags":
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2:latest","size":42},{"name":"qwen2.5:7b","size":7}]}`))
		return
	case "/api/chat":
	default:
		http.NotFound(w, r)
		return
	}
	var req ollama.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Messages) > 0 {
		f.lastTurn.Store(req.Messages[len(req.Messages)-1].Content)
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":"model exploded"}`))
		return
	}
	_ = json.NewEncoder(w).Encode(ollama.ChatResponse{
		Model:   "test",
		Message: ollama.Message{Role: "assistant", Content: f.reply},
		Done:    true,
	})
}

// isolate gives the test its own config dir and remote endpoint.
func isolate(t *testing.T, backend *fakeOllama) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("PARLEY_HOME", home)
	for _, k := range []string{
		"PARLEY_DATA_DIR", "PARLEY_STORAGE", "PARLEY_BACKEND", "PARLEY_MODEL",
		"PARLEY_API_KEY", "OPENAI_API_KEY", "PARLEY_LOG_LEVEL", "PARLEY_THEME",
	} {
		t.Setenv(k, "")
	}
	if backend != nil {
		srv := httptest.NewServer(backend)
		t.Cleanup(srv.Close)
		t.Setenv("PARLEY_BASE_URL", srv.URL)
	} else {
		t.Setenv("PARLEY_BASE_URL", "")
	}
	return home
}

type result struct {
	out  string
	err  string
	code int
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var out, errOut bytes.Buffer
	code := Execute(ctx, args, IO{In: strings.NewReader(stdin), Out: &out, Err: &errOut})
	return result{out: out.String(), err: errOut.String(), code: code}
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_RecordsExchange(t *testing.T) {
	backend := &fakeOllama{reply: "A **language**."}
	isolate(t, backend)

	res := run(t, "", "ask", "What", "is", "Go?")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Equal(t, "A language.\n", res.out)
	assert.Equal(t, "What is Go?", backend.lastTurn.Load())

	res = run(t, "", "list")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, "What is Go", "title drops punctuation")
	assert.Contains(t, res.out, "2 msgs")
}

func TestAsk_ReadsStdin(t *testing.T) {
	backend := &fakeOllama{reply: "ok"}
	isolate(t, backend)

	res := run(t, "piped question\n", "ask", "--new")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Equal(t, "piped question", backend.lastTurn.Load())
}

func TestAsk_RemoteFailureRecordsErrorTurn(t *testing.T) {
	isolate(t, &fakeOllama{status: http.StatusInternalServerError})

	res := run(t, "", "ask", "hello")
	assert.Equal(t, ExitGeneralError, res.code)
	assert.Contains(t, res.err, "Error: model exploded")

	res = run(t, "", "show", "1")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, "You")
	assert.Contains(t, res.out, "Error: model exploded")
}

func TestAsk_RequiresQuestion(t *testing.T) {
	isolate(t, nil)

	res := run(t, "   ", "ask")
	assert.Equal(t, ExitUsageError, res.code)
	assert.Contains(t, res.err, "Error: a question is required")
}

// =============================================================================
// CHAT REPL
// =============================================================================

func TestChat_SlashCommands(t *testing.T) {
	backend := &fakeOllama{reply: "Hi! Try:\n\n```go\nfmt.Println(\"hi\")\n```"}
	isolate(t, backend)

	var copied string
	orig := clipboardWrite
	clipboardWrite = func(s string) error {
		copied = s
		return nil
	}
	t.Cleanup(func() { clipboardWrite = orig })

	script := strings.Join([]string{
		"hello there",
		"/copy",
		"/rename Greetings",
		"/new",
		"/list",
		"/switch 2",
		"/archive",
		"/list all",
		"/search greet",
		"/bogus",
		"/quit",
	}, "\n") + "\n"

	res := run(t, script, "chat")
	require.Equal(t, ExitSuccess, res.code, res.err)

	assert.Contains(t, res.out, "fmt.Println(\"hi\")")
	assert.Equal(t, "fmt.Println(\"hi\")", copied)
	assert.Contains(t, res.out, "Copied code block 1 of 1 to clipboard.")
	assert.Contains(t, res.out, `Renamed to "Greetings".`)
	assert.Contains(t, res.out, `Started "New Conversation".`)
	assert.Contains(t, res.out, `Switched to "Greetings" (2 messages).`)
	assert.Contains(t, res.out, "Conversation archived.")
	assert.Contains(t, res.out, "[archived]")
	assert.Contains(t, res.out, "unknown command /bogus")
	assert.Equal(t, int32(1), backend.requests.Load())
}

func TestChat_DeleteAsksFirst(t *testing.T) {
	isolate(t, &fakeOllama{reply: "x"})

	res := run(t, "/delete\nn\n/delete\ny\n/list\n", "chat")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, "Cancelled.")
	assert.Contains(t, res.out, "Conversation deleted.")
	assert.NotContains(t, res.out, "No conversations yet")
	assert.Contains(t, res.out, "New Conversation")
}

func TestChat_EOFEndsSession(t *testing.T) {
	isolate(t, nil)

	res := run(t, "", "chat")
	assert.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, "Type a message, or /help for commands.")
}

// =============================================================================
// CONVERSATION COMMANDS
// =============================================================================

func TestExportImportRoundTrip(t *testing.T) {
	isolate(t, &fakeOllama{reply: "Paris"})
	outDir := t.TempDir()

	require.Equal(t, ExitSuccess, run(t, "", "ask", "Capital of France?").code)

	res := run(t, "", "export", "1", "--out", outDir)
	require.Equal(t, ExitSuccess, res.code, res.err)
	path := strings.TrimSpace(strings.TrimPrefix(res.out, "Exported to "))
	_, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, outDir, filepath.Dir(path))

	res = run(t, "", "import", path)
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, `Imported "Capital of France"`)
	assert.Contains(t, res.out, "(2 messages)")

	res = run(t, "", "list")
	assert.Equal(t, 2, strings.Count(res.out, "Capital of France"))
}

func TestExport_Formats(t *testing.T) {
	isolate(t, &fakeOllama{reply: "Paris"})
	outDir := t.TempDir()
	require.Equal(t, ExitSuccess, run(t, "", "ask", "Capital?").code)

	res := run(t, "", "export", "1", "--format", "markdown", "--out", outDir)
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(res.out), ".md"))

	res = run(t, "", "export", "1", "--format", "pdf")
	assert.Equal(t, ExitUsageError, res.code)
}

func TestImport_RejectsInvalidFile(t *testing.T) {
	isolate(t, nil)
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"id": 7}`), 0o600))

	res := run(t, "", "import", bad)
	assert.Equal(t, ExitGeneralError, res.code)
	assert.Contains(t, res.err, "Error: ")

	res = run(t, "", "list", "--all")
	assert.Contains(t, res.out, "No conversations yet")
}

func TestRenameArchiveDelete(t *testing.T) {
	isolate(t, &fakeOllama{reply: "ok"})
	require.Equal(t, ExitSuccess, run(t, "", "ask", "first").code)

	res := run(t, "", "rename", "1", "Shopping", "list")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, `Renamed to "Shopping list"`)

	res = run(t, "", "archive", "1")
	assert.Contains(t, res.out, "Conversation archived.")
	assert.Contains(t, run(t, "", "list").out, "No conversations yet")
	assert.Contains(t, run(t, "", "list", "--all").out, "Shopping list")

	res = run(t, "n\n", "delete", "1")
	assert.Contains(t, res.out, "Cancelled.")
	res = run(t, "", "delete", "1", "--yes")
	assert.Contains(t, res.out, "Conversation deleted.")

	res = run(t, "", "list", "--all")
	assert.NotContains(t, res.out, "Shopping list")
	assert.Contains(t, res.out, "New Conversation")
	assert.Contains(t, res.out, " 0 msgs")
}

func TestShow_Variants(t *testing.T) {
	isolate(t, &fakeOllama{reply: "<script>alert(1)</script> done"})
	require.Equal(t, ExitSuccess, run(t, "", "ask", "render this").code)

	res := run(t, "", "show", "1", "--html")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.True(t, strings.HasPrefix(res.out, "<!DOCTYPE html>"))
	assert.NotContains(t, res.out, "<script>alert(1)</script>")

	res = run(t, "", "show", "1", "--json")
	require.Equal(t, ExitSuccess, res.code, res.err)
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.out), &record))
	assert.Equal(t, "render this", record["title"])
	assert.Len(t, record["messages"], 2)

	res = run(t, "", "show", "1", "--html", "--glamour")
	assert.Equal(t, ExitUsageError, res.code)
	res = run(t, "", "show", "1", "--json", "--html")
	assert.Equal(t, ExitUsageError, res.code)
}

func TestShow_UnknownConversation(t *testing.T) {
	isolate(t, nil)

	res := run(t, "", "show", "nope")
	assert.Equal(t, ExitNotFoundError, res.code)
	assert.Contains(t, res.err, "Error: conversation not found: nope")
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfig_InitPathShowSet(t *testing.T) {
	home := isolate(t, nil)
	path := filepath.Join(home, "config.toml")

	res := run(t, "", "config", "path")
	assert.Equal(t, path+"\n", res.out)

	res = run(t, "", "config", "init")
	require.Equal(t, ExitSuccess, res.code, res.err)
	_, err := os.Stat(path)
	require.NoError(t, err)

	res = run(t, "", "config", "init")
	assert.Equal(t, ExitUsageError, res.code)

	res = run(t, "", "config", "set", "remote.model", "qwen2.5")
	require.Equal(t, ExitSuccess, res.code, res.err)
	res = run(t, "", "config", "get", "remote.model")
	assert.Equal(t, "qwen2.5\n", res.out)

	res = run(t, "", "config", "set", "remote.context_window", "0")
	assert.Equal(t, ExitConfigError, res.code)

	t.Setenv("PARLEY_API_KEY", "sk-secret")
	res = run(t, "", "config", "show")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.NotContains(t, res.out, "sk-secret")
	assert.Contains(t, res.out, "[remote]")
}

func TestGlobalFlags_DataDir(t *testing.T) {
	isolate(t, &fakeOllama{reply: "ok"})
	dataDir := t.TempDir()

	res := run(t, "", "--data-dir", dataDir, "ask", "stored elsewhere")
	require.Equal(t, ExitSuccess, res.code, res.err)
	_, err := os.Stat(filepath.Join(dataDir, "chat_conversations.json"))
	assert.NoError(t, err)
}

// =============================================================================
// HELPERS
// =============================================================================

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitGeneralError},
		{&UsageError{Reason: "bad"}, ExitUsageError},
		{config.ValidateErrors{{Field: "remote.base_url", Message: "bad"}}, ExitConfigError},
		{&NotFoundError{Ref: "x"}, ExitNotFoundError},
		{store.ErrConversationNotFound, ExitNotFoundError},
		{fmt.Errorf("status: %w", ollama.ErrNotRunning), ExitNetworkError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ExitCodeFor(tc.err), "%v", tc.err)
	}
}

func TestNewCompleter(t *testing.T) {
	c, err := NewCompleter(config.RemoteConfig{Backend: config.BackendOllama, BaseURL: "http://127.0.0.1:1", Model: "m", TimeoutSecs: 5}, nil)
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = NewCompleter(config.RemoteConfig{Backend: config.BackendOpenAI, BaseURL: config.DefaultOpenAIURL}, nil)
	assert.Error(t, err, "openai requires an API key")

	_, err = NewCompleter(config.RemoteConfig{Backend: "carrier-pigeon"}, nil)
	var usage *UsageError
	assert.True(t, errors.As(err, &usage))
}

// =============================================================================
// STATUS
// =============================================================================

func TestStatus_ReportsStorageAndModels(t *testing.T) {
	isolate(t, &fakeOllama{reply: "Hello back."})
	t.Setenv("PARLEY_MODEL", "llama3.2")
	require.Equal(t, ExitSuccess, run(t, "", "ask", "hello").code)

	res := run(t, "", "status")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, "Conversations:  1 (0 archived, 2 messages)")
	assert.Contains(t, res.out, "Last message:   just now")
	assert.Contains(t, res.out, "Ollama:         running")
	assert.Contains(t, res.out, "Models:         llama3.2:latest, qwen2.5:7b")
	assert.NotContains(t, res.out, "Warning:")
}

func TestStatus_MissingModelWarns(t *testing.T) {
	isolate(t, &fakeOllama{})
	t.Setenv("PARLEY_MODEL", "mistral")

	res := run(t, "", "status")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, "Warning:        mistral is not installed")
}

func TestStatus_NotRunningExitCode(t *testing.T) {
	isolate(t, nil)
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	t.Setenv("PARLEY_BASE_URL", url)

	res := run(t, "", "status")
	assert.Equal(t, ExitNetworkError, res.code)
	assert.Contains(t, res.out, "Ollama:         not running")
	assert.Contains(t, res.err, "Error: Ollama is not running")
}

func TestModelMatches(t *testing.T) {
	assert.True(t, modelMatches("llama3.2:latest", "llama3.2"))
	assert.True(t, modelMatches("qwen2.5:7b", "qwen2.5:7b"))
	assert.False(t, modelMatches("qwen2.5:7b", "qwen2.5"))
	assert.False(t, modelMatches("llama3.2:1b", "llama3.2:latest"))
}
