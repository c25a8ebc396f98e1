package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"roadlog/internal/config"
	"roadlog/internal/store"
)

// newContentsStub serves the minimal API surface the publish path touches,
// keeping written content in memory.
func newContentsStub(t *testing.T) *httptest.Server {
	t.Helper()
	var (
		mu      sync.Mutex
		objects = map[string][]byte{}
		rev     int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/contents/"):
			path := r.URL.Path[strings.Index(r.URL.Path, "/contents/")+len("/contents/"):]
			mu.Lock()
			defer mu.Unlock()
			switch r.Method {
			case http.MethodGet:
				data, ok := objects[path]
				if !ok {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				_ = json.NewEncoder(w).Encode(map[string]any{
					"path":         path,
					"sha":          fmt.Sprintf("sha-%s", path),
					"content":      base64.StdEncoding.EncodeToString(data),
					"encoding":     "base64",
					"download_url": "https://stub/" + path,
				})
			case http.MethodPut:
				var body struct {
					Content string `json:"content"`
				}
				raw, _ := io.ReadAll(r.Body)
				if err := json.Unmarshal(raw, &body); err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				data, err := base64.StdEncoding.DecodeString(body.Content)
				if err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				objects[path] = data
				rev++
				w.WriteHeader(http.StatusCreated)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"content": map[string]any{
						"path":         path,
						"sha":          fmt.Sprintf("sha-%d", rev),
						"download_url": "https://stub/" + path,
					},
				})
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
		case r.URL.Path == "/user":
			_ = json.NewEncoder(w).Encode(map[string]any{"login": "tester"})
		case strings.HasPrefix(r.URL.Path, "/repos/"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"full_name":      "test-owner/test-repo",
				"default_branch": "main",
				"private":        true,
				"permissions":    map[string]any{"push": true},
			})
		case r.URL.Path == "/rate_limit":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"resources": map[string]any{
					"core": map[string]any{
						"limit":     5000,
						"remaining": 5000,
						"reset":     time.Now().Add(time.Hour).Unix(),
					},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func writePublishConfig(t *testing.T, base, baseURL string) string {
	t.Helper()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[github]
token = "test-token"
owner = "test-owner"
repo = "test-repo"
base_url = %q

[capture]
collector = "tester"

[publish]
item_delay_millis = 0
min_free_space_gib = 0
`, filepath.Join(base, "data"), filepath.Join(base, "logs"), baseURL)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// Publishing must run the crash scanner first: a session left mid-recording by
// a dead process gets demoted to paused before any upload happens.
func TestPublishCommandRecoversInterruptedSessions(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "test-token")
	server := newContentsStub(t)
	base := t.TempDir()
	cfgPath := writePublishConfig(t, base, server.URL)

	cfg, _, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx := context.Background()
	target, err := st.CreateSession(ctx, "publish target", store.CaptureSettings{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	for seq := int64(1); seq <= 2; seq++ {
		capture := &store.Capture{
			SessionID:   target.ID,
			SequenceNum: seq,
			Timestamp:   time.Now().UTC(),
			Image:       []byte(fmt.Sprintf("jpeg-%d", seq)),
		}
		if err := st.SaveCapture(ctx, capture); err != nil {
			t.Fatalf("SaveCapture failed: %v", err)
		}
	}
	if err := st.UpdateSessionStatus(ctx, target.ID, store.StatusStopped); err != nil {
		t.Fatalf("UpdateSessionStatus failed: %v", err)
	}

	crashed, err := st.CreateSession(ctx, "crashed recording", store.CaptureSettings{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := st.SaveCapture(ctx, &store.Capture{
		SessionID:   crashed.ID,
		SequenceNum: 1,
		Timestamp:   time.Now().UTC(),
		Image:       []byte("jpeg-crashed"),
	}); err != nil {
		t.Fatalf("SaveCapture failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", cfgPath, "publish", target.ID})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("publish command failed: %v\noutput:\n%s", err, out.String())
	}

	st, err = store.Open(cfg)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer st.Close()

	demoted, err := st.GetSession(ctx, crashed.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if demoted.Status != store.StatusPaused {
		t.Fatalf("crashed session must be demoted before publishing, got %s", demoted.Status)
	}
	if !strings.Contains(out.String(), "demoted to paused") {
		t.Fatalf("expected recovery notice in output:\n%s", out.String())
	}

	published, err := st.GetSession(ctx, target.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if published.Status != store.StatusPublished {
		t.Fatalf("expected target session published, got %s", published.Status)
	}
	captures, err := st.GetSessionCaptures(ctx, target.ID)
	if err != nil {
		t.Fatalf("GetSessionCaptures failed: %v", err)
	}
	for _, capture := range captures {
		if !capture.Published {
			t.Fatalf("capture %d not marked published", capture.SequenceNum)
		}
	}
}
