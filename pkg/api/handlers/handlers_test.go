package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"memoryecho/pkg/api"
	"memoryecho/pkg/chat"
	"memoryecho/pkg/knowledge"
	"memoryecho/pkg/models"
	"memoryecho/pkg/prompt"
	"memoryecho/pkg/roles"
	"memoryecho/pkg/store"
	"memoryecho/pkg/threads"
)

type failOnceResponder struct{ calls int }

func (f *failOnceResponder) Generate(ctx context.Context, prompt string, entries []string) (string, error) {
	f.calls++
	if f.calls == 1 {
		return "", errors.New("backend down")
	}
	return "canned reply", nil
}

// newServer builds a full stack over a temp store. The responder answers
// every call; newServerFailingFirst fails the first call only.
func newServer(t *testing.T) *httptest.Server {
	return newServerWith(t, &failOnceResponder{calls: 1})
}

func newServerFailingFirst(t *testing.T) *httptest.Server {
	return newServerWith(t, &failOnceResponder{})
}

func newServerWith(t *testing.T, resp *failOnceResponder) *httptest.Server {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	rr, err := roles.Load()
	if err != nil {
		t.Fatalf("roles.Load: %v", err)
	}
	ks, err := knowledge.Load()
	if err != nil {
		t.Fatalf("knowledge.Load: %v", err)
	}
	ts, err := threads.Load()
	if err != nil {
		t.Fatalf("threads.Load: %v", err)
	}
	orch := chat.New(ts, prompt.New(ks, 0), resp, time.Second)
	srv := httptest.NewServer(api.Handler(api.Deps{Roles: rr, Knowledge: ks, Threads: ts, Chat: orch}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestRoleLifecycle(t *testing.T) {
	srv := newServer(t)

	// the default persona is seeded on first boot
	resp := do(t, http.MethodGet, srv.URL+"/v1/roles", nil)
	var listed struct {
		Roles []models.Role `json:"roles"`
	}
	decode(t, resp, &listed)
	if len(listed.Roles) != 1 || listed.Roles[0].Name != "Kevin" {
		t.Fatalf("seeded roles: %+v", listed.Roles)
	}

	resp = do(t, http.MethodPost, srv.URL+"/v1/roles", map[string]string{"name": "Ada"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create role: %d", resp.StatusCode)
	}
	var created struct {
		Role models.Role `json:"role"`
	}
	decode(t, resp, &created)
	if created.Role.ID == "" {
		t.Fatal("create role: no id assigned")
	}

	resp = do(t, http.MethodPut, srv.URL+"/v1/roles/"+created.Role.ID, map[string]string{"name": "Grace"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update role: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = do(t, http.MethodGet, srv.URL+"/v1/roles/"+created.Role.ID, nil)
	var got models.Role
	decode(t, resp, &got)
	if got.Name != "Grace" {
		t.Fatalf("role name %q after update", got.Name)
	}

	resp = do(t, http.MethodDelete, srv.URL+"/v1/roles/"+created.Role.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete role: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = do(t, http.MethodGet, srv.URL+"/v1/roles/"+created.Role.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted role: %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestKnowledgeBatchOverHTTP(t *testing.T) {
	srv := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/v1/roles/role-default/knowledge", map[string]any{
		"contents": []string{"", "  ", " first fact "},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("batch add: %d", resp.StatusCode)
	}
	var added struct {
		Knowledge []models.Knowledge `json:"knowledge"`
	}
	decode(t, resp, &added)
	if len(added.Knowledge) != 1 || added.Knowledge[0].Content != "first fact" {
		t.Fatalf("batch add stored %+v", added.Knowledge)
	}

	// blank single entry is rejected
	resp = do(t, http.MethodPost, srv.URL+"/v1/roles/role-default/knowledge", map[string]string{"content": "   "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank single add: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = do(t, http.MethodGet, srv.URL+"/v1/roles/role-default/knowledge", nil)
	var listed struct {
		Knowledge []models.Knowledge `json:"knowledge"`
	}
	decode(t, resp, &listed)
	if len(listed.Knowledge) != 1 {
		t.Fatalf("listed %d entries", len(listed.Knowledge))
	}

	// listing a dangling role is empty, not an error
	resp = do(t, http.MethodGet, srv.URL+"/v1/roles/no-such-role/knowledge", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dangling role list: %d", resp.StatusCode)
	}
	decode(t, resp, &listed)
	if len(listed.Knowledge) != 0 {
		t.Fatalf("dangling role listed %d entries", len(listed.Knowledge))
	}
}

func TestConversationFlow(t *testing.T) {
	srv := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/v1/threads", map[string]string{"role_id": "role-default"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create thread: %d", resp.StatusCode)
	}
	var created struct {
		Thread models.Thread `json:"thread"`
	}
	decode(t, resp, &created)
	if created.Thread.Title != threads.DefaultTitle {
		t.Fatalf("thread title %q", created.Thread.Title)
	}

	// blank message
	resp = do(t, http.MethodPost, srv.URL+"/v1/threads/"+created.Thread.ID+"/messages", map[string]string{"content": "  "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank message: %d", resp.StatusCode)
	}
	resp.Body.Close()

	// full turn
	resp = do(t, http.MethodPost, srv.URL+"/v1/threads/"+created.Thread.ID+"/messages", map[string]string{"content": "hello"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send: %d", resp.StatusCode)
	}
	var res chat.Result
	decode(t, resp, &res)
	if res.Reply.Content != "canned reply" {
		t.Fatalf("reply %q", res.Reply.Content)
	}
	if len(res.Thread.Content) != 2 {
		t.Fatalf("thread log %d messages", len(res.Thread.Content))
	}

	resp = do(t, http.MethodGet, srv.URL+"/v1/threads/"+created.Thread.ID+"/messages", nil)
	var msgs struct {
		Messages []models.Message `json:"messages"`
	}
	decode(t, resp, &msgs)
	if len(msgs.Messages) != 2 {
		t.Fatalf("listed %d messages", len(msgs.Messages))
	}

	// unknown thread
	resp = do(t, http.MethodPost, srv.URL+"/v1/threads/nope/messages", map[string]string{"content": "hi"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown thread send: %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGenerationFailureReturns502WithUserTurn(t *testing.T) {
	srv := newServerFailingFirst(t)

	resp := do(t, http.MethodPost, srv.URL+"/v1/threads", map[string]string{"role_id": "role-default"})
	var created struct {
		Thread models.Thread `json:"thread"`
	}
	decode(t, resp, &created)

	resp = do(t, http.MethodPost, srv.URL+"/v1/threads/"+created.Thread.ID+"/messages", map[string]string{"content": "hello"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("failed generation: %d", resp.StatusCode)
	}
	var failed struct {
		Error       string         `json:"error"`
		UserMessage models.Message `json:"user_message"`
	}
	decode(t, resp, &failed)
	if failed.UserMessage.Content != "hello" {
		t.Fatalf("user turn not returned on failure: %+v", failed.UserMessage)
	}

	// the thread kept the user turn and works on retry
	resp = do(t, http.MethodPost, srv.URL+"/v1/threads/"+created.Thread.ID+"/messages", map[string]string{"content": "again"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("retry after failure: %d", resp.StatusCode)
	}
	var res chat.Result
	decode(t, resp, &res)
	if len(res.Thread.Content) != 3 {
		t.Fatalf("thread log %d messages, want failed turn + retry pair", len(res.Thread.Content))
	}
}

func TestRoleDeleteLeavesReferencesReadable(t *testing.T) {
	srv := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/v1/roles/role-default/knowledge", map[string]string{"content": "a memory"})
	resp.Body.Close()
	resp = do(t, http.MethodPost, srv.URL+"/v1/threads", map[string]string{"role_id": "role-default"})
	var created struct {
		Thread models.Thread `json:"thread"`
	}
	decode(t, resp, &created)

	resp = do(t, http.MethodDelete, srv.URL+"/v1/roles/role-default", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete role: %d", resp.StatusCode)
	}
	resp.Body.Close()

	// the dangling thread and knowledge stay readable
	resp = do(t, http.MethodGet, srv.URL+"/v1/threads/"+created.Thread.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dangling thread read: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = do(t, http.MethodGet, srv.URL+"/v1/roles/role-default/knowledge", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dangling knowledge list: %d", resp.StatusCode)
	}
	var listed struct {
		Knowledge []models.Knowledge `json:"knowledge"`
	}
	decode(t, resp, &listed)
	if len(listed.Knowledge) != 1 {
		t.Fatalf("dangling knowledge: %d entries, want 1", len(listed.Knowledge))
	}

	// sending on the dangling thread still works, just with no context
	resp = do(t, http.MethodPost, srv.URL+"/v1/threads/"+created.Thread.ID+"/messages", map[string]string{"content": "still here"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send on dangling thread: %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestVoiceUnconfigured(t *testing.T) {
	srv := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/v1/roles/role-default/voice", map[string]string{"text": "hello"})
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("voice without backend: %d, want 501", resp.StatusCode)
	}
	resp.Body.Close()

	resp = do(t, http.MethodPost, srv.URL+"/v1/roles/no-such-role/voice", map[string]string{"text": "hello"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("voice for unknown role: %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestThreadRenameKeepsLog(t *testing.T) {
	srv := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/v1/threads", map[string]string{"role_id": "role-default"})
	var created struct {
		Thread models.Thread `json:"thread"`
	}
	decode(t, resp, &created)

	resp = do(t, http.MethodPost, srv.URL+"/v1/threads/"+created.Thread.ID+"/messages", map[string]string{"content": "hello"})
	resp.Body.Close()

	resp = do(t, http.MethodPut, srv.URL+"/v1/threads/"+created.Thread.ID, map[string]any{
		"title":   "Renamed",
		"content": []models.Message{}, // must be ignored
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rename: %d", resp.StatusCode)
	}
	var renamed struct {
		Thread models.Thread `json:"thread"`
	}
	decode(t, resp, &renamed)
	if renamed.Thread.Title != "Renamed" {
		t.Fatalf("title %q", renamed.Thread.Title)
	}
	if len(renamed.Thread.Content) != 2 {
		t.Fatalf("rename dropped the log: %d messages", len(renamed.Thread.Content))
	}
}
