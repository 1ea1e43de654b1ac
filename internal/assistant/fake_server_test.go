package assistant

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// fakeAssistantsAPI simulates the subset of the Assistants API used by the workflow
type fakeAssistantsAPI struct {
	mu sync.Mutex

	// statuses returned by successive run retrievals; the last one repeats
	statuses []string
	messages []map[string]any

	failCreateThread bool
	failCreateRun    bool
	failDelete       bool

	threadSeq      int
	pollCount      int
	createdThreads []string
	deletedThreads []string
	postedMessages []string
	betaHeaders    []string
}

func newFakeServer(t *testing.T, api *fakeAssistantsAPI) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /threads", api.createThread)
	mux.HandleFunc("POST /threads/{thread_id}/messages", api.createMessage)
	mux.HandleFunc("GET /threads/{thread_id}/messages", api.listMessages)
	mux.HandleFunc("POST /threads/{thread_id}/runs", api.createRun)
	mux.HandleFunc("GET /threads/{thread_id}/runs/{run_id}", api.getRun)
	mux.HandleFunc("DELETE /threads/{thread_id}", api.deleteThread)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func (f *fakeAssistantsAPI) createThread(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.betaHeaders = append(f.betaHeaders, r.Header.Get("OpenAI-Beta"))
	if f.failCreateThread {
		writeAPIError(w, http.StatusInternalServerError, "thread creation failed")
		return
	}

	f.threadSeq++
	id := "thread_" + strconv.Itoa(f.threadSeq)
	f.createdThreads = append(f.createdThreads, id)
	writeJSON(w, map[string]any{"id": id, "object": "thread", "created_at": 1234567890})
}

func (f *fakeAssistantsAPI) createMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid body")
		return
	}

	f.mu.Lock()
	f.postedMessages = append(f.postedMessages, body.Role+":"+body.Content)
	f.mu.Unlock()

	writeJSON(w, map[string]any{
		"id":        "msg_user",
		"object":    "thread.message",
		"thread_id": r.PathValue("thread_id"),
		"role":      body.Role,
		"content": []map[string]any{
			{"type": "text", "text": map[string]any{"value": body.Content, "annotations": []any{}}},
		},
	})
}

func (f *fakeAssistantsAPI) listMessages(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, map[string]any{"object": "list", "data": f.messages})
}

func (f *fakeAssistantsAPI) createRun(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failCreateRun {
		writeAPIError(w, http.StatusInternalServerError, "run creation failed")
		return
	}

	var body struct {
		AssistantID string `json:"assistant_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	writeJSON(w, map[string]any{
		"id":           "run_123",
		"object":       "thread.run",
		"status":       "queued",
		"assistant_id": body.AssistantID,
		"thread_id":    r.PathValue("thread_id"),
	})
}

func (f *fakeAssistantsAPI) getRun(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	status := "in_progress"
	if len(f.statuses) > 0 {
		idx := f.pollCount
		if idx >= len(f.statuses) {
			idx = len(f.statuses) - 1
		}
		status = f.statuses[idx]
	}
	f.pollCount++

	writeJSON(w, map[string]any{
		"id":        r.PathValue("run_id"),
		"object":    "thread.run",
		"status":    status,
		"thread_id": r.PathValue("thread_id"),
	})
}

func (f *fakeAssistantsAPI) deleteThread(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failDelete {
		writeAPIError(w, http.StatusInternalServerError, "delete failed")
		return
	}

	id := r.PathValue("thread_id")
	f.deletedThreads = append(f.deletedThreads, id)
	writeJSON(w, map[string]any{"id": id, "object": "thread.deleted", "deleted": true})
}

func (f *fakeAssistantsAPI) deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletedThreads...)
}

func (f *fakeAssistantsAPI) headers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.betaHeaders...)
}

func (f *fakeAssistantsAPI) posted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.postedMessages...)
}

func (f *fakeAssistantsAPI) polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pollCount
}

func textMessage(role string, values ...string) map[string]any {
	content := make([]map[string]any, 0, len(values))
	for _, v := range values {
		content = append(content, map[string]any{
			"type": "text",
			"text": map[string]any{"value": v, "annotations": []any{}},
		})
	}
	return map[string]any{
		"id":      "msg_" + role,
		"object":  "thread.message",
		"role":    role,
		"content": content,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": "server_error"},
	})
}

// recordingReporter captures reported errors
type recordingReporter struct {
	mu      sync.Mutex
	methods []string
	errs    []error
}

func (r *recordingReporter) Log(method string, err error, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods = append(r.methods, method)
	r.errs = append(r.errs, err)
}

func (r *recordingReporter) count(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.methods {
		if m == method {
			n++
		}
	}
	return n
}
