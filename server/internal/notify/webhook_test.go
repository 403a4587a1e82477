package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/taskboard/taskboard/server/internal/config"
	"github.com/taskboard/taskboard/server/internal/store"
	"github.com/taskboard/taskboard/server/internal/tasks"
)

// recorder is a webhook endpoint that keeps every request body.
type recorder struct {
	mu     sync.Mutex
	bodies []string
	status int
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	b, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.bodies = append(r.bodies, string(b))
	r.mu.Unlock()
	if r.status != 0 {
		w.WriteHeader(r.status)
	}
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.bodies...)
}

func newNotifier(t *testing.T, typ string, h http.Handler) *Notifier {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	t.Setenv("TEST_NOTIFY_URL", srv.URL)
	return New(config.NotifyConfig{
		Timeout:  2 * time.Second,
		Webhooks: []config.WebhookConfig{{Type: typ, URLEnv: "TEST_NOTIFY_URL"}},
	})
}

func event() tasks.Event {
	return tasks.Event{
		Action: tasks.ActionUpdated,
		Tasks:  []store.Task{{ID: "1", Title: "Buy milk", Status: "done"}},
		At:     time.Unix(1_700_000_000, 0).UTC(),
	}
}

func TestPublish_Slack(t *testing.T) {
	rec := &recorder{}
	n := newNotifier(t, "slack", rec)

	n.Publish(event())
	n.Wait()

	bodies := rec.all()
	if len(bodies) != 1 {
		t.Fatalf("deliveries: got %d, want 1", len(bodies))
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(bodies[0]), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["text"] != `updated "Buy milk" (done)` {
		t.Errorf("text: got %q", m["text"])
	}
}

func TestPublish_Teams(t *testing.T) {
	rec := &recorder{}
	n := newNotifier(t, "teams", rec)

	n.Publish(event())
	n.Wait()

	bodies := rec.all()
	if len(bodies) != 1 {
		t.Fatalf("deliveries: got %d, want 1", len(bodies))
	}
	var m map[string]interface{}
	json.Unmarshal([]byte(bodies[0]), &m) //nolint:errcheck
	if m["@type"] != "MessageCard" {
		t.Errorf("@type: got %v, want MessageCard", m["@type"])
	}
	if m["title"] != "Taskboard: task updated" {
		t.Errorf("title: got %v", m["title"])
	}
}

func TestPublish_HTTP(t *testing.T) {
	rec := &recorder{}
	n := newNotifier(t, "http", rec)

	n.Publish(event())
	n.Wait()

	bodies := rec.all()
	if len(bodies) != 1 {
		t.Fatalf("deliveries: got %d, want 1", len(bodies))
	}
	var m struct {
		Event tasks.Event `json:"event"`
	}
	if err := json.Unmarshal([]byte(bodies[0]), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Event.Action != tasks.ActionUpdated || len(m.Event.Tasks) != 1 {
		t.Errorf("event: got %+v", m.Event)
	}
}

func TestPublish_FailureIsSwallowed(t *testing.T) {
	rec := &recorder{status: http.StatusInternalServerError}
	n := newNotifier(t, "http", rec)

	n.Publish(event())
	n.Wait()

	if len(rec.all()) != 1 {
		t.Errorf("expected one attempted delivery")
	}
}

func TestPublish_NoWebhooksIsNoop(t *testing.T) {
	n := New(config.NotifyConfig{Timeout: time.Second})
	n.Publish(event())
	n.Wait()
}

func TestPublish_SkipsUnsetURL(t *testing.T) {
	n := New(config.NotifyConfig{
		Timeout:  time.Second,
		Webhooks: []config.WebhookConfig{{Type: "slack", URLEnv: "TEST_NOTIFY_UNSET_URL"}},
	})
	n.Publish(event())
	n.Wait()
}

func TestSummary_Delete(t *testing.T) {
	got := summary(tasks.Event{
		Action: tasks.ActionDeleted,
		Tasks: []store.Task{
			{Title: "A", Status: "todo"},
			{Title: "A", Status: "done"},
		},
	})
	if !strings.HasPrefix(got, "deleted ") || strings.Count(got, `"A"`) != 2 {
		t.Errorf("summary: got %q", got)
	}
}
