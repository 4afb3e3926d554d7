package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pfrederiksen/voebb-loans/internal/loan"
	"github.com/pfrederiksen/voebb-loans/internal/logger"
	"github.com/pfrederiksen/voebb-loans/internal/portal"
	"github.com/pfrederiksen/voebb-loans/internal/tracker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeFetcher struct {
	items []loan.Item
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, creds portal.Credentials) ([]loan.Item, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

var now = time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

var (
	hobbit = loan.Item{
		Title:      "The Hobbit",
		Author:     "J.R.R. Tolkien",
		Library:    "Amerika-Gedenkbibliothek",
		ReturnDate: loan.NewDate(2024, time.April, 20),
	}
	dune = loan.Item{
		Title:      "Dune",
		Author:     "Frank Herbert",
		Library:    "Zentral- und Landesbibliothek",
		ReturnDate: loan.NewDate(2024, time.April, 10),
	}
)

func testLogger() *logger.Logger {
	return logger.New(logger.LevelError, &strings.Builder{})
}

func newSensor(user string, f *fakeFetcher) *tracker.Sensor {
	return tracker.NewSensor(portal.Credentials{Username: user, Password: "pw"}, f, tracker.Options{
		Cooldown: time.Hour,
		Now:      func() time.Time { return now },
		Logger:   testLogger(),
	})
}

func do(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	router := New([]*tracker.Sensor{newSensor("a", &fakeFetcher{})}, Options{Logger: testLogger()})

	w := do(t, router, http.MethodGet, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestListAndGet(t *testing.T) {
	s := newSensor("12345678", &fakeFetcher{})
	s.Restore([]loan.Item{dune, hobbit})
	router := New([]*tracker.Sensor{s, newSensor("other", &fakeFetcher{})}, Options{Logger: testLogger()})

	w := do(t, router, http.MethodGet, "/api/sensors")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list struct {
		Total   int            `json:"total"`
		Sensors []tracker.View `json:"sensors"`
	}
	decode(t, w, &list)
	if list.Total != 2 || list.Sensors[0].EntityID != "sensor.voebb_12345678" {
		t.Errorf("list = %+v", list)
	}

	for _, id := range []string{"voebb_12345678", "sensor.voebb_12345678"} {
		w = do(t, router, http.MethodGet, "/api/sensors/"+id)
		if w.Code != http.StatusOK {
			t.Fatalf("get %s status = %d", id, w.Code)
		}
		var view tracker.View
		decode(t, w, &view)
		if view.State != "Next item to return: Dune at 2024-04-10" {
			t.Errorf("State = %q", view.State)
		}
		if len(view.Attributes.Items) != 2 {
			t.Errorf("Items = %d, want 2", len(view.Attributes.Items))
		}
	}

	if w := do(t, router, http.MethodGet, "/api/sensors/voebb_nobody"); w.Code != http.StatusNotFound {
		t.Errorf("unknown sensor status = %d, want 404", w.Code)
	}
}

func TestGet_Filter(t *testing.T) {
	s := newSensor("u", &fakeFetcher{})
	s.Restore([]loan.Item{dune, hobbit})
	router := New([]*tracker.Sensor{s}, Options{Logger: testLogger()})

	w := do(t, router, http.MethodGet, "/api/sensors/voebb_u?q=tolkien")
	var view tracker.View
	decode(t, w, &view)
	if len(view.Attributes.Items) != 1 || view.Attributes.Items[0].Title != "The Hobbit" {
		t.Errorf("filtered items = %+v", view.Attributes.Items)
	}
	// State always reflects the full list
	if view.State != "Next item to return: Dune at 2024-04-10" {
		t.Errorf("State = %q", view.State)
	}
}

func TestUpdate(t *testing.T) {
	f := &fakeFetcher{items: []loan.Item{hobbit}}
	s := newSensor("u", f)

	var hooked int
	router := New([]*tracker.Sensor{s}, Options{
		Logger: testLogger(),
		OnUpdate: func(ctx context.Context, sensor *tracker.Sensor, result *tracker.Result) {
			hooked++
		},
	})

	w := do(t, router, http.MethodPost, "/api/sensors/voebb_u/update")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		RunID   string       `json:"run_id"`
		Fetched bool         `json:"fetched"`
		Sensor  tracker.View `json:"sensor"`
	}
	decode(t, w, &resp)
	if !resp.Fetched || resp.RunID == "" || len(resp.Sensor.Attributes.Items) != 1 {
		t.Errorf("response = %+v", resp)
	}

	// Second call falls inside the cool-down window
	w = do(t, router, http.MethodPost, "/api/sensors/voebb_u/update")
	decode(t, w, &resp)
	if resp.Fetched {
		t.Error("second update fetched inside cool-down window")
	}
	if f.calls != 1 {
		t.Errorf("fetch calls = %d, want 1", f.calls)
	}
	if hooked != 1 {
		t.Errorf("hook calls = %d, want 1", hooked)
	}
}

func TestUpdate_Failure(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{portal.ErrInvalidAuth, "invalid_auth"},
		{portal.ErrFailedFetchingAusleihen, "failed_fetching_ausleihen"},
		{fmt.Errorf("%w: loading portal: %w", portal.ErrFetchFailed, context.DeadlineExceeded), "fetch_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			s := newSensor("u", &fakeFetcher{err: tt.err})
			s.Restore([]loan.Item{dune})
			router := New([]*tracker.Sensor{s}, Options{Logger: testLogger()})

			w := do(t, router, http.MethodPost, "/api/sensors/voebb_u/update")
			if w.Code != http.StatusBadGateway {
				t.Fatalf("status = %d, want 502", w.Code)
			}
			var resp map[string]string
			decode(t, w, &resp)
			if resp["error"] != tt.kind {
				t.Errorf("error = %q, want %q", resp["error"], tt.kind)
			}

			var view tracker.View
			decode(t, do(t, router, http.MethodGet, "/api/sensors/voebb_u"), &view)
			if view.Available || view.LastError != tt.kind || len(view.Attributes.Items) != 1 {
				t.Errorf("view after failure = %+v", view)
			}
		})
	}
}

func TestCalendar(t *testing.T) {
	s := newSensor("u", &fakeFetcher{})
	s.Restore([]loan.Item{dune})
	router := New([]*tracker.Sensor{s}, Options{
		Logger: testLogger(),
		Now:    func() time.Time { return now },
	})

	w := do(t, router, http.MethodGet, "/api/sensors/voebb_u/calendar.ics")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "DTSTART;VALUE=DATE:20240410") {
		t.Errorf("body missing due date: %s", w.Body.String())
	}
}

func TestMetrics(t *testing.T) {
	router := New(nil, Options{Logger: testLogger()})

	w := do(t, router, http.MethodGet, "/api/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var snap map[string]any
	decode(t, w, &snap)
	for _, key := range []string{"counters", "gauges", "timings"} {
		if _, ok := snap[key]; !ok {
			t.Errorf("metrics missing %q: %v", key, snap)
		}
	}
}

func TestFilterItems(t *testing.T) {
	items := []loan.Item{dune, hobbit}

	tests := []struct {
		q    string
		want []string
	}{
		{"dune", []string{"Dune"}},
		{"HOBBIT", []string{"The Hobbit"}},
		{"herbert", []string{"Dune"}},
		{"xyz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			got := FilterItems(items, tt.q)
			if len(got) != len(tt.want) {
				t.Fatalf("FilterItems(%q) = %d items, want %d", tt.q, len(got), len(tt.want))
			}
			for i, title := range tt.want {
				if got[i].Title != title {
					t.Errorf("FilterItems(%q)[%d] = %q, want %q", tt.q, i, got[i].Title, title)
				}
			}
		})
	}
}
