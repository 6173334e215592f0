// ABOUTME: End-to-end tests of the HTTP API over a real SQLite store in a temporary directory.
// ABOUTME: Covers infra lifecycle, edits, errors, auto-fixes, route queries, reports, metrics and auth.
package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/2389-research/infracache/cache/cachetest"
	"github.com/2389-research/infracache/schema"
	"github.com/2389-research/infracache/server"
	"github.com/2389-research/infracache/store"
)

type fixture struct {
	srv     *server.Server
	store   *store.SqliteStore
	infraID string
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()
	st, err := store.OpenSqlite(filepath.Join(t.TempDir(), "infra.db"))
	if err != nil {
		t.Fatalf("OpenSqlite: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	infra, err := st.CreateInfra(t.Context(), "small")
	if err != nil {
		t.Fatalf("CreateInfra: %v", err)
	}
	if _, err := st.ImportRailJSON(t.Context(), infra.ID, cachetest.SmallInfra()); err != nil {
		t.Fatalf("ImportRailJSON: %v", err)
	}

	srv, err := server.NewServer(server.ServerConfig{Store: st, AuthToken: token})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return &fixture{srv: srv, store: st, infraID: infra.ID.String()}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) infraPath(suffix string) string {
	return "/infra/" + f.infraID + suffix
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, want, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, http.MethodGet, "/health", "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[map[string]string](t, rec); got["status"] != "ok" {
		t.Errorf("got %v", got)
	}
}

func TestInfraLifecycle(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodPost, "/infra", `{"name":"other"}`)
	expectStatus(t, rec, http.StatusCreated)
	created := decode[store.Infra](t, rec)
	if created.Name != "other" || created.Version != 0 {
		t.Errorf("created = %+v", created)
	}

	rec = f.do(t, http.MethodGet, "/infra", "")
	expectStatus(t, rec, http.StatusOK)
	if infras := decode[[]store.Infra](t, rec); len(infras) != 2 {
		t.Errorf("got %d infras, want 2", len(infras))
	}

	rec = f.do(t, http.MethodGet, f.infraPath(""), "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[store.Infra](t, rec); got.Name != "small" || got.Version != 1 {
		t.Errorf("got %+v", got)
	}
}

func TestInfraCreate_RequiresName(t *testing.T) {
	f := newFixture(t, "")
	expectStatus(t, f.do(t, http.MethodPost, "/infra", `{}`), http.StatusBadRequest)
}

func TestUnknownInfra(t *testing.T) {
	f := newFixture(t, "")
	expectStatus(t, f.do(t, http.MethodGet, "/infra/01ARZ3NDEKTSV4RRFFQ69G5FAV/errors", ""), http.StatusNotFound)
	expectStatus(t, f.do(t, http.MethodGet, "/infra/not-a-ulid/errors", ""), http.StatusBadRequest)
}

func TestErrors(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodGet, f.infraPath("/errors"), "")
	expectStatus(t, rec, http.StatusOK)
	errs := decode[[]map[string]any](t, rec)
	if len(errs) != 1 || errs[0]["error_type"] != "missing_route" || errs[0]["obj_id"] != "A" {
		t.Errorf("got %v, want the missing route on A", errs)
	}

	rec = f.do(t, http.MethodGet, f.infraPath("/errors?level=errors"), "")
	expectStatus(t, rec, http.StatusOK)
	if errs := decode[[]map[string]any](t, rec); len(errs) != 0 {
		t.Errorf("got %v, want no hard errors", errs)
	}

	expectStatus(t, f.do(t, http.MethodGet, f.infraPath("/errors?level=loud"), ""), http.StatusBadRequest)
}

func TestApplyOperationsThenAutoFix(t *testing.T) {
	f := newFixture(t, "")

	// Load the cache first so the edit has to update it in place.
	expectStatus(t, f.do(t, http.MethodGet, f.infraPath("/errors"), ""), http.StatusOK)

	rec := f.do(t, http.MethodPost, f.infraPath("/"),
		`[{"operation_type":"DELETE","obj_type":"BufferStop","obj_id":"BF3"}]`)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[map[string]int](t, rec); got["applied"] != 1 {
		t.Errorf("got %v", got)
	}

	rec = f.do(t, http.MethodGet, f.infraPath("/auto_fixes"), "")
	expectStatus(t, rec, http.StatusOK)
	ops := decode[schema.OperationList](t, rec)

	var deletes []string
	creates := 0
	for _, op := range ops {
		switch op.Kind() {
		case schema.OperationDelete:
			deletes = append(deletes, op.Ref().String())
		case schema.OperationCreate:
			creates++
		}
	}
	sort.Strings(deletes)
	if diff := cmp.Diff([]string{"Route:R2", "Route:R3"}, deletes); diff != "" {
		t.Errorf("deletes mismatch (-want +got):\n%s", diff)
	}
	if creates != 1 {
		t.Errorf("got %d creates, want 1", creates)
	}

	// Suggestions are never committed.
	rec = f.do(t, http.MethodGet, f.infraPath("/routes/track_ranges?routes=R2"), "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]map[string]any](t, rec); got[0]["type"] != "CantComputePath" {
		t.Errorf("R2 = %v, want CantComputePath after its exit was deleted", got[0])
	}
}

func TestApplyOperations_Failures(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodPost, f.infraPath("/"),
		`[{"operation_type":"DELETE","obj_type":"Signal","obj_id":"S0"},{"operation_type":"DELETE","obj_type":"Signal","obj_id":"nope"}]`)
	expectStatus(t, rec, http.StatusNotFound)

	rec = f.do(t, http.MethodPost, f.infraPath("/"),
		`[{"operation_type":"CREATE","obj_type":"Detector","railjson":{"id":"D0","track":"A","position":1}}]`)
	expectStatus(t, rec, http.StatusConflict)

	rec = f.do(t, http.MethodPost, f.infraPath("/"),
		`[{"operation_type":"UPDATE","obj_type":"Detector","obj_id":"D0","railjson_patch":[{"op":"replace","path":"/id","value":"X"}]}]`)
	expectStatus(t, rec, http.StatusBadRequest)

	expectStatus(t, f.do(t, http.MethodPost, f.infraPath("/"), `not json`), http.StatusBadRequest)

	// S0 survived the rolled back transaction.
	rec = f.do(t, http.MethodGet, f.infraPath("/report"), "")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "| Signal | 1 |") {
		t.Errorf("signal lost:\n%s", rec.Body.String())
	}
}

func TestRouteTrackRanges(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodPost, f.infraPath("/"),
		`[{"operation_type":"CREATE","obj_type":"Route","railjson":{"id":"R4","entry_point":{"type":"Detector","id":"D1"},"entry_point_direction":"START_TO_STOP","exit_point":{"type":"BufferStop","id":"BF2"},"release_detectors":[],"track_nodes_directions":{}}}]`)
	expectStatus(t, rec, http.StatusOK)

	rec = f.do(t, http.MethodGet, f.infraPath("/routes/track_ranges?routes=R1,missing,R4"), "")
	expectStatus(t, rec, http.StatusOK)

	var got []struct {
		Type                 string                         `json:"type"`
		TrackRanges          []schema.DirectionalTrackRange `json:"track_ranges"`
		TrackNodesDirections []schema.NodeDirection         `json:"track_nodes_directions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	if got[0].Type != "Computed" || len(got[0].TrackRanges) != 2 || got[0].TrackNodesDirections[0].Group != "A_B1" {
		t.Errorf("R1 = %+v", got[0])
	}
	if got[1].Type != "NotFound" {
		t.Errorf("missing = %+v", got[1])
	}
	if got[2].Type != "CantComputePath" || got[2].TrackRanges != nil {
		t.Errorf("R4 = %+v, want an unresolved switch", got[2])
	}

	expectStatus(t, f.do(t, http.MethodGet, f.infraPath("/routes/track_ranges"), ""), http.StatusBadRequest)
}

func TestRoutesFromWaypoint(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodGet, f.infraPath("/routes/Detector/D1"), "")
	expectStatus(t, rec, http.StatusOK)
	want := store.RoutesFromWaypoint{Starting: []string{"R1", "R2"}, Ending: []string{"R3"}}
	if diff := cmp.Diff(want, decode[store.RoutesFromWaypoint](t, rec)); diff != "" {
		t.Errorf("routes mismatch (-want +got):\n%s", diff)
	}

	expectStatus(t, f.do(t, http.MethodGet, f.infraPath("/routes/Signal/S0"), ""), http.StatusBadRequest)
}

func TestRoutesNodes(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodPost, f.infraPath("/routes/nodes"), `{"switch":"A_B1"}`)
	expectStatus(t, rec, http.StatusOK)
	got := decode[map[string]any](t, rec)
	want := map[string]any{
		"routes":                   []any{"R1"},
		"available_node_positions": map[string]any{"switch": []any{"A_B1"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestImportYAML(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodPost, "/infra", `{"name":"yaml"}`)
	expectStatus(t, rec, http.StatusCreated)
	infra := decode[store.Infra](t, rec)

	doc := "track_sections:\n  - id: T\n    length: 100\n    slopes: []\n    curves: []\n"
	rec = f.do(t, http.MethodPost, "/infra/"+infra.ID.String()+"/railjson?format=yaml", doc)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[map[string]int](t, rec); got["objects"] != 1 {
		t.Errorf("got %v", got)
	}

	rec = f.do(t, http.MethodGet, "/infra/"+infra.ID.String()+"/errors?level=errors", "")
	expectStatus(t, rec, http.StatusOK)
	errs := decode[[]map[string]any](t, rec)
	if len(errs) != 2 {
		t.Errorf("got %v, want a missing buffer stop at each end of T", errs)
	}
}

func TestReportHTML(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, http.MethodGet, f.infraPath("/report?format=html"), "")
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<h1>Infra small</h1>") {
		t.Errorf("body:\n%s", rec.Body.String())
	}
	expectStatus(t, f.do(t, http.MethodGet, f.infraPath("/report?format=pdf"), ""), http.StatusBadRequest)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, "")
	expectStatus(t, f.do(t, http.MethodGet, f.infraPath("/auto_fixes"), ""), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodGet, f.infraPath("/report"), ""), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodGet, f.infraPath("/report?format=html"), ""), http.StatusOK)

	rec := f.do(t, http.MethodGet, "/metrics", "")
	expectStatus(t, rec, http.StatusOK)
	body := rec.Body.String()
	for _, want := range []string{
		"infracache_cached_infras 1",
		`infracache_autofix_runs_total{outcome="converged"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestAuth(t *testing.T) {
	f := newFixture(t, "secret")

	expectStatus(t, f.do(t, http.MethodGet, "/infra", ""), http.StatusUnauthorized)
	expectStatus(t, f.do(t, http.MethodGet, "/health", ""), http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/infra", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusOK)
}
