package main

import (
	"bytes"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/samirrijal/landplot/internal/core/domain"
)

var square = domain.Polygon{
	{Lat: 43.0, Lng: -2.0},
	{Lat: 43.0, Lng: -1.99},
	{Lat: 43.01, Lng: -1.99},
	{Lat: 43.01, Lng: -2.0},
}

// fakeAPI holds land 7 and accepts polygon writes for it.
type fakeAPI struct {
	mu   sync.Mutex
	land domain.Land
	puts int
}

func (f *fakeAPI) handle(ctx *fasthttp.RequestCtx) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := string(ctx.Path())
	switch {
	case ctx.IsGet() && path == "/lands/7":
		writeJSON(ctx, f.land)
	case ctx.IsPut() && path == "/lands/7":
		var body struct {
			Polygons *[]domain.Polygon `json:"polygons"`
		}
		if err := json.Unmarshal(ctx.PostBody(), &body); err != nil || body.Polygons == nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		f.puts++
		f.land.Polygons = *body.Polygons
		writeJSON(ctx, f.land)
	case ctx.IsPost() && path == "/users/login":
		ck := fasthttp.AcquireCookie()
		ck.SetKey("landplot_session")
		ck.SetValue("tok-1")
		ctx.Response.Header.SetCookie(ck)
		fasthttp.ReleaseCookie(ck)
		writeJSON(ctx, map[string]any{"success": true, "user": domain.User{ID: 1, Email: "ana@example.com", Type: "user"}})
	case ctx.IsGet() && path == "/users/profile":
		if string(ctx.Request.Header.Cookie("landplot_session")) != "tok-1" {
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			ctx.SetBodyString(`{"success":false}`)
			return
		}
		writeJSON(ctx, map[string]any{"success": true, "user": domain.User{ID: 1, Email: "ana@example.com", Type: "user"}})
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetBodyString(`{"code":"not_found"}`)
	}
}

func (f *fakeAPI) polygons() []domain.Polygon {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.ClonePolygons(f.land.Polygons)
}

func writeJSON(ctx *fasthttp.RequestCtx, v any) {
	data, _ := json.Marshal(v)
	ctx.SetContentType("application/json")
	ctx.SetBody(data)
}

type harness struct {
	api         *fakeAPI
	ln          *fasthttputil.InmemoryListener
	sessionFile string
}

func newHarness(t *testing.T, polys ...domain.Polygon) *harness {
	t.Helper()
	api := &fakeAPI{land: domain.Land{ID: 7, Title: "North field", Polygons: polys}}
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = fasthttp.Serve(ln, api.handle) }()
	t.Cleanup(func() { _ = ln.Close() })
	t.Setenv(sessionEnv, "")
	return &harness{api: api, ln: ln, sessionFile: filepath.Join(t.TempDir(), "session")}
}

func (h *harness) run(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	c := &cli{
		out:    &out,
		errOut: &errOut,
		dial:   func(addr string) (net.Conn, error) { return h.ln.Dial() },
	}
	root := newRootCmd(c)
	root.SetArgs(append([]string{"--session-file", h.sessionFile}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestPolygonsImport_AppendsAndSaves(t *testing.T) {
	h := newHarness(t, square)
	doc := filepath.Join(t.TempDir(), "plot.geojson")
	geo := `{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[-3,40],[-2.99,40],[-2.99,40.01],[-3,40]]]}}`
	if err := os.WriteFile(doc, []byte(geo), 0o600); err != nil {
		t.Fatal(err)
	}

	out, _, err := h.run("polygons", "import", "7", doc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "now has 2 polygon(s)") {
		t.Errorf("unexpected output %q", out)
	}
	got := h.api.polygons()
	if len(got) != 2 || !got[0].Equal(square) || len(got[1]) != 3 {
		t.Fatalf("unexpected stored polygons %v", got)
	}
	if got[1][0] != (domain.Coordinate{Lat: 40, Lng: -3}) {
		t.Errorf("expected lat/lng order, got %v", got[1][0])
	}
}

func TestPolygonsImport_Replace(t *testing.T) {
	h := newHarness(t, square, square)
	doc := filepath.Join(t.TempDir(), "plot.geojson")
	os.WriteFile(doc, []byte(`{"type":"Polygon","coordinates":[[[1,1],[2,1],[2,2],[1,1]]]}`), 0o600)

	if _, _, err := h.run("polygons", "import", "--replace", "7", doc); err != nil {
		t.Fatal(err)
	}
	got := h.api.polygons()
	if len(got) != 1 || got[0][0] != (domain.Coordinate{Lat: 1, Lng: 1}) {
		t.Errorf("expected only the imported polygon, got %v", got)
	}
}

func TestPolygonsImport_OutOfRangeLeavesRemoteUntouched(t *testing.T) {
	h := newHarness(t, square)
	doc := filepath.Join(t.TempDir(), "swapped.geojson")
	os.WriteFile(doc, []byte(`{"type":"Polygon","coordinates":[[[43,120],[44,120],[44,121],[43,120]]]}`), 0o600)

	if _, _, err := h.run("polygons", "import", "--replace", "7", doc); err == nil {
		t.Fatal("expected an out-of-range import to fail")
	}
	got := h.api.polygons()
	if len(got) != 1 || got[0][0] != square[0] {
		t.Errorf("remote polygons changed: %v", got)
	}
}

func TestPolygonsShow(t *testing.T) {
	h := newHarness(t, square)

	out, _, err := h.run("polygons", "show", "7")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "INDEX") || !strings.Contains(out, "total area") {
		t.Errorf("unexpected output %q", out)
	}
	if h.api.puts != 0 {
		t.Errorf("show must not write, got %d writes", h.api.puts)
	}
}

func TestPolygonsRemove(t *testing.T) {
	other := domain.Polygon{{Lat: 1, Lng: 1}, {Lat: 1, Lng: 2}, {Lat: 2, Lng: 2}}
	h := newHarness(t, square, other)

	_, notes, err := h.run("polygons", "remove", "7", "0")
	if err != nil {
		t.Fatal(err)
	}
	got := h.api.polygons()
	if len(got) != 1 || !got[0].Equal(other) {
		t.Errorf("expected only the second polygon left, got %v", got)
	}
	if !strings.Contains(notes, "Polygon deleted.") {
		t.Errorf("expected success notice, got %q", notes)
	}

	if _, _, err := h.run("polygons", "remove", "7", "5"); err == nil {
		t.Error("expected out-of-range index to fail")
	}
}

func TestPolygonsAddVertex(t *testing.T) {
	h := newHarness(t, square)

	if _, _, err := h.run("polygons", "add-vertex", "7", "0", "43.02,-2.0"); err != nil {
		t.Fatal(err)
	}
	got := h.api.polygons()
	if len(got) != 1 || len(got[0]) != 5 || got[0][4] != (domain.Coordinate{Lat: 43.02, Lng: -2.0}) {
		t.Errorf("unexpected polygon after add-vertex %v", got)
	}

	if _, _, err := h.run("polygons", "remove-vertex", "7", "0", "43.02,-2.0"); err != nil {
		t.Fatal(err)
	}
	if got := h.api.polygons(); !got[0].Equal(square) {
		t.Errorf("expected original square back, got %v", got[0])
	}

	if _, _, err := h.run("polygons", "add-vertex", "7", "0", "95,0"); err == nil {
		t.Error("expected out-of-range coordinate to fail")
	}
}

func TestLoginStoresSession(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("login", "--email", "ana@example.com", "--password", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "logged in as ana@example.com") {
		t.Errorf("unexpected output %q", out)
	}
	data, err := os.ReadFile(h.sessionFile)
	if err != nil || strings.TrimSpace(string(data)) != "tok-1" {
		t.Fatalf("expected stored session tok-1, got %q (%v)", data, err)
	}

	out, _, err = h.run("whoami")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "ana@example.com") {
		t.Errorf("unexpected whoami output %q", out)
	}
}

func TestLocate(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("locate", "--lat=43.26", "--lng=-2.93")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "43.260000,-2.930000 (device)" {
		t.Errorf("unexpected output %q", out)
	}

	out, _, err = h.run("locate")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "-3.745000,-38.523000 (default)" {
		t.Errorf("unexpected fallback output %q", out)
	}
}

func TestParseCoordinate(t *testing.T) {
	c, err := parseCoordinate(" 43.1 , -2.5 ")
	if err != nil || c != (domain.Coordinate{Lat: 43.1, Lng: -2.5}) {
		t.Errorf("got %v, %v", c, err)
	}
	for _, bad := range []string{"43.1", "a,b", "91,0"} {
		if _, err := parseCoordinate(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
