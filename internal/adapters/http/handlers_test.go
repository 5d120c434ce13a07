package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	handler "github.com/samirrijal/landplot/internal/adapters/http"
	"github.com/samirrijal/landplot/internal/adapters/memory"
	"github.com/samirrijal/landplot/internal/core/domain"
	"github.com/samirrijal/landplot/internal/core/usecases"
)

// ---- Mock repositories ----

type mockLandRepo struct {
	mu     sync.Mutex
	lands  map[int64]domain.Land
	nextID int64

	deleteFn func(ctx context.Context, id int64) error
}

func newMockLandRepo(seed ...domain.Land) *mockLandRepo {
	m := &mockLandRepo{lands: make(map[int64]domain.Land)}
	for _, l := range seed {
		m.lands[l.ID] = l
		if l.ID > m.nextID {
			m.nextID = l.ID
		}
	}
	return m
}

func (m *mockLandRepo) Create(ctx context.Context, land *domain.Land) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	land.ID = m.nextID
	m.lands[land.ID] = *land
	return nil
}

func (m *mockLandRepo) GetByID(ctx context.Context, id int64) (*domain.Land, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lands[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	l.Polygons = domain.ClonePolygons(l.Polygons)
	return &l, nil
}

func (m *mockLandRepo) List(ctx context.Context) ([]domain.Land, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Land, 0, len(m.lands))
	for _, l := range m.lands {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockLandRepo) Update(ctx context.Context, land *domain.Land) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lands[land.ID]; !ok {
		return domain.ErrNotFound
	}
	m.lands[land.ID] = *land
	return nil
}

func (m *mockLandRepo) UpdatePolygons(ctx context.Context, id int64, polygons []domain.Polygon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lands[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.Polygons = polygons
	m.lands[id] = l
	return nil
}

func (m *mockLandRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lands[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.lands, id)
	return nil
}

func (m *mockLandRepo) get(id int64) (domain.Land, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lands[id]
	return l, ok
}

type mockUserRepo struct {
	mu    sync.Mutex
	users []domain.User
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return domain.ErrConflict
		}
	}
	u.ID = int64(len(m.users) + 1)
	m.users = append(m.users, *u)
	return nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

type mockBulkDeleter struct {
	ids []int64
	err error
}

func (m *mockBulkDeleter) StartBulkDelete(ctx context.Context, ids []int64) (string, error) {
	m.ids = ids
	if m.err != nil {
		return "", m.err
	}
	return "bulk-delete-1", nil
}

// ---- Helpers ----

var square = domain.Polygon{
	{Lat: 43.0, Lng: -2.0},
	{Lat: 43.0, Lng: -1.99},
	{Lat: 43.01, Lng: -1.99},
	{Lat: 43.01, Lng: -2.0},
}

func sampleLands() []domain.Land {
	return []domain.Land{
		{ID: 1, Title: "North field", Owner: "Ana", LandType: "farm", MarketValue: "$12,000", Size: "300", Polygons: []domain.Polygon{square}},
		{ID: 2, Title: "River plot", Owner: "Ana", LandType: "urban", MarketValue: "50000", Size: "80"},
		{ID: 3, Title: "Hill", Owner: "Luis", LandType: "farm", MarketValue: "9000", Size: "1200"},
	}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	auth := usecases.NewAuthService(&mockUserRepo{}, memory.NewSessionStore(), time.Hour)
	auth.SetHashCost(bcrypt.MinCost)
	d := &handler.Dependencies{
		Lands: usecases.NewLandService(newMockLandRepo(sampleLands()...), nil, nil),
		Auth:  auth,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func withRepo(repo *mockLandRepo) func(*handler.Dependencies) {
	return func(d *handler.Dependencies) {
		d.Lands = usecases.NewLandService(repo, nil, nil)
	}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func do(t *testing.T, app *fiber.App, method, path, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeError(t *testing.T, resp *http.Response) handler.APIError {
	t.Helper()
	var apiErr handler.APIError
	if err := json.Unmarshal(readBody(t, resp.Body), &apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return apiErr
}

// ---- Land handler tests ----

func TestListLands_FilterAndHeaders(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, "GET", "/lands?owner=Ana&limit=1", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Total-Count"); got != "2" {
		t.Errorf("expected X-Total-Count 2, got %q", got)
	}
	link := resp.Header.Get("Link")
	if !strings.Contains(link, `owner=Ana&offset=1&limit=1>; rel="next"`) {
		t.Errorf("next link should keep the filter, got %q", link)
	}

	var lands []domain.Land
	if err := json.Unmarshal(readBody(t, resp.Body), &lands); err != nil {
		t.Fatal(err)
	}
	if len(lands) != 1 || lands[0].ID != 1 {
		t.Errorf("expected land 1 on the first page, got %+v", lands)
	}
}

func TestListLands_PriceRange(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, "GET", "/lands?type=farm&max_price=10000", "")
	var lands []domain.Land
	json.Unmarshal(readBody(t, resp.Body), &lands)
	if len(lands) != 1 || lands[0].ID != 3 {
		t.Errorf("expected only land 3, got %+v", lands)
	}
}

func TestListLands_PastTheEnd(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, "GET", "/lands?offset=10", "")
	body := strings.TrimSpace(string(readBody(t, resp.Body)))
	if body != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestListLands_InvalidRange(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, "GET", "/lands?min_price=cheap", "")
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if e := decodeError(t, resp); e.Code != "bad_request" {
		t.Errorf("expected bad_request, got %q", e.Code)
	}
}

func TestGetLand_Success(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, "GET", "/lands/1", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var land domain.Land
	json.Unmarshal(readBody(t, resp.Body), &land)
	if land.Title != "North field" || len(land.Polygons) != 1 || len(land.Polygons[0]) != 4 {
		t.Errorf("unexpected land %+v", land)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "private, no-cache" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}
}

func TestGetLand_NoPolygonsIsEmptyArray(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, "GET", "/lands/2", "")
	if !strings.Contains(string(readBody(t, resp.Body)), `"polygons":[]`) {
		t.Error("expected polygons to be an empty array")
	}
}

func TestGetLand_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, "GET", "/lands/99", "")
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if e := decodeError(t, resp); e.Code != "not_found" || e.RequestID == "" {
		t.Errorf("unexpected error body %+v", e)
	}
}

func TestGetLand_InvalidID(t *testing.T) {
	app := setupApp(makeDeps())

	for _, path := range []string{"/lands/abc", "/lands/0", "/lands/-4"} {
		resp := do(t, app, "GET", path, "")
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", path, resp.StatusCode)
		}
	}
}

func TestGetLand_ETagNotModified(t *testing.T) {
	app := setupApp(makeDeps())

	first := do(t, app, "GET", "/lands/1", "")
	etag := first.Header.Get("ETag")
	if !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("expected weak etag, got %q", etag)
	}

	req := httptest.NewRequest("GET", "/lands/1", nil)
	req.Header.Set("If-None-Match", `"other", `+etag)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

func TestCreateLand_StartsWithoutPolygons(t *testing.T) {
	repo := newMockLandRepo(sampleLands()...)
	app := setupApp(makeDeps(withRepo(repo)))

	body := `{"title":"New","owner":"Eva","marketValue":"1000","polygons":[[{"lat":1,"lng":2}]]}`
	resp := do(t, app, "POST", "/lands", body)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/lands/4" {
		t.Errorf("unexpected Location %q", loc)
	}

	stored, ok := repo.get(4)
	if !ok {
		t.Fatal("land 4 was not stored")
	}
	if stored.Title != "New" || len(stored.Polygons) != 0 {
		t.Errorf("unexpected stored land %+v", stored)
	}
}

func TestCreateLand_InvalidBody(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, "POST", "/lands", `{"title":`)
	if resp.StatusCode != 400 {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUpdateLand_PolygonsOnly(t *testing.T) {
	repo := newMockLandRepo(sampleLands()...)
	app := setupApp(makeDeps(withRepo(repo)))

	body := `{"polygons":[[{"lat":1,"lng":1},{"lat":1,"lng":2},{"lat":2,"lng":2}],[{"lat":5,"lng":5},{"lat":5,"lng":6},{"lat":6,"lng":6}]]}`
	resp := do(t, app, "PUT", "/lands/2", body)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	stored, _ := repo.get(2)
	if len(stored.Polygons) != 2 || stored.Polygons[1][0] != (domain.Coordinate{Lat: 5, Lng: 5}) {
		t.Errorf("polygons not replaced in order: %+v", stored.Polygons)
	}
	if stored.Title != "River plot" || stored.Owner != "Ana" {
		t.Errorf("scalar fields should be untouched: %+v", stored)
	}
}

func TestUpdateLand_EmptyCollection(t *testing.T) {
	repo := newMockLandRepo(sampleLands()...)
	app := setupApp(makeDeps(withRepo(repo)))

	resp := do(t, app, "PUT", "/lands/1", `{"polygons":[]}`)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	stored, _ := repo.get(1)
	if stored.Polygons == nil || len(stored.Polygons) != 0 {
		t.Errorf("expected empty collection, got %v", stored.Polygons)
	}
}

func TestUpdateLand_MergesFields(t *testing.T) {
	repo := newMockLandRepo(sampleLands()...)
	app := setupApp(makeDeps(withRepo(repo)))

	resp := do(t, app, "PUT", "/lands/1", `{"notes":"fenced","marketValue":"15000"}`)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	stored, _ := repo.get(1)
	if stored.Notes != "fenced" || stored.MarketValue != "15000" || stored.Title != "North field" {
		t.Errorf("unexpected merge result %+v", stored)
	}
	if len(stored.Polygons) != 1 {
		t.Error("polygons should be untouched when absent from the body")
	}
}

func TestUpdateLand_RejectsOutOfRangeCoordinate(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, "PUT", "/lands/1", `{"polygons":[[{"lat":91,"lng":0}]]}`)
	if resp.StatusCode != 400 {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUpdateLand_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, "PUT", "/lands/42", `{"polygons":[]}`)
	if resp.StatusCode != 404 {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestDeleteLand(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, "DELETE", "/lands/3", "")
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if resp := do(t, app, "GET", "/lands/3", ""); resp.StatusCode != 404 {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
	if resp := do(t, app, "DELETE", "/lands/3", ""); resp.StatusCode != 404 {
		t.Errorf("expected 404 on second delete, got %d", resp.StatusCode)
	}
}

func TestDeleteLand_InternalError(t *testing.T) {
	repo := newMockLandRepo(sampleLands()...)
	repo.deleteFn = func(ctx context.Context, id int64) error { return errors.New("connection reset") }
	app := setupApp(makeDeps(withRepo(repo)))

	resp := do(t, app, "DELETE", "/lands/1", "")
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if e := decodeError(t, resp); strings.Contains(e.Message, "connection reset") {
		t.Error("internal error details should not leak")
	}
}

func TestBulkDelete_Inline(t *testing.T) {
	repo := newMockLandRepo(sampleLands()...)
	app := setupApp(makeDeps(withRepo(repo)))

	resp := do(t, app, "POST", "/lands/bulk-delete", `{"ids":[1,99,2]}`)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var res usecases.BulkDeleteResult
	json.Unmarshal(readBody(t, resp.Body), &res)
	if len(res.Deleted) != 1 || res.Deleted[0] != 1 || res.Failed != 99 {
		t.Errorf("unexpected result %+v", res)
	}
	if _, ok := repo.get(2); !ok {
		t.Error("land 2 should survive: bulk delete stops at the first failure")
	}
}

func TestBulkDelete_Async(t *testing.T) {
	bd := &mockBulkDeleter{}
	app := setupApp(makeDeps(func(d *handler.Dependencies) { d.BulkDeleter = bd }))

	resp := do(t, app, "POST", "/lands/bulk-delete", `{"ids":[2,3]}`)
	if resp.StatusCode != 202 {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var out struct {
		JobID string `json:"job_id"`
		Count int    `json:"count"`
	}
	json.Unmarshal(readBody(t, resp.Body), &out)
	if out.JobID != "bulk-delete-1" || out.Count != 2 || len(bd.ids) != 2 {
		t.Errorf("unexpected response %+v (ids %v)", out, bd.ids)
	}
}

func TestBulkDelete_Validation(t *testing.T) {
	app := setupApp(makeDeps())

	for _, body := range []string{`{"ids":[]}`, `{"ids":[1,0]}`, `{}`} {
		resp := do(t, app, "POST", "/lands/bulk-delete", body)
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", body, resp.StatusCode)
		}
	}
}

func TestLandArea(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, "GET", "/lands/1/area", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var area usecases.LandArea
	json.Unmarshal(readBody(t, resp.Body), &area)
	// ~1.11 km x ~0.81 km at 43N
	if len(area.Polygons) != 1 || area.Total < 800_000 || area.Total > 1_000_000 {
		t.Errorf("unexpected area %+v", area)
	}
}

func TestLandGeoJSON(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, "GET", "/lands/1/geojson", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("unexpected content type %q", ct)
	}
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	json.Unmarshal(readBody(t, resp.Body), &fc)
	if fc.Type != "FeatureCollection" || len(fc.Features) != 1 {
		t.Errorf("unexpected feature collection %+v", fc)
	}
}

type memEventLog struct {
	events []domain.LandEvent
}

func (m *memEventLog) Append(ctx context.Context, e *domain.LandEvent) error {
	m.events = append(m.events, *e)
	return nil
}

func (m *memEventLog) ListByLand(ctx context.Context, landID int64, limit int) ([]domain.LandEvent, error) {
	out := []domain.LandEvent{}
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if m.events[i].LandID == landID {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

func TestLandEvents(t *testing.T) {
	log := &memEventLog{}
	history := usecases.NewHistoryService(log)
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	history.Record(context.Background(), &domain.LandEvent{Type: domain.LandCreated, LandID: 1, Time: at})
	history.Record(context.Background(), &domain.LandEvent{Type: domain.LandPolygonsUpdated, LandID: 1, PolygonCount: 2, Time: at.Add(time.Minute)})
	history.Record(context.Background(), &domain.LandEvent{Type: domain.LandCreated, LandID: 2, Time: at})

	app := setupApp(makeDeps(func(d *handler.Dependencies) { d.History = history }))

	resp := do(t, app, "GET", "/lands/1/events", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var events []domain.LandEvent
	if err := json.Unmarshal(readBody(t, resp.Body), &events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].Type != domain.LandPolygonsUpdated || events[0].PolygonCount != 2 {
		t.Errorf("unexpected history %+v", events)
	}

	resp = do(t, app, "GET", "/lands/1/events?limit=1", "")
	events = nil
	json.Unmarshal(readBody(t, resp.Body), &events)
	if len(events) != 1 {
		t.Errorf("expected 1 event with limit=1, got %d", len(events))
	}

	resp = do(t, app, "GET", "/lands/abc/events", "")
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 for invalid id, got %d", resp.StatusCode)
	}
}

func TestLandEvents_NotEnabled(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, "GET", "/lands/1/events", "")
	if resp.StatusCode != 503 {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

// ---- User handler tests ----

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, ck := range resp.Cookies() {
		if ck.Name == "landplot_session" {
			return ck
		}
	}
	return nil
}

func TestAuthFlow(t *testing.T) {
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.AuthConfig = handler.AuthSettings{Required: true, CookieName: "landplot_session"}
	}))

	if resp := do(t, app, "GET", "/lands", ""); resp.StatusCode != 401 {
		t.Fatalf("expected 401 without a session, got %d", resp.StatusCode)
	}

	resp := do(t, app, "POST", "/users/signup", `{"email":"Ana@Example.com","password":"secret1"}`)
	if resp.StatusCode != 201 {
		t.Fatalf("signup: expected 201, got %d", resp.StatusCode)
	}

	resp = do(t, app, "POST", "/users/login", `{"email":"ana@example.com","pass":"secret1"}`)
	if resp.StatusCode != 200 {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	ck := sessionCookie(resp)
	if ck == nil || ck.Value == "" || !ck.HttpOnly {
		t.Fatalf("expected an http-only session cookie, got %+v", ck)
	}

	if resp := do(t, app, "GET", "/lands", "", ck); resp.StatusCode != 200 {
		t.Errorf("expected 200 with a session, got %d", resp.StatusCode)
	}

	resp = do(t, app, "GET", "/users/profile", "", ck)
	var profile struct {
		Success bool        `json:"success"`
		User    domain.User `json:"user"`
	}
	json.Unmarshal(readBody(t, resp.Body), &profile)
	if !profile.Success || profile.User.Email != "ana@example.com" || profile.User.Type != "user" {
		t.Errorf("unexpected profile %+v", profile)
	}

	if resp := do(t, app, "POST", "/users/logout", "", ck); resp.StatusCode != 200 {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}
	resp = do(t, app, "GET", "/users/profile", "", ck)
	if resp.StatusCode != 401 {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(readBody(t, resp.Body)), `"success":false`) {
		t.Error("expected success:false envelope")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	app := setupApp(makeDeps())
	do(t, app, "POST", "/users/signup", `{"email":"ana@example.com","password":"secret1"}`)

	resp := do(t, app, "POST", "/users/login", `{"email":"ana@example.com","password":"nope"}`)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if sessionCookie(resp) != nil {
		t.Error("no cookie should be set on failed login")
	}
}

func TestSignup_Errors(t *testing.T) {
	app := setupApp(makeDeps())
	do(t, app, "POST", "/users/signup", `{"email":"ana@example.com","password":"secret1"}`)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"duplicate", `{"email":"ana@example.com","password":"secret1"}`, 409},
		{"bad email", `{"email":"not-an-email","password":"secret1"}`, 400},
		{"short password", `{"email":"luis@example.com","password":"123"}`, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, app, "POST", "/users/signup", tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

// ---- GraphQL tests ----

func TestGraphQL_LandsQuery(t *testing.T) {
	app := setupApp(makeDeps())

	query := `{"query":"{ lands(owner: \"Ana\", limit: 10) { total lands { id title landType polygons { lat lng } } } }"}`
	resp := do(t, app, "POST", "/graphql", query)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Data struct {
			Lands struct {
				Total int `json:"total"`
				Lands []struct {
					ID       int                   `json:"id"`
					LandType string                `json:"landType"`
					Polygons [][]domain.Coordinate `json:"polygons"`
				} `json:"lands"`
			} `json:"lands"`
		} `json:"data"`
		Errors []json.RawMessage `json:"errors"`
	}
	json.Unmarshal(readBody(t, resp.Body), &out)
	if len(out.Errors) > 0 {
		t.Fatalf("unexpected errors %s", out.Errors[0])
	}
	if out.Data.Lands.Total != 2 || len(out.Data.Lands.Lands) != 2 {
		t.Fatalf("unexpected page %+v", out.Data.Lands)
	}
	first := out.Data.Lands.Lands[0]
	if first.ID != 1 || first.LandType != "farm" || len(first.Polygons) != 1 || first.Polygons[0][0].Lat != 43.0 {
		t.Errorf("unexpected first land %+v", first)
	}
}

func TestGraphQL_ReplacePolygons(t *testing.T) {
	repo := newMockLandRepo(sampleLands()...)
	app := setupApp(makeDeps(withRepo(repo)))

	query := `{"query":"mutation { replacePolygons(id: 3, polygons: [[{lat: 1, lng: 1}, {lat: 1, lng: 2}, {lat: 2, lng: 2}]]) { id polygons { lat } } }"}`
	resp := do(t, app, "POST", "/graphql", query)
	body := readBody(t, resp.Body)
	if strings.Contains(string(body), `"errors"`) {
		t.Fatalf("unexpected errors: %s", body)
	}

	stored, _ := repo.get(3)
	if len(stored.Polygons) != 1 || len(stored.Polygons[0]) != 3 {
		t.Errorf("unexpected stored polygons %+v", stored.Polygons)
	}
}

// ---- System endpoints ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, "GET", "/health", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=10" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("expected a request id header")
	}
}

func TestReady_WithoutDatabase(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, "GET", "/ready", "")
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	var out struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	json.Unmarshal(readBody(t, resp.Body), &out)
	if out.Checks["database"] != "not configured" || out.Checks["cache"] != "not configured" {
		t.Errorf("unexpected checks %+v", out.Checks)
	}
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, "GET", "/ws", "")
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Errorf("expected 426, got %d", resp.StatusCode)
	}
}

func TestDocs(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, makeDeps(), handler.RouteOptions{DocsFile: "../../../api/openapi.yaml"})

	resp, err := app.Test(httptest.NewRequest("GET", "/docs/openapi.yaml", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "/lands/{id}/events") {
		t.Error("served document is missing the events path")
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/docs", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestDocs_MissingFile(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, makeDeps(), handler.RouteOptions{DocsFile: "does-not-exist.yaml"})

	resp, err := app.Test(httptest.NewRequest("GET", "/docs/openapi.yaml", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}
