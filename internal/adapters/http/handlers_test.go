package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/osoko/wayfind/internal/adapters/http"
	"github.com/osoko/wayfind/internal/core/domain"
	"github.com/osoko/wayfind/internal/core/usecases"
)

// ---- Mock providers ----

type mockDiscovery struct {
	resolveFn  func(ctx context.Context, query string) (domain.Coordinate, error)
	discoverFn func(ctx context.Context, coord domain.Coordinate, label string) (domain.Discovery, error)
}

func (m *mockDiscovery) ResolvePlace(ctx context.Context, query string) (domain.Coordinate, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, query)
	}
	return domain.Coordinate{Lat: 43.263, Lng: -2.935}, nil
}

func (m *mockDiscovery) Discover(ctx context.Context, coord domain.Coordinate, label string) (domain.Discovery, error) {
	if m.discoverFn != nil {
		return m.discoverFn(ctx, coord, label)
	}
	return domain.Discovery{
		CityName:       "Bilbao",
		CityPopulation: "about 350,000",
		Businesses: []domain.BusinessSeed{
			{Name: "Cafe Iruna", Lat: 43.2625, Lng: -2.934},
		},
		Districts: []domain.DistrictSeed{
			{Name: "Casco Viejo", Lat: 43.259, Lng: -2.923},
		},
	}, nil
}

type mockRouter struct{}

func (m *mockRouter) Route(ctx context.Context, from, to domain.Coordinate) (domain.RouteFragment, error) {
	return domain.RouteFragment{
		DistanceMeters:  1200,
		DurationSeconds: 300,
		DistanceText:    "1.2 km",
		DurationText:    "5 min",
	}, nil
}

type mockTrackRepo struct {
	points []domain.TrackPoint
}

func (m *mockTrackRepo) Append(ctx context.Context, sessionID string, point domain.TrackPoint) error {
	m.points = append(m.points, point)
	return nil
}

func (m *mockTrackRepo) List(ctx context.Context, sessionID string, offset, limit int) ([]domain.TrackPoint, error) {
	if offset >= len(m.points) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.points) {
		end = len(m.points)
	}
	return m.points[offset:end], nil
}

func (m *mockTrackRepo) Count(ctx context.Context, sessionID string) (int, error) {
	return len(m.points), nil
}

func (m *mockTrackRepo) DeleteBySession(ctx context.Context, sessionID string) error {
	m.points = nil
	return nil
}

// ---- Test helpers ----

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	tracks := &mockTrackRepo{}
	d := &handler.Dependencies{
		Sessions: usecases.NewSessionService(usecases.SessionDeps{
			Discovery: &mockDiscovery{},
			Routes:    &mockRouter{},
			Tracks:    tracks,
		}, usecases.SessionOptions{}),
		Tracks: tracks,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, b
}

func createSession(t *testing.T, app *fiber.App) domain.Session {
	t.Helper()
	status, body := doJSON(t, app, "POST", "/v1/sessions", "")
	if status != 201 {
		t.Fatalf("create session: expected 201, got %d", status)
	}
	var sess domain.Session
	if err := json.Unmarshal(body, &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return sess
}

// ---- Session handler tests ----

func TestCreateSession(t *testing.T) {
	app := setupApp(makeDeps())
	sess := createSession(t, app)
	if sess.ID == "" {
		t.Error("expected a session id")
	}
	if sess.State != domain.StateIdle {
		t.Errorf("expected idle state, got %s", sess.State)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	app := setupApp(makeDeps())
	status, _ := doJSON(t, app, "GET", "/v1/sessions/unknown", "")
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestSearch_Success(t *testing.T) {
	app := setupApp(makeDeps())
	sess := createSession(t, app)

	status, body := doJSON(t, app, "POST", "/v1/sessions/"+sess.ID+"/search", `{"query":"Bilbao"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var updated domain.Session
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatal(err)
	}
	if updated.CityLabel != "Bilbao" {
		t.Errorf("expected city label, got %q", updated.CityLabel)
	}
	if len(updated.PointsOfInterest) != 1 || len(updated.Districts) != 1 {
		t.Errorf("discovery not applied: %+v", updated)
	}
	if updated.Loading {
		t.Error("loading must be cleared in the response snapshot")
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	app := setupApp(makeDeps())
	sess := createSession(t, app)

	status, _ := doJSON(t, app, "POST", "/v1/sessions/"+sess.ID+"/search", `{"query":""}`)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
}

func TestSelectTarget_Flow(t *testing.T) {
	app := setupApp(makeDeps())
	sess := createSession(t, app)

	doJSON(t, app, "POST", "/v1/sessions/"+sess.ID+"/search", `{"query":"Bilbao"}`)
	doJSON(t, app, "POST", "/v1/sessions/"+sess.ID+"/location", `{"lat":43.25,"lng":-2.92}`)

	_, body := doJSON(t, app, "GET", "/v1/sessions/"+sess.ID, "")
	var current domain.Session
	if err := json.Unmarshal(body, &current); err != nil {
		t.Fatal(err)
	}
	targetID := current.PointsOfInterest[0].ID

	status, body := doJSON(t, app, "POST", "/v1/sessions/"+sess.ID+"/target",
		fmt.Sprintf(`{"target_id":%q}`, targetID))
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var updated domain.Session
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatal(err)
	}
	if updated.ActiveRoute == nil || updated.ActiveRoute.DistanceText != "1.2 km" {
		t.Errorf("expected an active route, got %+v", updated.ActiveRoute)
	}
	if updated.State != domain.StatePreviewing {
		t.Errorf("expected previewing state, got %s", updated.State)
	}

	// Clearing the route returns the session to idle.
	status, _ = doJSON(t, app, "DELETE", "/v1/sessions/"+sess.ID+"/route", "")
	if status != 204 {
		t.Fatalf("expected 204, got %d", status)
	}
}

func TestSelectTarget_Unknown(t *testing.T) {
	app := setupApp(makeDeps())
	sess := createSession(t, app)
	doJSON(t, app, "POST", "/v1/sessions/"+sess.ID+"/search", `{"query":"Bilbao"}`)

	status, _ := doJSON(t, app, "POST", "/v1/sessions/"+sess.ID+"/target", `{"target_id":"missing"}`)
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestPointStatus(t *testing.T) {
	app := setupApp(makeDeps())
	sess := createSession(t, app)
	doJSON(t, app, "POST", "/v1/sessions/"+sess.ID+"/search", `{"query":"Bilbao"}`)

	_, body := doJSON(t, app, "GET", "/v1/sessions/"+sess.ID, "")
	var current domain.Session
	json.Unmarshal(body, &current)
	pointID := current.PointsOfInterest[0].ID

	status, _ := doJSON(t, app, "POST", "/v1/sessions/"+sess.ID+"/points/"+pointID+"/status", `{"status":"success"}`)
	if status != 204 {
		t.Fatalf("expected 204, got %d", status)
	}

	status, _ = doJSON(t, app, "POST", "/v1/sessions/"+sess.ID+"/points/"+pointID+"/status", `{"status":"bogus"}`)
	if status != 400 {
		t.Fatalf("expected 400 for invalid status, got %d", status)
	}

	_, body = doJSON(t, app, "GET", "/v1/sessions/"+sess.ID, "")
	json.Unmarshal(body, &current)
	if current.PointsOfInterest[0].Status != domain.StatusSuccess {
		t.Errorf("expected success status, got %s", current.PointsOfInterest[0].Status)
	}
}

func TestTrackEndpoint(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)
	sess := createSession(t, app)

	doJSON(t, app, "POST", "/v1/sessions/"+sess.ID+"/tracking/start", "")
	doJSON(t, app, "POST", "/v1/sessions/"+sess.ID+"/location", `{"lat":43.0,"lng":-2.9}`)
	doJSON(t, app, "POST", "/v1/sessions/"+sess.ID+"/location", `{"lat":43.01,"lng":-2.9}`)

	status, body := doJSON(t, app, "GET", "/v1/sessions/"+sess.ID+"/track", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	var result struct {
		Data       []domain.TrackPoint `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 2 || len(result.Data) != 2 {
		t.Errorf("expected 2 track points, got %+v", result)
	}
}

func TestUpdateLocation_Accepted(t *testing.T) {
	app := setupApp(makeDeps())
	sess := createSession(t, app)

	status, _ := doJSON(t, app, "POST", "/v1/sessions/"+sess.ID+"/location", `{"lat":43.26,"lng":-2.93}`)
	if status != 202 {
		t.Fatalf("expected 202, got %d", status)
	}
}

func TestEndSession(t *testing.T) {
	app := setupApp(makeDeps())
	sess := createSession(t, app)

	status, _ := doJSON(t, app, "DELETE", "/v1/sessions/"+sess.ID, "")
	if status != 204 {
		t.Fatalf("expected 204, got %d", status)
	}
	status, _ = doJSON(t, app, "GET", "/v1/sessions/"+sess.ID, "")
	if status != 404 {
		t.Fatalf("expected 404 after end, got %d", status)
	}
}

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())
	status, body := doJSON(t, app, "GET", "/v1/health", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), "healthy") {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestGraphQL_Session(t *testing.T) {
	app := setupApp(makeDeps())
	sess := createSession(t, app)

	query := fmt.Sprintf(`{"query":"{ session(id: \"%s\") { id state } }"}`, sess.ID)
	status, body := doJSON(t, app, "POST", "/graphql", query)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var result struct {
		Data struct {
			Session struct {
				ID    string `json:"id"`
				State string `json:"state"`
			} `json:"session"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if result.Data.Session.ID != sess.ID || result.Data.Session.State != "idle" {
		t.Errorf("unexpected graphql result: %s", body)
	}
}
