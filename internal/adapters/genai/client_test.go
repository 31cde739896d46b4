package genai_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/osoko/wayfind/internal/adapters/genai"
	"github.com/osoko/wayfind/internal/core/domain"
)

func candidateResponse(text string) string {
	payload := fmt.Sprintf("%q", text)
	return `{"candidates":[{"content":{"parts":[{"text":` + payload + `}]}}]}`
}

func TestClient_ResolvePlace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		fmt.Fprint(w, candidateResponse(`{"lat": 43.263, "lng": -2.935}`))
	}))
	defer srv.Close()

	c := genai.New(srv.URL, "test-key", "test-model", time.Second)
	coord, err := c.ResolvePlace(context.Background(), "Bilbao")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coord.Lat != 43.263 || coord.Lng != -2.935 {
		t.Errorf("unexpected coordinate: %+v", coord)
	}
}

func TestClient_ResolvePlace_FencedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candidateResponse("```json\n{\"lat\": 39.8, \"lng\": -89.65}\n```"))
	}))
	defer srv.Close()

	c := genai.New(srv.URL, "test-key", "test-model", time.Second)
	coord, err := c.ResolvePlace(context.Background(), "Springfield")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coord.Lat != 39.8 {
		t.Errorf("unexpected coordinate: %+v", coord)
	}
}

func TestClient_ResolvePlace_NoCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candidateResponse(`{"error": "unknown place"}`))
	}))
	defer srv.Close()

	c := genai.New(srv.URL, "test-key", "test-model", time.Second)
	_, err := c.ResolvePlace(context.Background(), "Atlantis")
	if !errors.Is(err, domain.ErrResolution) {
		t.Fatalf("expected ErrResolution, got %v", err)
	}
}

func TestClient_Discover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candidateResponse(`{
			"cityName": "Bilbao",
			"cityPopulation": "about 350,000",
			"bars": [{"name": "Cafe Iruna", "lat": 43.2625, "lng": -2.934}],
			"districts": [{"name": "Casco Viejo", "lat": 43.259, "lng": -2.923}]
		}`))
	}))
	defer srv.Close()

	c := genai.New(srv.URL, "test-key", "test-model", time.Second)
	disc, err := c.Discover(context.Background(), domain.Coordinate{Lat: 43.263, Lng: -2.935}, "Bilbao")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if disc.CityName != "Bilbao" || len(disc.Businesses) != 1 || len(disc.Districts) != 1 {
		t.Errorf("unexpected discovery: %+v", disc)
	}
}

func TestClient_Discover_MissingFieldsDegrade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candidateResponse(`{"cityName": "Bilbao"}`))
	}))
	defer srv.Close()

	c := genai.New(srv.URL, "test-key", "test-model", time.Second)
	disc, err := c.Discover(context.Background(), domain.Coordinate{Lat: 43.263, Lng: -2.935}, "Bilbao")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(disc.Businesses) != 0 || len(disc.Districts) != 0 {
		t.Errorf("missing fields must degrade to empty slices, got %+v", disc)
	}
}

func TestClient_Discover_UnparseablePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candidateResponse(`here are some nice places to visit`))
	}))
	defer srv.Close()

	c := genai.New(srv.URL, "test-key", "test-model", time.Second)
	_, err := c.Discover(context.Background(), domain.Coordinate{Lat: 43.263, Lng: -2.935}, "Bilbao")
	if !errors.Is(err, domain.ErrDiscovery) {
		t.Fatalf("expected ErrDiscovery, got %v", err)
	}
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := genai.New(srv.URL, "test-key", "test-model", time.Second)
	if _, err := c.ResolvePlace(context.Background(), "Bilbao"); err == nil {
		t.Fatal("expected an error on provider failure")
	}
}
