package usecases_test

import (
	"context"
	"testing"

	"github.com/osoko/wayfind/internal/core/domain"
	"github.com/osoko/wayfind/internal/core/usecases"
)

func TestGeoCache_CoordKeyQuantizes(t *testing.T) {
	g := usecases.NewGeoCache(newMockCache(), 4)

	a := g.CoordKey("discovery", domain.Coordinate{Lat: 43.26301, Lng: -2.93502})
	b := g.CoordKey("discovery", domain.Coordinate{Lat: 43.26299, Lng: -2.93498})
	if a != b {
		t.Errorf("nearby coordinates must share a key: %q vs %q", a, b)
	}

	c := g.CoordKey("discovery", domain.Coordinate{Lat: 43.27, Lng: -2.93502})
	if a == c {
		t.Error("distinct locations must not collide")
	}
}

func TestGeoCache_QueryKeyNormalizes(t *testing.T) {
	g := usecases.NewGeoCache(newMockCache(), 4)

	a := g.QueryKey("geocode", "  Springfield,   Illinois ")
	b := g.QueryKey("geocode", "springfield, illinois")
	if a != b {
		t.Errorf("equivalent queries must share a key: %q vs %q", a, b)
	}
}

func TestGeoCache_RoundTrip(t *testing.T) {
	g := usecases.NewGeoCache(newMockCache(), 4)
	ctx := context.Background()

	key := g.QueryKey("geocode", "Bilbao")
	var out domain.Coordinate
	if g.Get(ctx, "resolve_place", key, &out) {
		t.Fatal("expected a miss on an empty cache")
	}

	g.Put(ctx, key, domain.Coordinate{Lat: 43.263, Lng: -2.935})
	if !g.Get(ctx, "resolve_place", key, &out) {
		t.Fatal("expected a hit after put")
	}
	if out.Lat != 43.263 || out.Lng != -2.935 {
		t.Errorf("unexpected cached value: %+v", out)
	}
}

func TestGeoCache_NilBackendAlwaysMisses(t *testing.T) {
	g := usecases.NewGeoCache(nil, 4)
	ctx := context.Background()

	g.Put(ctx, "geocode:bilbao", domain.Coordinate{Lat: 1, Lng: 2})
	var out domain.Coordinate
	if g.Get(ctx, "resolve_place", "geocode:bilbao", &out) {
		t.Error("nil backend must never hit")
	}
}
