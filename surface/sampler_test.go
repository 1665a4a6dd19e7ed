package surface

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/parklife/geom"
)

func parkSampler(t *testing.T) *Sampler {
	t.Helper()
	patch, err := NewBezierPatch("hill", bumpGrid())
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	deck, err := NewDeck("terrace", geom.Rect{MinX: 12, MinZ: 0, MaxX: 18, MaxZ: 6}, 1, 1, 1, 1)
	if err != nil {
		t.Fatalf("deck: %v", err)
	}
	return NewSampler(geom.Rect{MinX: 0, MinZ: 0, MaxX: 20, MaxZ: 10}, patch, deck)
}

func TestSamplerScanFallback(t *testing.T) {
	s := parkSampler(t)

	info := s.Sample(5, 5, nil)
	if !info.Inside {
		t.Fatal("expected (5,5) walkable via region scan")
	}
	if info.Region == nil || info.Region.Name() != "hill" {
		t.Errorf("expected hill region metadata, got %v", info.Region)
	}

	if info := s.Sample(19.5, 9.5, nil); info.Inside {
		t.Error("expected gap between regions to be outside")
	}
}

// TestSamplerGridMatchesNewton verifies the accelerated height grid
// agrees with per-region numerical projection away from boundaries.
func TestSamplerGridMatchesNewton(t *testing.T) {
	s := parkSampler(t)
	hill := s.regions[0]
	s.BuildHeightGrid(0.25)

	for _, pt := range [][2]float32{{3, 3}, {5, 5}, {7, 4}, {4, 6}} {
		grid := s.Sample(pt[0], pt[1], nil)
		direct, ok := hill.HeightAt(pt[0], pt[1])
		if !grid.Inside || !ok {
			t.Errorf("(%g,%g): grid inside=%v, newton ok=%v", pt[0], pt[1], grid.Inside, ok)
			continue
		}
		if math.Abs(float64(grid.Height-direct)) > 1e-2 {
			t.Errorf("(%g,%g): grid %g vs newton %g", pt[0], pt[1], grid.Height, direct)
		}
	}
}

// TestSamplerCachePositiveOnly verifies the per-agent cache is refreshed
// on hits and untouched on misses.
func TestSamplerCachePositiveOnly(t *testing.T) {
	s := parkSampler(t)
	var cache Cache

	if info := s.Sample(5, 5, &cache); !info.Inside {
		t.Fatal("expected hit")
	}
	if !cache.valid || cache.region == nil {
		t.Fatal("expected cache populated after hit")
	}
	cached := cache.region

	// A miss must not clobber the cached region.
	if info := s.Sample(19.5, 9.5, &cache); info.Inside {
		t.Fatal("expected miss")
	}
	if !cache.valid || cache.region != cached {
		t.Error("cache was invalidated by a negative result")
	}

	// And the next nearby hit should still be answered.
	if info := s.Sample(5.1, 5.1, &cache); !info.Inside {
		t.Error("expected hit after miss")
	}
}

func TestSamplerNearestWalkable(t *testing.T) {
	s := parkSampler(t)
	s.BuildHeightGrid(0.5)

	// Already walkable: returned as-is.
	p, ok := s.NearestWalkable(5, 5, 10)
	if !ok {
		t.Fatal("expected walkable point")
	}
	if math.Abs(float64(p.X()-5)) > 1e-5 || math.Abs(float64(p.Z()-5)) > 1e-5 {
		t.Errorf("walkable input moved to %v", p)
	}

	// Between the hill (ends at x=10) and the terrace (starts at x=12):
	// clamp to whichever edge is closer.
	p, ok = s.NearestWalkable(11.5, 3, 10)
	if !ok {
		t.Fatal("expected clamp to succeed")
	}
	if p.X() < 9 || p.X() > 12.5 {
		t.Errorf("clamped point %v not near the gap edges", p)
	}
}

func TestSamplerBoundaryInfo(t *testing.T) {
	s := parkSampler(t)

	dist, n := s.BoundaryInfo(1, 5)
	if math.Abs(float64(dist-1)) > 1e-5 {
		t.Errorf("expected distance 1 to west edge, got %g", dist)
	}
	if n.X() != -1 || n.Z() != 0 {
		t.Errorf("expected outward normal (-1,0,0), got %v", n)
	}

	dist, n = s.BoundaryInfo(10, 9.5)
	if math.Abs(float64(dist-0.5)) > 1e-5 {
		t.Errorf("expected distance 0.5 to south edge, got %g", dist)
	}
	if n.Z() != 1 {
		t.Errorf("expected outward normal toward +Z, got %v", n)
	}
}

func TestSamplerRandomPointOnSomeRegion(t *testing.T) {
	s := parkSampler(t)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		p, ok := s.RandomPoint(rng)
		if !ok {
			t.Fatal("expected a point")
		}
		onAny := false
		for _, r := range s.regions {
			if r.Contains(p.X(), p.Z()) {
				onAny = true
				break
			}
		}
		if !onAny {
			t.Errorf("random point %v on no region", p)
		}
	}
}

func TestSamplerEmpty(t *testing.T) {
	s := NewSampler(geom.Rect{MinX: 0, MinZ: 0, MaxX: 10, MaxZ: 10})
	if info := s.Sample(5, 5, nil); info.Inside {
		t.Error("empty sampler reported inside")
	}
	if _, ok := s.RandomPoint(rand.New(rand.NewSource(1))); ok {
		t.Error("empty sampler produced a random point")
	}
}

var _ Projectable = (*BezierPatch)(nil)
var _ Projectable = (*BSplinePatch)(nil)
