package animation

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultGeometry(t *testing.T) {
	g := DefaultGeometry()
	if err := g.Validate(); err != nil {
		t.Fatalf("Default geometry should be valid: %v", err)
	}

	if got := g.TurnLeftDistance(); math.Abs(got-2*math.Pi*38/4) > 1e-9 {
		t.Errorf("Unexpected left turn distance %v", got)
	}
	if got := g.TurnAroundDistance(); math.Abs(got-math.Pi*12) > 1e-9 {
		t.Errorf("Unexpected turn-around distance %v", got)
	}
	if got := g.TurnAroundSettle(); got != 45*time.Millisecond {
		t.Errorf("Expected 45ms settle, got %v", got)
	}
	if got := g.CollisionFactor(); math.Abs(got-60.0/140.0) > 1e-9 {
		t.Errorf("Unexpected collision factor %v", got)
	}
}

func TestGeometryValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Geometry)
	}{
		{"zero grid", func(g *Geometry) { g.GridSpaceSize = 0 }},
		{"road wider than grid", func(g *Geometry) { g.RoadWidth = 120 }},
		{"equal turn radii", func(g *Geometry) { g.TurnLeftRadius = g.TurnRightRadius }},
		{"crash fraction above one", func(g *Geometry) { g.CrashForwardFraction = 1.5 }},
		{"negative padding", func(g *Geometry) { g.PaperPadding = -1 }},
		{"NaN radius", func(g *Geometry) { g.TurnAroundRadius = math.NaN() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := DefaultGeometry()
			tt.mutate(&g)
			if err := g.Validate(); !errors.Is(err, ErrInvalidGeometry) {
				t.Errorf("Expected ErrInvalidGeometry, got %v", err)
			}
		})
	}
}

func TestLoadGeometry(t *testing.T) {
	dir := t.TempDir()

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(dir, "geometry.yaml")
		content := "grid_space_size: 120\nroad_width: 30\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		g, err := LoadGeometry(path)
		if err != nil {
			t.Fatalf("LoadGeometry failed: %v", err)
		}
		if g.GridSpaceSize != 120 || g.RoadWidth != 30 {
			t.Errorf("Expected overrides to apply, got %+v", g)
		}
		if g.TurnRightRadius != 62 {
			t.Errorf("Expected default right radius, got %v", g.TurnRightRadius)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(path, []byte("road_width: 500\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadGeometry(path); !errors.Is(err, ErrInvalidGeometry) {
			t.Errorf("Expected ErrInvalidGeometry, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadGeometry(filepath.Join(dir, "missing.yaml")); err == nil {
			t.Error("Expected error for missing file")
		}
	})
}

func TestTransformStepString(t *testing.T) {
	tests := []struct {
		step TransformStep
		want string
	}{
		{Translation(0, -100), "t0,-100"},
		{TransformStep{Translate: &Point{Y: -100}, Scale: 2}, "t0,-100s2"},
		{Rotation(-90, &Point{X: -18, Y: 10}), "r-90,-18,10"},
		{Rotation(90, nil), "r90"},
		{Scaling(1.5), "s1.5"},
		{Translation(12.25, 0), "t12.25,0"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.step.String(); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
			if got := tt.step.Relative(); got != "..."+tt.want {
				t.Errorf("Expected ...%s, got %s", tt.want, got)
			}
		})
	}

	if !Translation(0, 0).IsIdentity() {
		t.Error("Zero translation should be identity")
	}
	if Rotation(45, nil).IsIdentity() {
		t.Error("Rotation should not be identity")
	}
}
