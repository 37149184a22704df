package geo

import (
	"errors"
	"testing"

	"github.com/OCAP2/tactical/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

func TestPositionFromString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    core.Position
		wantErr bool
	}{
		{"integers", "3,4", core.Position{X: 3, Y: 4}, false},
		{"spaces", " 3 , 4 ", core.Position{X: 3, Y: 4}, false},
		{"bracketed", "[7,1]", core.Position{X: 7, Y: 1}, false},
		{"integral floats", "3.00,4.0", core.Position{X: 3, Y: 4}, false},
		{"negative", "-1,2", core.Position{X: -1, Y: 2}, false},
		{"fraction", "3.5,4", core.Position{}, true},
		{"one value", "3", core.Position{}, true},
		{"three values", "1,2,3", core.Position{}, true},
		{"not a number", "a,b", core.Position{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PositionFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCoordinates) {
					t.Errorf("expected ErrInvalidCoordinates, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPointFromPosition(t *testing.T) {
	pt := PointFromPosition(core.Position{X: 12, Y: 3})

	xy, ok := pt.XY()
	if !ok {
		t.Fatal("expected non-empty point")
	}
	if xy.X != 12 || xy.Y != 3 {
		t.Errorf("expected (12,3), got (%f,%f)", xy.X, xy.Y)
	}

	back, err := PositionFromPoint(pt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back != (core.Position{X: 12, Y: 3}) {
		t.Errorf("expected (12,3), got %v", back)
	}
}

func TestPositionFromPoint_Empty(t *testing.T) {
	_, err := PositionFromPoint(geom.NewEmptyPoint(geom.DimXY))
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestPathToLineString(t *testing.T) {
	path := []core.Position{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 1}}
	ls := PathToLineString(path)

	if ls.IsEmpty() {
		t.Fatal("expected non-empty line string")
	}
	if n := ls.Coordinates().Length(); n != 3 {
		t.Fatalf("expected 3 points, got %d", n)
	}

	back, err := LineStringToPath(ls)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range path {
		if back[i] != path[i] {
			t.Errorf("point %d: expected %v, got %v", i, path[i], back[i])
		}
	}
}

func TestPathToLineString_Short(t *testing.T) {
	if !PathToLineString(nil).IsEmpty() {
		t.Error("expected empty line string for nil path")
	}
	if !PathToLineString([]core.Position{{X: 1, Y: 1}}).IsEmpty() {
		t.Error("expected empty line string for a single tile")
	}

	path, err := LineStringToPath(geom.LineString{})
	if err != nil || path != nil {
		t.Errorf("expected nil path and no error, got %v, %v", path, err)
	}
}
