package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/OCAP2/geoanchor/pkg/core"
)

func TestCoordinateFromString_ValidWithAltitude(t *testing.T) {
	c, err := CoordinateFromString("139.76561,35.68157,3.5")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Longitude != 139.76561 {
		t.Errorf("expected longitude=139.76561, got %f", c.Longitude)
	}
	if c.Latitude != 35.68157 {
		t.Errorf("expected latitude=35.68157, got %f", c.Latitude)
	}
	if !c.AltitudeValid || c.Altitude != 3.5 {
		t.Errorf("expected valid altitude=3.5, got %f (valid=%v)", c.Altitude, c.AltitudeValid)
	}
}

func TestCoordinateFromString_ValidWithoutAltitude(t *testing.T) {
	c, err := CoordinateFromString("-104.79974,39.51996")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Longitude != -104.79974 {
		t.Errorf("expected longitude=-104.79974, got %f", c.Longitude)
	}
	if c.AltitudeValid {
		t.Error("expected altitude to be invalid")
	}
}

func TestCoordinateFromString_TrimsWhitespace(t *testing.T) {
	c, err := CoordinateFromString(" 10.5 , 20.25 ")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Longitude != 10.5 || c.Latitude != 20.25 {
		t.Errorf("unexpected coordinate %+v", c)
	}
}

func TestCoordinateFromString_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"100.5",
		"abc,20",
		"20,xyz",
		"20,30,invalid",
		"20,30,40,50",
		"200,30",
		"20,-91",
	}

	for _, in := range inputs {
		_, err := CoordinateFromString(in)
		if err == nil {
			t.Errorf("%q: expected error", in)
			continue
		}
		if !errors.Is(err, ErrInvalidCoordinates) {
			t.Errorf("%q: expected ErrInvalidCoordinates, got %v", in, err)
		}
	}
}

func TestPoint3857_Origin(t *testing.T) {
	p := Point3857(core.NewCoordinate(0, 0))

	coords, ok := p.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if math.Abs(coords.X) > 1e-6 || math.Abs(coords.Y) > 1e-6 {
		t.Errorf("expected origin, got (%f, %f)", coords.X, coords.Y)
	}
	if coords.Z != 0 {
		t.Errorf("expected Z=0 without altitude, got %f", coords.Z)
	}
}

func TestPoint3857_CarriesAltitude(t *testing.T) {
	p := Point3857(core.NewCoordinate(35.68157, 139.76561).WithAltitude(3.5))

	coords, ok := p.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	// 139.76561 degrees east on the spherical mercator
	wantX := 139.76561 * math.Pi / 180 * 6378137
	if math.Abs(coords.X-wantX) > 0.01 {
		t.Errorf("expected X=%f, got %f", wantX, coords.X)
	}
	if coords.Y <= 0 {
		t.Errorf("expected positive Y in the northern hemisphere, got %f", coords.Y)
	}
	if coords.Z != 3.5 {
		t.Errorf("expected Z=3.5, got %f", coords.Z)
	}
}

func TestCoordinateFrom3857_RoundTrip(t *testing.T) {
	in := core.NewCoordinate(35.68157, 139.76561).WithAltitude(3.5)
	out := CoordinateFrom3857(Point3857(in), true)

	if math.Abs(out.Latitude-in.Latitude) > 1e-7 || math.Abs(out.Longitude-in.Longitude) > 1e-7 {
		t.Errorf("expected %f,%f got %f,%f", in.Latitude, in.Longitude, out.Latitude, out.Longitude)
	}
	if !out.AltitudeValid || out.Altitude != 3.5 {
		t.Errorf("expected altitude 3.5, got %+v", out)
	}

	out = CoordinateFrom3857(Point3857(in), false)
	if out.AltitudeValid {
		t.Error("expected altitude to stay invalid")
	}
}
