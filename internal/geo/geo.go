// Package geo converts engagement coordinates into simplefeatures geometries for
// storage and bounds checks.
//
// Geometry is stored as WKB in plain pixel space. There is no spatial reference: a
// game map has no geodetic anchor.
package geo

import (
	"errors"
	"strconv"
	"strings"

	"github.com/OCAP2/combatsim/pkg/core"
	"github.com/OCAP2/combatsim/pkg/sim"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Point converts a pixel position into a 2D point.
func Point(p core.Position) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: float64(p.X), Y: float64(p.Y)},
		Type: geom.DimXY,
	})
}

// RegionPolygon returns the pixel footprint of a tile region.
func RegionPolygon(r core.Region) geom.Polygon {
	x0 := float64(r.X * sim.TileSize)
	y0 := float64(r.Y * sim.TileSize)
	x1 := float64((r.X + r.Width) * sim.TileSize)
	y1 := float64((r.Y + r.Height) * sim.TileSize)

	seq := geom.NewSequence([]float64{
		x0, y0,
		x1, y0,
		x1, y1,
		x0, y1,
		x0, y0,
	}, geom.DimXY)
	return geom.NewPolygon([]geom.LineString{geom.NewLineString(seq)})
}

// InRegion reports whether p lies inside the region or on its edge.
func InRegion(r core.Region, p core.Position) bool {
	if r.Width <= 0 || r.Height <= 0 {
		return false
	}
	return geom.Intersects(RegionPolygon(r).AsGeometry(), Point(p).AsGeometry())
}

// PositionFromString parses an "x,y" pixel coordinate.
func PositionFromString(coords string) (core.Position, error) {
	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return core.Position{}, ErrInvalidCoordinates
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return core.Position{}, ErrInvalidCoordinates
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return core.Position{}, ErrInvalidCoordinates
	}
	return core.Position{X: x, Y: y}, nil
}
