package geo

import (
	"fmt"
	"math"
)

const earthRadiusM = 6371000.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// HaversineM returns the great-circle distance between a and b in meters.
func HaversineM(a, b Point) float64 {
	if a == b {
		return 0
	}
	la1 := radians(a.Lat)
	la2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(la1)*math.Cos(la2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
}

func HaversineKm(a, b Point) float64 {
	return HaversineM(a, b) / 1000
}

// Bearing returns the initial course from a to b in degrees, 0 = north,
// 90 = east, normalized to [0, 360).
func Bearing(a, b Point) float64 {
	la1 := radians(a.Lat)
	la2 := radians(b.Lat)
	dLng := radians(b.Lng - a.Lng)

	y := math.Sin(dLng) * math.Cos(la2)
	x := math.Cos(la1)*math.Sin(la2) - math.Sin(la1)*math.Cos(la2)*math.Cos(dLng)
	deg := degrees(math.Atan2(y, x))
	return math.Mod(deg+360, 360)
}

// PerpendicularDistanceM returns the shortest distance in meters from p to the
// segment start-end. The projection runs in the locally flat lat/lng plane,
// accurate at city scale; the offset itself is measured with HaversineM.
func PerpendicularDistanceM(p, start, end Point) float64 {
	dLat := end.Lat - start.Lat
	dLng := end.Lng - start.Lng
	if dLat == 0 && dLng == 0 {
		return HaversineM(p, start)
	}

	t := ((p.Lat-start.Lat)*dLat + (p.Lng-start.Lng)*dLng) / (dLat*dLat + dLng*dLng)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	nearest := Point{Lat: start.Lat + t*dLat, Lng: start.Lng + t*dLng}
	return HaversineM(p, nearest)
}

// Cell is a spatial grid cell. At level L the world splits into 2^L columns of
// longitude and 2^L rows of latitude; ids follow "L{level}_{x}_{y}".
type Cell struct {
	ID     string
	Level  int
	X      int
	Y      int
	Center Point
	MinLat float64
	MinLng float64
	MaxLat float64
	MaxLng float64
}

// CellAt returns the grid cell containing p at zoom level 1-15. Out-of-range
// levels clamp to the nearest supported one.
func CellAt(p Point, level int) Cell {
	if level < 1 {
		level = 1
	} else if level > 15 {
		level = 15
	}
	n := 1 << uint(level)
	lngSize := 360.0 / float64(n)
	latSize := 180.0 / float64(n)

	x := int(math.Floor((p.Lng + 180) / lngSize))
	y := int(math.Floor((p.Lat + 90) / latSize))
	if x < 0 {
		x = 0
	} else if x > n-1 {
		x = n - 1
	}
	if y < 0 {
		y = 0
	} else if y > n-1 {
		y = n - 1
	}

	minLng := -180 + float64(x)*lngSize
	minLat := -90 + float64(y)*latSize
	return Cell{
		ID:     fmt.Sprintf("L%d_%d_%d", level, x, y),
		Level:  level,
		X:      x,
		Y:      y,
		Center: Point{Lat: minLat + latSize/2, Lng: minLng + lngSize/2},
		MinLat: minLat,
		MinLng: minLng,
		MaxLat: minLat + latSize,
		MaxLng: minLng + lngSize,
	}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
