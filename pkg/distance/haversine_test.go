package distance_test

import (
	"errors"
	"math"
	"testing"

	"github.com/yuriiter/bixistrava/pkg/distance"
	"github.com/yuriiter/bixistrava/pkg/faults"
	"github.com/yuriiter/bixistrava/pkg/models"
)

func TestHaversine_KnownDistance(t *testing.T) {
	// Two points 0.01 degrees of latitude apart: ~1111.95 m.
	a := &models.Station{Name: "A", Latitude: 45.50, Longitude: -73.57}
	b := &models.Station{Name: "B", Latitude: 45.51, Longitude: -73.57}

	distances, err := distance.HaversineCalculator{}.Distances([]models.Trip{
		{StartStation: a, EndStation: b},
	})
	if err != nil {
		t.Fatalf("Distances: %v", err)
	}
	if math.Abs(distances[0]-1111.95) > 1.0 {
		t.Fatalf("distance = %v, want ~1111.95", distances[0])
	}
}

func TestHaversine_RoundTripIsZero(t *testing.T) {
	a := &models.Station{Name: "A", Latitude: 45.5121, Longitude: -73.5708}

	distances, err := distance.HaversineCalculator{}.Distances([]models.Trip{
		{StartStation: a, EndStation: a},
	})
	if err != nil {
		t.Fatalf("Distances: %v", err)
	}
	if distances[0] != 0 {
		t.Fatalf("distance = %v, want 0", distances[0])
	}
}

func TestHaversine_UnresolvedStationIsDataIntegrityFault(t *testing.T) {
	a := &models.Station{Name: "A", Latitude: 45.5121, Longitude: -73.5708}

	_, err := distance.HaversineCalculator{}.Distances([]models.Trip{
		{StartStation: a, EndStation: nil},
	})
	var de *faults.DataIntegrityError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DataIntegrityError", err)
	}
}
