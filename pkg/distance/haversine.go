package distance

import (
	"fmt"
	"math"

	"github.com/yuriiter/bixistrava/pkg/faults"
	"github.com/yuriiter/bixistrava/pkg/models"
)

// HaversineCalculator estimates each trip as the straight-line distance
// between its two stations. Used when no Google Maps API key is configured;
// undercounts real cycling routes.
type HaversineCalculator struct{}

func (HaversineCalculator) Distances(trips []models.Trip) ([]float64, error) {
	distances := make([]float64, len(trips))
	for i, t := range trips {
		if !t.Complete() {
			return nil, &faults.DataIntegrityError{
				Msg: fmt.Sprintf("trip %d has an unresolved station, can't compute distance", i),
			}
		}
		distances[i] = haversineMeters(
			t.StartStation.Latitude, t.StartStation.Longitude,
			t.EndStation.Latitude, t.EndStation.Longitude,
		)
	}
	return distances, nil
}

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusM = 6371000.0

	dLat := (lat2 - lat1) * (math.Pi / 180.0)
	dLon := (lon2 - lon1) * (math.Pi / 180.0)

	lat1 = lat1 * (math.Pi / 180.0)
	lat2 = lat2 * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}
