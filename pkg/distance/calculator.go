package distance

import "github.com/yuriiter/bixistrava/pkg/models"

// Calculator computes one distance in meters per trip, index-aligned with
// the input.
type Calculator interface {
	Distances(trips []models.Trip) ([]float64, error)
}
