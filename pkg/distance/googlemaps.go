package distance

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yuriiter/bixistrava/pkg/faults"
	"github.com/yuriiter/bixistrava/pkg/models"
	"github.com/yuriiter/bixistrava/pkg/utils"
)

const defaultDistanceMatrixURL = "https://maps.googleapis.com/maps/api/distancematrix/json"

type matrixElement struct {
	Status   string `json:"status"`
	Distance struct {
		Value float64 `json:"value"`
	} `json:"distance"`
}

// GoogleMapsCalculator batches all trips into one Distance Matrix request
// with bicycling routing. Origins[i] pairs with destinations[i]: trip i's
// distance is rows[i].elements[i] when the provider returns the full square
// matrix, or the row's single element when it collapses to one per row.
type GoogleMapsCalculator struct {
	URL string

	apiKey string
	http   *http.Client
}

func NewGoogleMapsCalculator(apiKey string) *GoogleMapsCalculator {
	return &GoogleMapsCalculator{
		URL:    defaultDistanceMatrixURL,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *GoogleMapsCalculator) Distances(trips []models.Trip) ([]float64, error) {
	if len(trips) == 0 {
		return nil, nil
	}

	origins := make([]string, len(trips))
	destinations := make([]string, len(trips))
	for i, t := range trips {
		if !t.Complete() {
			return nil, &faults.DataIntegrityError{
				Msg: fmt.Sprintf("trip %d has an unresolved station, can't compute distance", i),
			}
		}
		origins[i] = fmt.Sprintf("%v,%v", t.StartStation.Latitude, t.StartStation.Longitude)
		destinations[i] = fmt.Sprintf("%v,%v", t.EndStation.Latitude, t.EndStation.Longitude)
	}

	req, err := http.NewRequest("GET", g.URL, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("key", g.apiKey)
	q.Set("origins", strings.Join(origins, "|"))
	q.Set("destinations", strings.Join(destinations, "|"))
	q.Set("mode", "bicycling")
	req.URL.RawQuery = q.Encode()

	utils.DebugLog("Google Maps: distance matrix for %d trips", len(trips))
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, &faults.TransientError{Op: "googlemaps: distance matrix", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &faults.TransientError{Op: "googlemaps: distance matrix", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var result struct {
		Status string `json:"status"`
		Rows   []struct {
			Elements []matrixElement `json:"elements"`
		} `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &faults.ParseError{Op: "googlemaps: distance matrix", Msg: err.Error()}
	}
	if result.Status != "" && result.Status != "OK" {
		return nil, &faults.ParseError{Op: "googlemaps: distance matrix", Msg: "response status " + result.Status}
	}
	if len(result.Rows) != len(trips) {
		return nil, &faults.ParseError{
			Op:  "googlemaps: distance matrix",
			Msg: fmt.Sprintf("got %d rows for %d trips", len(result.Rows), len(trips)),
		}
	}

	distances := make([]float64, len(trips))
	for i, row := range result.Rows {
		var el matrixElement
		switch {
		case len(row.Elements) == 1:
			el = row.Elements[0]
		case i < len(row.Elements):
			el = row.Elements[i]
		default:
			return nil, &faults.ParseError{
				Op:  "googlemaps: distance matrix",
				Msg: fmt.Sprintf("row %d has %d elements", i, len(row.Elements)),
			}
		}
		if el.Status != "" && el.Status != "OK" {
			return nil, &faults.ParseError{
				Op:  "googlemaps: distance matrix",
				Msg: fmt.Sprintf("no route for trip %d: %s", i, el.Status),
			}
		}
		distances[i] = el.Distance.Value
	}
	return distances, nil
}
