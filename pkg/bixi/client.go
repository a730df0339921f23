package bixi

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuriiter/bixistrava/pkg/faults"
	"github.com/yuriiter/bixistrava/pkg/models"
	"github.com/yuriiter/bixistrava/pkg/utils"
)

const (
	defaultLoginURL      = "https://secure.bixi.com/profile/login"
	defaultLoginCheckURL = "https://secure.bixi.com/profile/login_check"
	defaultTripsURL      = "https://secure.bixi.com/profile/trips"
	defaultStationsURL   = "https://gbfs.velobixi.com/gbfs/en/station_information.json"

	loginFormID    = "loginPopupId"
	tripInfoPrefix = "ed-html-table__item__info_trip-"

	// Trip timestamps are wall-clock time in the operator's region.
	tripTimeZone   = "America/Montreal"
	tripTimeLayout = "02/01/2006 15:04:05"
	dateRangeQuery = "02/01/2006"
)

// Client talks to the Bixi member site. Login is form-based; the session
// lives in the cookie jar.
type Client struct {
	LoginURL      string
	LoginCheckURL string
	TripsURL      string
	StationsURL   string

	account string
	http    *http.Client
	loc     *time.Location
}

func NewClient(account string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(tripTimeZone)
	if err != nil {
		return nil, fmt.Errorf("load %s tzdata: %w", tripTimeZone, err)
	}
	return &Client{
		LoginURL:      defaultLoginURL,
		LoginCheckURL: defaultLoginCheckURL,
		TripsURL:      defaultTripsURL,
		StationsURL:   defaultStationsURL,
		account:       account,
		http:          &http.Client{Jar: jar, Timeout: 30 * time.Second},
		loc:           loc,
	}, nil
}

// Login fetches the login page, echoes back its hidden form fields with the
// credentials, and keeps the resulting session cookies. The site re-renders
// the login form on bad credentials instead of returning an error status, so
// a response still carrying the form is treated as a rejection.
func (c *Client) Login(username, password string) error {
	utils.DebugLog("Bixi: fetching login page")
	resp, err := c.http.Get(c.LoginURL)
	if err != nil {
		return &faults.TransientError{Op: "bixi: fetch login page", Err: err}
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return &faults.ParseError{Op: "bixi: parse login page", Msg: err.Error()}
	}
	form := doc.Find("#" + loginFormID)
	if form.Length() == 0 {
		return &faults.ParseError{Op: "bixi: parse login page", Msg: "login form #" + loginFormID + " not found"}
	}

	data := url.Values{}
	data.Set("_username", username)
	data.Set("_password", password)
	hidden := form.Find(`input[type="hidden"]`)
	if hidden.Length() == 0 {
		return &faults.ParseError{Op: "bixi: parse login page", Msg: "login form has no hidden inputs"}
	}
	hidden.Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok {
			return
		}
		value, _ := s.Attr("value")
		data.Set(name, value)
	})

	utils.DebugLog("Bixi: posting credentials")
	resp, err = c.http.PostForm(c.LoginCheckURL, data)
	if err != nil {
		return &faults.TransientError{Op: "bixi: login check", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &faults.AuthError{Op: "bixi: login", Msg: fmt.Sprintf("login check returned status %d", resp.StatusCode)}
	}
	doc, err = goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return &faults.ParseError{Op: "bixi: parse login response", Msg: err.Error()}
	}
	if doc.Find("#" + loginFormID).Length() > 0 {
		return &faults.AuthError{Op: "bixi: login", Msg: "credentials rejected (login form re-rendered)"}
	}
	return nil
}

// Stations fetches the public GBFS station feed. Whole-feed snapshot, no
// pagination.
func (c *Client) Stations() ([]models.Station, error) {
	utils.DebugLog("Bixi: fetching station feed")
	resp, err := c.http.Get(c.StationsURL)
	if err != nil {
		return nil, &faults.TransientError{Op: "bixi: fetch stations", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &faults.TransientError{Op: "bixi: fetch stations", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var feed struct {
		Data struct {
			Stations []struct {
				StationID string  `json:"station_id"`
				Name      string  `json:"name"`
				Lat       float64 `json:"lat"`
				Lon       float64 `json:"lon"`
			} `json:"stations"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, &faults.ParseError{Op: "bixi: parse station feed", Msg: err.Error()}
	}

	stations := make([]models.Station, 0, len(feed.Data.Stations))
	for _, s := range feed.Data.Stations {
		stations = append(stations, models.Station{
			ID:        s.StationID,
			Name:      s.Name,
			Latitude:  s.Lat,
			Longitude: s.Lon,
		})
	}
	return stations, nil
}

// Trips fetches the print-preview trip listing for [start, end] (inclusive,
// day granularity) and parses it. Trips come back in source row order. A
// station name missing from the directory snapshot leaves a nil station
// reference on the trip; callers decide whether that is fatal.
func (c *Client) Trips(start, end time.Time) ([]models.Trip, error) {
	stations, err := c.Stations()
	if err != nil {
		return nil, err
	}
	// Last write wins on duplicate names.
	byName := make(map[string]models.Station, len(stations))
	for _, s := range stations {
		byName[s.Name] = s
	}

	req, err := http.NewRequest("GET", fmt.Sprintf("%s/%s/print/preview", c.TripsURL, c.account), nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("edTripsPrint[startDate]", start.Format(dateRangeQuery))
	q.Set("edTripsPrint[endDate]", end.Format(dateRangeQuery))
	req.URL.RawQuery = q.Encode()

	utils.DebugLog("Bixi: fetching trips %s", req.URL)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &faults.TransientError{Op: "bixi: fetch trips", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &faults.AuthError{Op: "bixi: fetch trips", Msg: fmt.Sprintf("status %d (expired session?)", resp.StatusCode)}
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &faults.ParseError{Op: "bixi: parse trips", Msg: err.Error()}
	}

	body := doc.Find("tbody.ed-html-table__items")
	if body.Length() == 0 {
		return nil, &faults.ParseError{Op: "bixi: parse trips", Msg: "trip table body not found"}
	}
	rows := body.Find("tr")

	// Rows come in start/end pairs; an odd trailing row is dropped.
	trips := []models.Trip{}
	for i := 0; i+1 < rows.Length(); i += 2 {
		trip, err := c.parseTripRows(rows.Eq(i), rows.Eq(i+1), byName, i)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, nil
}

func (c *Client) parseTripRows(startRow, endRow *goquery.Selection, byName map[string]models.Station, rowIdx int) (models.Trip, error) {
	var trip models.Trip

	startTime, err := c.rowTime(startRow, "start", rowIdx)
	if err != nil {
		return trip, err
	}
	endTime, err := c.rowTime(endRow, "end", rowIdx+1)
	if err != nil {
		return trip, err
	}
	if endTime.Before(startTime) {
		return trip, &faults.ParseError{
			Op:  "bixi: parse trips",
			Msg: fmt.Sprintf("row %d: trip ends (%s) before it starts (%s)", rowIdx, endTime, startTime),
		}
	}

	trip.StartTime = startTime
	trip.EndTime = endTime
	trip.StartStationName = rowStation(startRow, "start")
	trip.EndStationName = rowStation(endRow, "end")

	if s, ok := byName[trip.StartStationName]; ok {
		trip.StartStation = &s
	} else {
		log.Printf("bixi: missing start station %q", trip.StartStationName)
	}
	if s, ok := byName[trip.EndStationName]; ok {
		trip.EndStation = &s
	} else {
		log.Printf("bixi: missing end station %q", trip.EndStationName)
	}
	return trip, nil
}

// rowTime pulls the DD/MM/YYYY HH:MM:SS string out of the date cell. The cell
// holds an icon element followed by a text node; the timestamp is the text
// node.
func (c *Client) rowTime(row *goquery.Selection, side string, rowIdx int) (time.Time, error) {
	cell := row.Find("." + tripInfoPrefix + side + "-date")
	if cell.Length() == 0 {
		return time.Time{}, &faults.ParseError{
			Op:  "bixi: parse trips",
			Msg: fmt.Sprintf("row %d: %s-date cell not found", rowIdx, side),
		}
	}
	raw := strings.TrimSpace(cell.Contents().Eq(1).Text())
	parsed, err := time.ParseInLocation(tripTimeLayout, raw, c.loc)
	if err != nil {
		return time.Time{}, &faults.ParseError{
			Op:  "bixi: parse trips",
			Msg: fmt.Sprintf("row %d: bad %s date %q", rowIdx, side, raw),
		}
	}
	return parsed, nil
}

func rowStation(row *goquery.Selection, side string) string {
	return strings.TrimSpace(row.Find("." + tripInfoPrefix + side + "-station").Text())
}
