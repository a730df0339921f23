package strava

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yuriiter/bixistrava/pkg/faults"
	"github.com/yuriiter/bixistrava/pkg/utils"
)

const defaultAPIURL = "https://www.strava.com/api/v3"

// Client is a bearer-authenticated Strava API client.
type Client struct {
	APIURL string
	Tokens TokenBundle

	http *http.Client
}

func NewClient(tokens TokenBundle) *Client {
	return &Client{
		APIURL: defaultAPIURL,
		Tokens: tokens,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Activity is one workout to upload.
type Activity struct {
	Name           string
	Type           string
	StartDateLocal time.Time
	ElapsedTime    int
	Description    string
	Distance       float64
	Trainer        bool
	Commute        bool
}

// CreateActivity posts one activity and returns its id. No retry; a rerun
// over the same range duplicates activities, since Strava gets no
// idempotency key.
func (c *Client) CreateActivity(a Activity) (int64, error) {
	data := url.Values{}
	data.Set("name", a.Name)
	data.Set("type", a.Type)
	data.Set("start_date_local", a.StartDateLocal.Format(time.RFC3339))
	data.Set("elapsed_time", strconv.Itoa(a.ElapsedTime))
	if a.Description != "" {
		data.Set("description", a.Description)
	}
	if a.Distance > 0 {
		data.Set("distance", strconv.FormatFloat(a.Distance, 'f', -1, 64))
	}
	if a.Trainer {
		data.Set("trainer", "1")
	}
	if a.Commute {
		data.Set("commute", "1")
	}

	req, err := http.NewRequest("POST", c.APIURL+"/activities", strings.NewReader(data.Encode()))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.Tokens.AccessToken)

	utils.DebugLog("Strava: creating activity %q at %s", a.Name, data.Get("start_date_local"))
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &faults.TransientError{Op: "strava: create activity", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, &faults.PublishError{
			Op:  "strava: create activity",
			Msg: fmt.Sprintf("status %d: %s", resp.StatusCode, body),
		}
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return 0, &faults.ParseError{Op: "strava: create activity", Msg: err.Error()}
	}
	return created.ID, nil
}
