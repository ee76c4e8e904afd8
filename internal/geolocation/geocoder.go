package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Geocoder turns coordinates into an address.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}

// NominatimGeocoder queries an OpenStreetMap Nominatim reverse endpoint.
type NominatimGeocoder struct {
	endpoint  string
	userAgent string
	language  string
	client    *retryablehttp.Client
}

func NewNominatimGeocoder(endpoint, userAgent, language string) *NominatimGeocoder {
	c := retryablehttp.NewClient()
	c.RetryMax = 1
	c.HTTPClient.Timeout = 5 * time.Second
	c.Logger = nil

	return &NominatimGeocoder{
		endpoint:  endpoint,
		userAgent: userAgent,
		language:  language,
		client:    c,
	}
}

func (g *NominatimGeocoder) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("addressdetails", "1")
	q.Set("zoom", "18")
	if g.language != "" {
		q.Set("accept-language", g.language)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	// Nominatim's usage policy requires an identifying agent.
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocode: status %d", resp.StatusCode)
	}

	var body struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	return body.DisplayName, nil
}
