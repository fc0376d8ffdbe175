// Package geocode resolves store addresses to coordinates.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const addressSearchPath = "/v2/local/search/address.json"

// ErrUnauthorized is returned when the API rejects the key.
var ErrUnauthorized = errors.New("geocode: api key rejected")

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64
	Lng float64
}

// KakaoConfig configures the Kakao local API client.
type KakaoConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Kakao queries the Kakao local address search API.
type Kakao struct {
	client *resty.Client
}

type addressSearchResponse struct {
	Documents []struct {
		AddressName string `json:"address_name"`
		X           string `json:"x"`
		Y           string `json:"y"`
	} `json:"documents"`
}

// NewKakao builds a client authenticated with the REST API key.
func NewKakao(cfg KakaoConfig) (*Kakao, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("kakao api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://dapi.kakao.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetHeader("Authorization", "KakaoAK "+cfg.APIKey)
	client.SetTimeout(cfg.Timeout)
	return &Kakao{client: client}, nil
}

// Geocode returns the first match for address. ok is false when the API has
// no match.
func (k *Kakao) Geocode(ctx context.Context, address string) (Coordinates, bool, error) {
	var body addressSearchResponse
	res, err := k.client.R().
		SetContext(ctx).
		SetQueryParam("query", address).
		SetResult(&body).
		Get(addressSearchPath)
	if err != nil {
		return Coordinates{}, false, fmt.Errorf("address search: %w", err)
	}
	if res.StatusCode() == 401 || res.StatusCode() == 403 {
		return Coordinates{}, false, ErrUnauthorized
	}
	if res.IsError() {
		return Coordinates{}, false, fmt.Errorf("address search: unexpected status %d", res.StatusCode())
	}
	if len(body.Documents) == 0 {
		return Coordinates{}, false, nil
	}

	// x is longitude, y is latitude.
	doc := body.Documents[0]
	lng, err := strconv.ParseFloat(doc.X, 64)
	if err != nil {
		return Coordinates{}, false, fmt.Errorf("parse longitude %q: %w", doc.X, err)
	}
	lat, err := strconv.ParseFloat(doc.Y, 64)
	if err != nil {
		return Coordinates{}, false, fmt.Errorf("parse latitude %q: %w", doc.Y, err)
	}
	return Coordinates{Lat: lat, Lng: lng}, true, nil
}
