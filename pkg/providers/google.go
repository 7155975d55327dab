package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aroundme/aroundme/pkg/geo"
	"github.com/aroundme/aroundme/pkg/models"
)

const (
	googleBaseURL = "https://places.googleapis.com/v1"

	// googleMaxPerPage is the upstream ceiling of maxResultCount.
	googleMaxPerPage = 20

	// googleMaxRadiusM is the largest circle Places v1 accepts.
	googleMaxRadiusM = 50000
)

// googleFieldMask limits the response to the fields the normalizer reads.
var googleFieldMask = strings.Join([]string{
	"places.id", "places.displayName", "places.formattedAddress",
	"places.location", "places.rating", "places.userRatingCount",
	"places.priceLevel", "places.primaryType", "places.types",
	"places.nationalPhoneNumber", "places.websiteUri", "places.googleMapsUri",
	"places.editorialSummary",
	"places.goodForChildren", "places.goodForGroups",
	"places.outdoorSeating", "places.reservable", "places.allowsDogs",
	"places.servesBeer", "places.servesBreakfast", "places.servesBrunch",
	"places.servesDinner", "places.servesLunch",
	"places.servesVegetarianFood", "places.servesWine",
	"places.takeout", "places.delivery", "places.dineIn",
	"places.accessibilityOptions", "places.parkingOptions",
	"places.paymentOptions",
}, ",")

var googlePriceLevels = map[string]int{
	"PRICE_LEVEL_FREE":           0,
	"PRICE_LEVEL_INEXPENSIVE":    1,
	"PRICE_LEVEL_MODERATE":       2,
	"PRICE_LEVEL_EXPENSIVE":      3,
	"PRICE_LEVEL_VERY_EXPENSIVE": 4,
}

// GoogleProvider adapts the Google Places API v1.
type GoogleProvider struct {
	apiKey     string
	baseURL    string
	client     *http.Client
	maxRetries int
	logger     *slog.Logger
}

// NewGoogleProvider builds the adapter. timeout bounds each upstream call.
func NewGoogleProvider(apiKey string, timeout time.Duration, maxRetries int) *GoogleProvider {
	return &GoogleProvider{
		apiKey:     apiKey,
		baseURL:    googleBaseURL,
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		logger:     slog.With("provider", "google"),
	}
}

// Name implements SearchProvider.
func (g *GoogleProvider) Name() models.Provider { return models.ProviderGoogle }

// googleResponse mirrors the slice of the wire format the normalizer needs.
type googleResponse struct {
	Places []googlePlace `json:"places"`
}

type googlePlace struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string `json:"formattedAddress"`
	Location         *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Rating              *float64 `json:"rating"`
	UserRatingCount     *int     `json:"userRatingCount"`
	PriceLevel          string   `json:"priceLevel"`
	PrimaryType         string   `json:"primaryType"`
	Types               []string `json:"types"`
	NationalPhoneNumber string   `json:"nationalPhoneNumber"`
	WebsiteURI          string   `json:"websiteUri"`
	GoogleMapsURI       string   `json:"googleMapsUri"`
	EditorialSummary    *struct {
		Text string `json:"text"`
	} `json:"editorialSummary"`

	GoodForChildren      bool `json:"goodForChildren"`
	GoodForGroups        bool `json:"goodForGroups"`
	OutdoorSeating       bool `json:"outdoorSeating"`
	Reservable           bool `json:"reservable"`
	AllowsDogs           bool `json:"allowsDogs"`
	ServesBeer           bool `json:"servesBeer"`
	ServesBreakfast      bool `json:"servesBreakfast"`
	ServesBrunch         bool `json:"servesBrunch"`
	ServesDinner         bool `json:"servesDinner"`
	ServesLunch          bool `json:"servesLunch"`
	ServesVegetarianFood bool `json:"servesVegetarianFood"`
	ServesWine           bool `json:"servesWine"`
	Takeout              bool `json:"takeout"`
	Delivery             bool `json:"delivery"`
	DineIn               bool `json:"dineIn"`

	AccessibilityOptions map[string]bool `json:"accessibilityOptions"`
	ParkingOptions       map[string]bool `json:"parkingOptions"`
	PaymentOptions       map[string]bool `json:"paymentOptions"`
}

// SearchNearby implements SearchProvider. A nonempty query routes to text
// search, otherwise to nearby search with an optional category restriction.
func (g *GoogleProvider) SearchNearby(ctx context.Context, params SearchParams) ([]models.ProviderPlace, error) {
	if g.apiKey == "" {
		return nil, &Error{Provider: models.ProviderGoogle, Message: "api key not configured"}
	}

	radius := params.RadiusM
	if radius > googleMaxRadiusM {
		radius = googleMaxRadiusM
	}
	pageSize := params.MaxResults
	if pageSize > googleMaxPerPage {
		pageSize = googleMaxPerPage
	}

	endpoint := g.baseURL + "/places:searchNearby"
	body := map[string]any{
		"locationRestriction": circle(params.Lat, params.Lng, radius),
		"maxResultCount":      pageSize,
	}
	if params.Query != "" {
		endpoint = g.baseURL + "/places:searchText"
		body = map[string]any{
			"textQuery":      params.Query,
			"locationBias":   circle(params.Lat, params.Lng, radius),
			"maxResultCount": pageSize,
		}
	} else if params.Category != "" {
		body["includedTypes"] = []string{params.Category}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	data, err := doWithRetry(ctx, g.client, models.ProviderGoogle, g.maxRetries, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", g.apiKey)
		req.Header.Set("X-Goog-FieldMask", googleFieldMask)
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var parsed googleResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &Error{Provider: models.ProviderGoogle, Message: "malformed response: " + err.Error()}
	}

	places := make([]models.ProviderPlace, 0, len(parsed.Places))
	for _, gp := range parsed.Places {
		place, ok := g.normalize(gp, params.Lat, params.Lng)
		if !ok {
			continue
		}
		places = append(places, place)
		if len(places) >= params.MaxResults {
			break
		}
	}

	g.logger.Info("search complete", "count", len(places), "query", params.Query)
	return places, nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func circle(lat, lng float64, radiusM int) map[string]any {
	return map[string]any{
		"circle": map[string]any{
			"center": map[string]any{"latitude": lat, "longitude": lng},
			"radius": float64(radiusM),
		},
	}
}

// normalize converts one upstream place, rejecting records without
// coordinates or a display name.
func (g *GoogleProvider) normalize(gp googlePlace, originLat, originLng float64) (models.ProviderPlace, bool) {
	if gp.Location == nil || gp.DisplayName.Text == "" {
		return models.ProviderPlace{}, false
	}

	var priceLevel *int
	if level, ok := googlePriceLevels[gp.PriceLevel]; ok {
		priceLevel = &level
	}

	category := ""
	if gp.PrimaryType != "" {
		category = titleCase(strings.ReplaceAll(gp.PrimaryType, "_", " "))
	}

	amenities := models.Amenities{
		OutdoorSeating:       gp.OutdoorSeating,
		GoodForChildren:      gp.GoodForChildren,
		GoodForGroups:        gp.GoodForGroups,
		AllowsDogs:           gp.AllowsDogs,
		Reservable:           gp.Reservable,
		ServesBeer:           gp.ServesBeer,
		ServesBreakfast:      gp.ServesBreakfast,
		ServesBrunch:         gp.ServesBrunch,
		ServesDinner:         gp.ServesDinner,
		ServesLunch:          gp.ServesLunch,
		ServesVegetarianFood: gp.ServesVegetarianFood,
		ServesWine:           gp.ServesWine,
		Takeout:              gp.Takeout,
		Delivery:             gp.Delivery,
		DineIn:               gp.DineIn,
		WheelchairAccessible: gp.AccessibilityOptions["wheelchairAccessibleEntrance"],
		Parking:              gp.ParkingOptions,
		Payment:              gp.PaymentOptions,
	}
	if gp.EditorialSummary != nil {
		amenities.EditorialSummary = gp.EditorialSummary.Text
	}

	return models.ProviderPlace{
		Provider:    models.ProviderGoogle,
		ProviderID:  gp.ID,
		Name:        gp.DisplayName.Text,
		Category:    category,
		Lat:         gp.Location.Latitude,
		Lng:         gp.Location.Longitude,
		Rating:      gp.Rating,
		ReviewCount: gp.UserRatingCount,
		PriceLevel:  priceLevel,
		Phone:       gp.NationalPhoneNumber,
		Website:     gp.WebsiteURI,
		MapsURL:     gp.GoogleMapsURI,
		Address:     gp.FormattedAddress,
		DistanceKm:  geo.DistanceKm(originLat, originLng, gp.Location.Latitude, gp.Location.Longitude),
		Types:       gp.Types,
		Amenities:   amenities,
	}, true
}
