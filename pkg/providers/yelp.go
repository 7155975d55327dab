package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aroundme/aroundme/pkg/geo"
	"github.com/aroundme/aroundme/pkg/models"
)

const (
	yelpBaseURL = "https://api.yelp.com/v3"

	// yelpMaxPerPage is the upstream page-size ceiling.
	yelpMaxPerPage = 50

	// yelpMaxRadiusM is the largest radius the Fusion API accepts.
	yelpMaxRadiusM = 40000
)

var yelpPriceLevels = map[string]int{
	"$":    1,
	"$$":   2,
	"$$$":  3,
	"$$$$": 4,
}

// YelpProvider adapts the Yelp Fusion API.
type YelpProvider struct {
	apiKey     string
	baseURL    string
	client     *http.Client
	maxRetries int
	logger     *slog.Logger
}

// NewYelpProvider builds the adapter.
func NewYelpProvider(apiKey string, timeout time.Duration, maxRetries int) *YelpProvider {
	return &YelpProvider{
		apiKey:     apiKey,
		baseURL:    yelpBaseURL,
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		logger:     slog.With("provider", "yelp"),
	}
}

// Name implements SearchProvider.
func (y *YelpProvider) Name() models.Provider { return models.ProviderYelp }

type yelpResponse struct {
	Businesses []yelpBusiness `json:"businesses"`
	Total      int            `json:"total"`
}

type yelpBusiness struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Coordinates *struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"coordinates"`
	Categories []struct {
		Alias string `json:"alias"`
		Title string `json:"title"`
	} `json:"categories"`
	Location struct {
		Address1 string `json:"address1"`
		City     string `json:"city"`
		State    string `json:"state"`
		ZipCode  string `json:"zip_code"`
	} `json:"location"`
	Rating      *float64 `json:"rating"`
	ReviewCount *int     `json:"review_count"`
	Price       string   `json:"price"`
	Phone       string   `json:"phone"`
	URL         string   `json:"url"`

	Transactions []string `json:"transactions"`
}

// SearchNearby implements SearchProvider, paginating with offset/limit up to
// MaxResults.
func (y *YelpProvider) SearchNearby(ctx context.Context, params SearchParams) ([]models.ProviderPlace, error) {
	if y.apiKey == "" {
		return nil, &Error{Provider: models.ProviderYelp, Message: "api key not configured"}
	}

	radius := params.RadiusM
	if radius > yelpMaxRadiusM {
		radius = yelpMaxRadiusM
	}

	var places []models.ProviderPlace
	offset := 0
	for len(places) < params.MaxResults {
		limit := yelpMaxPerPage
		if remaining := params.MaxResults - len(places); remaining < limit {
			limit = remaining
		}

		batch, err := y.searchPage(ctx, params, radius, limit, offset)
		if err != nil {
			return nil, err
		}
		if len(batch.Businesses) == 0 {
			break
		}

		for _, b := range batch.Businesses {
			if place, ok := y.normalize(b, params.Lat, params.Lng); ok {
				places = append(places, place)
			}
		}
		offset += len(batch.Businesses)
		if len(batch.Businesses) < limit {
			break
		}
	}

	if len(places) > params.MaxResults {
		places = places[:params.MaxResults]
	}
	y.logger.Info("search complete", "count", len(places), "query", params.Query)
	return places, nil
}

func (y *YelpProvider) searchPage(ctx context.Context, params SearchParams, radiusM, limit, offset int) (*yelpResponse, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(params.Lat, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(params.Lng, 'f', -1, 64))
	query.Set("radius", strconv.Itoa(radiusM))
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	query.Set("sort_by", "best_match")
	if params.Query != "" {
		query.Set("term", params.Query)
	}
	if params.Category != "" {
		query.Set("categories", params.Category)
	}

	endpoint := fmt.Sprintf("%s/businesses/search?%s", y.baseURL, query.Encode())
	data, err := doWithRetry(ctx, y.client, models.ProviderYelp, y.maxRetries, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+y.apiKey)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var parsed yelpResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &Error{Provider: models.ProviderYelp, Message: "malformed response: " + err.Error()}
	}
	return &parsed, nil
}

// normalize converts one business, rejecting records without coordinates or
// a name.
func (y *YelpProvider) normalize(b yelpBusiness, originLat, originLng float64) (models.ProviderPlace, bool) {
	if b.Coordinates == nil || b.Coordinates.Latitude == nil || b.Coordinates.Longitude == nil || b.Name == "" {
		return models.ProviderPlace{}, false
	}
	lat, lng := *b.Coordinates.Latitude, *b.Coordinates.Longitude

	category := ""
	types := make([]string, 0, len(b.Categories))
	for i, c := range b.Categories {
		if i == 0 {
			category = c.Alias
		}
		types = append(types, c.Alias)
	}

	var addressParts []string
	for _, part := range []string{b.Location.Address1, b.Location.City, b.Location.State, b.Location.ZipCode} {
		if part != "" {
			addressParts = append(addressParts, part)
		}
	}

	var priceLevel *int
	if level, ok := yelpPriceLevels[b.Price]; ok {
		priceLevel = &level
	}

	var amenities models.Amenities
	for _, tx := range b.Transactions {
		switch tx {
		case "pickup":
			amenities.Takeout = true
		case "delivery":
			amenities.Delivery = true
		case "restaurant_reservation":
			amenities.Reservable = true
		}
	}

	return models.ProviderPlace{
		Provider:    models.ProviderYelp,
		ProviderID:  b.ID,
		Name:        b.Name,
		Category:    category,
		Lat:         lat,
		Lng:         lng,
		Rating:      b.Rating,
		ReviewCount: b.ReviewCount,
		PriceLevel:  priceLevel,
		Phone:       b.Phone,
		Website:     b.URL,
		MapsURL:     b.URL,
		Address:     strings.Join(addressParts, ", "),
		DistanceKm:  geo.DistanceKm(originLat, originLng, lat, lng),
		Types:       types,
		Amenities:   amenities,
	}, true
}
