package distance

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"carpool/internal/domain"
)

// GoogleMatrix computes route legs through the Google Distance Matrix API.
type GoogleMatrix struct {
	client *maps.Client
}

// NewGoogleMatrix creates a GoogleMatrix with the given API key.
func NewGoogleMatrix(apiKey string) (*GoogleMatrix, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleMatrix{client: client}, nil
}

// Route implements Matrix. Each leg is requested as its own origin/destination
// pair in a single DistanceMatrix call (the API returns a full cross product;
// only the diagonal is consumed).
func (g *GoogleMatrix) Route(ctx context.Context, origin domain.Point, destinations []domain.Point) ([]Leg, error) {
	if len(destinations) == 0 {
		return nil, nil
	}

	origins := make([]string, len(destinations))
	targets := make([]string, len(destinations))
	cursor := origin
	for i, dst := range destinations {
		origins[i] = latLng(cursor)
		targets[i] = latLng(dst)
		cursor = dst
	}

	resp, err := g.client.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      origins,
		Destinations: targets,
		Mode:         maps.TravelModeDriving,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Rows) != len(destinations) {
		return nil, fmt.Errorf("%w: expected %d rows, got %d", ErrUnavailable, len(destinations), len(resp.Rows))
	}

	legs := make([]Leg, len(destinations))
	for i, row := range resp.Rows {
		if len(row.Elements) <= i {
			return nil, fmt.Errorf("%w: row %d truncated", ErrUnavailable, i)
		}
		el := row.Elements[i]
		if el.Status != "OK" {
			return nil, fmt.Errorf("%w: leg %d status %s", ErrUnavailable, i, el.Status)
		}
		legs[i] = Leg{
			Meters:  float64(el.Distance.Meters),
			Seconds: int64(el.Duration.Seconds()),
		}
	}

	return legs, nil
}

func latLng(p domain.Point) string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}

var _ Matrix = (*GoogleMatrix)(nil)
