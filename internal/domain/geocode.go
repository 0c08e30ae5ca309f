package domain

import (
	"context"
	"log/slog"
)

// GeocodeCity looks up coordinates for a city that has none yet. It reports
// ok=false when the geocoder is nil, the city already has coordinates, the
// lookup fails, or the provider returns no match. Failures are logged and
// never returned (graceful degradation).
func GeocodeCity(ctx context.Context, city Location, state string, geocoder Geocoder, logger *slog.Logger) (GeocodingResult, bool) {
	if geocoder == nil || city.HasCoordinates() || city.Name == "" {
		return GeocodingResult{}, false
	}

	result, err := geocoder.ForwardGeocode(ctx, city.Name, state)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"location_id", city.ID,
			"city", city.Name,
			"state", state,
			"error", err,
		)
		return GeocodingResult{}, false
	}
	if result.Lat == 0 && result.Lon == 0 {
		return GeocodingResult{}, false
	}
	return result, true
}
