package astro

import "github.com/irfndi/astro-snapshot-go/internal/models"

// placeAll builds a full position map from tropical longitudes, in
// canonical body order.
func placeAll(longitudes ...float64) map[models.Body]models.BodyPosition {
	if len(longitudes) != len(models.Bodies) {
		panic("placeAll needs one longitude per body")
	}
	positions := make(map[models.Body]models.BodyPosition, len(models.Bodies))
	for i, body := range models.Bodies {
		positions[body] = Place(body, longitudes[i], models.Tropical, DefaultAyanamsa)
	}
	return positions
}
