// Package routeseed reads route catalogues and recorded walks from YAML.
// It is the only place where document shapes are mapped onto the domain.
package routeseed

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/soundwalk/service-tour/internal/domain/tour"
	"gopkg.in/yaml.v3"
)

// Catalogue is a YAML document holding one or more routes.
type Catalogue struct {
	Routes []RouteDoc `yaml:"routes" validate:"required,min=1,dive"`
}

// RouteDoc is a route as authored in YAML.
type RouteDoc struct {
	Slug        string    `yaml:"slug" validate:"required"`
	Name        string    `yaml:"name" validate:"required"`
	City        string    `yaml:"city"`
	Description string    `yaml:"description"`
	Locale      string    `yaml:"locale"`
	Stops       []StopDoc `yaml:"stops" validate:"required,min=1,dive"`
}

// StopDoc is a stop as authored in YAML.
type StopDoc struct {
	ID        string        `yaml:"id" validate:"required"`
	Order     int           `yaml:"order" validate:"required,min=1"`
	Name      string        `yaml:"name" validate:"required"`
	Lat       float64       `yaml:"lat" validate:"gte=-90,lte=90"`
	Lon       float64       `yaml:"lon" validate:"gte=-180,lte=180"`
	RadiusM   float64       `yaml:"radius_m" validate:"gte=0"`
	Narration string        `yaml:"narration"`
	Duration  time.Duration `yaml:"duration"`
}

var validate = validator.New()

// Decode parses and validates a catalogue. Stops without a radius get
// defaultRadius.
func Decode(r io.Reader, defaultRadius float64) ([]*tour.Route, error) {
	var doc Catalogue
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode route catalogue: %w", err)
	}
	if err := validate.Struct(doc); err != nil {
		return nil, tour.NewValidationError(err.Error())
	}

	seen := make(map[string]struct{}, len(doc.Routes))
	routes := make([]*tour.Route, 0, len(doc.Routes))
	for _, rd := range doc.Routes {
		if _, dup := seen[rd.Slug]; dup {
			return nil, tour.NewValidationError(fmt.Sprintf("duplicate route slug: %s", rd.Slug))
		}
		seen[rd.Slug] = struct{}{}

		route, err := rd.toDomain(defaultRadius)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", rd.Slug, err)
		}
		routes = append(routes, route)
	}
	return routes, nil
}

// LoadFile decodes the catalogue at path.
func LoadFile(path string, defaultRadius float64) ([]*tour.Route, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, defaultRadius)
}

func (rd RouteDoc) toDomain(defaultRadius float64) (*tour.Route, error) {
	if defaultRadius <= 0 {
		defaultRadius = tour.DefaultTriggerRadiusMeters
	}
	stops := lo.Map(rd.Stops, func(s StopDoc, _ int) tour.Stop {
		radius := s.RadiusM
		if radius == 0 {
			radius = defaultRadius
		}
		return tour.Stop{
			ID:                  s.ID,
			Order:               s.Order,
			Name:                s.Name,
			Position:            tour.Position{Lat: s.Lat, Lon: s.Lon},
			TriggerRadiusMeters: radius,
			Narration:           s.Narration,
			Duration:            s.Duration,
		}
	})
	return tour.NewRoute(rd.Slug, rd.Name, rd.City, rd.Description, rd.Locale, stops)
}
