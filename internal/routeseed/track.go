package routeseed

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/samber/lo"
	"github.com/soundwalk/service-tour/internal/domain/tour"
	"gopkg.in/yaml.v3"
)

// Track is a recorded walk: fixes with offsets from the start of the walk.
type Track struct {
	Fixes []FixDoc `yaml:"fixes" validate:"required,min=1,dive"`
}

// FixDoc is one recorded location fix.
type FixDoc struct {
	At        time.Duration `yaml:"at" validate:"gte=0"`
	Lat       float64       `yaml:"lat" validate:"gte=-90,lte=90"`
	Lon       float64       `yaml:"lon" validate:"gte=-180,lte=180"`
	AccuracyM float64       `yaml:"accuracy_m" validate:"gte=0"`
}

// TimedFix is a position with its offset into the walk.
type TimedFix struct {
	At       time.Duration
	Position tour.Position
}

// DecodeTrack parses a track, returning fixes sorted by offset.
func DecodeTrack(r io.Reader) ([]TimedFix, error) {
	var doc Track
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode track: %w", err)
	}
	if err := validate.Struct(doc); err != nil {
		return nil, tour.NewValidationError(err.Error())
	}

	fixes := lo.Map(doc.Fixes, func(f FixDoc, _ int) TimedFix {
		return TimedFix{
			At:       f.At,
			Position: tour.Position{Lat: f.Lat, Lon: f.Lon, AccuracyM: f.AccuracyM},
		}
	})
	for i := 1; i < len(fixes); i++ {
		if fixes[i].At < fixes[i-1].At {
			return nil, tour.NewValidationError(fmt.Sprintf("fix %d goes back in time", i))
		}
	}
	return fixes, nil
}

// LoadTrackFile decodes the track at path.
func LoadTrackFile(path string) ([]TimedFix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeTrack(f)
}
