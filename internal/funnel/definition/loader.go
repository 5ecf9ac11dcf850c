// Package definition loads and validates the funnel track definitions from
// the embedded YAML file.
package definition

import (
	_ "embed"
	"fmt"

	"funnel_backend/internal/funnel/domain"

	"gopkg.in/yaml.v3"
)

//go:embed tracks.yaml
var tracksYAML []byte

type definitionFile struct {
	Tracks map[string]*domain.TrackDefinition `yaml:"tracks"`
}

// Registry holds the validated track definitions for the lifetime of the
// process. Definitions are immutable after loading.
type Registry struct {
	tracks map[domain.Track]*domain.TrackDefinition
}

// Load parses the embedded track definitions and validates them.
func Load() (*Registry, error) {
	return parse(tracksYAML)
}

func parse(data []byte) (*Registry, error) {
	var file definitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse track definitions: %w", err)
	}
	if len(file.Tracks) == 0 {
		return nil, fmt.Errorf("no tracks defined")
	}

	registry := &Registry{tracks: make(map[domain.Track]*domain.TrackDefinition, len(file.Tracks))}
	for name, def := range file.Tracks {
		def.Track = domain.Track(name)
		registry.tracks[def.Track] = def
	}

	for _, def := range registry.tracks {
		if err := registry.validateTrack(def); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// Get returns the definition for the given track.
func (r *Registry) Get(track domain.Track) (*domain.TrackDefinition, error) {
	def, ok := r.tracks[track]
	if !ok {
		return nil, fmt.Errorf("unknown track %q", track)
	}
	return def, nil
}

// Tracks returns all known track identifiers.
func (r *Registry) Tracks() []domain.Track {
	tracks := make([]domain.Track, 0, len(r.tracks))
	for track := range r.tracks {
		tracks = append(tracks, track)
	}
	return tracks
}

func (r *Registry) validateTrack(def *domain.TrackDefinition) error {
	if len(def.Questions) == 0 {
		return fmt.Errorf("track %q has no questions", def.Track)
	}

	seen := make(map[string]int, len(def.Questions))
	for i, q := range def.Questions {
		if q.ID == "" {
			return fmt.Errorf("track %q: question %d has no id", def.Track, i)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("track %q: duplicate question id %q", def.Track, q.ID)
		}
		seen[q.ID] = i

		switch q.Kind {
		case domain.KindSingleChoice, domain.KindMultiChoice:
			if len(q.Options) == 0 {
				return fmt.Errorf("track %q: question %q needs options", def.Track, q.ID)
			}
		case domain.KindNumericSlider, domain.KindPercentageSlider:
			if q.Max <= q.Min {
				return fmt.Errorf("track %q: question %q has invalid bounds [%v, %v]", def.Track, q.ID, q.Min, q.Max)
			}
			if q.Step < 0 {
				return fmt.Errorf("track %q: question %q has negative step", def.Track, q.ID)
			}
		case domain.KindContactForm, domain.KindPhoneCapture:
		default:
			return fmt.Errorf("track %q: question %q has unknown kind %q", def.Track, q.ID, q.Kind)
		}

		if q.Conditional != nil {
			if err := q.Conditional.Validate(); err != nil {
				return fmt.Errorf("track %q: question %q: %w", def.Track, q.ID, err)
			}
			ref, ok := seen[q.Conditional.Question]
			if !ok || ref >= i {
				return fmt.Errorf("track %q: question %q conditional must reference an earlier question", def.Track, q.ID)
			}
		}

		if q.Switch != nil {
			if _, ok := r.tracks[q.Switch.Target]; !ok {
				return fmt.Errorf("track %q: question %q switches to unknown track %q", def.Track, q.ID, q.Switch.Target)
			}
			if q.Switch.Target == def.Track {
				return fmt.Errorf("track %q: question %q switches to its own track", def.Track, q.ID)
			}
			if q.Switch.OnValue == "" && q.Switch.When == nil {
				return fmt.Errorf("track %q: question %q switch has no trigger", def.Track, q.ID)
			}
			if q.Switch.When != nil {
				if err := q.Switch.When.ValidateOp(); err != nil {
					return fmt.Errorf("track %q: question %q switch: %w", def.Track, q.ID, err)
				}
			}
		}
	}

	return nil
}
