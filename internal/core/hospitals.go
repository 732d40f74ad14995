package core

import (
	"context"
	"errors"

	"healthmate/internal/llm"
	"healthmate/internal/metrics"
	"healthmate/pkg"

	"github.com/rs/zerolog"
)

// ErrLocationUnavailable is returned by a Locator that has no position,
// either because the client sent none or because permission was denied.
var ErrLocationUnavailable = errors.New("location unavailable")

// DefaultHospitalLimit caps how many facilities a lookup returns.
const DefaultHospitalLimit = 5

// Locator resolves the device position.
type Locator interface {
	Locate(ctx context.Context) (pkg.Coordinates, error)
}

// FixedLocator reports coordinates supplied by the client.  A nil
// *FixedLocator reports ErrLocationUnavailable.
type FixedLocator struct {
	Coords pkg.Coordinates
}

// NewFixedLocator returns a Locator for the given position.
func NewFixedLocator(lat, lon float64) *FixedLocator {
	return &FixedLocator{Coords: pkg.Coordinates{Latitude: lat, Longitude: lon}}
}

func (l *FixedLocator) Locate(ctx context.Context) (pkg.Coordinates, error) {
	if l == nil {
		return pkg.Coordinates{}, ErrLocationUnavailable
	}
	if err := ctx.Err(); err != nil {
		return pkg.Coordinates{}, err
	}
	return l.Coords, nil
}

// HospitalSource lists facilities near a position, nearest first.  Sources
// never fail: any error is reported as an empty list.
type HospitalSource interface {
	Nearby(ctx context.Context, at pkg.Coordinates, lang pkg.Language) []pkg.Hospital
}

// GatewaySource asks the model for nearby facilities using the hospital
// schema.
type GatewaySource struct {
	dispatcher *Dispatcher
	limit      int
	logger     zerolog.Logger
}

// NewGatewaySource returns a model-backed source capped at limit entries.
func NewGatewaySource(d *Dispatcher, limit int, logger zerolog.Logger) *GatewaySource {
	if limit <= 0 {
		limit = DefaultHospitalLimit
	}
	return &GatewaySource{dispatcher: d, limit: limit, logger: logger.With().Str("component", "hospital_source").Logger()}
}

func (s *GatewaySource) Nearby(ctx context.Context, at pkg.Coordinates, lang pkg.Language) []pkg.Hospital {
	reply, err := s.dispatcher.generate(ctx, OpHospitalLookup, llm.Request{
		SystemInstruction: SystemInstruction(lang),
		Prompt:            hospitalLookupPrompt(at, s.limit),
		Schema:            hospitalSchema,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("hospital lookup failed")
		return nil
	}
	hospitals, err := decodeHospitals(reply)
	if err != nil {
		metrics.GatewayFailuresTotal.WithLabelValues(string(OpHospitalLookup)).Inc()
		s.logger.Error().Err(err).Msg("hospital lookup reply rejected")
		return nil
	}
	if len(hospitals) > s.limit {
		hospitals = hospitals[:s.limit]
	}
	return hospitals
}

// StaticSource is a fixed demo directory, used when no live lookup is
// wanted.  Its entries carry distance and rating.
type StaticSource struct {
	Hospitals []pkg.Hospital
}

// NewStaticSource returns the demo directory.
func NewStaticSource() *StaticSource {
	r1, r2 := 4.3, 4.7
	return &StaticSource{Hospitals: []pkg.Hospital{
		{Name: "City General Hospital", Address: "123 Main St, Anytown", Distance: "2.1 km", Phone: "555-0101", Rating: &r1},
		{Name: "Community Care Center", Address: "456 Oak Ave, Anytown", Distance: "3.5 km", Phone: "555-0102", Rating: &r2},
		{Name: "Sunshine Medical Clinic", Address: "789 Pine Ln, Anytown", Distance: "5.2 km", Phone: "555-0103"},
	}}
}

func (s *StaticSource) Nearby(ctx context.Context, _ pkg.Coordinates, _ pkg.Language) []pkg.Hospital {
	if ctx.Err() != nil {
		return nil
	}
	out := make([]pkg.Hospital, len(s.Hospitals))
	copy(out, s.Hospitals)
	return out
}

// HospitalFinder runs locate, lookup and formatting.  Every failure along
// the way produces the same fallback text.
type HospitalFinder struct {
	Source     HospitalSource
	Dispatcher *Dispatcher
	Logger     zerolog.Logger
}

// NewHospitalFinder wires a finder.
func NewHospitalFinder(source HospitalSource, d *Dispatcher, logger zerolog.Logger) *HospitalFinder {
	return &HospitalFinder{Source: source, Dispatcher: d, Logger: logger.With().Str("component", "hospital_finder").Logger()}
}

// Find returns the hospital payload for one lookup.  It never fails; on any
// error the payload holds no hospitals and the localized fallback text.
func (f *HospitalFinder) Find(ctx context.Context, lang pkg.Language, loc Locator) *HospitalList {
	s := StringsFor(lang)
	fallback := &HospitalList{Text: s.HospitalFetchError}

	if loc == nil {
		loc = (*FixedLocator)(nil)
	}
	at, err := loc.Locate(ctx)
	if err != nil {
		f.Logger.Warn().Err(err).Msg("no device location for hospital lookup")
		metrics.HospitalLookupsTotal.WithLabelValues("no_location").Inc()
		return fallback
	}

	hospitals := f.Source.Nearby(ctx, at, lang)
	if len(hospitals) == 0 {
		metrics.HospitalLookupsTotal.WithLabelValues("empty").Inc()
		return fallback
	}

	formatted, err := f.Dispatcher.FormatHospitals(ctx, lang, hospitals)
	if err != nil {
		f.Logger.Error().Err(err).Int("hospitals", len(hospitals)).Msg("hospital formatting failed")
		metrics.HospitalLookupsTotal.WithLabelValues("format_error").Inc()
		return fallback
	}
	metrics.HospitalLookupsTotal.WithLabelValues("found").Inc()
	return &HospitalList{
		Hospitals: formatted.Hospitals,
		Text:      s.HospitalsFound + "\n\n" + formatted.Text,
	}
}
