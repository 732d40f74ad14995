package core

import (
	"context"

	"healthmate/internal/metrics"
	"healthmate/pkg"

	"github.com/rs/zerolog"
)

// Alerter is told about emergency classifications, for example to page
// staff.  Failures never reach the conversation.
type Alerter interface {
	Alert(ctx context.Context, sessionID string, urgency pkg.Urgency) error
}

// Escalator watches symptom results and runs a hospital lookup when the
// urgency is Emergency.
type Escalator struct {
	Finder  *HospitalFinder
	Alerter Alerter
	Logger  zerolog.Logger
}

// NewEscalator wires an escalator.  alerter may be nil.
func NewEscalator(finder *HospitalFinder, alerter Alerter, logger zerolog.Logger) *Escalator {
	return &Escalator{Finder: finder, Alerter: alerter, Logger: logger.With().Str("component", "escalator").Logger()}
}

// Observe returns the hospital payload to append after p, or nil when p
// does not call for escalation.  The lookup itself cannot fail; a failed
// lookup yields the fallback payload.
func (e *Escalator) Observe(ctx context.Context, sessionID string, lang pkg.Language, p Payload, loc Locator) *HospitalList {
	sr, ok := p.(*SymptomResult)
	if !ok || sr.Analysis.Urgency != pkg.UrgencyEmergency {
		return nil
	}
	metrics.EscalationsTotal.Inc()
	e.Logger.Warn().Str("session_id", sessionID).Msg("emergency urgency, looking up hospitals")

	if e.Alerter != nil {
		if err := e.Alerter.Alert(ctx, sessionID, sr.Analysis.Urgency); err != nil {
			e.Logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to publish emergency alert")
		}
	}
	return e.Finder.Find(ctx, lang, loc)
}
