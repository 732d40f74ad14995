package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"healthmate/pkg"

	"github.com/rs/zerolog"
)

var (
	// ErrBusy is returned when an action arrives while another one is in
	// flight.  The conversation is left untouched.
	ErrBusy = errors.New("session is busy")
	// ErrEmptyMessage is returned for a send with no text and no file.
	ErrEmptyMessage = errors.New("message has no text or attachment")
)

// Session is one conversation.  All mutation goes through its methods; at
// most one action (send or hospital lookup) runs at a time, guarded by the
// busy flag.
type Session struct {
	ID string

	chat   *ChatService
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.Mutex
	lang   pkg.Language
	turns  []pkg.Turn
	lastID int64
	busy   bool
}

func newSession(id string, lang pkg.Language, chat *ChatService) *Session {
	s := &Session{
		ID:     id,
		chat:   chat,
		logger: chat.Logger.With().Str("session_id", id).Logger(),
		now:    time.Now,
		lang:   lang,
	}
	s.resetLocked()
	return s
}

// resetLocked replaces the transcript with the welcome turn.  IDs keep
// increasing across resets.
func (s *Session) resetLocked() {
	s.turns = nil
	s.appendLocked(pkg.Turn{Sender: pkg.SenderAssistant, Kind: pkg.KindText, Text: StringsFor(s.lang).Welcome})
}

func (s *Session) appendLocked(t pkg.Turn) pkg.Turn {
	s.lastID++
	t.ID = s.lastID
	t.CreatedAt = s.now()
	s.turns = append(s.turns, t)
	return t
}

func (s *Session) append(t pkg.Turn) pkg.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(t)
}

// begin marks the session busy and returns the language and a copy of the
// transcript so far.
func (s *Session) begin() (pkg.Language, []pkg.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return "", nil, ErrBusy
	}
	s.busy = true
	history := make([]pkg.Turn, len(s.turns))
	copy(history, s.turns)
	return s.lang, history, nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// Send processes one user turn: it appends the user turn, dispatches it,
// appends exactly one assistant turn and, for an Emergency symptom result,
// a hospital turn after it.  The session stays busy until all of these are
// appended.  Model failures become a localized error turn and are not
// returned.  It returns the turns appended, in order.
func (s *Session) Send(ctx context.Context, text string, att *pkg.Attachment, loc Locator) ([]pkg.Turn, error) {
	if strings.TrimSpace(text) == "" && att == nil {
		return nil, ErrEmptyMessage
	}
	lang, history, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer s.end()

	out := []pkg.Turn{s.append(pkg.Turn{
		Sender:     pkg.SenderUser,
		Kind:       pkg.KindText,
		Text:       text,
		Attachment: att.Info(),
	})}

	payload, err := s.chat.Dispatcher.Dispatch(ctx, lang, text, att, history)
	if err != nil {
		s.logger.Error().Err(err).Msg("error processing message")
		out = append(out, s.append(pkg.Turn{Sender: pkg.SenderAssistant, Kind: pkg.KindText, Text: StringsFor(lang).Error}))
		return out, nil
	}
	out = append(out, s.append(assistantTurn(payload)))

	if h := s.chat.Escalator.Observe(ctx, s.ID, lang, payload, loc); h != nil {
		out = append(out, s.append(assistantTurn(h)))
	}
	return out, nil
}

// FindHospitals runs an explicit hospital lookup and appends its turn.
func (s *Session) FindHospitals(ctx context.Context, loc Locator) (pkg.Turn, error) {
	lang, _, err := s.begin()
	if err != nil {
		return pkg.Turn{}, err
	}
	defer s.end()
	return s.append(assistantTurn(s.chat.Hospitals.Find(ctx, lang, loc))), nil
}

// SetLanguage switches the session language and resets the transcript to
// the welcome turn of the new language.  Selecting the current language
// leaves the conversation as it is.
func (s *Session) SetLanguage(lang pkg.Language) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lang == s.lang {
		return nil
	}
	if s.busy {
		return ErrBusy
	}
	s.lang = lang
	s.resetLocked()
	return nil
}

// Busy reports whether an action is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() pkg.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := make([]pkg.Turn, len(s.turns))
	copy(turns, s.turns)
	return pkg.SessionView{ID: s.ID, Language: s.lang, Loading: s.busy, Turns: turns}
}

// assistantTurn renders a payload as an assistant turn carrying only the
// fields of its kind.
func assistantTurn(p Payload) pkg.Turn {
	t := pkg.Turn{Sender: pkg.SenderAssistant, Kind: p.Kind(), Text: p.DisplayText()}
	switch v := p.(type) {
	case *SymptomResult:
		t.Urgency = v.Analysis.Urgency
	case *ReportResult:
		t.Findings = v.Report.Findings
	case *HospitalList:
		t.Hospitals = v.Hospitals
	}
	return t
}
