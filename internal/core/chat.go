package core

import (
	"healthmate/internal/llm"

	"github.com/rs/zerolog"
)

// Hospital sources selectable through Options.
const (
	HospitalSourceGateway = "gateway"
	HospitalSourceStatic  = "static"
)

// Options configures a ChatService.
type Options struct {
	// HospitalSource is "gateway" (default) or "static".
	HospitalSource string
	HospitalLimit  int
	// Alerter is notified of emergency classifications.  Optional.
	Alerter Alerter
	Logger  zerolog.Logger
}

// ChatService holds the collaborators shared by every session: the request
// dispatcher, the hospital finder and the escalation trigger.  Sessions
// own all conversation state; ChatService keeps none.
type ChatService struct {
	Dispatcher *Dispatcher
	Hospitals  *HospitalFinder
	Escalator  *Escalator
	Logger     zerolog.Logger
}

// NewChatService constructs a new ChatService with the given Gateway client.
func NewChatService(client llm.Client, opts Options) *ChatService {
	d := NewDispatcher(client, opts.Logger)

	var source HospitalSource
	switch opts.HospitalSource {
	case HospitalSourceStatic:
		source = NewStaticSource()
	default:
		source = NewGatewaySource(d, opts.HospitalLimit, opts.Logger)
	}
	finder := NewHospitalFinder(source, d, opts.Logger)

	return &ChatService{
		Dispatcher: d,
		Hospitals:  finder,
		Escalator:  NewEscalator(finder, opts.Alerter, opts.Logger),
		Logger:     opts.Logger,
	}
}
