package core

import (
	"context"
	"strings"
	"sync"

	"healthmate/internal/llm"
	"healthmate/pkg"

	"github.com/rs/zerolog"
)

type reply struct {
	text string
	err  error
}

// fakeGateway answers each request according to the operation it was built
// for.  before, when set, runs ahead of each reply and may block.
type fakeGateway struct {
	mu       sync.Mutex
	requests []llm.Request
	replies  map[Operation]reply
	before   func(op Operation)
}

func newFakeGateway(replies map[Operation]reply) *fakeGateway {
	return &fakeGateway{replies: replies}
}

func (f *fakeGateway) Generate(ctx context.Context, req llm.Request) (string, error) {
	op := opOf(req)
	f.mu.Lock()
	f.requests = append(f.requests, req)
	before := f.before
	r, ok := f.replies[op]
	f.mu.Unlock()

	if before != nil {
		before(op)
	}
	if !ok {
		return "", context.DeadlineExceeded
	}
	return r.text, r.err
}

func (f *fakeGateway) ops() []Operation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Operation, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, opOf(r))
	}
	return out
}

func (f *fakeGateway) last(op Operation) (llm.Request, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if opOf(f.requests[i]) == op {
			return f.requests[i], true
		}
	}
	return llm.Request{}, false
}

func opOf(req llm.Request) Operation {
	if req.Schema != nil {
		switch req.Schema.Name {
		case symptomSchema.Name:
			return OpSymptomAnalysis
		case reportSchema.Name:
			return OpReportSummary
		case hospitalSchema.Name:
			return OpHospitalLookup
		}
	}
	if strings.Contains(req.Prompt, "needs a list of nearby hospitals") {
		return OpHospitalFormat
	}
	return OpGeneralChat
}

type recordingAlerter struct {
	mu       sync.Mutex
	sessions []string
	err      error
}

func (a *recordingAlerter) Alert(_ context.Context, sessionID string, _ pkg.Urgency) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions = append(a.sessions, sessionID)
	return a.err
}

func newTestService(gw llm.Client, source string, alerter Alerter) *ChatService {
	return NewChatService(gw, Options{
		HospitalSource: source,
		Alerter:        alerter,
		Logger:         zerolog.Nop(),
	})
}
