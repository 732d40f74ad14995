package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"healthmate/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const emergencyReply = `{"possibleCauses":"This could be serious.","urgencyLevel":"Very high","urgency":"Emergency"}`

func newTestSession(t *testing.T, gw *fakeGateway, source string, alerter Alerter) *Session {
	t.Helper()
	return NewRegistry(newTestService(gw, source, alerter)).Create(pkg.LangEnglish)
}

func TestNewSessionHasWelcomeTurn(t *testing.T) {
	s := newTestSession(t, newFakeGateway(nil), HospitalSourceStatic, nil)
	view := s.Snapshot()
	require.Len(t, view.Turns, 1)
	assert.Equal(t, pkg.SenderAssistant, view.Turns[0].Sender)
	assert.Equal(t, StringsFor(pkg.LangEnglish).Welcome, view.Turns[0].Text)
	assert.Equal(t, int64(1), view.Turns[0].ID)
	assert.False(t, view.Loading)
}

func TestSendSymptomNonUrgent(t *testing.T) {
	gw := newFakeGateway(map[Operation]reply{
		OpSymptomAnalysis: {text: `{"possibleCauses":"Possibly tension or dehydration.","urgencyLevel":"Low","urgency":"Non-Urgent"}`},
	})
	s := newTestSession(t, gw, HospitalSourceStatic, nil)

	turns, err := s.Send(context.Background(), "I have a symptom of headache", nil, bengaluru)
	require.NoError(t, err)
	require.Len(t, turns, 2)

	assert.Equal(t, pkg.SenderUser, turns[0].Sender)
	assert.Equal(t, "I have a symptom of headache", turns[0].Text)

	got := turns[1]
	assert.Equal(t, pkg.KindSymptom, got.Kind)
	assert.Equal(t, "Possibly tension or dehydration.\n\n**Urgency:** Low", got.Text)
	assert.Equal(t, pkg.UrgencyNonUrgent, got.Urgency)
	assert.Empty(t, got.Findings)
	assert.Empty(t, got.Hospitals)

	assert.Equal(t, []Operation{OpSymptomAnalysis}, gw.ops())
	assert.Len(t, s.Snapshot().Turns, 3)
}

func TestSendEmergencyAppendsHospitalTurn(t *testing.T) {
	gw := newFakeGateway(map[Operation]reply{
		OpSymptomAnalysis: {text: emergencyReply},
		OpHospitalFormat:  {text: "🏥 **City General Hospital**"},
	})
	alerter := &recordingAlerter{}
	s := newTestSession(t, gw, HospitalSourceStatic, alerter)

	turns, err := s.Send(context.Background(), "severe chest pain symptom", nil, bengaluru)
	require.NoError(t, err)
	require.Len(t, turns, 3)

	assert.Equal(t, pkg.KindSymptom, turns[1].Kind)
	assert.Equal(t, pkg.UrgencyEmergency, turns[1].Urgency)
	assert.Equal(t, pkg.KindHospitals, turns[2].Kind)
	assert.Contains(t, turns[2].Text, "City General Hospital")
	assert.Len(t, turns[2].Hospitals, 3)
	assert.Less(t, turns[1].ID, turns[2].ID)

	assert.Equal(t, []Operation{OpSymptomAnalysis, OpHospitalFormat}, gw.ops())
	assert.Equal(t, []string{s.ID}, alerter.sessions)
}

func TestSendEmergencyLookupFailureStillAppendsOneTurn(t *testing.T) {
	gw := newFakeGateway(map[Operation]reply{
		OpSymptomAnalysis: {text: emergencyReply},
		OpHospitalLookup:  {err: errors.New("upstream down")},
	})
	s := newTestSession(t, gw, HospitalSourceGateway, &recordingAlerter{err: errors.New("pg down")})

	turns, err := s.Send(context.Background(), "symptom: fainting", nil, bengaluru)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, StringsFor(pkg.LangEnglish).HospitalFetchError, turns[2].Text)
	assert.Equal(t, pkg.KindHospitals, turns[2].Kind)
}

func TestSendEmergencyWithoutLocation(t *testing.T) {
	gw := newFakeGateway(map[Operation]reply{OpSymptomAnalysis: {text: emergencyReply}})
	s := newTestSession(t, gw, HospitalSourceStatic, nil)

	turns, err := s.Send(context.Background(), "symptom: fainting", nil, nil)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, StringsFor(pkg.LangEnglish).HospitalFetchError, turns[2].Text)
	assert.Equal(t, []Operation{OpSymptomAnalysis}, gw.ops())
}

func TestSendReportWithKeyword(t *testing.T) {
	gw := newFakeGateway(map[Operation]reply{
		OpReportSummary: {text: `{"summary":"Glucose is high.","findings":[{"testName":"Glucose","value":"180","trend":"↑","status":"Abnormal"}]}`},
	})
	s := newTestSession(t, gw, HospitalSourceStatic, nil)
	att := &pkg.Attachment{Name: "labs.png", MediaType: "image/png", Data: []byte{0x89}}

	turns, err := s.Send(context.Background(), "any symptom here?", att, nil)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, &pkg.AttachmentInfo{Name: "labs.png", MediaType: "image/png"}, turns[0].Attachment)
	assert.Equal(t, pkg.KindReport, turns[1].Kind)
	assert.Equal(t, "Glucose is high.", turns[1].Text)
	require.Len(t, turns[1].Findings, 1)
	assert.Empty(t, turns[1].Urgency)
	assert.Equal(t, []Operation{OpReportSummary}, gw.ops())
}

func TestSendGatewayFailureAppendsErrorTurn(t *testing.T) {
	gw := newFakeGateway(map[Operation]reply{OpSymptomAnalysis: {text: "not json"}})
	s := newTestSession(t, gw, HospitalSourceStatic, nil)

	turns, err := s.Send(context.Background(), "symptom", nil, nil)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, StringsFor(pkg.LangEnglish).Error, turns[1].Text)
	assert.Equal(t, pkg.KindText, turns[1].Kind)
	assert.False(t, s.Busy())

	// the session remains usable
	gw.replies[OpGeneralChat] = reply{text: "Still here 🩺"}
	turns, err = s.Send(context.Background(), "hello?", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Still here 🩺", turns[1].Text)
}

func TestSendGeneralChatPassesPriorTurns(t *testing.T) {
	gw := newFakeGateway(map[Operation]reply{OpGeneralChat: {text: "ok"}})
	s := newTestSession(t, gw, HospitalSourceStatic, nil)

	_, err := s.Send(context.Background(), "first", nil, nil)
	require.NoError(t, err)
	_, err = s.Send(context.Background(), "second", nil, nil)
	require.NoError(t, err)

	req, _ := gw.last(OpGeneralChat)
	require.Len(t, req.History, 3)
	assert.Equal(t, "assistant", req.History[0].Role)
	assert.Equal(t, "first", req.History[1].Content)
	assert.Equal(t, "ok", req.History[2].Content)
	assert.Equal(t, "second", req.Prompt)
}

func TestSendEmptyMessage(t *testing.T) {
	gw := newFakeGateway(nil)
	s := newTestSession(t, gw, HospitalSourceStatic, nil)
	_, err := s.Send(context.Background(), "   ", nil, nil)
	assert.True(t, errors.Is(err, ErrEmptyMessage))
	assert.Len(t, s.Snapshot().Turns, 1)
	assert.Empty(t, gw.ops())
}

// blockOn makes the gateway wait inside the given operation until release
// is closed, signalling entered first.
func blockOn(gw *fakeGateway, target Operation) (entered chan struct{}, release chan struct{}) {
	entered = make(chan struct{})
	release = make(chan struct{})
	var once sync.Once
	gw.before = func(op Operation) {
		if op != target {
			return
		}
		once.Do(func() { close(entered) })
		<-release
	}
	return entered, release
}

func TestSendRejectedWhileBusy(t *testing.T) {
	gw := newFakeGateway(map[Operation]reply{OpGeneralChat: {text: "slow answer"}})
	entered, release := blockOn(gw, OpGeneralChat)
	s := newTestSession(t, gw, HospitalSourceStatic, nil)

	done := make(chan []pkg.Turn)
	go func() {
		turns, _ := s.Send(context.Background(), "hello", nil, nil)
		done <- turns
	}()
	<-entered

	before := s.Snapshot()
	assert.True(t, before.Loading)

	_, err := s.Send(context.Background(), "again", nil, nil)
	assert.True(t, errors.Is(err, ErrBusy))
	_, err = s.FindHospitals(context.Background(), bengaluru)
	assert.True(t, errors.Is(err, ErrBusy))
	assert.True(t, errors.Is(s.SetLanguage(pkg.LangHindi), ErrBusy))
	assert.Equal(t, before.Turns, s.Snapshot().Turns)

	close(release)
	select {
	case turns := <-done:
		require.Len(t, turns, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("send did not finish")
	}
	assert.False(t, s.Busy())
}

func TestBusyHeldThroughEscalation(t *testing.T) {
	gw := newFakeGateway(map[Operation]reply{
		OpSymptomAnalysis: {text: emergencyReply},
		OpHospitalFormat:  {text: "list"},
	})
	entered, release := blockOn(gw, OpHospitalFormat)
	s := newTestSession(t, gw, HospitalSourceStatic, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Send(context.Background(), "symptom: stroke signs", nil, bengaluru)
	}()
	<-entered

	view := s.Snapshot()
	assert.True(t, view.Loading)
	// symptom turn is already appended, hospital turn is not
	require.Len(t, view.Turns, 3)
	assert.Equal(t, pkg.KindSymptom, view.Turns[2].Kind)
	_, err := s.Send(context.Background(), "hello", nil, nil)
	assert.True(t, errors.Is(err, ErrBusy))

	close(release)
	<-done
	assert.False(t, s.Busy())
	assert.Len(t, s.Snapshot().Turns, 4)
}

func TestFindHospitalsExplicit(t *testing.T) {
	gw := newFakeGateway(map[Operation]reply{
		OpHospitalLookup: {text: `{"hospitals":[{"name":"A","address":"1 St","phone":"1"}]}`},
		OpHospitalFormat: {text: "🏥 **A**\n📍 1 St"},
	})
	s := newTestSession(t, gw, HospitalSourceGateway, nil)

	turn, err := s.FindHospitals(context.Background(), bengaluru)
	require.NoError(t, err)
	assert.Equal(t, pkg.KindHospitals, turn.Kind)
	assert.Equal(t, StringsFor(pkg.LangEnglish).HospitalsFound+"\n\n🏥 **A**\n📍 1 St", turn.Text)
	assert.Equal(t, []Operation{OpHospitalLookup, OpHospitalFormat}, gw.ops())
}

func TestSetLanguageResetsTranscript(t *testing.T) {
	gw := newFakeGateway(map[Operation]reply{OpGeneralChat: {text: "ok"}})
	s := newTestSession(t, gw, HospitalSourceStatic, nil)
	_, err := s.Send(context.Background(), "hi", nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.SetLanguage(pkg.LangHindi))
	view := s.Snapshot()
	assert.Equal(t, pkg.LangHindi, view.Language)
	require.Len(t, view.Turns, 1)
	assert.Equal(t, StringsFor(pkg.LangHindi).Welcome, view.Turns[0].Text)
	// ids keep increasing across resets
	assert.Equal(t, int64(4), view.Turns[0].ID)
}

func TestSetSameLanguageKeepsTranscript(t *testing.T) {
	gw := newFakeGateway(map[Operation]reply{OpGeneralChat: {text: "ok"}})
	s := newTestSession(t, gw, HospitalSourceStatic, nil)
	_, err := s.Send(context.Background(), "hi", nil, nil)
	require.NoError(t, err)
	before := s.Snapshot()

	require.NoError(t, s.SetLanguage(pkg.LangEnglish))
	assert.Equal(t, before, s.Snapshot())
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newTestSession(t, newFakeGateway(nil), HospitalSourceStatic, nil)
	view := s.Snapshot()
	view.Turns[0].Text = "mutated"
	assert.Equal(t, StringsFor(pkg.LangEnglish).Welcome, s.Snapshot().Turns[0].Text)
}
