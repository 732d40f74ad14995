package pkg

import (
	"strings"
	"time"
)

// Language selects the prompt and string tables used for a session.
type Language string

const (
	LangEnglish Language = "en"
	LangHindi   Language = "hi"
)

// ParseLanguage maps a client supplied code to a supported language.  The
// second return value is false for unknown codes.
func ParseLanguage(code string) (Language, bool) {
	switch Language(strings.ToLower(strings.TrimSpace(code))) {
	case LangEnglish:
		return LangEnglish, true
	case LangHindi:
		return LangHindi, true
	}
	return "", false
}

// Name is the English name of the language, used inside prompts.
func (l Language) Name() string {
	if l == LangHindi {
		return "Hindi"
	}
	return "English"
}

// Sender describes who authored a turn.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Urgency is the triage classification returned by symptom analysis.
type Urgency string

const (
	UrgencyNonUrgent  Urgency = "Non-Urgent"
	UrgencySemiUrgent Urgency = "Semi-Urgent"
	UrgencyEmergency  Urgency = "Emergency"
)

// Valid reports whether u is one of the three known levels.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyNonUrgent, UrgencySemiUrgent, UrgencyEmergency:
		return true
	}
	return false
}

// Trend marks the direction of a report value.  A single space means
// stable or unknown.
type Trend string

const (
	TrendUp   Trend = "↑"
	TrendDown Trend = "↓"
	TrendFlat Trend = " "
)

// Valid reports whether t is one of the three known trends.
func (t Trend) Valid() bool {
	switch t {
	case TrendUp, TrendDown, TrendFlat:
		return true
	}
	return false
}

// FindingStatus flags a report value as within or outside its range.
type FindingStatus string

const (
	StatusNormal   FindingStatus = "Normal"
	StatusAbnormal FindingStatus = "Abnormal"
)

// ReportFinding is one row of a summarised medical report.
type ReportFinding struct {
	TestName string        `json:"testName" validate:"required"`
	Value    string        `json:"value" validate:"required"`
	Trend    Trend         `json:"trend" validate:"trend"`
	Status   FindingStatus `json:"status" validate:"required,oneof=Normal Abnormal"`
}

// SymptomAnalysis is the structured reply to a symptom description.
type SymptomAnalysis struct {
	PossibleCauses       string  `json:"possibleCauses" validate:"required"`
	UrgencyLevel         string  `json:"urgencyLevel" validate:"required"`
	Urgency              Urgency `json:"urgency" validate:"required,urgency"`
	LifestyleAdjustments string  `json:"lifestyleAdjustments,omitempty"`
}

// ReportSummary is the structured reply to an uploaded report.
type ReportSummary struct {
	Summary  string          `json:"summary" validate:"required"`
	Findings []ReportFinding `json:"findings" validate:"required,dive"`
}

// Hospital is a nearby facility.  Distance and Rating are display only and
// are only known for directory backed lookups.
type Hospital struct {
	Name     string   `json:"name" validate:"required"`
	Address  string   `json:"address" validate:"required"`
	Phone    string   `json:"phone" validate:"required"`
	Distance string   `json:"distance,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
}

// HospitalList is the structured reply to a hospital lookup.
type HospitalList struct {
	Hospitals []Hospital `json:"hospitals" validate:"required,dive"`
}

// Coordinates is a device position.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Attachment is an uploaded file forwarded to the model.
type Attachment struct {
	Name      string
	MediaType string
	Data      []byte
}

// Info returns the informational part of the attachment kept on the turn.
func (a *Attachment) Info() *AttachmentInfo {
	if a == nil {
		return nil
	}
	return &AttachmentInfo{Name: a.Name, MediaType: a.MediaType}
}

// AttachmentInfo names an uploaded file without its content.
type AttachmentInfo struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
}

// PayloadKind identifies which operation produced an assistant turn.
type PayloadKind string

const (
	KindText      PayloadKind = "text"
	KindSymptom   PayloadKind = "symptom"
	KindReport    PayloadKind = "report"
	KindHospitals PayloadKind = "hospitals"
)

// Turn is one message in a conversation.  Exactly one payload kind is set
// on assistant turns; user turns are always KindText.
type Turn struct {
	ID         int64           `json:"id"`
	Sender     Sender          `json:"sender"`
	Kind       PayloadKind     `json:"kind"`
	Text       string          `json:"text"`
	Attachment *AttachmentInfo `json:"attachment,omitempty"`
	Urgency    Urgency         `json:"urgency,omitempty"`
	Findings   []ReportFinding `json:"findings,omitempty"`
	Hospitals  []Hospital      `json:"hospitals,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// SessionView is the client facing snapshot of a session.  Loading is true
// while a dispatch is in flight; clients disable their send controls.
type SessionView struct {
	ID       string   `json:"session_id"`
	Language Language `json:"language"`
	Loading  bool     `json:"loading"`
	Turns    []Turn   `json:"turns"`
}
