package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"healthmate/internal/llm"
	"healthmate/internal/metrics"
	"healthmate/pkg"

	"github.com/rs/zerolog"
)

// Operation names one of the model invocations the assistant can make.
type Operation string

const (
	OpSymptomAnalysis Operation = "symptom_analysis"
	OpReportSummary   Operation = "report_summary"
	OpGeneralChat     Operation = "general_chat"
	OpHospitalFormat  Operation = "hospital_format"
	OpHospitalLookup  Operation = "hospital_lookup"
)

// Route selects the operation for a user turn.  An attachment always wins;
// otherwise a case-insensitive match of the language's symptom keyword
// selects symptom analysis, and everything else is general chat.
func Route(text string, hasAttachment bool, lang pkg.Language) Operation {
	if hasAttachment {
		return OpReportSummary
	}
	keyword := StringsFor(lang).SymptomKeyword
	if strings.Contains(strings.ToLower(text), strings.ToLower(keyword)) {
		return OpSymptomAnalysis
	}
	return OpGeneralChat
}

// Payload is the typed result of one operation.  The concrete types are
// SymptomResult, ReportResult, PlainText and HospitalList.
type Payload interface {
	Kind() pkg.PayloadKind
	DisplayText() string
}

// SymptomResult carries the analysis and its composed display text.
type SymptomResult struct {
	Analysis pkg.SymptomAnalysis
	Text     string
}

func (r *SymptomResult) Kind() pkg.PayloadKind { return pkg.KindSymptom }
func (r *SymptomResult) DisplayText() string   { return r.Text }

// ReportResult carries a summarised report.
type ReportResult struct {
	Report pkg.ReportSummary
}

func (r *ReportResult) Kind() pkg.PayloadKind { return pkg.KindReport }
func (r *ReportResult) DisplayText() string   { return r.Report.Summary }

// PlainText is a freeform reply.
type PlainText struct {
	Text string
}

func (r *PlainText) Kind() pkg.PayloadKind { return pkg.KindText }
func (r *PlainText) DisplayText() string   { return r.Text }

// HospitalList carries the hospitals shown to the user and the model's
// formatting of them.  Text is opaque display text.
type HospitalList struct {
	Hospitals []pkg.Hospital
	Text      string
}

func (r *HospitalList) Kind() pkg.PayloadKind { return pkg.KindHospitals }
func (r *HospitalList) DisplayText() string   { return r.Text }

// Dispatcher builds prompts and schemas for each operation and decodes the
// Gateway's replies.  It never retries and keeps no state.
type Dispatcher struct {
	LLM    llm.Client
	Logger zerolog.Logger
}

// NewDispatcher constructs a Dispatcher over the given Gateway client.
func NewDispatcher(client llm.Client, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{LLM: client, Logger: logger.With().Str("component", "dispatcher").Logger()}
}

// Dispatch routes a user turn and runs the selected operation.  history is
// the conversation before this turn, oldest first.
func (d *Dispatcher) Dispatch(ctx context.Context, lang pkg.Language, text string, att *pkg.Attachment, history []pkg.Turn) (Payload, error) {
	switch op := Route(text, att != nil, lang); op {
	case OpReportSummary:
		return d.SummarizeReport(ctx, lang, text, att)
	case OpSymptomAnalysis:
		return d.AnalyzeSymptoms(ctx, lang, text)
	default:
		return d.GeneralReply(ctx, lang, text, history)
	}
}

// AnalyzeSymptoms asks for a structured symptom analysis.
func (d *Dispatcher) AnalyzeSymptoms(ctx context.Context, lang pkg.Language, text string) (*SymptomResult, error) {
	reply, err := d.generate(ctx, OpSymptomAnalysis, llm.Request{
		SystemInstruction: SystemInstruction(lang),
		Prompt:            symptomPrompt(text),
		Schema:            symptomSchema,
	})
	if err != nil {
		return nil, err
	}
	analysis, err := decodeSymptom(reply)
	if err != nil {
		metrics.GatewayFailuresTotal.WithLabelValues(string(OpSymptomAnalysis)).Inc()
		return nil, fmt.Errorf("%s: %w", OpSymptomAnalysis, err)
	}
	return &SymptomResult{Analysis: *analysis, Text: composeSymptomText(*analysis, lang)}, nil
}

// composeSymptomText renders the analysis: causes, the urgency line and,
// when non-blank, the lifestyle section.
func composeSymptomText(a pkg.SymptomAnalysis, lang pkg.Language) string {
	s := StringsFor(lang)
	var b strings.Builder
	b.WriteString(a.PossibleCauses)
	b.WriteString("\n\n**" + s.Urgency + ":** " + a.UrgencyLevel)
	if strings.TrimSpace(a.LifestyleAdjustments) != "" {
		b.WriteString("\n\n**" + s.LifestyleTitle + ":**\n" + a.LifestyleAdjustments)
	}
	return b.String()
}

// SummarizeReport sends the uploaded file with the user's comment and asks
// for a structured summary.
func (d *Dispatcher) SummarizeReport(ctx context.Context, lang pkg.Language, text string, att *pkg.Attachment) (*ReportResult, error) {
	if att == nil {
		return nil, fmt.Errorf("%s: attachment required", OpReportSummary)
	}
	reply, err := d.generate(ctx, OpReportSummary, llm.Request{
		SystemInstruction: SystemInstruction(lang),
		Prompt:            reportPrompt(text),
		Attachment:        att,
		Schema:            reportSchema,
	})
	if err != nil {
		return nil, err
	}
	report, err := decodeReport(reply)
	if err != nil {
		metrics.GatewayFailuresTotal.WithLabelValues(string(OpReportSummary)).Inc()
		return nil, fmt.Errorf("%s: %w", OpReportSummary, err)
	}
	return &ReportResult{Report: *report}, nil
}

// GeneralReply continues the conversation with the full prior transcript
// as context.  The reply is freeform.
func (d *Dispatcher) GeneralReply(ctx context.Context, lang pkg.Language, text string, history []pkg.Turn) (*PlainText, error) {
	reply, err := d.generate(ctx, OpGeneralChat, llm.Request{
		SystemInstruction: SystemInstruction(lang),
		Prompt:            text,
		History:           chatHistory(history),
	})
	if err != nil {
		return nil, err
	}
	return &PlainText{Text: reply}, nil
}

// chatHistory maps turns to alternating chat roles, oldest first.  Turns
// without text carry nothing the model can use and are skipped.
func chatHistory(turns []pkg.Turn) []llm.Message {
	out := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		role := "assistant"
		if t.Sender == pkg.SenderUser {
			role = "user"
		}
		out = append(out, llm.Message{Role: role, Content: t.Text})
	}
	return out
}

// FormatHospitals asks the model to render hospitals, already in display
// order, as a list.  The order is preserved in the serialised payload and
// the reply is returned untouched.
func (d *Dispatcher) FormatHospitals(ctx context.Context, lang pkg.Language, hospitals []pkg.Hospital) (*HospitalList, error) {
	data, err := json.Marshal(hospitals)
	if err != nil {
		return nil, fmt.Errorf("%s: encode hospitals: %w", OpHospitalFormat, err)
	}
	reply, err := d.generate(ctx, OpHospitalFormat, llm.Request{
		SystemInstruction: SystemInstruction(lang),
		Prompt:            hospitalFormatPrompt(lang, string(data)),
	})
	if err != nil {
		return nil, err
	}
	return &HospitalList{Hospitals: hospitals, Text: reply}, nil
}

// generate performs one Gateway call with metrics.  Blank replies are
// failures regardless of what the client returned.
func (d *Dispatcher) generate(ctx context.Context, op Operation, req llm.Request) (string, error) {
	metrics.DispatchesTotal.WithLabelValues(string(op)).Inc()
	start := time.Now()
	reply, err := d.LLM.Generate(ctx, req)
	metrics.GatewayDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
	if err == nil && strings.TrimSpace(reply) == "" {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		metrics.GatewayFailuresTotal.WithLabelValues(string(op)).Inc()
		return "", fmt.Errorf("%s: %w", op, err)
	}
	d.Logger.Debug().Str("operation", string(op)).Dur("took", time.Since(start)).Msg("gateway reply")
	return reply, nil
}
