package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"healthmate/internal/llm"
	"healthmate/pkg"

	"github.com/go-playground/validator/v10"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// ErrInvalidReply is returned when a structured reply is empty, is not JSON
// or does not match its schema.
var ErrInvalidReply = errors.New("reply does not match schema")

var (
	symptomSchema = &llm.Schema{
		Name: "symptom_analysis",
		Definition: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"possibleCauses": {
					Type:        jsonschema.String,
					Description: "A brief, conversational paragraph suggesting 2-3 possible causes. START WITH A FRIENDLY GREETING. DO NOT diagnose.",
				},
				"urgencyLevel": {
					Type:        jsonschema.String,
					Description: "A short description of the urgency level in the selected language.",
				},
				"urgency": {
					Type: jsonschema.String,
					Enum: []string{string(pkg.UrgencyNonUrgent), string(pkg.UrgencySemiUrgent), string(pkg.UrgencyEmergency)},
				},
				"lifestyleAdjustments": {
					Type:        jsonschema.String,
					Description: "A short, actionable list (1-3 points) of potential lifestyle adjustments or preventive measures related to the symptoms. Frame these as general wellness tips.",
				},
			},
			Required: []string{"possibleCauses", "urgencyLevel", "urgency"},
		},
	}

	reportSchema = &llm.Schema{
		Name: "report_summary",
		Definition: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"summary": {
					Type:        jsonschema.String,
					Description: "A simple, one-paragraph summary of the key findings in the selected language.",
				},
				"findings": {
					Type: jsonschema.Array,
					Items: &jsonschema.Definition{
						Type: jsonschema.Object,
						Properties: map[string]jsonschema.Definition{
							"testName": {Type: jsonschema.String},
							"value":    {Type: jsonschema.String},
							"trend": {
								Type:        jsonschema.String,
								Enum:        []string{string(pkg.TrendUp), string(pkg.TrendDown), string(pkg.TrendFlat)},
								Description: "Use up arrow for increase, down for decrease, space for stable/no data",
							},
							"status": {
								Type: jsonschema.String,
								Enum: []string{string(pkg.StatusNormal), string(pkg.StatusAbnormal)},
							},
						},
						Required: []string{"testName", "value", "trend", "status"},
					},
				},
			},
			Required: []string{"summary", "findings"},
		},
	}

	hospitalSchema = &llm.Schema{
		Name: "hospital_list",
		Definition: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"hospitals": {
					Type: jsonschema.Array,
					Items: &jsonschema.Definition{
						Type: jsonschema.Object,
						Properties: map[string]jsonschema.Definition{
							"name":    {Type: jsonschema.String},
							"address": {Type: jsonschema.String},
							"phone":   {Type: jsonschema.String},
						},
						Required: []string{"name", "address", "phone"},
					},
				},
			},
			Required: []string{"hospitals"},
		},
	}
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("urgency", func(fl validator.FieldLevel) bool {
		return pkg.Urgency(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("trend", func(fl validator.FieldLevel) bool {
		return pkg.Trend(fl.Field().String()).Valid()
	})
	return v
}

// decodeJSON decodes a single JSON document into out, rejecting unknown
// fields and trailing data.
func decodeJSON(text string, out interface{}) error {
	body := unfence(text)
	if body == "" {
		return fmt.Errorf("%w: empty reply", ErrInvalidReply)
	}
	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON document", ErrInvalidReply)
	}
	return nil
}

func validateReply(out interface{}) error {
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	return nil
}

// decodeReply strictly decodes a structured reply into out and validates it.
func decodeReply(text string, out interface{}) error {
	if err := decodeJSON(text, out); err != nil {
		return err
	}
	return validateReply(out)
}

// unfence strips a surrounding Markdown code fence, which some models add
// even when asked for raw JSON.
func unfence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func decodeSymptom(text string) (*pkg.SymptomAnalysis, error) {
	var out pkg.SymptomAnalysis
	if err := decodeReply(text, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func decodeReport(text string) (*pkg.ReportSummary, error) {
	var out pkg.ReportSummary
	if err := decodeJSON(text, &out); err != nil {
		return nil, err
	}
	for i := range out.Findings {
		if strings.TrimSpace(string(out.Findings[i].Trend)) == "" {
			out.Findings[i].Trend = pkg.TrendFlat
		}
	}
	if err := validateReply(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func decodeHospitals(text string) ([]pkg.Hospital, error) {
	var out pkg.HospitalList
	if err := decodeReply(text, &out); err != nil {
		return nil, err
	}
	return out.Hospitals, nil
}
