package core

// prompts.go defines the instructions sent to the model for each operation.
// Keeping these prompts in a separate file makes them easy to tweak without
// touching the dispatch logic.

import (
	"fmt"

	"healthmate/pkg"
)

// SystemInstruction returns the fixed rules for a session language.  It
// forbids diagnosis, requires the non-doctor disclosure and the emoji
// conventions, and tells the model how to answer irrelevant uploads.
func SystemInstruction(lang pkg.Language) string {
	return fmt.Sprintf(`You are HealthMate AI, a friendly and supportive healthcare assistant. Your language is %s.
You MUST follow these rules:
1. NEVER provide a medical diagnosis. Always state you are not a doctor.
2. Keep responses short, clear, conversational, and use emojis (🩺🍎🥦🏥⚠).
3. When given a list of hospitals, format it clearly using emojis (🏥📍⭐) as per instructions. Do not add any information not provided in the list.
4. For symptom analysis, you MUST use the provided JSON schema.
5. For medical report summarization, you MUST use the provided JSON schema.
6. If a user uploads an irrelevant file, respond with: "%s".`, lang.Name(), StringsFor(lang).FileNotSupported)
}

// defaultReportComment stands in for an empty user comment on uploads.
const defaultReportComment = "Please summarize."

func symptomPrompt(text string) string {
	return fmt.Sprintf("A user has described their symptoms: %q. Analyze these symptoms to provide possible causes, an urgency level, and potential lifestyle adjustments or preventive measures related to the symptoms.", text)
}

func reportPrompt(text string) string {
	if text == "" {
		text = defaultReportComment
	}
	return fmt.Sprintf("Summarize this medical report. User comment: %q", text)
}

func hospitalFormatPrompt(lang pkg.Language, hospitalJSON string) string {
	return fmt.Sprintf(`A user speaking %s needs a list of nearby hospitals. Here is the data: %s. Please format this into a user-friendly list.

Formatting rules:
- The list is already sorted by proximity, so present them in this order.
- For each hospital, create an entry.
- The first line of the entry must contain: 🏥 emoji, the hospital's name in bold (using markdown), the distance, and if a rating is available, the ⭐ emoji followed by the rating.
- The second line of the entry must contain: 📍 emoji, followed by the address.
- Separate each hospital entry with a newline.
- Do not add any text before or after the list. Just return the formatted list.`, lang.Name(), hospitalJSON)
}

func hospitalLookupPrompt(c pkg.Coordinates, limit int) string {
	return fmt.Sprintf("List up to %d real hospitals or emergency care facilities closest to latitude %.6f, longitude %.6f, nearest first. Include each facility's name, street address and a public phone number. Return an empty list if you do not know any.", limit, c.Latitude, c.Longitude)
}
