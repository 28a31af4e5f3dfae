package inference

import (
	"fmt"
	"strings"

	"github.com/applyflow/applyflow/internal/core/domain"
)

// MaxCombinedText caps the text submitted per extraction. Content beyond
// the cap is dropped and the request's Truncated flag is set.
const MaxCombinedText = 30000

const promptTemplate = `You are an expert HR data extraction system. Your task is to analyze the following text from a job application.
Extract the information and return ONLY a single, valid JSON object with these exact keys:

"Name": Full name of applicant
"Email": Email address
"Phone": 10-digit mobile number (remove country codes like +91)
"Education": A brief summary of their educational background
"JobHistory": Markdown bullet list of jobs including the job title, company, duration, and a 1-2 line summary of their responsibilities or achievements in that role
"Domain": Their primary role, chosen from these options: %s

Text to analyze:
---
%s
---

Return only the raw JSON object. Do not include any other text, explanations, or markdown markers.`

// BuildPrompt assembles the classification prompt from the request,
// enforcing the size cap. The request's Truncated flag reports whether
// trailing content was dropped.
func BuildPrompt(req *domain.ExtractionRequest) string {
	combined := fmt.Sprintf(
		"EMAIL SUBJECT: %s\n\nEMAIL BODY: %s\n\nRESUME CONTENT: %s",
		req.Subject, req.Body, req.ResumeText,
	)
	if len(combined) > MaxCombinedText {
		combined = combined[:MaxCombinedText]
		req.Truncated = true
	}
	return fmt.Sprintf(promptTemplate, strings.Join(req.Roles, ", "), combined)
}
