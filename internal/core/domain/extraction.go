package domain

// ExtractionRequest carries the combined application text submitted for
// classification, plus the canonical role labels used as hints.
type ExtractionRequest struct {
	Subject    string
	Body       string
	ResumeText string
	Roles      []string

	// Truncated is set when the combined text exceeded the size cap and
	// trailing content was dropped.
	Truncated bool
}

// ExtractionResult is the structured applicant data returned by the
// inference provider. Name is required; a result without a name is a
// classification failure.
type ExtractionResult struct {
	Name       string `json:"Name"`
	Email      string `json:"Email"`
	Phone      string `json:"Phone"`
	Education  string `json:"Education"`
	JobHistory string `json:"JobHistory"`
	Domain     string `json:"Domain"`
}
