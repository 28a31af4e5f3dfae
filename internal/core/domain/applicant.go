package domain

import (
	"time"
)

// Applicant represents a job applicant extracted from an application email.
// Applicants are unique by email address.
type Applicant struct {
	ID         int64
	Name       string
	Email      string
	Phone      string
	Education  string
	JobHistory string
	Domain     string
	ResumeURL  string
	Status     ApplicantStatus
	Feedback   string
	ThreadID   *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ApplicantStatus string

const (
	StatusNew                ApplicantStatus = "New"
	StatusShortlisted        ApplicantStatus = "Shortlisted"
	StatusInterviewScheduled ApplicantStatus = "InterviewScheduled"
	StatusRejected           ApplicantStatus = "Rejected"
	StatusHired              ApplicantStatus = "Hired"
)

// TerminalStatuses are statuses whose threads are no longer polled for replies.
var TerminalStatuses = []ApplicantStatus{StatusRejected, StatusHired}

// ActiveThread pairs an applicant with their open conversation thread.
type ActiveThread struct {
	ApplicantID int64
	ThreadID    string
}

// StorageStats summarizes persisted state for monitoring.
type StorageStats struct {
	TotalApplicants     int            `json:"total_applicants"`
	TotalCommunications int            `json:"total_communications"`
	ActiveThreads       int            `json:"active_threads"`
	StatusDistribution  map[string]int `json:"status_distribution"`
}
