// Package model contains domain models passed between layers.
package model

import "time"

// Status values a submission moves through during ingestion.
const (
	StatusCreated    = "created"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// DataSource values distinguishing uploaded from pre-seeded submissions.
const (
	SourceUser   = "user"
	SourceSystem = "system"
)

// Accreditation modes.
const (
	ModeAICTE = "aicte"
	ModeUGC   = "ugc"
	ModeMixed = "mixed"
)

// Submission is one accreditation filing instance, as stored. The engines
// only ever read it; ingestion owns all writes.
type Submission struct {
	ID               string    `json:"submission_id"`
	Mode             string    `json:"mode"`
	Status           string    `json:"status"`
	Invalid          bool      `json:"is_invalid"`
	UserID           string    `json:"user_id,omitempty"`
	InstitutionID    string    `json:"institution_id,omitempty"`
	DepartmentID     string    `json:"department_id,omitempty"`
	InstitutionName  string    `json:"institution_name,omitempty"`
	DepartmentName   string    `json:"department_name,omitempty"`
	AcademicYear     string    `json:"academic_year,omitempty"`
	DataSource       string    `json:"data_source"`
	RawKPIs          string    `json:"-"` // JSON: metric key -> {value: n, ...} or bare number
	Sufficiency      string    `json:"-"` // JSON: {percentage, present_count, ...}
	ComplianceCount  int       `json:"compliance_count"`
	ApprovalCategory string    `json:"approval_category,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Block is one extracted data block attached to a submission. Only the
// fields the engines read are carried; extraction metadata stays in the
// ingestion pipeline.
type Block struct {
	ID         string  `json:"block_id"`
	Type       string  `json:"block_type"`
	Data       string  `json:"-"` // JSON object of extracted fields
	Invalid    bool    `json:"is_invalid"`
	Confidence float64 `json:"confidence"`
}

// Record is the read snapshot the engines operate on: the submission plus
// the associated counts the eligibility checks need. Built fresh per
// request; never mutated after construction.
type Record struct {
	Submission      *Submission
	DocumentCount   int
	ValidBlockCount int
	Blocks          []Block
}

// Filter narrows submission queries. Zero values mean "any".
type Filter struct {
	InstitutionName string
	DepartmentName  string
	Status          string
	Mode            string
	AcademicYear    string
	ExcludeID       string
	OnlyValid       bool
}

// SystemSourced reports whether the submission was pre-seeded rather than
// user-uploaded. System submissions may carry blocks without documents.
func (s *Submission) SystemSourced() bool {
	return s.DataSource == SourceSystem
}
