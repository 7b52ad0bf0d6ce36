package exam

import (
	"context"
	"database/sql"
)

// AssessmentPatch carries an edit; nil fields stay unchanged.
type AssessmentPatch struct {
	Title           *string
	Description     *string
	DurationMinutes *int
	ScheduledAt     *int64 // unix millis
	QuestionIDs     []string
}

type Store interface {
	// EnsureAssessment creates tmpl if its subject has no assessment yet and adds
	// questionID to that subject's assessment. Both steps commit together.
	EnsureAssessment(ctx context.Context, tmpl Assessment, questionID string) (assessmentID string, created bool, err error)
	// EnsureAssessmentTx is EnsureAssessment on the caller's transaction.
	EnsureAssessmentTx(ctx context.Context, tx *sql.Tx, tmpl Assessment, questionID string) (assessmentID string, created bool, err error)
	CreateAssessment(ctx context.Context, a Assessment, questionIDs []string) error
	// GetAssessment loads an assessment with its ordered questions. withKeys
	// controls whether correct answers are read at all.
	GetAssessment(ctx context.Context, id string, withKeys bool) (Assessment, error)
	ListAssessments(ctx context.Context, withQuestions bool) ([]Assessment, error)
	UpdateAssessment(ctx context.Context, id string, p AssessmentPatch, updatedAt int64) error
	DeleteAssessment(ctx context.Context, id string) error

	// FindDraft returns the unsubmitted result for the pair or a NotFound error.
	FindDraft(ctx context.Context, studentID, assessmentID string) (Result, error)
	// RecordSubmission overwrites the pair's draft or inserts a new row.
	RecordSubmission(ctx context.Context, sub Submission) (Result, error)
	GetResult(ctx context.Context, id string) (Result, error)
	ListResults(ctx context.Context, studentID string) ([]Result, error)
}
