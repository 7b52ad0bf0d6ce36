package exam

import (
	"time"

	"github.com/mind-engage/mindengage-assess/internal/grading"
)

// Status is the explicit state of a Result: NONE -> draft -> final.
// A draft may be overwritten any number of times; a final row never changes.
type Status string

const (
	StatusDraft Status = "draft"
	StatusFinal Status = "final"
)

const (
	DefaultDurationMinutes      = 30
	MaterializedDurationMinutes = 15
)

type Ref struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Question is a question as it sits inside an assessment. CorrectAnswer is
// only populated on reads that ask for answer keys.
type Question struct {
	ID            string   `json:"_id"`
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
	Difficulty    string   `json:"difficulty"`
}

type Assessment struct {
	ID              string     `json:"_id"`
	Subject         Ref        `json:"subject"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Questions       []Question `json:"questions,omitempty"`
	QuestionCount   int        `json:"questionCount"`
	DurationMinutes int        `json:"durationMinutes"`
	ScheduledAt     time.Time  `json:"scheduledAt"`
	CreatedBy       string     `json:"createdBy"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type AssessmentRef struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
}

type Result struct {
	ID             string         `json:"_id"`
	StudentID      string         `json:"student"`
	Assessment     AssessmentRef  `json:"assessment"`
	Subject        Ref            `json:"subject"`
	Score          int            `json:"score"`
	TotalQuestions int            `json:"totalQuestions"`
	Percentage     int            `json:"percentage"`
	Answers        []grading.Mark `json:"answers"`
	Status         Status         `json:"status"`
	Submitted      bool           `json:"submitted"`
	CompletedAt    *time.Time     `json:"completedAt"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// AttemptQuestion is the student-safe projection of a question.
type AttemptQuestion struct {
	ID           string   `json:"_id"`
	QuestionText string   `json:"questionText"`
	Options      []string `json:"options"`
	Difficulty   string   `json:"difficulty"`
}

// AttemptView is what a student receives when starting or resuming an attempt.
type AttemptView struct {
	ID              string            `json:"_id"`
	Title           string            `json:"title"`
	Subject         Ref               `json:"subject"`
	DurationMinutes int               `json:"durationMinutes"`
	Questions       []AttemptQuestion `json:"questions"`
	DraftAnswers    map[string]string `json:"draftAnswers"`
}

// Submission is a graded sheet ready to be recorded against a (student, assessment) pair.
type Submission struct {
	StudentID    string
	AssessmentID string
	SubjectID    string
	Sheet        grading.Sheet
	Final        bool
	At           time.Time
}
