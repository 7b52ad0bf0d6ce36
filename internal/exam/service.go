package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-assess/internal/apperr"
	"github.com/mind-engage/mindengage-assess/internal/grading"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
	syncx "github.com/mind-engage/mindengage-assess/internal/sync"
)

// Events receives domain events; a failed emit never fails the operation.
type Events interface {
	Emit(ctx context.Context, typ, key string, data any) error
}

// Engine owns assessments and the attempt/grading workflow on top of Store.
type Engine struct {
	store  Store
	events Events
	now    func() time.Time
}

func NewEngine(store Store, events Events, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{store: store, events: events, now: now}
}

func (e *Engine) emit(ctx context.Context, typ, key string, data any) {
	if e.events == nil {
		return
	}
	if err := e.events.Emit(ctx, typ, key, data); err != nil {
		log.Printf("event %s %s: %v", typ, key, err)
	}
}

// Materialize makes sure the subject has its assessment and that questionID
// belongs to it. Calling it again for the same question changes nothing.
func (e *Engine) Materialize(ctx context.Context, subjectID, subjectName, questionID, createdBy string) error {
	id, created, err := e.store.EnsureAssessment(ctx, e.template(subjectID, subjectName, createdBy), questionID)
	if err != nil {
		return err
	}
	e.materialized(ctx, id, subjectID, questionID, created)
	return nil
}

// MaterializeTx is Materialize on tx. The event is held back until the caller
// runs the returned func after commit.
func (e *Engine) MaterializeTx(ctx context.Context, tx *sql.Tx, subjectID, subjectName, questionID, createdBy string) (func(), error) {
	id, created, err := e.store.EnsureAssessmentTx(ctx, tx, e.template(subjectID, subjectName, createdBy), questionID)
	if err != nil {
		return nil, err
	}
	return func() { e.materialized(ctx, id, subjectID, questionID, created) }, nil
}

func (e *Engine) template(subjectID, subjectName, createdBy string) Assessment {
	now := e.now().UTC()
	return Assessment{
		ID:              uuid.NewString(),
		Subject:         Ref{ID: subjectID, Name: subjectName},
		Title:           subjectName + " - Assessment",
		Description:     "Assessment for " + subjectName,
		DurationMinutes: MaterializedDurationMinutes,
		ScheduledAt:     now,
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (e *Engine) materialized(ctx context.Context, id, subjectID, questionID string, created bool) {
	e.emit(ctx, syncx.TypeAssessmentMaterialized, id, map[string]any{
		"assessmentId": id,
		"subjectId":    subjectID,
		"questionId":   questionID,
		"created":      created,
	})
}

// ---- attempts ----

const (
	placeholderText       = "Question text not available"
	placeholderDifficulty = "Medium"
	placeholderTitle      = "Assessment"
)

var placeholderOptions = []string{"Option A", "Option B", "Option C", "Option D"}

// Attempt returns the student-safe view of an assessment plus any saved draft
// answers. It never writes.
func (e *Engine) Attempt(ctx context.Context, caller rbac.Caller, assessmentID string) (AttemptView, error) {
	if caller.Role != rbac.RoleStudent {
		return AttemptView{}, apperr.Forbidden("Only students can take assessments")
	}
	a, err := e.store.GetAssessment(ctx, assessmentID, false)
	if err != nil {
		return AttemptView{}, err
	}

	view := AttemptView{
		ID:              a.ID,
		Title:           a.Title,
		Subject:         a.Subject,
		DurationMinutes: a.DurationMinutes,
		Questions:       make([]AttemptQuestion, 0, len(a.Questions)),
		DraftAnswers:    map[string]string{},
	}
	if strings.TrimSpace(view.Title) == "" {
		view.Title = placeholderTitle
	}
	if view.DurationMinutes <= 0 {
		view.DurationMinutes = DefaultDurationMinutes
	}
	for _, q := range a.Questions {
		aq, degraded := sanitize(q)
		if degraded {
			log.Printf("warn: assessment %s question %s has missing fields, using placeholders", a.ID, q.ID)
		}
		view.Questions = append(view.Questions, aq)
	}
	if len(view.Questions) == 0 {
		return AttemptView{}, apperr.NoQuestions("This assessment has no questions yet.")
	}

	draft, err := e.store.FindDraft(ctx, caller.ID, a.ID)
	switch {
	case err == nil:
		for _, m := range draft.Answers {
			view.DraftAnswers[m.QuestionID] = m.SelectedAnswer
		}
	case errors.Is(err, apperr.ErrNotFound):
	default:
		return AttemptView{}, err
	}
	return view, nil
}

func sanitize(q Question) (AttemptQuestion, bool) {
	out := AttemptQuestion{ID: q.ID, QuestionText: q.QuestionText, Options: q.Options, Difficulty: q.Difficulty}
	degraded := false
	if strings.TrimSpace(out.QuestionText) == "" {
		out.QuestionText = placeholderText
		degraded = true
	}
	if len(out.Options) == 0 {
		out.Options = append([]string(nil), placeholderOptions...)
		degraded = true
	}
	if out.Difficulty == "" {
		out.Difficulty = placeholderDifficulty
	}
	return out, degraded
}

// ---- submissions ----

type SubmitInput struct {
	AssessmentID string
	Answers      map[string]string
	Final        bool
}

// Submit grades the answers against the assessment's current questions and
// records them as the pair's draft, or finalizes it.
func (e *Engine) Submit(ctx context.Context, caller rbac.Caller, in SubmitInput) (Result, error) {
	if caller.Role != rbac.RoleStudent {
		return Result{}, apperr.Forbidden("Only students can submit assessments")
	}
	if strings.TrimSpace(in.AssessmentID) == "" {
		return Result{}, apperr.Validation("assessmentId is required")
	}
	a, err := e.store.GetAssessment(ctx, in.AssessmentID, true)
	if err != nil {
		return Result{}, err
	}

	keys := make([]grading.Key, 0, len(a.Questions))
	for _, q := range a.Questions {
		keys = append(keys, grading.Key{QuestionID: q.ID, CorrectAnswer: q.CorrectAnswer})
	}
	sheet := grading.Grade(keys, in.Answers)

	res, err := e.store.RecordSubmission(ctx, Submission{
		StudentID:    caller.ID,
		AssessmentID: a.ID,
		SubjectID:    a.Subject.ID,
		Sheet:        sheet,
		Final:        in.Final,
		At:           e.now().UTC(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("record submission: %w", err)
	}
	if in.Final {
		e.emit(ctx, syncx.TypeResultFinalized, res.ID, map[string]any{
			"resultId":     res.ID,
			"studentId":    res.StudentID,
			"assessmentId": a.ID,
			"score":        res.Score,
			"total":        res.TotalQuestions,
			"percentage":   res.Percentage,
		})
	}
	return res, nil
}

// Results returns every result of the student, most recently completed first.
func (e *Engine) Results(ctx context.Context, studentID string) ([]Result, error) {
	rs, err := e.store.ListResults(ctx, studentID)
	if err != nil {
		return nil, err
	}
	SortByCompletion(rs, true)
	return rs, nil
}

// ---- assessment CRUD ----

type AssessmentInput struct {
	SubjectID       string
	Title           string
	Description     string
	DurationMinutes int
	ScheduledAt     *time.Time
	QuestionIDs     []string
}

// ListAssessments returns every assessment; students get no question lists.
func (e *Engine) ListAssessments(ctx context.Context, caller rbac.Caller) ([]Assessment, error) {
	return e.store.ListAssessments(ctx, caller.Role != rbac.RoleStudent)
}

func (e *Engine) GetAssessment(ctx context.Context, caller rbac.Caller, id string) (Assessment, error) {
	if caller.Role == rbac.RoleStudent {
		return Assessment{}, apperr.Forbidden("Forbidden")
	}
	return e.store.GetAssessment(ctx, id, true)
}

func (e *Engine) CreateAssessment(ctx context.Context, caller rbac.Caller, in AssessmentInput) (Assessment, error) {
	if strings.TrimSpace(in.SubjectID) == "" || strings.TrimSpace(in.Title) == "" {
		return Assessment{}, apperr.Validation("subject and title are required")
	}
	if in.DurationMinutes < 0 {
		return Assessment{}, apperr.Validation("durationMinutes must not be negative")
	}
	now := e.now().UTC()
	a := Assessment{
		ID:              uuid.NewString(),
		Subject:         Ref{ID: in.SubjectID},
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		DurationMinutes: in.DurationMinutes,
		ScheduledAt:     now,
		CreatedBy:       caller.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if a.DurationMinutes == 0 {
		a.DurationMinutes = DefaultDurationMinutes
	}
	if in.ScheduledAt != nil {
		a.ScheduledAt = in.ScheduledAt.UTC()
	}
	if err := e.store.CreateAssessment(ctx, a, dedupe(in.QuestionIDs)); err != nil {
		return Assessment{}, err
	}
	return e.store.GetAssessment(ctx, a.ID, true)
}

func (e *Engine) UpdateAssessment(ctx context.Context, id string, p AssessmentPatch) (Assessment, error) {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return Assessment{}, apperr.Validation("title must not be empty")
	}
	if p.DurationMinutes != nil && *p.DurationMinutes <= 0 {
		return Assessment{}, apperr.Validation("durationMinutes must be positive")
	}
	if p.QuestionIDs != nil {
		p.QuestionIDs = dedupe(p.QuestionIDs)
	}
	if err := e.store.UpdateAssessment(ctx, id, p, e.now().UTC().UnixMilli()); err != nil {
		return Assessment{}, err
	}
	return e.store.GetAssessment(ctx, id, true)
}

func (e *Engine) DeleteAssessment(ctx context.Context, id string) error {
	if _, err := e.store.GetAssessment(ctx, id, false); err != nil {
		return err
	}
	return e.store.DeleteAssessment(ctx, id)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
