package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-assess/internal/apperr"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

type Store interface {
	CreateSubject(ctx context.Context, s Subject) error
	GetSubject(ctx context.Context, id string) (Subject, error)
	ListSubjects(ctx context.Context) ([]Subject, error)
	UpdateSubject(ctx context.Context, s Subject) error
	DeleteSubject(ctx context.Context, id string) error
	ReplaceTeachers(ctx context.Context, subjectID string, teacherIDs []string) error
	IsAssigned(ctx context.Context, subjectID, teacherID string) (bool, error)

	CreateQuestion(ctx context.Context, q Question, within func(tx *sql.Tx) error) error
	GetQuestion(ctx context.Context, id string) (Question, error)
	ListQuestions(ctx context.Context, subjectID string) ([]Question, error)
	UpdateQuestion(ctx context.Context, q Question) error
	DeleteQuestion(ctx context.Context, id string) error
}

// Materializer keeps the per-subject assessment in step with the question bank.
// MaterializeTx works inside the question's transaction; the returned func
// runs once that transaction has committed.
type Materializer interface {
	MaterializeTx(ctx context.Context, tx *sql.Tx, subjectID, subjectName, questionID, createdBy string) (func(), error)
}

type Service struct {
	store Store
	mat   Materializer
	now   func() time.Time
}

func NewService(store Store, mat Materializer, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, mat: mat, now: now}
}

// ---- subjects ----

type SubjectInput struct {
	Name        string
	Description string
}

func (s *Service) CreateSubject(ctx context.Context, in SubjectInput) (Subject, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Subject{}, apperr.Validation("Subject name is required")
	}
	now := s.now().UTC()
	sub := Subject{
		ID:               uuid.NewString(),
		Name:             name,
		Description:      in.Description,
		AssignedTeachers: []TeacherRef{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateSubject(ctx, sub); err != nil {
		return Subject{}, err
	}
	return sub, nil
}

func (s *Service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return s.store.GetSubject(ctx, id)
}

func (s *Service) ListSubjects(ctx context.Context) ([]Subject, error) {
	return s.store.ListSubjects(ctx)
}

func (s *Service) UpdateSubject(ctx context.Context, id string, in SubjectInput) (Subject, error) {
	sub, err := s.store.GetSubject(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		sub.Name = name
	}
	sub.Description = in.Description
	sub.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateSubject(ctx, sub); err != nil {
		return Subject{}, err
	}
	return s.store.GetSubject(ctx, id)
}

func (s *Service) DeleteSubject(ctx context.Context, id string) error {
	return s.store.DeleteSubject(ctx, id)
}

// AssignTeachers replaces the subject's teacher set. The same rows back
// each teacher's assignedSubjects, so both views stay consistent.
func (s *Service) AssignTeachers(ctx context.Context, id string, teacherIDs []string) (Subject, error) {
	if _, err := s.store.GetSubject(ctx, id); err != nil {
		return Subject{}, err
	}
	if err := s.store.ReplaceTeachers(ctx, id, dedupe(teacherIDs)); err != nil {
		return Subject{}, err
	}
	return s.store.GetSubject(ctx, id)
}

// ---- questions ----

type QuestionInput struct {
	SubjectID     string
	QuestionText  string
	Options       []string
	CorrectAnswer string
	Difficulty    string
}

// QuestionPatch carries the fields of an edit; nil means unchanged.
type QuestionPatch struct {
	QuestionText  *string
	Options       []string
	CorrectAnswer *string
	Difficulty    *string
}

// CreateQuestion stores a question authored by an assigned teacher and
// materializes the subject's assessment around it. Both commit together.
func (s *Service) CreateQuestion(ctx context.Context, caller rbac.Caller, in QuestionInput) (Question, error) {
	if strings.TrimSpace(in.SubjectID) == "" {
		return Question{}, apperr.Validation("subject is required")
	}
	sub, err := s.store.GetSubject(ctx, in.SubjectID)
	if err != nil {
		return Question{}, err
	}
	ok, err := s.store.IsAssigned(ctx, sub.ID, caller.ID)
	if err != nil {
		return Question{}, err
	}
	if !ok {
		return Question{}, apperr.Forbidden("You are not assigned to this subject")
	}

	now := s.now().UTC()
	q := Question{
		ID:            uuid.NewString(),
		Subject:       Ref{ID: sub.ID, Name: sub.Name},
		QuestionText:  strings.TrimSpace(in.QuestionText),
		Options:       in.Options,
		CorrectAnswer: in.CorrectAnswer,
		Difficulty:    in.Difficulty,
		CreatedBy:     Ref{ID: caller.ID},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if q.Difficulty == "" {
		q.Difficulty = DifficultyMedium
	}
	if err := validateQuestion(q); err != nil {
		return Question{}, err
	}
	var committed func()
	err = s.store.CreateQuestion(ctx, q, func(tx *sql.Tx) error {
		var err error
		committed, err = s.mat.MaterializeTx(ctx, tx, sub.ID, sub.Name, q.ID, caller.ID)
		if err != nil {
			return fmt.Errorf("materialize assessment: %w", err)
		}
		return nil
	})
	if err != nil {
		return Question{}, err
	}
	if committed != nil {
		committed()
	}
	return s.store.GetQuestion(ctx, q.ID)
}

func (s *Service) GetQuestion(ctx context.Context, id string) (Question, error) {
	return s.store.GetQuestion(ctx, id)
}

func (s *Service) ListQuestions(ctx context.Context, subjectID string) ([]Question, error) {
	return s.store.ListQuestions(ctx, subjectID)
}

// UpdateQuestion is restricted to the creating teacher, who must still be assigned.
func (s *Service) UpdateQuestion(ctx context.Context, caller rbac.Caller, id string, p QuestionPatch) (Question, error) {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return Question{}, err
	}
	if q.CreatedBy.ID != caller.ID {
		return Question{}, apperr.Forbidden("Forbidden")
	}
	ok, err := s.store.IsAssigned(ctx, q.Subject.ID, caller.ID)
	if err != nil {
		return Question{}, err
	}
	if !ok {
		return Question{}, apperr.Forbidden("Not assigned to this subject")
	}

	if p.QuestionText != nil {
		q.QuestionText = strings.TrimSpace(*p.QuestionText)
	}
	if p.Options != nil {
		q.Options = p.Options
	}
	if p.CorrectAnswer != nil {
		q.CorrectAnswer = *p.CorrectAnswer
	}
	if p.Difficulty != nil {
		q.Difficulty = *p.Difficulty
	}
	if err := validateQuestion(q); err != nil {
		return Question{}, err
	}
	q.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateQuestion(ctx, q); err != nil {
		return Question{}, err
	}
	return s.store.GetQuestion(ctx, id)
}

// DeleteQuestion is allowed for the creating teacher or an admin.
func (s *Service) DeleteQuestion(ctx context.Context, caller rbac.Caller, id string) error {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return err
	}
	if caller.Role == rbac.RoleTeacher && q.CreatedBy.ID != caller.ID {
		return apperr.Forbidden("Forbidden")
	}
	return s.store.DeleteQuestion(ctx, id)
}

func validateQuestion(q Question) error {
	if q.QuestionText == "" {
		return apperr.Validation("questionText is required")
	}
	if len(q.Options) == 0 {
		return apperr.Validation("options are required")
	}
	for _, o := range q.Options {
		if o == "" {
			return apperr.Validation("options must not be empty")
		}
	}
	if q.CorrectAnswer == "" {
		return apperr.Validation("correctAnswer is required")
	}
	found := false
	for _, o := range q.Options {
		if o == q.CorrectAnswer {
			found = true
			break
		}
	}
	if !found {
		return apperr.Validation("correctAnswer must match one of the options")
	}
	if !validDifficulty(q.Difficulty) {
		return apperr.Validation("difficulty must be one of Easy, Medium, Hard")
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
