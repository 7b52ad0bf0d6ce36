package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-assess/internal/apperr"
	"github.com/mind-engage/mindengage-assess/internal/grading"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	return fn(tx)
}

// ---- assessments ----

func (s *SQLStore) EnsureAssessment(ctx context.Context, tmpl Assessment, questionID string) (string, bool, error) {
	var id string
	var created bool
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		id, created, err = s.EnsureAssessmentTx(ctx, tx, tmpl, questionID)
		return err
	})
	if err != nil {
		return "", false, err
	}
	return id, created, nil
}

func (s *SQLStore) EnsureAssessmentTx(ctx context.Context, tx *sql.Tx, tmpl Assessment, questionID string) (string, bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO assessments (id,subject_id,title,description,duration_minutes,scheduled_at,created_by,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (subject_id) DO NOTHING`,
		tmpl.ID, tmpl.Subject.ID, tmpl.Title, tmpl.Description, tmpl.DurationMinutes,
		tmpl.ScheduledAt.UnixMilli(), tmpl.CreatedBy, tmpl.CreatedAt.UnixMilli(), tmpl.UpdatedAt.UnixMilli())
	if err != nil {
		return "", false, err
	}
	created := false
	if n, _ := res.RowsAffected(); n > 0 {
		created = true
	}
	var id string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM assessments WHERE subject_id=$1`, tmpl.Subject.ID).Scan(&id); err != nil {
		return "", false, fmt.Errorf("read back assessment: %w", err)
	}
	if err := addQuestion(ctx, tx, id, questionID); err != nil {
		return "", false, err
	}
	return id, created, nil
}

// addQuestion appends questionID to the assessment unless it is already a member.
func addQuestion(ctx context.Context, q queryer, assessmentID, questionID string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO assessment_questions (assessment_id, question_id, position)
		SELECT $1, $2, COALESCE(MAX(position), 0) + 1
		  FROM assessment_questions
		 WHERE assessment_id = $1
		ON CONFLICT (assessment_id, question_id) DO NOTHING`,
		assessmentID, questionID)
	return err
}

func replaceQuestions(ctx context.Context, tx *sql.Tx, assessmentID string, questionIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM assessment_questions WHERE assessment_id=$1`, assessmentID); err != nil {
		return err
	}
	for _, qid := range questionIDs {
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM questions WHERE id=$1`, qid).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound(fmt.Sprintf("Question %s not found", qid))
			}
			return err
		}
		if err := addQuestion(ctx, tx, assessmentID, qid); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) CreateAssessment(ctx context.Context, a Assessment, questionIDs []string) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM subjects WHERE id=$1`, a.Subject.ID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("Subject not found")
			}
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO assessments (id,subject_id,title,description,duration_minutes,scheduled_at,created_by,created_at,updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			a.ID, a.Subject.ID, a.Title, a.Description, a.DurationMinutes,
			a.ScheduledAt.UnixMilli(), a.CreatedBy, a.CreatedAt.UnixMilli(), a.UpdatedAt.UnixMilli())
		if apperr.IsUniqueViolation(err) {
			return apperr.Validation("An assessment already exists for this subject")
		}
		if err != nil {
			return err
		}
		return replaceQuestions(ctx, tx, a.ID, questionIDs)
	})
}

const assessmentSelect = `
	SELECT a.id, a.subject_id, COALESCE(s.name,''), a.title, a.description, a.duration_minutes,
	       a.scheduled_at, a.created_by, a.created_at, a.updated_at,
	       (SELECT COUNT(1) FROM assessment_questions aq WHERE aq.assessment_id = a.id)
	  FROM assessments a
	  LEFT JOIN subjects s ON s.id = a.subject_id`

func scanAssessment(row interface{ Scan(...any) error }) (Assessment, error) {
	var a Assessment
	var sched, created, updated int64
	if err := row.Scan(&a.ID, &a.Subject.ID, &a.Subject.Name, &a.Title, &a.Description, &a.DurationMinutes,
		&sched, &a.CreatedBy, &created, &updated, &a.QuestionCount); err != nil {
		return Assessment{}, err
	}
	a.ScheduledAt, a.CreatedAt, a.UpdatedAt = millis(sched), millis(created), millis(updated)
	return a, nil
}

func (s *SQLStore) GetAssessment(ctx context.Context, id string, withKeys bool) (Assessment, error) {
	a, err := scanAssessment(s.db.QueryRowContext(ctx, assessmentSelect+` WHERE a.id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Assessment{}, apperr.NotFound("Assessment not found")
	}
	if err != nil {
		return Assessment{}, err
	}
	if a.Questions, err = s.questions(ctx, id, withKeys); err != nil {
		return Assessment{}, err
	}
	return a, nil
}

func (s *SQLStore) questions(ctx context.Context, assessmentID string, withKeys bool) ([]Question, error) {
	key := `''`
	if withKeys {
		key = `q.correct_answer`
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.question_text, q.options_json, `+key+`, q.difficulty
		  FROM assessment_questions aq
		  JOIN questions q ON q.id = aq.question_id
		 WHERE aq.assessment_id = $1
		 ORDER BY aq.position, q.created_at, q.id`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		var q Question
		var optsJSON string
		if err := rows.Scan(&q.ID, &q.QuestionText, &optsJSON, &q.CorrectAnswer, &q.Difficulty); err != nil {
			return nil, err
		}
		// a malformed options column is degraded later, not fatal here
		_ = json.Unmarshal([]byte(optsJSON), &q.Options)
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListAssessments(ctx context.Context, withQuestions bool) ([]Assessment, error) {
	rows, err := s.db.QueryContext(ctx, assessmentSelect+` ORDER BY a.scheduled_at DESC, a.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if withQuestions {
		for i := range out {
			if out[i].Questions, err = s.questions(ctx, out[i].ID, true); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (s *SQLStore) UpdateAssessment(ctx context.Context, id string, p AssessmentPatch, updatedAt int64) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		var (
			title, desc string
			dur         int
			sched       int64
		)
		err := tx.QueryRowContext(ctx,
			`SELECT title, description, duration_minutes, scheduled_at FROM assessments WHERE id=$1`, id).
			Scan(&title, &desc, &dur, &sched)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("Assessment not found")
		}
		if err != nil {
			return err
		}
		if p.Title != nil {
			title = *p.Title
		}
		if p.Description != nil {
			desc = *p.Description
		}
		if p.DurationMinutes != nil {
			dur = *p.DurationMinutes
		}
		if p.ScheduledAt != nil {
			sched = *p.ScheduledAt
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE assessments SET title=$1, description=$2, duration_minutes=$3, scheduled_at=$4, updated_at=$5 WHERE id=$6`,
			title, desc, dur, sched, updatedAt, id); err != nil {
			return err
		}
		if p.QuestionIDs != nil {
			return replaceQuestions(ctx, tx, id, p.QuestionIDs)
		}
		return nil
	})
}

func (s *SQLStore) DeleteAssessment(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM assessments WHERE id=$1`, id)
	return err
}

// ---- results ----

const resultSelect = `
	SELECT r.id, r.student_id, r.assessment_id, COALESCE(a.title,''), a.scheduled_at,
	       r.subject_id, COALESCE(s.name,''), r.score, r.total_questions, r.percentage,
	       r.answers_json, r.status, r.completed_at, r.created_at, r.updated_at
	  FROM results r
	  LEFT JOIN assessments a ON a.id = r.assessment_id
	  LEFT JOIN subjects s ON s.id = r.subject_id`

func scanResult(row interface{ Scan(...any) error }) (Result, error) {
	var r Result
	var sched, completed sql.NullInt64
	var answersJSON string
	var created, updated int64
	if err := row.Scan(&r.ID, &r.StudentID, &r.Assessment.ID, &r.Assessment.Title, &sched,
		&r.Subject.ID, &r.Subject.Name, &r.Score, &r.TotalQuestions, &r.Percentage,
		&answersJSON, &r.Status, &completed, &created, &updated); err != nil {
		return Result{}, err
	}
	if sched.Valid {
		t := millis(sched.Int64)
		r.Assessment.ScheduledAt = &t
	}
	if completed.Valid {
		t := millis(completed.Int64)
		r.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(answersJSON), &r.Answers); err != nil {
		return Result{}, fmt.Errorf("result %s answers: %w", r.ID, err)
	}
	if r.Answers == nil {
		r.Answers = []grading.Mark{}
	}
	r.Submitted = r.Status == StatusFinal
	r.CreatedAt, r.UpdatedAt = millis(created), millis(updated)
	return r, nil
}

func (s *SQLStore) FindDraft(ctx context.Context, studentID, assessmentID string) (Result, error) {
	r, err := scanResult(s.db.QueryRowContext(ctx, resultSelect+`
		 WHERE r.student_id=$1 AND r.assessment_id=$2 AND r.status='draft'
		 ORDER BY r.updated_at DESC LIMIT 1`, studentID, assessmentID))
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, apperr.NotFound("no draft")
	}
	return r, err
}

// RecordSubmission overwrites the pair's draft, or inserts a new row when there
// is none. On postgres the results_one_draft index rejects a second concurrent
// draft insert; the loser retries and lands on the winner's row.
func (s *SQLStore) RecordSubmission(ctx context.Context, sub Submission) (Result, error) {
	var id string
	var err error
	for try := 0; try < 2; try++ {
		id, err = s.recordOnce(ctx, sub)
		if !apperr.IsUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		return Result{}, err
	}
	return s.GetResult(ctx, id)
}

func (s *SQLStore) recordOnce(ctx context.Context, sub Submission) (string, error) {
	answers := sub.Sheet.Marks
	if answers == nil {
		answers = []grading.Mark{}
	}
	buf, err := json.Marshal(answers)
	if err != nil {
		return "", err
	}
	status := StatusDraft
	if sub.Final {
		status = StatusFinal
	}
	at := sub.At.UnixMilli()

	var completed sql.NullInt64
	if sub.Final {
		completed = sql.NullInt64{Int64: at, Valid: true}
	}

	// The UPDATE goes first so sqlite holds the write lock before the pair is read.
	var id string
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE results SET score=$1, total_questions=$2, percentage=$3, answers_json=$4,
			       status=$5, completed_at=$6, updated_at=$7
			 WHERE student_id=$8 AND assessment_id=$9 AND status='draft'
			RETURNING id`,
			sub.Sheet.Score, sub.Sheet.Total, sub.Sheet.Percentage, string(buf), string(status), completed, at,
			sub.StudentID, sub.AssessmentID).Scan(&id)
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		id = uuid.NewString()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO results (id,student_id,assessment_id,subject_id,score,total_questions,percentage,
			                     answers_json,status,completed_at,created_at,updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			id, sub.StudentID, sub.AssessmentID, sub.SubjectID, sub.Sheet.Score, sub.Sheet.Total,
			sub.Sheet.Percentage, string(buf), string(status), completed, at, at)
		return err
	})
	return id, err
}

func (s *SQLStore) GetResult(ctx context.Context, id string) (Result, error) {
	r, err := scanResult(s.db.QueryRowContext(ctx, resultSelect+` WHERE r.id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, apperr.NotFound("Result not found")
	}
	return r, err
}

// ListResults returns every result of the student in insertion order; callers sort.
func (s *SQLStore) ListResults(ctx context.Context, studentID string) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, resultSelect+` WHERE r.student_id=$1 ORDER BY r.created_at, r.id`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func millis(v int64) time.Time { return time.UnixMilli(v).UTC() }
