package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/apperr"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// ---- subjects ----

func (s *SQLStore) CreateSubject(ctx context.Context, sub Subject) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subjects (id,name,description,created_at,updated_at) VALUES ($1,$2,$3,$4,$5)`,
		sub.ID, sub.Name, sub.Description, sub.CreatedAt.UnixMilli(), sub.UpdatedAt.UnixMilli())
	if apperr.IsUniqueViolation(err) {
		return apperr.Validation("Subject name already exists")
	}
	return err
}

func (s *SQLStore) GetSubject(ctx context.Context, id string) (Subject, error) {
	var sub Subject
	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id,name,description,created_at,updated_at FROM subjects WHERE id=$1`, id).
		Scan(&sub.ID, &sub.Name, &sub.Description, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Subject{}, apperr.NotFound("Subject not found")
	}
	if err != nil {
		return Subject{}, err
	}
	sub.CreatedAt, sub.UpdatedAt = millis(created), millis(updated)
	return s.withTeachers(ctx, sub)
}

func (s *SQLStore) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,name,description,created_at,updated_at FROM subjects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Subject{}
	for rows.Next() {
		var sub Subject
		var created, updated int64
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Description, &created, &updated); err != nil {
			return nil, err
		}
		sub.CreatedAt, sub.UpdatedAt = millis(created), millis(updated)
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i], err = s.withTeachers(ctx, out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLStore) UpdateSubject(ctx context.Context, sub Subject) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subjects SET name=$1, description=$2, updated_at=$3 WHERE id=$4`,
		sub.Name, sub.Description, sub.UpdatedAt.UnixMilli(), sub.ID)
	if apperr.IsUniqueViolation(err) {
		return apperr.Validation("Subject name already exists")
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("Subject not found")
	}
	return nil
}

func (s *SQLStore) DeleteSubject(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM subjects WHERE id=$1`, id)
	return err
}

// ReplaceTeachers makes teacherIDs the exact assigned set of the subject.
// Every id must belong to a user with the teacher role.
func (s *SQLStore) ReplaceTeachers(ctx context.Context, subjectID string, teacherIDs []string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
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

	if _, err = tx.ExecContext(ctx, `DELETE FROM subject_teachers WHERE subject_id=$1`, subjectID); err != nil {
		return err
	}
	for _, tid := range teacherIDs {
		var role string
		if err = tx.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, tid).Scan(&role); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				err = apperr.NotFound(fmt.Sprintf("User %s not found", tid))
			}
			return err
		}
		if role != "teacher" {
			err = apperr.Validation(fmt.Sprintf("User %s is not a teacher", tid))
			return err
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO subject_teachers (subject_id, teacher_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			subjectID, tid); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) IsAssigned(ctx context.Context, subjectID, teacherID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM subject_teachers WHERE subject_id=$1 AND teacher_id=$2`, subjectID, teacherID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLStore) withTeachers(ctx context.Context, sub Subject) (Subject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email
		  FROM subject_teachers st
		  JOIN users u ON u.id = st.teacher_id
		 WHERE st.subject_id=$1
		 ORDER BY u.name`, sub.ID)
	if err != nil {
		return Subject{}, err
	}
	defer rows.Close()
	sub.AssignedTeachers = []TeacherRef{}
	for rows.Next() {
		var t TeacherRef
		if err := rows.Scan(&t.ID, &t.Name, &t.Email); err != nil {
			return Subject{}, err
		}
		sub.AssignedTeachers = append(sub.AssignedTeachers, t)
	}
	return sub, rows.Err()
}

// ---- questions ----

const questionSelect = `
	SELECT q.id, q.subject_id, COALESCE(s.name,''), q.question_text, q.options_json, q.correct_answer,
	       q.difficulty, q.created_by, COALESCE(u.name,''), q.created_at, q.updated_at
	  FROM questions q
	  LEFT JOIN subjects s ON s.id = q.subject_id
	  LEFT JOIN users u ON u.id = q.created_by`

func scanQuestion(row interface{ Scan(...any) error }) (Question, error) {
	var q Question
	var optsJSON string
	var created, updated int64
	if err := row.Scan(&q.ID, &q.Subject.ID, &q.Subject.Name, &q.QuestionText, &optsJSON, &q.CorrectAnswer,
		&q.Difficulty, &q.CreatedBy.ID, &q.CreatedBy.Name, &created, &updated); err != nil {
		return Question{}, err
	}
	if err := json.Unmarshal([]byte(optsJSON), &q.Options); err != nil {
		q.Options = []string{}
	}
	q.CreatedAt, q.UpdatedAt = millis(created), millis(updated)
	return q, nil
}

// CreateQuestion inserts q and runs within on the same transaction, so a
// failure in within leaves no question behind.
func (s *SQLStore) CreateQuestion(ctx context.Context, q Question, within func(tx *sql.Tx) error) (err error) {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
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

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO questions (id,subject_id,question_text,options_json,correct_answer,difficulty,created_by,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		q.ID, q.Subject.ID, q.QuestionText, string(opts), q.CorrectAnswer, q.Difficulty, q.CreatedBy.ID,
		q.CreatedAt.UnixMilli(), q.UpdatedAt.UnixMilli()); err != nil {
		return err
	}
	if within != nil {
		err = within(tx)
	}
	return err
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	q, err := scanQuestion(s.db.QueryRowContext(ctx, questionSelect+` WHERE q.id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, apperr.NotFound("Question not found")
	}
	return q, err
}

// ListQuestions returns questions oldest first; subjectID filters when non-empty.
func (s *SQLStore) ListQuestions(ctx context.Context, subjectID string) ([]Question, error) {
	var rows *sql.Rows
	var err error
	if subjectID == "" {
		rows, err = s.db.QueryContext(ctx, questionSelect+` ORDER BY q.created_at, q.id`)
	} else {
		rows, err = s.db.QueryContext(ctx, questionSelect+` WHERE q.subject_id=$1 ORDER BY q.created_at, q.id`, subjectID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, q Question) error {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE questions SET question_text=$1, options_json=$2, correct_answer=$3, difficulty=$4, updated_at=$5
		 WHERE id=$6`,
		q.QuestionText, string(opts), q.CorrectAnswer, q.Difficulty, q.UpdatedAt.UnixMilli(), q.ID)
	return err
}

// DeleteQuestion removes the question; assessment membership goes with it (ON DELETE CASCADE).
func (s *SQLStore) DeleteQuestion(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
	return err
}

func millis(v int64) time.Time { return time.UnixMilli(v).UTC() }
