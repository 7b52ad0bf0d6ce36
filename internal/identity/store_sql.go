package identity

import (
	"context"
	"database/sql"
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

const userCols = `id,name,email,password_hash,role,roll_number,course,department,created_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	var created int64
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.RollNumber, &u.Course, &u.Department, &created); err != nil {
		return User{}, err
	}
	u.CreatedAt = time.UnixMilli(created).UTC()
	return u, nil
}

func (s *SQLStore) Create(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (`+userCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.RollNumber, u.Course, u.Department, u.CreatedAt.UnixMilli())
	if apperr.IsUniqueViolation(err) {
		return apperr.Validation("Email already registered")
	}
	return err
}

func (s *SQLStore) ByID(ctx context.Context, id string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return User{}, err
	}
	return s.withSubjects(ctx, u)
}

func (s *SQLStore) ByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email=$1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return User{}, err
	}
	return s.withSubjects(ctx, u)
}

// List returns users ordered by name; role filters when non-empty.
func (s *SQLStore) List(ctx context.Context, role string) ([]User, error) {
	var rows *sql.Rows
	var err error
	if role == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+userCols+` FROM users ORDER BY name, id`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+userCols+` FROM users WHERE role=$1 ORDER BY name, id`, role)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i], err = s.withSubjects(ctx, out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLStore) UpdateProfile(ctx context.Context, id string, p Profile) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET name=$1, roll_number=$2, course=$3, department=$4 WHERE id=$5`,
		p.Name, p.RollNumber, p.Course, p.Department, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

func (s *SQLStore) SetPassword(ctx context.Context, id, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

// SetRole changes a user's role. The last admin cannot be demoted.
func (s *SQLStore) SetRole(ctx context.Context, id, role string) (err error) {
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

	var cur string
	if err = tx.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, id).Scan(&cur); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = apperr.NotFound("User not found")
		}
		return err
	}
	if cur == "admin" && role != "admin" {
		var admins int
		if err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE role='admin'`).Scan(&admins); err != nil {
			return err
		}
		if admins <= 1 {
			err = apperr.Validation("Cannot demote the last admin")
			return err
		}
	}
	if cur == "teacher" && role != "teacher" {
		// assignments only make sense for teachers
		if _, err = tx.ExecContext(ctx, `DELETE FROM subject_teachers WHERE teacher_id=$1`, id); err != nil {
			return err
		}
	}
	_, err = tx.ExecContext(ctx, `UPDATE users SET role=$1 WHERE id=$2`, role, id)
	return err
}

// ReplaceSubjects makes subjectIDs the exact set of subjects teacherID is assigned to.
func (s *SQLStore) ReplaceSubjects(ctx context.Context, teacherID string, subjectIDs []string) (err error) {
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

	if _, err = tx.ExecContext(ctx, `DELETE FROM subject_teachers WHERE teacher_id=$1`, teacherID); err != nil {
		return err
	}
	for _, sid := range subjectIDs {
		var one int
		if err = tx.QueryRowContext(ctx, `SELECT 1 FROM subjects WHERE id=$1`, sid).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				err = apperr.NotFound(fmt.Sprintf("Subject %s not found", sid))
			}
			return err
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO subject_teachers (subject_id, teacher_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			sid, teacherID); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) withSubjects(ctx context.Context, u User) (User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name
		  FROM subject_teachers st
		  JOIN subjects s ON s.id = st.subject_id
		 WHERE st.teacher_id=$1
		 ORDER BY s.name`, u.ID)
	if err != nil {
		return User{}, err
	}
	defer rows.Close()
	u.AssignedSubjects = []SubjectRef{}
	for rows.Next() {
		var ref SubjectRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return User{}, err
		}
		u.AssignedSubjects = append(u.AssignedSubjects, ref)
	}
	return u, rows.Err()
}
