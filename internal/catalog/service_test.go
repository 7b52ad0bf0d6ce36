package catalog_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/apperr"
	"github.com/mind-engage/mindengage-assess/internal/catalog"
	"github.com/mind-engage/mindengage-assess/internal/db/dbtest"
	"github.com/mind-engage/mindengage-assess/internal/exam"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

type recordingMaterializer struct {
	calls     []string
	committed int
	err       error
}

func (m *recordingMaterializer) MaterializeTx(_ context.Context, _ *sql.Tx, subjectID, subjectName, questionID, createdBy string) (func(), error) {
	m.calls = append(m.calls, subjectID+"|"+subjectName+"|"+questionID+"|"+createdBy)
	if m.err != nil {
		return nil, m.err
	}
	return func() { m.committed++ }, nil
}

var (
	tess  = rbac.Caller{ID: "tess", Role: rbac.RoleTeacher}
	tom   = rbac.Caller{ID: "tom", Role: rbac.RoleTeacher}
	admin = rbac.Caller{ID: "root", Role: rbac.RoleAdmin}
)

func seedUsers(t *testing.T) *sql.DB {
	t.Helper()
	dbh := dbtest.Open(t)
	for _, u := range []struct{ id, role string }{{"tess", "teacher"}, {"tom", "teacher"}, {"stu", "student"}, {"root", "admin"}} {
		if _, err := dbh.Exec(`INSERT INTO users (id,name,email,password_hash,role,created_at) VALUES ($1,$2,$3,'h',$4,0)`,
			u.id, u.id, u.id+"@x.io", u.role); err != nil {
			t.Fatal(err)
		}
	}
	return dbh
}

func newCatalog(t *testing.T) (*catalog.Service, *recordingMaterializer) {
	t.Helper()
	dbh := seedUsers(t)
	mat := &recordingMaterializer{}
	clock := func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }
	return catalog.NewService(catalog.NewSQLStore(dbh), mat, clock), mat
}

func TestSubjectLifecycle(t *testing.T) {
	svc, _ := newCatalog(t)
	ctx := context.Background()

	if _, err := svc.CreateSubject(ctx, catalog.SubjectInput{Name: "  "}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("blank name: %v", err)
	}
	s, err := svc.CreateSubject(ctx, catalog.SubjectInput{Name: "Logic", Description: "intro"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateSubject(ctx, catalog.SubjectInput{Name: "Logic"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("duplicate name: %v", err)
	}

	s, err = svc.AssignTeachers(ctx, s.ID, []string{"tess", "tom", "tess"})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(s.AssignedTeachers) != 2 {
		t.Fatalf("teachers: %+v", s.AssignedTeachers)
	}
	if _, err := svc.AssignTeachers(ctx, s.ID, []string{"stu"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("student as teacher: %v", err)
	}
	if _, err := svc.AssignTeachers(ctx, s.ID, []string{"ghost"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown teacher: %v", err)
	}
	// a failed replace leaves the previous set intact
	got, err := svc.GetSubject(ctx, s.ID)
	if err != nil || len(got.AssignedTeachers) != 2 {
		t.Fatalf("teachers after failed assign: %+v %v", got.AssignedTeachers, err)
	}

	up, err := svc.UpdateSubject(ctx, s.ID, catalog.SubjectInput{Name: "Formal Logic", Description: "v2"})
	if err != nil || up.Name != "Formal Logic" || up.Description != "v2" {
		t.Fatalf("update: %+v %v", up, err)
	}

	if err := svc.DeleteSubject(ctx, s.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetSubject(ctx, s.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("get deleted: %v", err)
	}
}

func TestCreateQuestionRules(t *testing.T) {
	svc, mat := newCatalog(t)
	ctx := context.Background()
	s, _ := svc.CreateSubject(ctx, catalog.SubjectInput{Name: "Logic"})
	if _, err := svc.AssignTeachers(ctx, s.ID, []string{"tess"}); err != nil {
		t.Fatal(err)
	}
	in := catalog.QuestionInput{SubjectID: s.ID, QuestionText: "A?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: "b"}

	if _, err := svc.CreateQuestion(ctx, tess, catalog.QuestionInput{SubjectID: "nope", QuestionText: "x", Options: []string{"a"}, CorrectAnswer: "a"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing subject: %v", err)
	}
	_, err := svc.CreateQuestion(ctx, tom, in)
	if !errors.Is(err, apperr.ErrForbidden) || err.Error() != "You are not assigned to this subject" {
		t.Fatalf("unassigned teacher: %v", err)
	}

	bad := in
	bad.CorrectAnswer = "B"
	if _, err := svc.CreateQuestion(ctx, tess, bad); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("answer not among options: %v", err)
	}
	bad = in
	bad.Options = nil
	if _, err := svc.CreateQuestion(ctx, tess, bad); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("no options: %v", err)
	}
	if len(mat.calls) != 0 {
		t.Fatalf("rejected questions materialized: %v", mat.calls)
	}

	q, err := svc.CreateQuestion(ctx, tess, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if q.Difficulty != catalog.DifficultyMedium || q.Subject.Name != "Logic" || q.CreatedBy.Name != "tess" {
		t.Fatalf("question: %+v", q)
	}
	if len(mat.calls) != 1 || mat.calls[0] != s.ID+"|Logic|"+q.ID+"|tess" || mat.committed != 1 {
		t.Fatalf("materialize calls: %v committed=%d", mat.calls, mat.committed)
	}

	mat.err = errors.New("db down")
	if _, err := svc.CreateQuestion(ctx, tess, in); err == nil || apperr.KindOf(err) != apperr.KindInternal {
		t.Fatalf("materialize failure should surface as internal: %v", err)
	}
	// the failed materialization takes the question down with it
	qs, err := svc.ListQuestions(ctx, s.ID)
	if err != nil || len(qs) != 1 {
		t.Fatalf("questions after failed materialize: %d %v", len(qs), err)
	}
	if mat.committed != 1 {
		t.Fatalf("after-commit hook ran for a rolled back question")
	}
}

func TestCreateQuestionJoinsSubjectAssessment(t *testing.T) {
	dbh := seedUsers(t)
	clock := func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }
	engine := exam.NewEngine(exam.NewSQLStore(dbh), nil, clock)
	svc := catalog.NewService(catalog.NewSQLStore(dbh), engine, clock)
	ctx := context.Background()

	s, err := svc.CreateSubject(ctx, catalog.SubjectInput{Name: "Logic"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AssignTeachers(ctx, s.ID, []string{"tess"}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.CreateQuestion(ctx, tess, catalog.QuestionInput{SubjectID: s.ID, QuestionText: "q", Options: []string{"1", "2"}, CorrectAnswer: "2"}); err != nil {
			t.Fatalf("create question %d: %v", i, err)
		}
	}

	var assessments, members int
	if err := dbh.QueryRow(`SELECT COUNT(*) FROM assessments WHERE subject_id=$1`, s.ID).Scan(&assessments); err != nil {
		t.Fatal(err)
	}
	if err := dbh.QueryRow(`SELECT COUNT(*) FROM assessment_questions aq JOIN assessments a ON a.id=aq.assessment_id WHERE a.subject_id=$1`, s.ID).Scan(&members); err != nil {
		t.Fatal(err)
	}
	if assessments != 1 || members != 2 {
		t.Fatalf("assessments=%d members=%d", assessments, members)
	}
}

func TestQuestionEditAndDeleteOwnership(t *testing.T) {
	svc, _ := newCatalog(t)
	ctx := context.Background()
	s, _ := svc.CreateSubject(ctx, catalog.SubjectInput{Name: "Logic"})
	if _, err := svc.AssignTeachers(ctx, s.ID, []string{"tess", "tom"}); err != nil {
		t.Fatal(err)
	}
	q, err := svc.CreateQuestion(ctx, tess, catalog.QuestionInput{SubjectID: s.ID, QuestionText: "A?", Options: []string{"x", "y"}, CorrectAnswer: "x", Difficulty: "Hard"})
	if err != nil {
		t.Fatal(err)
	}

	text := "A, again?"
	if _, err := svc.UpdateQuestion(ctx, tom, q.ID, catalog.QuestionPatch{QuestionText: &text}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("other teacher edit: %v", err)
	}
	up, err := svc.UpdateQuestion(ctx, tess, q.ID, catalog.QuestionPatch{QuestionText: &text})
	if err != nil || up.QuestionText != text || up.CorrectAnswer != "x" {
		t.Fatalf("edit: %+v %v", up, err)
	}
	wrong := "z"
	if _, err := svc.UpdateQuestion(ctx, tess, q.ID, catalog.QuestionPatch{CorrectAnswer: &wrong}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("edit to invalid answer: %v", err)
	}

	// unassigned creator loses edit rights
	if _, err := svc.AssignTeachers(ctx, s.ID, []string{"tom"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateQuestion(ctx, tess, q.ID, catalog.QuestionPatch{QuestionText: &text}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("unassigned creator edit: %v", err)
	}

	if err := svc.DeleteQuestion(ctx, tom, q.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("other teacher delete: %v", err)
	}
	if err := svc.DeleteQuestion(ctx, admin, q.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := svc.GetQuestion(ctx, q.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("deleted question: %v", err)
	}
}

func TestListQuestionsBySubject(t *testing.T) {
	svc, _ := newCatalog(t)
	ctx := context.Background()
	a, _ := svc.CreateSubject(ctx, catalog.SubjectInput{Name: "A"})
	b, _ := svc.CreateSubject(ctx, catalog.SubjectInput{Name: "B"})
	for _, s := range []catalog.Subject{a, b} {
		if _, err := svc.AssignTeachers(ctx, s.ID, []string{"tess"}); err != nil {
			t.Fatal(err)
		}
	}
	for _, sid := range []string{a.ID, a.ID, b.ID} {
		if _, err := svc.CreateQuestion(ctx, tess, catalog.QuestionInput{SubjectID: sid, QuestionText: "q", Options: []string{"1"}, CorrectAnswer: "1"}); err != nil {
			t.Fatal(err)
		}
	}
	all, err := svc.ListQuestions(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("all: %d %v", len(all), err)
	}
	onlyA, err := svc.ListQuestions(ctx, a.ID)
	if err != nil || len(onlyA) != 2 {
		t.Fatalf("filtered: %d %v", len(onlyA), err)
	}
}
