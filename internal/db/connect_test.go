package db_test

import (
	"context"
	"testing"

	"github.com/mind-engage/mindengage-assess/internal/db"
	"github.com/mind-engage/mindengage-assess/internal/db/dbtest"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := db.Open(context.Background(), db.Driver("mysql"), ""); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestSchemaAllowsOneDraftPerPair(t *testing.T) {
	dbh := dbtest.Open(t)
	insert := `INSERT INTO results (id,student_id,assessment_id,subject_id,score,total_questions,percentage,answers_json,status,completed_at,created_at,updated_at)
		VALUES ($1,'s1','a1','sub1',0,0,0,'[]',$2,NULL,1,1)`

	if _, err := dbh.Exec(insert, "r1", "draft"); err != nil {
		t.Fatalf("first draft: %v", err)
	}
	if _, err := dbh.Exec(insert, "r2", "draft"); err == nil {
		t.Fatalf("expected second draft for the same pair to be rejected")
	}
	// finals accumulate freely
	if _, err := dbh.Exec(insert, "r3", "final"); err != nil {
		t.Fatalf("final 1: %v", err)
	}
	if _, err := dbh.Exec(insert, "r4", "final"); err != nil {
		t.Fatalf("final 2: %v", err)
	}
}

func TestSchemaOneAssessmentPerSubject(t *testing.T) {
	dbh := dbtest.Open(t)
	if _, err := dbh.Exec(`INSERT INTO subjects (id,name,created_at,updated_at) VALUES ('sub1','Logic',1,1)`); err != nil {
		t.Fatalf("seed subject: %v", err)
	}
	insert := `INSERT INTO assessments (id,subject_id,title,scheduled_at,created_at,updated_at) VALUES ($1,'sub1','Logic - Assessment',1,1,1)`
	if _, err := dbh.Exec(insert, "a1"); err != nil {
		t.Fatalf("first assessment: %v", err)
	}
	if _, err := dbh.Exec(insert, "a2"); err == nil {
		t.Fatalf("expected unique violation on subject_id")
	}
}
