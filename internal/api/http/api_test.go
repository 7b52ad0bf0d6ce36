package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	authmw "github.com/mind-engage/mindengage-assess/internal/auth/middleware"
	"github.com/mind-engage/mindengage-assess/internal/catalog"
	"github.com/mind-engage/mindengage-assess/internal/db/dbtest"
	"github.com/mind-engage/mindengage-assess/internal/exam"
	"github.com/mind-engage/mindengage-assess/internal/identity"
	"github.com/mind-engage/mindengage-assess/internal/report"
	syncx "github.com/mind-engage/mindengage-assess/internal/sync"
)

type apiClient struct {
	t   *testing.T
	srv *httptest.Server
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	dbh := dbtest.Open(t)
	examStore := exam.NewSQLStore(dbh)
	events := syncx.NewEventRepo(dbh, "test")
	engine := exam.NewEngine(examStore, events, time.Now)

	r := chi.NewRouter()
	Mount(r, Services{
		DB:                 dbh,
		Auth:               authmw.NewAuthService("test-secret", time.Hour),
		Users:              identity.NewService(identity.NewSQLStore(dbh), bcrypt.MinCost, time.Now),
		Catalog:            catalog.NewService(catalog.NewSQLStore(dbh), engine, time.Now),
		Exam:               engine,
		Report:             report.NewService(examStore),
		Events:             events,
		EnableRegistration: true,
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &apiClient{t: t, srv: srv}
}

// call sends body as JSON and decodes the response into out when non-nil.
func (c *apiClient) call(method, path, token string, body any, out any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, c.srv.URL+path, &buf)
	if err != nil {
		c.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := c.srv.Client().Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			c.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return res.StatusCode
}

func (c *apiClient) register(name, email, role string) (string, string) {
	c.t.Helper()
	var out struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"_id"`
		} `json:"user"`
	}
	code := c.call("POST", "/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret", "role": role,
	}, &out)
	if code != http.StatusCreated {
		c.t.Fatalf("register %s: %d", email, code)
	}
	return out.Token, out.User.ID
}

type idOnly struct {
	ID string `json:"_id"`
}

func TestAssessmentWorkflow(t *testing.T) {
	c := newAPI(t)
	admin, _ := c.register("Admin", "admin@x.io", "admin")
	teacher, teacherID := c.register("Tess", "tess@x.io", "teacher")
	student, studentID := c.register("Stu", "stu@x.io", "student")

	var subj idOnly
	if code := c.call("POST", "/subjects", admin, map[string]string{"name": "Logic"}, &subj); code != http.StatusCreated {
		t.Fatalf("create subject: %d", code)
	}

	q := map[string]any{
		"subject": subj.ID, "questionText": "A?", "options": []string{"correct", "wrong"}, "correctAnswer": "correct",
	}
	var msg struct {
		Message string `json:"message"`
	}
	if code := c.call("POST", "/questions", teacher, q, &msg); code != http.StatusForbidden || msg.Message != "You are not assigned to this subject" {
		t.Fatalf("unassigned teacher: %d %q", code, msg.Message)
	}
	if code := c.call("PUT", "/subjects/"+subj.ID+"/assign-teachers", admin, map[string][]string{"teacherIds": {teacherID}}, nil); code != http.StatusOK {
		t.Fatalf("assign: %d", code)
	}
	var qa, qb idOnly
	if code := c.call("POST", "/questions", teacher, q, &qa); code != http.StatusCreated {
		t.Fatalf("create question: %d", code)
	}
	q["questionText"], q["options"], q["correctAnswer"] = "B?", []string{"right", "wrong"}, "right"
	if code := c.call("POST", "/questions", teacher, q, &qb); code != http.StatusCreated {
		t.Fatalf("create question B: %d", code)
	}
	if code := c.call("POST", "/questions", teacher, map[string]any{"subject": "missing", "questionText": "x", "options": []string{"a"}, "correctAnswer": "a"}, nil); code != http.StatusNotFound {
		t.Fatalf("missing subject: %d", code)
	}

	var list []struct {
		ID        string `json:"_id"`
		Title     string `json:"title"`
		Questions []any  `json:"questions"`
	}
	if code := c.call("GET", "/assessments", student, nil, &list); code != http.StatusOK {
		t.Fatalf("list: %d", code)
	}
	if len(list) != 1 || list[0].Title != "Logic - Assessment" || list[0].Questions != nil {
		t.Fatalf("student list: %+v", list)
	}
	aid := list[0].ID

	if code := c.call("GET", "/assessments/"+aid, student, nil, nil); code != http.StatusForbidden {
		t.Fatalf("student staff view: %d", code)
	}
	if code := c.call("GET", "/assessments/"+aid+"/attempt", teacher, nil, nil); code != http.StatusForbidden {
		t.Fatalf("teacher attempt: %d", code)
	}
	if code := c.call("GET", "/assessments/nope/attempt", student, nil, nil); code != http.StatusNotFound {
		t.Fatalf("missing attempt: %d", code)
	}

	var raw map[string]json.RawMessage
	if code := c.call("GET", "/assessments/"+aid+"/attempt", student, nil, &raw); code != http.StatusOK {
		t.Fatalf("attempt: %d", code)
	}
	if bytes.Contains(raw["questions"], []byte("correctAnswer")) {
		t.Fatalf("attempt leaked answer keys: %s", raw["questions"])
	}

	var draft struct {
		ID          string  `json:"_id"`
		Score       int     `json:"score"`
		Percentage  int     `json:"percentage"`
		Submitted   bool    `json:"submitted"`
		CompletedAt *string `json:"completedAt"`
	}
	body := map[string]any{"assessmentId": aid, "answers": map[string]string{qa.ID: "correct"}, "isFinal": false}
	if code := c.call("POST", "/results/submit", student, body, &draft); code != http.StatusCreated {
		t.Fatalf("draft submit: %d", code)
	}
	if draft.Submitted || draft.CompletedAt != nil || draft.Score != 1 {
		t.Fatalf("draft: %+v", draft)
	}

	final := draft
	body = map[string]any{"assessmentId": aid, "answers": map[string]string{qa.ID: "correct", qb.ID: "wrong"}}
	if code := c.call("POST", "/results/submit", student, body, &final); code != http.StatusCreated {
		t.Fatalf("final submit: %d", code)
	}
	if final.ID != draft.ID || !final.Submitted || final.CompletedAt == nil || final.Percentage != 50 {
		t.Fatalf("final: %+v", final)
	}

	var mine []idOnly
	if code := c.call("GET", "/results/my-results", student, nil, &mine); code != http.StatusOK || len(mine) != 1 {
		t.Fatalf("my results: %d %v", code, mine)
	}
	var theirs []idOnly
	if code := c.call("GET", "/results/student/"+studentID, teacher, nil, &theirs); code != http.StatusOK || len(theirs) != 1 {
		t.Fatalf("student results: %d %v", code, theirs)
	}
	if code := c.call("GET", "/results/student/"+studentID, student, nil, nil); code != http.StatusForbidden {
		t.Fatalf("student viewing others: %d", code)
	}

	var stats struct {
		SkillSummary  map[string]int `json:"skillSummary"`
		TrendData     []any          `json:"trendData"`
		RecentResults []any          `json:"recentResults"`
	}
	if code := c.call("GET", "/results/dashboard-stats", student, nil, &stats); code != http.StatusOK {
		t.Fatalf("dashboard: %d", code)
	}
	if stats.SkillSummary["Logic"] != 50 || len(stats.TrendData) != 1 || len(stats.RecentResults) != 1 {
		t.Fatalf("stats: %+v", stats)
	}
}

func TestNoQuestionsIsBadRequest(t *testing.T) {
	c := newAPI(t)
	admin, _ := c.register("Admin", "admin@x.io", "admin")
	student, _ := c.register("Stu", "stu@x.io", "student")

	var subj, a idOnly
	c.call("POST", "/subjects", admin, map[string]string{"name": "Empty"}, &subj)
	if code := c.call("POST", "/assessments", admin, map[string]any{"subject": subj.ID, "title": "Soon"}, &a); code != http.StatusCreated {
		t.Fatalf("create assessment: %d", code)
	}
	if code := c.call("POST", "/assessments", admin, map[string]any{"subject": subj.ID, "title": "Dup"}, nil); code != http.StatusBadRequest {
		t.Fatalf("second assessment: %d", code)
	}
	var msg struct {
		Message string `json:"message"`
	}
	if code := c.call("GET", "/assessments/"+a.ID+"/attempt", student, nil, &msg); code != http.StatusBadRequest || msg.Message != "This assessment has no questions yet." {
		t.Fatalf("no questions: %d %q", code, msg.Message)
	}
}

func TestAuthEndpoints(t *testing.T) {
	c := newAPI(t)
	_, id := c.register("Ada", "ada@x.io", "student")

	if code := c.call("POST", "/auth/register", "", map[string]string{"name": "Ada", "email": "ada@x.io", "password": "secret", "role": "student"}, nil); code != http.StatusBadRequest {
		t.Fatalf("duplicate email: %d", code)
	}
	if code := c.call("POST", "/auth/register", "", map[string]string{"name": "NoMail"}, nil); code != http.StatusBadRequest {
		t.Fatalf("missing fields: %d", code)
	}

	var out struct {
		Token string `json:"token"`
	}
	if code := c.call("POST", "/auth/login", "", map[string]string{"email": "ada@x.io", "password": "nope"}, nil); code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", code)
	}
	if code := c.call("POST", "/auth/login", "", map[string]string{"email": "ada@x.io", "password": "secret"}, &out); code != http.StatusOK || out.Token == "" {
		t.Fatalf("login: %d", code)
	}

	var me idOnly
	if code := c.call("GET", "/auth/me", out.Token, nil, &me); code != http.StatusOK || me.ID != id {
		t.Fatalf("me: %d %+v", code, me)
	}
	if code := c.call("GET", "/auth/me", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous me: %d", code)
	}

	if code := c.call("POST", "/users/change-password", out.Token, map[string]string{"oldPassword": "secret", "newPassword": "better"}, nil); code != http.StatusNoContent {
		t.Fatalf("change password: %d", code)
	}
	if code := c.call("POST", "/auth/login", "", map[string]string{"email": "ada@x.io", "password": "better"}, nil); code != http.StatusOK {
		t.Fatalf("login after change: %d", code)
	}
}

func TestUserManagement(t *testing.T) {
	c := newAPI(t)
	admin, _ := c.register("Admin", "admin@x.io", "admin")
	teacher, teacherID := c.register("Tess", "tess@x.io", "teacher")
	student, studentID := c.register("Stu", "stu@x.io", "student")

	var students []idOnly
	if code := c.call("GET", "/users?role=student", teacher, nil, &students); code != http.StatusOK || len(students) != 1 {
		t.Fatalf("list students: %d %v", code, students)
	}
	if code := c.call("GET", "/users", student, nil, nil); code != http.StatusForbidden {
		t.Fatalf("student list users: %d", code)
	}
	if code := c.call("PUT", "/users/"+teacherID, student, map[string]string{"name": "x"}, nil); code != http.StatusForbidden {
		t.Fatalf("student editing teacher: %d", code)
	}
	var u struct {
		Name   string `json:"name"`
		Course string `json:"course"`
	}
	if code := c.call("PUT", "/users/"+studentID, student, map[string]string{"name": "Stuart", "course": "CS"}, &u); code != http.StatusOK || u.Name != "Stuart" {
		t.Fatalf("self edit: %d %+v", code, u)
	}

	var subj idOnly
	c.call("POST", "/subjects", admin, map[string]string{"name": "Algebra"}, &subj)
	var tu struct {
		AssignedSubjects []idOnly `json:"assignedSubjects"`
	}
	if code := c.call("PUT", "/users/"+teacherID+"/assign-subjects", admin, map[string][]string{"subjectIds": {subj.ID}}, &tu); code != http.StatusOK || len(tu.AssignedSubjects) != 1 {
		t.Fatalf("assign subjects: %d %+v", code, tu)
	}
	if code := c.call("PUT", "/users/"+teacherID+"/assign-subjects", teacher, map[string][]string{"subjectIds": {}}, nil); code != http.StatusForbidden {
		t.Fatalf("teacher assigning: %d", code)
	}

	// role changes take effect on the next request with the same token
	if code := c.call("PUT", "/users/"+studentID+"/role", admin, map[string]string{"role": "teacher"}, nil); code != http.StatusOK {
		t.Fatalf("set role: %d", code)
	}
	if code := c.call("GET", "/users", student, nil, nil); code != http.StatusOK {
		t.Fatalf("promoted user still denied: %d", code)
	}
}

func TestEventFeed(t *testing.T) {
	c := newAPI(t)
	admin, _ := c.register("Admin", "admin@x.io", "admin")
	teacher, teacherID := c.register("Tess", "tess@x.io", "teacher")
	student, _ := c.register("Stu", "stu@x.io", "student")

	var subj idOnly
	c.call("POST", "/subjects", admin, map[string]string{"name": "Logic"}, &subj)
	c.call("PUT", "/subjects/"+subj.ID+"/assign-teachers", admin, map[string][]string{"teacherIds": {teacherID}}, nil)
	q := map[string]any{"subject": subj.ID, "questionText": "A?", "options": []string{"a", "b"}, "correctAnswer": "a"}
	if code := c.call("POST", "/questions", teacher, q, nil); code != http.StatusCreated {
		t.Fatalf("create question: %d", code)
	}

	var feed []struct {
		Seq    int64           `json:"seq"`
		SiteID string          `json:"siteId"`
		Type   string          `json:"type"`
		Data   json.RawMessage `json:"data"`
	}
	if code := c.call("GET", "/events?after=0&limit=10", admin, nil, &feed); code != http.StatusOK {
		t.Fatalf("events: %d", code)
	}
	if len(feed) != 1 || feed[0].Type != "AssessmentMaterialized" || feed[0].SiteID != "test" || !bytes.Contains(feed[0].Data, []byte(subj.ID)) {
		t.Fatalf("feed: %+v", feed)
	}

	var rest []any
	if code := c.call("GET", fmt.Sprintf("/events?after=%d", feed[0].Seq), admin, nil, &rest); code != http.StatusOK || len(rest) != 0 {
		t.Fatalf("events after last: %d %v", code, rest)
	}
	if code := c.call("GET", "/events?after=x", admin, nil, nil); code != http.StatusBadRequest {
		t.Fatalf("bad cursor: %d", code)
	}
	if code := c.call("GET", "/events", student, nil, nil); code != http.StatusForbidden {
		t.Fatalf("student reading events: %d", code)
	}
}

func TestHealth(t *testing.T) {
	c := newAPI(t)
	for _, p := range []string{"/healthz", "/readyz"} {
		if code := c.call("GET", p, "", nil, nil); code != http.StatusOK {
			t.Fatalf("%s: %d", p, code)
		}
	}
}
