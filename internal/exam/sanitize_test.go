package exam

import "testing"

func TestSanitizeDefaultsDifficultyWithoutDegrading(t *testing.T) {
	q, degraded := sanitize(Question{ID: "q1", QuestionText: "A?", Options: []string{"a", "b"}})
	if degraded {
		t.Fatalf("a missing difficulty alone should not mark the question degraded")
	}
	if q.Difficulty != "Medium" {
		t.Fatalf("difficulty = %q", q.Difficulty)
	}

	if _, degraded := sanitize(Question{ID: "q2", Options: []string{"a"}, Difficulty: "Easy"}); !degraded {
		t.Fatalf("missing text should be degraded")
	}
	if _, degraded := sanitize(Question{ID: "q3", QuestionText: "C?", Difficulty: "Easy"}); !degraded {
		t.Fatalf("missing options should be degraded")
	}
}
