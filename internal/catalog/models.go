package catalog

import "time"

const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

func validDifficulty(d string) bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

type TeacherRef struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Subject struct {
	ID               string       `json:"_id"`
	Name             string       `json:"name"`
	Description      string       `json:"description"`
	AssignedTeachers []TeacherRef `json:"assignedTeachers"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

type Ref struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type Question struct {
	ID            string    `json:"_id"`
	Subject       Ref       `json:"subject"`
	QuestionText  string    `json:"questionText"`
	Options       []string  `json:"options"`
	CorrectAnswer string    `json:"correctAnswer,omitempty"`
	Difficulty    string    `json:"difficulty"`
	CreatedBy     Ref       `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
