package identity

import "time"

// SubjectRef is the {_id,name} projection used when a user's subjects are listed.
type SubjectRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type User struct {
	ID               string       `json:"_id"`
	Name             string       `json:"name"`
	Email            string       `json:"email"`
	Role             string       `json:"role"`
	RollNumber       string       `json:"rollNumber"`
	Course           string       `json:"course"`
	Department       string       `json:"department"`
	AssignedSubjects []SubjectRef `json:"assignedSubjects"`
	CreatedAt        time.Time    `json:"createdAt"`

	PasswordHash string `json:"-"`
}

// Profile holds the fields a user (or an admin) may edit.
type Profile struct {
	Name       string
	RollNumber string
	Course     string
	Department string
}
