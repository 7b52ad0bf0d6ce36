package grading

import "math"

// Key is the authoritative answer for one question. It always comes from the
// catalog, never from the client.
type Key struct {
	QuestionID    string
	CorrectAnswer string
}

// Mark is the graded outcome of a single question.
type Mark struct {
	QuestionID     string `json:"questionId"`
	SelectedAnswer string `json:"selectedAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
}

// Sheet is the outcome of grading a whole submission.
type Sheet struct {
	Score      int
	Total      int
	Percentage int
	Marks      []Mark
}

// Grade compares each answer with its key by exact, case-sensitive string
// equality. A question with no answer is graded as the empty string.
// Answers for questions that are not in keys are ignored.
func Grade(keys []Key, answers map[string]string) Sheet {
	sheet := Sheet{Total: len(keys), Marks: make([]Mark, 0, len(keys))}
	for _, k := range keys {
		selected := answers[k.QuestionID]
		ok := selected == k.CorrectAnswer
		if ok {
			sheet.Score++
		}
		sheet.Marks = append(sheet.Marks, Mark{
			QuestionID:     k.QuestionID,
			SelectedAnswer: selected,
			IsCorrect:      ok,
		})
	}
	sheet.Percentage = Percentage(sheet.Score, sheet.Total)
	return sheet
}

// Percentage is round(score/total*100) with halves rounded up; 0 when total is 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(score)/float64(total)*100 + 0.5))
}

// Mean is the rounded mean of pcts; 0 for an empty slice.
func Mean(pcts []int) int {
	if len(pcts) == 0 {
		return 0
	}
	sum := 0
	for _, p := range pcts {
		sum += p
	}
	return int(math.Floor(float64(sum)/float64(len(pcts)) + 0.5))
}
