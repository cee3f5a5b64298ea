// Package scoring resolves answer correctness and aggregates exam scores.
// Submission, result and export paths all grade through it.
package scoring

import (
	"math"
	"strings"

	"github.com/examdrive/examdrive-backend/internal/model"
)

// Grade reports whether selected answers q correctly. The correct answer is
// compared to the selected letter first; when it does not match, the text of
// the selected option is compared instead, to accept rows whose answer key
// holds option text. Both comparisons ignore case and surrounding spaces.
func Grade(selected *string, q *model.Question) bool {
	if selected == nil {
		return false
	}
	letter := strings.TrimSpace(*selected)
	if letter == "" {
		return false
	}
	correct := strings.TrimSpace(q.CorrectAnswer)
	if strings.EqualFold(letter, correct) {
		return true
	}
	text, ok := q.Option(letter)
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(text), correct)
}

// TotalMarks sums points over every question of a drive.
func TotalMarks(questions []model.Question) int {
	total := 0
	for i := range questions {
		total += questions[i].Points
	}
	return total
}

// Aggregate returns the points earned by correct responses and the total
// over all questions, answered or not. Responses referring to a question
// outside the set earn nothing.
func Aggregate(responses []model.StudentResponse, questions []model.Question) (score, totalMarks int) {
	points := make(map[int64]int, len(questions))
	for i := range questions {
		points[questions[i].ID] = questions[i].Points
		totalMarks += questions[i].Points
	}
	for i := range responses {
		if !responses[i].IsCorrect {
			continue
		}
		score += points[responses[i].QuestionID]
	}
	return score, totalMarks
}

// Percentage is score/total*100 rounded to two decimals, or 0 for an empty total.
func Percentage(score, totalMarks int) float64 {
	if totalMarks <= 0 {
		return 0
	}
	return math.Round(float64(score)/float64(totalMarks)*100*100) / 100
}
