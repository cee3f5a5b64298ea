package model

import "time"

// Question is an immutable multiple-choice item of a drive.
type Question struct {
	ID            int64  `json:"id"`
	DriveID       int64  `json:"drive_id"`
	QuestionText  string `json:"question_text"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	// CorrectAnswer is normally an option letter. Legacy rows store the
	// full text of the correct option instead.
	CorrectAnswer string    `json:"correct_answer"`
	Points        int       `json:"points"`
	CreatedAt     time.Time `json:"created_at"`
}

// Option returns the text of the option identified by letter (a-d, any case).
func (q *Question) Option(letter string) (string, bool) {
	switch letter {
	case "a", "A":
		return q.OptionA, true
	case "b", "B":
		return q.OptionB, true
	case "c", "C":
		return q.OptionC, true
	case "d", "D":
		return q.OptionD, true
	}
	return "", false
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID           int64  `json:"id"`
	QuestionText string `json:"question_text"`
	OptionA      string `json:"option_a"`
	OptionB      string `json:"option_b"`
	OptionC      string `json:"option_c"`
	OptionD      string `json:"option_d"`
	Marks        int    `json:"marks"`
}

// ForStudent strips the answer key.
func (q *Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		OptionA:      q.OptionA,
		OptionB:      q.OptionB,
		OptionC:      q.OptionC,
		OptionD:      q.OptionD,
		Marks:        q.Points,
	}
}

// AddQuestionRequest is a single question in a bulk add.
type AddQuestionRequest struct {
	QuestionText  string `json:"question_text" binding:"required,min=1,max=4000"`
	OptionA       string `json:"option_a" binding:"required,max=1000"`
	OptionB       string `json:"option_b" binding:"required,max=1000"`
	OptionC       string `json:"option_c" binding:"required,max=1000"`
	OptionD       string `json:"option_d" binding:"required,max=1000"`
	CorrectAnswer string `json:"correct_answer" binding:"required,max=1000"`
	Points        int    `json:"points" binding:"omitempty,min=1,max=100"`
}

// AddQuestionsRequest is the payload for appending questions to a draft drive.
type AddQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}
