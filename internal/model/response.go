package model

import "time"

// StudentResponse is one persisted answer of one student to one question.
type StudentResponse struct {
	ID              int64     `json:"id"`
	StudentID       int64     `json:"student_id"`
	QuestionID      int64     `json:"question_id"`
	DriveID         int64     `json:"drive_id"`
	SelectedOption  *string   `json:"selected_option"`
	IsCorrect       bool      `json:"is_correct"`
	MarkedForReview bool      `json:"marked_for_review"`
	AnsweredAt      time.Time `json:"answered_at"`
}

// Answer is a single answer submitted by a student.
type Answer struct {
	QuestionID      int64   `json:"question_id" binding:"required"`
	SelectedOption  *string `json:"selected_option" binding:"omitempty,option_letter"`
	MarkedForReview bool    `json:"marked_for_review"`
}

// SubmitExamRequest is the payload for a voluntary submission.
type SubmitExamRequest struct {
	Answers []Answer `json:"answers" binding:"dive"`
}
