package repository

import (
	"github.com/examdrive/examdrive-backend/internal/model"
)

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const driveColumns = `id, title, description, category, status, suspended_from, is_approved, admin_notes,
	window_start, window_end, actual_window_start, actual_window_end,
	exam_duration_minutes, window_duration_minutes, created_at, updated_at`

func scanDrive(row rowScanner) (*model.Drive, error) {
	d := &model.Drive{}
	err := row.Scan(&d.ID, &d.Title, &d.Description, &d.Category, &d.Status, &d.SuspendedFrom, &d.IsApproved, &d.AdminNotes,
		&d.WindowStart, &d.WindowEnd, &d.ActualWindowStart, &d.ActualWindowEnd,
		&d.ExamDurationMinutes, &d.WindowDurationMinutes, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return d, nil
}

const studentColumns = `id, drive_id, name, email, roll_number, phone, college_name, student_group_name,
	access_token, session_state, question_order, exam_started_at, exam_submitted_at,
	score, total_marks, violation_details, total_violations, is_disqualified,
	disqualification_reason, created_at`

func scanStudent(row rowScanner) (*model.Student, error) {
	s := &model.Student{}
	err := row.Scan(&s.ID, &s.DriveID, &s.Name, &s.Email, &s.RollNumber, &s.Phone, &s.CollegeName, &s.StudentGroupName,
		&s.AccessToken, &s.State, &s.QuestionOrder, &s.ExamStartedAt, &s.ExamSubmittedAt,
		&s.Score, &s.TotalMarks, &s.ViolationDetails, &s.TotalViolations, &s.IsDisqualified,
		&s.DisqualificationReason, &s.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}

const questionColumns = `id, drive_id, question_text, option_a, option_b, option_c, option_d,
	correct_answer, points, created_at`

func scanQuestion(row rowScanner) (model.Question, error) {
	var q model.Question
	err := row.Scan(&q.ID, &q.DriveID, &q.QuestionText, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
		&q.CorrectAnswer, &q.Points, &q.CreatedAt)
	return q, mapErr(err)
}

// updateStudentSQL writes every session field of a student.
const updateStudentSQL = `UPDATE students
	SET session_state = $2, question_order = $3, exam_started_at = $4, exam_submitted_at = $5,
	    score = $6, total_marks = $7, violation_details = $8, total_violations = $9,
	    is_disqualified = $10, disqualification_reason = $11
	WHERE id = $1`

func studentSessionArgs(s *model.Student) []any {
	return []any{
		s.ID, s.State, s.QuestionOrder, s.ExamStartedAt, s.ExamSubmittedAt,
		s.Score, s.TotalMarks, s.ViolationDetails, s.TotalViolations,
		s.IsDisqualified, s.DisqualificationReason,
	}
}
