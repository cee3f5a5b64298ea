package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/examdrive/examdrive-backend/internal/export"
	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/repository"
	"github.com/examdrive/examdrive-backend/internal/scoring"
)

// ResultService lists and exports drive results.
type ResultService struct {
	drives   repository.DriveStore
	students repository.StudentStore
}

// NewResultService creates a new ResultService.
func NewResultService(drives repository.DriveStore, students repository.StudentStore) *ResultService {
	return &ResultService{drives: drives, students: students}
}

// ResultRow is one student's line in a drive's results.
type ResultRow struct {
	StudentID              int64                  `json:"id"`
	Name                   string                 `json:"name"`
	Email                  string                 `json:"email"`
	RollNumber             string                 `json:"roll_number"`
	Phone                  string                 `json:"phone"`
	CollegeName            string                 `json:"college_name"`
	StudentGroupName       string                 `json:"student_group_name"`
	Status                 string                 `json:"status"`
	Score                  *int                   `json:"score"`
	TotalMarks             *int                   `json:"total_marks"`
	Percentage             *float64               `json:"percentage"`
	ExamStartedAt          *time.Time             `json:"exam_started_at"`
	ExamSubmittedAt        *time.Time             `json:"exam_submitted_at"`
	IsDisqualified         bool                   `json:"is_disqualified"`
	DisqualificationReason *string                `json:"disqualification_reason"`
	TotalViolations        int                    `json:"total_violations"`
	ViolationDetails       *model.ViolationCounts `json:"violation_details"`
}

// DriveResults is the result listing of a drive.
type DriveResults struct {
	DriveID          int64       `json:"drive_id"`
	DriveTitle       string      `json:"drive_title"`
	TotalStudents    int         `json:"total_students"`
	FilteredStudents int         `json:"filtered_students"`
	Results          []ResultRow `json:"results"`
}

// ExportFormat selects the export layout.
type ExportFormat string

const (
	ExportSummary  ExportFormat = "summary"
	ExportDetailed ExportFormat = "detailed"
)

func newResultRow(st *model.Student) ResultRow {
	row := ResultRow{
		StudentID:              st.ID,
		Name:                   st.Name,
		Email:                  st.Email,
		RollNumber:             st.RollNumber,
		Phone:                  st.Phone,
		CollegeName:            st.CollegeName,
		StudentGroupName:       st.StudentGroupName,
		Status:                 st.StatusLabel(),
		Score:                  st.Score,
		TotalMarks:             st.TotalMarks,
		ExamStartedAt:          st.ExamStartedAt,
		ExamSubmittedAt:        st.ExamSubmittedAt,
		IsDisqualified:         st.IsDisqualified,
		DisqualificationReason: st.DisqualificationReason,
		TotalViolations:        st.TotalViolations,
		ViolationDetails:       st.ViolationDetails,
	}
	if st.Score != nil && st.TotalMarks != nil && *st.TotalMarks > 0 {
		p := scoring.Percentage(*st.Score, *st.TotalMarks)
		row.Percentage = &p
	}
	return row
}

// List returns every student's result. With minPercentage set, students
// without a percentage or below it are left out.
func (s *ResultService) List(ctx context.Context, driveID int64, minPercentage *float64) (*DriveResults, error) {
	d, err := s.drives.GetDrive(ctx, driveID)
	if err != nil {
		return nil, storeErr("get drive", err, ErrDriveNotFound)
	}
	students, err := s.students.ListStudents(ctx, driveID)
	if err != nil {
		return nil, storeErr("list students", err, ErrDriveNotFound)
	}

	rows := make([]ResultRow, 0, len(students))
	for i := range students {
		row := newResultRow(&students[i])
		if minPercentage != nil && (row.Percentage == nil || *row.Percentage < *minPercentage) {
			continue
		}
		rows = append(rows, row)
	}

	return &DriveResults{
		DriveID:          d.ID,
		DriveTitle:       d.Title,
		TotalStudents:    len(students),
		FilteredStudents: len(rows),
		Results:          rows,
	}, nil
}

var summaryHeader = []string{
	"Name", "Email", "Roll Number", "College", "Student Group", "Score", "Total",
	"Percentage", "Status", "Is_Disqualified",
}

// Export builds the results table of a drive. The detailed layout appends
// one column per question position, following each student's own question
// order; positions without a response read "Not Answered".
func (s *ResultService) Export(ctx context.Context, driveID int64, format ExportFormat) (*export.Table, error) {
	if format != ExportSummary && format != ExportDetailed {
		return nil, fmt.Errorf("unknown export format %q", format)
	}
	if _, err := s.drives.GetDrive(ctx, driveID); err != nil {
		return nil, storeErr("get drive", err, ErrDriveNotFound)
	}
	students, err := s.students.ListStudents(ctx, driveID)
	if err != nil {
		return nil, storeErr("list students", err, ErrDriveNotFound)
	}

	table := &export.Table{
		Title:  fmt.Sprintf("drive_%d_results_%s", driveID, format),
		Header: append([]string(nil), summaryHeader...),
	}

	var (
		numQuestions int
		byStudent    map[int64]map[int64]*model.StudentResponse
	)
	if format == ExportDetailed {
		questions, err := s.drives.ListQuestions(ctx, driveID)
		if err != nil {
			return nil, storeErr("list questions", err, ErrDriveNotFound)
		}
		numQuestions = len(questions)
		for i := 1; i <= numQuestions; i++ {
			table.Header = append(table.Header, "Q"+strconv.Itoa(i))
		}

		responses, err := s.students.ListResponses(ctx, driveID)
		if err != nil {
			return nil, storeErr("list responses", err, ErrDriveNotFound)
		}
		byStudent = make(map[int64]map[int64]*model.StudentResponse)
		for i := range responses {
			r := &responses[i]
			if byStudent[r.StudentID] == nil {
				byStudent[r.StudentID] = make(map[int64]*model.StudentResponse)
			}
			byStudent[r.StudentID][r.QuestionID] = r
		}
	}

	for i := range students {
		st := &students[i]
		record := summaryRecord(newResultRow(st))
		if format == ExportDetailed {
			record = append(record, answerCells(st, byStudent[st.ID], numQuestions)...)
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

func summaryRecord(row ResultRow) []string {
	optInt := func(p *int) string {
		if p == nil {
			return ""
		}
		return strconv.Itoa(*p)
	}
	pct := ""
	if row.Percentage != nil && row.Status == "Submitted" {
		pct = strconv.FormatFloat(*row.Percentage, 'f', 2, 64)
	}
	disq := "No"
	if row.IsDisqualified {
		disq = "Yes"
	}
	return []string{
		row.Name, row.Email, row.RollNumber, row.CollegeName, row.StudentGroupName,
		optInt(row.Score), optInt(row.TotalMarks), pct, row.Status, disq,
	}
}

func answerCells(st *model.Student, responses map[int64]*model.StudentResponse, n int) []string {
	cells := make([]string, n)
	if len(st.QuestionOrder) == 0 {
		return cells
	}
	for i, qid := range st.QuestionOrder {
		if i >= n {
			break
		}
		r, ok := responses[qid]
		if !ok || r.SelectedOption == nil || *r.SelectedOption == "" {
			cells[i] = "Not Answered"
			continue
		}
		mark := "incorrect"
		if r.IsCorrect {
			mark = "correct"
		}
		cells[i] = fmt.Sprintf("%s (%s)", strings.ToUpper(*r.SelectedOption), mark)
	}
	return cells
}
