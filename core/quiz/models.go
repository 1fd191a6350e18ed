package quiz

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
)

// DueDateLayouts are the accepted formats of a quiz due date, tried in order.
var DueDateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

type Quiz struct {
	ID          int       `db:"id" json:"id"`
	CourseID    int       `db:"course_id" json:"courseId"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	FilePath    string    `db:"file_path" json:"filePath"` // relative to the file store root
	DueAt       time.Time `db:"due_at" json:"dueDate"`
	TotalPoints float64   `db:"total_points" json:"totalPoints"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"` // UTC
}

type Submission struct {
	ID          int          `db:"id" json:"id"`
	QuizID      int          `db:"quiz_id" json:"quizId"`
	StudentID   int          `db:"student_id" json:"studentId"`
	FilePath    string       `db:"file_path" json:"filePath"`
	SubmittedAt time.Time    `db:"submitted_at" json:"submittedAt"` // UTC
	Score       null.Float64 `db:"score" json:"score"`
	Feedback    null.String  `db:"feedback" json:"feedback"`
	GradedAt    null.Time    `db:"graded_at" json:"gradedAt"`
}

func (s Submission) IsGraded() bool { return s.Score.Valid }

type (
	// TeacherQuiz is a quiz along with its number of submissions.
	TeacherQuiz struct {
		Quiz
		Submissions int `db:"submissions" json:"submissions"`
	}

	// StudentQuiz is a quiz along with the caller's own submission, if any.
	StudentQuiz struct {
		Quiz
		SubmittedAt null.Time    `db:"submitted_at" json:"submittedAt"`
		Score       null.Float64 `db:"score" json:"score"`
	}

	// SubmissionView is a submission listed to the owning teacher.
	SubmissionView struct {
		ID          int          `db:"id" json:"id"`
		StudentID   int          `db:"student_id" json:"studentId"`
		StudentName string       `db:"student_name" json:"studentName"`
		FilePath    string       `db:"file_path" json:"filePath"`
		SubmittedAt time.Time    `db:"submitted_at" json:"submittedAt"`
		Score       null.Float64 `db:"score" json:"score"`
		Feedback    null.String  `db:"feedback" json:"feedback"`
	}

	QuizSubmissions struct {
		QuizTitle   string           `json:"quizTitle"`
		TotalPoints float64          `json:"totalPoints"`
		Submissions []SubmissionView `json:"submissions"`
	}

	// ScoreView is a graded submission shown to its student.
	ScoreView struct {
		QuizTitle   string    `json:"quizTitle"`
		TotalPoints float64   `json:"totalPoints"`
		Score       float64   `json:"score"`
		SubmittedAt time.Time `json:"submittedAt"`
		Feedback    string    `json:"feedback"`
		GradedAt    time.Time `json:"gradedAt"`
	}

	// FileOwner identifies what a stored file is attached to.
	FileOwner struct {
		Category  core.FileCategory
		CourseID  int
		TeacherID null.Int // course owner
		StudentID int      // submitter, for submission files
	}
)

// NewQuiz contains the form fields of a quiz upload.
// Points and scores stay below 1e16, the range of NUMERIC(18, 2); NaN fails gte and +Inf fails lt.
type NewQuiz struct {
	CourseID    int     `form:"courseId" validate:"required,gt=0"`
	Title       string  `form:"title" validate:"required,max=200"`
	Description string  `form:"description" validate:"max=2000"`
	DueDate     string  `form:"dueDate" validate:"required"`
	TotalPoints float64 `form:"totalPoints" validate:"gte=0,lt=1e16"`

	DueAt time.Time `form:"-"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	nq.Description = core.CleanString(nq.Description)
	nq.DueDate = core.CleanString(nq.DueDate)
	if err := validate.Struct(nq); err != nil {
		return err
	}

	dueAt, err := ParseDueDate(nq.DueDate)
	if err != nil {
		return core.NewFieldError("dueDate", err)
	}
	nq.DueAt = dueAt
	return nil
}

// ParseDueDate parses s with the first matching layout of DueDateLayouts. Dates without a zone are UTC.
func ParseDueDate(s string) (time.Time, error) {
	for _, layout := range DueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("invalid date, expected " + strings.Join(DueDateLayouts[:2], " or "))
}

// NewSubmission contains the form fields of an answer upload.
type NewSubmission struct {
	QuizID int `form:"quizId" validate:"required,gt=0"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	return validate.Struct(ns)
}

// Grade is the score a teacher gives a submission.
type Grade struct {
	Score    *float64 `json:"score" validate:"required,gte=0,lt=1e16"`
	Feedback string   `json:"feedback" validate:"max=4000"`
}

func (g *Grade) Validate(validate *validator.Validate) error {
	g.Feedback = core.CleanString(g.Feedback)
	return validate.Struct(g)
}
