package course

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
)

// NotAssigned is shown to students in place of the name of a missing teacher.
const NotAssigned = "Not Assigned"

type Course struct {
	ID          int       `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	TeacherID   null.Int  `db:"teacher_id" json:"teacherId"` // null: unassigned
	CreatedAt   time.Time `db:"created_at" json:"createdAt"` // UTC
}

type Enrollment struct {
	CourseID   int       `db:"course_id" json:"courseId"`
	StudentID  int       `db:"student_id" json:"studentId"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolledAt"` // UTC
}

// Summary is a course along with its teacher's name and roster size.
type Summary struct {
	Course
	TeacherName      null.String `db:"teacher_name" json:"teacherName"`
	StudentsEnrolled int         `db:"students_enrolled" json:"studentsEnrolled"`
}

// EnrolledStudent is a student on a course roster.
type EnrolledStudent struct {
	ID        int    `db:"id" json:"id"`
	FirstName string `db:"first_name" json:"firstName"`
	LastName  string `db:"last_name" json:"lastName"`
	Email     string `db:"email" json:"email"`
}

func (s EnrolledStudent) FullName() string { return s.FirstName + " " + s.LastName }

type (
	// RosterEntry is the admin view of an enrolled student.
	RosterEntry struct {
		StudentID   int    `json:"studentId"`
		StudentName string `json:"studentName"`
	}

	// AdminDetail is the admin view of a single course.
	AdminDetail struct {
		Summary
		EnrolledStudents []RosterEntry `json:"enrolledStudents"`
	}

	// TeacherDetail is the owning teacher's view of a single course.
	TeacherDetail struct {
		Summary
		Students []EnrolledStudent `json:"students"`
	}

	// StudentView is an enrolled student's view of a course.
	StudentView struct {
		ID          int       `json:"id"`
		Code        string    `json:"code"`
		Name        string    `json:"name"`
		Description string    `json:"description"`
		TeacherName string    `json:"teacherName"`
		CreatedAt   time.Time `json:"createdAt"`
	}
)

func newStudentView(s Summary) StudentView {
	teacher := NotAssigned
	if s.TeacherName.Valid {
		teacher = s.TeacherName.String
	}
	return StudentView{
		ID:          s.ID,
		Code:        s.Code,
		Name:        s.Name,
		Description: s.Description,
		TeacherName: teacher,
		CreatedAt:   s.CreatedAt,
	}
}

// Filter narrows a course listing. Zero fields are ignored.
type Filter struct {
	TeacherID int // owned by
	StudentID int // enrolled
}

// EditCourse contains the fields an admin sets when creating or updating a course.
// StudentIDs is the full roster: it replaces the existing enrollments.
type EditCourse struct {
	Code        string   `json:"code" validate:"required,max=20"`
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	TeacherID   null.Int `json:"teacherId"`
	StudentIDs  []int    `json:"studentIds" validate:"dive,gt=0"`
}

func (ec *EditCourse) Validate(validate *validator.Validate) error {
	ec.Code = core.CleanString(ec.Code)
	ec.Name = core.CleanString(ec.Name)
	ec.Description = core.CleanString(ec.Description)
	if ec.TeacherID.Valid && ec.TeacherID.Int <= 0 {
		ec.TeacherID = null.Int{}
	}
	ec.StudentIDs = uniqueIDs(ec.StudentIDs)
	return validate.Struct(ec)
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	uniq := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	return uniq
}
