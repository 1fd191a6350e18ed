package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/authz"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("course")
	ErrCodeExists     = errors.New("Course code already exists")
	ErrUnknownTeacher = errors.New("teacher does not exist")
	ErrUnknownStudent = errors.New("one or more students do not exist")

	// OrderingFields lists the columns course listings may be ordered by.
	OrderingFields = []string{"id", "code", "name", "created_at"}
)

type (
	// Repository stores courses and their enrollments.
	// The storage layer reports a duplicate code as ErrCodeExists,
	// a missing teacher as ErrUnknownTeacher and a missing student as ErrUnknownStudent.
	Repository interface {
		// CheckCodeUniqueness returns ErrCodeExists if a course other than excludeID uses code.
		CheckCodeUniqueness(ctx context.Context, code string, excludeID int) error
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		UpdateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		// DeleteCourse removes the course along with its enrollments, quizzes and submissions.
		DeleteCourse(ctx context.Context, id int) error
		GetCourse(ctx context.Context, id int, exec ...core.DBExecutor) (Course, error)
		GetSummary(ctx context.Context, id int) (Summary, error)
		QuerySummaries(ctx context.Context, filter Filter, ordering ...core.DBOrdering) ([]Summary, error)
		QueryEnrolledStudents(ctx context.Context, courseID int) ([]EnrolledStudent, error)
		// ReplaceEnrollments deletes every enrollment of the course, then enrolls studentIDs.
		ReplaceEnrollments(ctx context.Context, courseID int, studentIDs []int, exec ...core.DBExecutor) error
		IsEnrolled(ctx context.Context, courseID, studentID int) (bool, error)
	}

	Service struct {
		repo Repository
		tx   core.Transactor
	}
)

func NewService(repo Repository, tx core.Transactor) *Service {
	return &Service{repo: repo, tx: tx}
}

func (svc *Service) checkUniqueness(ctx context.Context, code string, excludeID int) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, code, excludeID); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewFieldError("code", ErrCodeExists)
		}
		return errors.Wrap(err, "checking course code uniqueness")
	}
	return nil
}

// Create stores a new course and enrolls its roster in a single transaction; ec must have been validated.
func (svc *Service) Create(ctx context.Context, ec EditCourse) (AdminDetail, error) {
	if err := svc.checkUniqueness(ctx, ec.Code, 0); err != nil {
		return AdminDetail{}, err
	}

	c := Course{
		Code:        ec.Code,
		Name:        ec.Name,
		Description: ec.Description,
		TeacherID:   ec.TeacherID,
		CreatedAt:   time.Now().UTC(),
	}
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if c, err = svc.repo.CreateCourse(ctx, c, exec); err != nil {
			return err
		}
		return svc.repo.ReplaceEnrollments(ctx, c.ID, ec.StudentIDs, exec)
	})
	if err != nil {
		return AdminDetail{}, storageErr(err)
	}
	return svc.Get(ctx, c.ID)
}

// Update replaces the fields and the full roster of a course; ec must have been validated.
func (svc *Service) Update(ctx context.Context, id int, ec EditCourse) (AdminDetail, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return AdminDetail{}, err
	}
	if err := svc.checkUniqueness(ctx, ec.Code, id); err != nil {
		return AdminDetail{}, err
	}

	c.Code = ec.Code
	c.Name = ec.Name
	c.Description = ec.Description
	c.TeacherID = ec.TeacherID
	err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.UpdateCourse(ctx, c, exec); err != nil {
			return err
		}
		return svc.repo.ReplaceEnrollments(ctx, c.ID, ec.StudentIDs, exec)
	})
	if err != nil {
		return AdminDetail{}, storageErr(err)
	}
	return svc.Get(ctx, c.ID)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *Service) Query(ctx context.Context, ordering ...core.DBOrdering) ([]Summary, error) {
	return svc.repo.QuerySummaries(ctx, Filter{}, ordering...)
}

// Get returns the admin view of a course.
func (svc *Service) Get(ctx context.Context, id int) (AdminDetail, error) {
	s, err := svc.repo.GetSummary(ctx, id)
	if err != nil {
		return AdminDetail{}, err
	}
	students, err := svc.repo.QueryEnrolledStudents(ctx, id)
	if err != nil {
		return AdminDetail{}, errors.Wrap(err, "querying enrolled students")
	}
	roster := make([]RosterEntry, 0, len(students))
	for _, st := range students {
		roster = append(roster, RosterEntry{StudentID: st.ID, StudentName: st.FullName()})
	}
	return AdminDetail{Summary: s, EnrolledStudents: roster}, nil
}

// GetCourse returns the bare course row.
func (svc *Service) GetCourse(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

// CheckOwner returns authz.ErrCourseDenied unless the course exists and is owned by teacherID.
func (svc *Service) CheckOwner(ctx context.Context, teacherID, courseID int) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, courseID)
	if err := authz.CheckCourseOwner(c.TeacherID, teacherID, err, authz.ErrCourseDenied); err != nil {
		return Course{}, err
	}
	return c, nil
}

// CheckEnrolled returns authz.ErrNotEnrolled unless studentID is enrolled in the course.
// A missing course counts as not enrolled.
func (svc *Service) CheckEnrolled(ctx context.Context, studentID, courseID int) error {
	return authz.CheckEnrolled(svc.repo.IsEnrolled(ctx, courseID, studentID))
}

// TeacherCourses lists the courses owned by teacherID.
func (svc *Service) TeacherCourses(ctx context.Context, teacherID int) ([]Summary, error) {
	return svc.repo.QuerySummaries(ctx, Filter{TeacherID: teacherID}, core.DBOrdering{Field: "code", Ascending: true})
}

// TeacherCourse returns a course owned by teacherID along with its roster.
func (svc *Service) TeacherCourse(ctx context.Context, teacherID, courseID int) (TeacherDetail, error) {
	if _, err := svc.CheckOwner(ctx, teacherID, courseID); err != nil {
		return TeacherDetail{}, err
	}
	s, err := svc.repo.GetSummary(ctx, courseID)
	if err != nil {
		return TeacherDetail{}, err
	}
	students, err := svc.repo.QueryEnrolledStudents(ctx, courseID)
	if err != nil {
		return TeacherDetail{}, errors.Wrap(err, "querying enrolled students")
	}
	return TeacherDetail{Summary: s, Students: students}, nil
}

// StudentCourses lists the courses studentID is enrolled in.
func (svc *Service) StudentCourses(ctx context.Context, studentID int) ([]StudentView, error) {
	summaries, err := svc.repo.QuerySummaries(ctx, Filter{StudentID: studentID}, core.DBOrdering{Field: "code", Ascending: true})
	if err != nil {
		return nil, err
	}
	views := make([]StudentView, 0, len(summaries))
	for _, s := range summaries {
		views = append(views, newStudentView(s))
	}
	return views, nil
}

// StudentCourse returns a course studentID is enrolled in.
func (svc *Service) StudentCourse(ctx context.Context, studentID, courseID int) (StudentView, error) {
	if err := svc.CheckEnrolled(ctx, studentID, courseID); err != nil {
		return StudentView{}, err
	}
	s, err := svc.repo.GetSummary(ctx, courseID)
	if err != nil {
		return StudentView{}, err
	}
	return newStudentView(s), nil
}

// storageErr turns constraint violations reported by the storage layer into validation errors.
func storageErr(err error) error {
	switch errors.Cause(err) {
	case ErrCodeExists:
		return core.NewFieldError("code", ErrCodeExists)
	case ErrUnknownTeacher:
		return core.NewFieldError("teacherId", ErrUnknownTeacher)
	case ErrUnknownStudent:
		return core.NewFieldError("studentIds", ErrUnknownStudent)
	}
	return err
}
