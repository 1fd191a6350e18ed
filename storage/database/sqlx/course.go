package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

const (
	courseColumns = "c.id, c.code, c.name, c.description, c.teacher_id, c.created_at"

	summarySelect = "SELECT " + courseColumns + `,
	CASE WHEN t.id IS NULL THEN NULL ELSE t.first_name || ' ' || t.last_name END AS teacher_name,
	(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS students_enrolled
FROM courses c
LEFT JOIN teachers t ON t.id = c.teacher_id`
)

var courseConstraintErrs = map[string]error{
	"courses_code_key":            course.ErrCodeExists,
	"courses_teacher_id_fkey":     course.ErrUnknownTeacher,
	"enrollments_student_id_fkey": course.ErrUnknownStudent,
	"enrollments_course_id_fkey":  course.ErrNotFound,
}

type courseRepository struct {
	repository
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{repository{exec: exec}}
}

func (repo courseRepository) mapErr(err error, msg string) error {
	if cErr := constraintErr(err, courseConstraintErrs); cErr != nil {
		return cErr
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CheckCodeUniqueness(ctx context.Context, code string, excludeID int) error {
	var count int
	q := "SELECT COUNT(*) FROM courses WHERE code = $1 AND id <> $2"
	if err := sqlx.GetContext(ctx, repo.exec, &count, q, code, excludeID); err != nil {
		return errors.Wrap(err, "counting courses by code")
	}
	if count > 0 {
		return course.ErrCodeExists
	}
	return nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	q := "INSERT INTO courses (code, name, description, teacher_id, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id"
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &c.ID, q, c.Code, c.Name, c.Description, c.TeacherID, c.CreatedAt); err != nil {
		return course.Course{}, repo.mapErr(err, "inserting course")
	}
	return c, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	q := "UPDATE courses SET code = $1, name = $2, description = $3, teacher_id = $4 WHERE id = $5"
	res, err := repo.getExec(exec).ExecContext(ctx, q, c.Code, c.Name, c.Description, c.TeacherID, c.ID)
	if err != nil {
		return course.Course{}, repo.mapErr(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

// DeleteCourse relies on the foreign keys to delete enrollments, quizzes and submissions.
func (repo courseRepository) DeleteCourse(ctx context.Context, id int) error {
	res, err := repo.exec.ExecContext(ctx, "DELETE FROM courses WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id int, exec ...core.DBExecutor) (course.Course, error) {
	var c course.Course
	q := "SELECT " + courseColumns + " FROM courses c WHERE c.id = $1"
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &c, q, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return c, nil
}

func (repo courseRepository) GetSummary(ctx context.Context, id int) (course.Summary, error) {
	var s course.Summary
	if err := sqlx.GetContext(ctx, repo.exec, &s, summarySelect+" WHERE c.id = $1", id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return course.Summary{}, course.ErrNotFound
		}
		return course.Summary{}, errors.Wrap(err, "getting course summary")
	}
	return s, nil
}

func (repo courseRepository) QuerySummaries(ctx context.Context, filter course.Filter, ordering ...core.DBOrdering) ([]course.Summary, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.TeacherID > 0 {
		args = append(args, filter.TeacherID)
		conds = append(conds, "c.teacher_id = $"+strconv.Itoa(len(args)))
	}
	if filter.StudentID > 0 {
		args = append(args, filter.StudentID)
		conds = append(conds, "EXISTS (SELECT 1 FROM enrollments e WHERE e.course_id = c.id AND e.student_id = $"+strconv.Itoa(len(args))+")")
	}

	q := summarySelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderBy(ordering, course.OrderingFields, "c.", "c.code ASC")

	summaries := make([]course.Summary, 0)
	if err := sqlx.SelectContext(ctx, repo.exec, &summaries, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying course summaries")
	}
	return summaries, nil
}

func (repo courseRepository) QueryEnrolledStudents(ctx context.Context, courseID int) ([]course.EnrolledStudent, error) {
	students := make([]course.EnrolledStudent, 0)
	q := `SELECT s.id, s.first_name, s.last_name, s.email
FROM enrollments e
JOIN students s ON s.id = e.student_id
WHERE e.course_id = $1
ORDER BY s.last_name, s.first_name, s.id`
	if err := sqlx.SelectContext(ctx, repo.exec, &students, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying enrolled students")
	}
	return students, nil
}

func (repo courseRepository) ReplaceEnrollments(ctx context.Context, courseID int, studentIDs []int, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	if _, err := ex.ExecContext(ctx, "DELETE FROM enrollments WHERE course_id = $1", courseID); err != nil {
		return errors.Wrap(err, "deleting enrollments")
	}
	if len(studentIDs) == 0 {
		return nil
	}

	q, args, err := sqlx.In(
		"INSERT INTO enrollments (course_id, student_id) SELECT ?, unnest(ARRAY[?]::INTEGER[]) ON CONFLICT DO NOTHING",
		courseID, studentIDs,
	)
	if err != nil {
		return errors.Wrap(err, "building enrollments query")
	}
	if _, err := ex.ExecContext(ctx, ex.Rebind(q), args...); err != nil {
		return repo.mapErr(err, "inserting enrollments")
	}
	return nil
}

func (repo courseRepository) IsEnrolled(ctx context.Context, courseID, studentID int) (bool, error) {
	var enrolled bool
	q := "SELECT EXISTS (SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2)"
	if err := sqlx.GetContext(ctx, repo.exec, &enrolled, q, courseID, studentID); err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return enrolled, nil
}
