package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
	"github.com/trezcool/elimu/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func codeTaken(t *table[course.Course], code string, excludeID int) bool {
	for id, c := range t.rows {
		if id != excludeID && c.Code == code {
			return true
		}
	}
	return false
}

// checkTeacher emulates the courses.teacher_id foreign key.
func (repo *courseRepository) checkTeacher(teacherID null.Int) error {
	if !teacherID.Valid {
		return nil
	}
	if _, ok := repo.db.data.accounts[account.RoleTeacher].rows[int(teacherID.Int)]; !ok {
		return course.ErrUnknownTeacher
	}
	return nil
}

func (repo *courseRepository) CheckCodeUniqueness(_ context.Context, code string, excludeID int) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if codeTaken(repo.db.data.courses, code, excludeID) {
		return course.ErrCodeExists
	}
	return nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if codeTaken(repo.db.data.courses, c.Code, 0) {
		return course.Course{}, course.ErrCodeExists
	}
	if err := repo.checkTeacher(c.TeacherID); err != nil {
		return course.Course{}, err
	}
	c = repo.db.data.courses.insert(func(id int) course.Course { c.ID = id; return c })
	txOf(exec).onRollback(func(d tables) {
		if _, ok := d.courses.rows[c.ID]; ok {
			d.deleteCourse(c.ID)
		}
	})
	return c, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.data.courses.rows[c.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	if codeTaken(repo.db.data.courses, c.Code, c.ID) {
		return course.Course{}, course.ErrCodeExists
	}
	if err := repo.checkTeacher(c.TeacherID); err != nil {
		return course.Course{}, err
	}
	c.CreatedAt = orig.CreatedAt
	repo.db.data.courses.rows[c.ID] = c
	txOf(exec).onRollback(func(d tables) {
		if _, ok := d.courses.rows[orig.ID]; !ok {
			return
		}
		if orig.TeacherID.Valid {
			if _, ok := d.accounts[account.RoleTeacher].rows[int(orig.TeacherID.Int)]; !ok {
				orig.TeacherID = null.Int{}
			}
		}
		d.courses.rows[orig.ID] = orig
	})
	return c, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.data.courses.rows[id]; !ok {
		return course.ErrNotFound
	}
	repo.db.data.deleteCourse(id)
	return nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id int, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.data.courses.rows[id]; ok {
		return c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) summary(c course.Course) course.Summary {
	s := course.Summary{Course: c}
	if c.TeacherID.Valid {
		if t, ok := repo.db.data.accounts[account.RoleTeacher].rows[int(c.TeacherID.Int)]; ok {
			s.TeacherName = null.StringFrom(t.FirstName + " " + t.LastName)
		}
	}
	for k := range repo.db.data.enrollments {
		if k.courseID == c.ID {
			s.StudentsEnrolled++
		}
	}
	return s
}

func (repo *courseRepository) GetSummary(_ context.Context, id int) (course.Summary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	c, ok := repo.db.data.courses.rows[id]
	if !ok {
		return course.Summary{}, course.ErrNotFound
	}
	return repo.summary(c), nil
}

func (repo *courseRepository) QuerySummaries(_ context.Context, filter course.Filter, ordering ...core.DBOrdering) ([]course.Summary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	summaries := make([]course.Summary, 0)
	for _, c := range repo.db.data.courses.sorted() {
		if filter.TeacherID > 0 && !(c.TeacherID.Valid && int(c.TeacherID.Int) == filter.TeacherID) {
			continue
		}
		if filter.StudentID > 0 {
			if _, ok := repo.db.data.enrollments[enrollmentKey{c.ID, filter.StudentID}]; !ok {
				continue
			}
		}
		summaries = append(summaries, repo.summary(c))
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "code", Ascending: true}}
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		for _, ord := range ordering {
			if c := compareCourses(summaries[i].Course, summaries[j].Course, ord.Field); c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		return false
	})
	return summaries, nil
}

func compareCourses(a, b course.Course, field string) int {
	switch field {
	case "id":
		return a.ID - b.ID
	case "code":
		return strings.Compare(a.Code, b.Code)
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return 0
}

func (repo *courseRepository) QueryEnrolledStudents(_ context.Context, courseID int) ([]course.EnrolledStudent, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]course.EnrolledStudent, 0)
	for _, p := range repo.db.data.accounts[account.RoleStudent].sorted() {
		if _, ok := repo.db.data.enrollments[enrollmentKey{courseID, p.ID}]; ok {
			students = append(students, course.EnrolledStudent{
				ID:        p.ID,
				FirstName: p.FirstName,
				LastName:  p.LastName,
				Email:     p.Email,
			})
		}
	}
	sort.SliceStable(students, func(i, j int) bool {
		if students[i].LastName != students[j].LastName {
			return students[i].LastName < students[j].LastName
		}
		return students[i].FirstName < students[j].FirstName
	})
	return students, nil
}

func (repo *courseRepository) ReplaceEnrollments(_ context.Context, courseID int, studentIDs []int, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.data.courses.rows[courseID]; !ok {
		return course.ErrNotFound
	}
	students := repo.db.data.accounts[account.RoleStudent].rows
	for _, id := range studentIDs {
		if _, ok := students[id]; !ok {
			return course.ErrUnknownStudent
		}
	}

	var previous []course.Enrollment
	for k, e := range repo.db.data.enrollments {
		if k.courseID == courseID {
			previous = append(previous, e)
			delete(repo.db.data.enrollments, k)
		}
	}
	txOf(exec).onRollback(func(d tables) {
		if _, ok := d.courses.rows[courseID]; !ok {
			return
		}
		for k := range d.enrollments {
			if k.courseID == courseID {
				delete(d.enrollments, k)
			}
		}
		for _, e := range previous {
			if _, ok := d.accounts[account.RoleStudent].rows[e.StudentID]; ok {
				d.enrollments[enrollmentKey{e.CourseID, e.StudentID}] = e
			}
		}
	})
	now := time.Now().UTC()
	for _, id := range studentIDs {
		repo.db.data.enrollments[enrollmentKey{courseID, id}] = course.Enrollment{
			CourseID:   courseID,
			StudentID:  id,
			EnrolledAt: now,
		}
	}
	return nil
}

func (repo *courseRepository) IsEnrolled(_ context.Context, courseID, studentID int) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, ok := repo.db.data.enrollments[enrollmentKey{courseID, studentID}]
	return ok, nil
}
