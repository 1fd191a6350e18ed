package course_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
	"github.com/trezcool/elimu/core/authz"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/storage/database/dummy"
	"github.com/trezcool/elimu/tests"
)

type fixture struct {
	svc      *course.Service
	db       *dummydb.DB
	accounts account.Repository
	courses  course.Repository
	quizzes  quiz.Repository
}

func setup(t *testing.T) fixture {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewCourseRepository(db)
	return fixture{
		svc:      course.NewService(repo, db),
		db:       db,
		accounts: dummydb.NewAccountRepository(db),
		courses:  repo,
		quizzes:  dummydb.NewQuizRepository(db),
	}
}

func rosterIDs(d course.AdminDetail) []int {
	ids := make([]int, 0, len(d.EnrolledStudents))
	for _, e := range d.EnrolledStudents {
		ids = append(ids, e.StudentID)
	}
	return ids
}

func TestService_CreateGetDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateAccount(t, f.accounts, account.RoleTeacher, "Ada", "Lovelace", "ada", "")
	st := testutil.CreateAccount(t, f.accounts, account.RoleStudent, "Alan", "Turing", "alan", "")

	created, err := f.svc.Create(ctx, course.EditCourse{
		Code:        "CS101",
		Name:        "Intro to CS",
		Description: "Basics",
		TeacherID:   null.IntFrom(teacher.GetProfile().ID),
		StudentIDs:  []int{st.GetProfile().ID},
	})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "CS101", got.Code)
	assert.Equal(t, "Intro to CS", got.Name)
	assert.Equal(t, "Basics", got.Description)
	assert.Equal(t, null.IntFrom(teacher.GetProfile().ID), got.TeacherID)
	assert.Equal(t, null.StringFrom("Ada Lovelace"), got.TeacherName)
	assert.Equal(t, 1, got.StudentsEnrolled)
	assert.Equal(t, []course.RosterEntry{{StudentID: st.GetProfile().ID, StudentName: "Alan Turing"}}, got.EnrolledStudents)

	q := testutil.CreateQuiz(t, f.quizzes, created.ID, "Quiz 1", "quizzes/a.pdf", 10, created.CreatedAt)

	require.NoError(t, f.svc.Delete(ctx, created.ID))
	_, err = f.svc.Get(ctx, created.ID)
	assert.Equal(t, course.ErrNotFound, err)
	_, err = f.quizzes.GetQuiz(ctx, q.ID)
	assert.Equal(t, quiz.ErrNotFound, err)
	enrolled, err := f.courses.IsEnrolled(ctx, created.ID, st.GetProfile().ID)
	require.NoError(t, err)
	assert.False(t, enrolled)

	assert.Equal(t, course.ErrNotFound, f.svc.Delete(ctx, created.ID))
}

func TestService_CodeUniqueness(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	cs101, err := f.svc.Create(ctx, course.EditCourse{Code: "CS101", Name: "Intro"})
	require.NoError(t, err)
	cs102, err := f.svc.Create(ctx, course.EditCourse{Code: "CS102", Name: "Data structures"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, course.EditCourse{Code: "CS101", Name: "Copy"})
	assert.True(t, core.IsValidationError(err), "Create() error = %v", err)

	_, err = f.svc.Update(ctx, cs102.ID, course.EditCourse{Code: "CS101", Name: "Data structures"})
	assert.True(t, core.IsValidationError(err), "Update() error = %v", err)

	updated, err := f.svc.Update(ctx, cs101.ID, course.EditCourse{Code: "CS101", Name: "Intro (renamed)"})
	require.NoError(t, err)
	assert.Equal(t, "Intro (renamed)", updated.Name)
}

// unseenCodes lets every code through the uniqueness lookup, like a concurrent request not yet committed.
type unseenCodes struct {
	course.Repository
}

func (unseenCodes) CheckCodeUniqueness(context.Context, string, int) error {
	return nil
}

func TestService_CodeStorageConstraint(t *testing.T) {
	f := setup(t)
	svc := course.NewService(unseenCodes{f.courses}, f.db)
	ctx := context.Background()
	st := testutil.CreateAccount(t, f.accounts, account.RoleStudent, "Alan", "Turing", "alan", "")

	_, err := svc.Create(ctx, course.EditCourse{Code: "CS101", Name: "Intro"})
	require.NoError(t, err)
	cs102, err := svc.Create(ctx, course.EditCourse{Code: "CS102", Name: "Data structures", StudentIDs: []int{st.GetProfile().ID}})
	require.NoError(t, err)

	_, err = svc.Create(ctx, course.EditCourse{Code: "CS101", Name: "Copy", StudentIDs: []int{st.GetProfile().ID}})
	require.True(t, core.IsValidationError(err), "Create() error = %v", err)
	assert.Equal(t, "code", err.(*core.ValidationError).Fields[0].Field)

	_, err = svc.Update(ctx, cs102.ID, course.EditCourse{Code: "CS101", Name: "Data structures"})
	require.True(t, core.IsValidationError(err), "Update() error = %v", err)
	assert.Equal(t, "code", err.(*core.ValidationError).Fields[0].Field)

	got, err := svc.Get(ctx, cs102.ID)
	require.NoError(t, err)
	assert.Equal(t, "CS102", got.Code)
	assert.Equal(t, []int{st.GetProfile().ID}, rosterIDs(got), "roster untouched")

	all, err := svc.Query(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestService_RosterReplace(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := testutil.CreateAccount(t, f.accounts, account.RoleStudent, "A", "A", "a", "").GetProfile().ID
	b := testutil.CreateAccount(t, f.accounts, account.RoleStudent, "B", "B", "b", "").GetProfile().ID
	c := testutil.CreateAccount(t, f.accounts, account.RoleStudent, "C", "C", "c", "").GetProfile().ID

	created, err := f.svc.Create(ctx, course.EditCourse{Code: "CS101", Name: "Intro", StudentIDs: []int{a, b}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{a, b}, rosterIDs(created))

	updated, err := f.svc.Update(ctx, created.ID, course.EditCourse{Code: "CS101", Name: "Intro", StudentIDs: []int{b, c}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{b, c}, rosterIDs(updated))

	t.Run("unknown student rolls the update back", func(t *testing.T) {
		_, err := f.svc.Update(ctx, created.ID, course.EditCourse{Code: "CS999", Name: "Renamed", StudentIDs: []int{a, 999}})
		assert.True(t, core.IsValidationError(err), "Update() error = %v", err)

		got, err := f.svc.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "CS101", got.Code)
		assert.ElementsMatch(t, []int{b, c}, rosterIDs(got))
	})

	t.Run("unknown teacher", func(t *testing.T) {
		_, err := f.svc.Create(ctx, course.EditCourse{Code: "CS200", Name: "Ghost", TeacherID: null.IntFrom(999)})
		assert.True(t, core.IsValidationError(err), "Create() error = %v", err)
		assert.NoError(t, f.courses.CheckCodeUniqueness(ctx, "CS200", 0))
	})
}

func TestService_TeacherScope(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	ada := testutil.CreateAccount(t, f.accounts, account.RoleTeacher, "Ada", "Lovelace", "ada", "").GetProfile().ID
	bob := testutil.CreateAccount(t, f.accounts, account.RoleTeacher, "Bob", "Kahn", "bob", "").GetProfile().ID
	st := testutil.CreateAccount(t, f.accounts, account.RoleStudent, "Alan", "Turing", "alan", "").GetProfile().ID

	mine := testutil.CreateCourse(t, f.courses, "CS101", "Intro", ada, st)
	testutil.CreateCourse(t, f.courses, "CS102", "Other", bob)
	unassigned := testutil.CreateCourse(t, f.courses, "CS103", "Nobody's", 0)

	courses, err := f.svc.TeacherCourses(ctx, ada)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, mine.ID, courses[0].ID)
	assert.Equal(t, 1, courses[0].StudentsEnrolled)

	detail, err := f.svc.TeacherCourse(ctx, ada, mine.ID)
	require.NoError(t, err)
	require.Len(t, detail.Students, 1)
	assert.Equal(t, "alan@test.cd", detail.Students[0].Email)

	tests := []struct {
		name      string
		teacherID int
		courseID  int
	}{
		{name: "another teacher's course", teacherID: bob, courseID: mine.ID},
		{name: "unassigned course", teacherID: ada, courseID: unassigned.ID},
		{name: "missing course", teacherID: ada, courseID: 999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.TeacherCourse(ctx, tt.teacherID, tt.courseID)
			assert.Equal(t, authz.ErrCourseDenied, err)
		})
	}

	t.Run("deleting the teacher unassigns the course", func(t *testing.T) {
		require.NoError(t, f.accounts.DeleteAccount(ctx, account.RoleTeacher, ada))
		c, err := f.svc.GetCourse(ctx, mine.ID)
		require.NoError(t, err)
		assert.False(t, c.TeacherID.Valid)
	})
}

func TestService_StudentScope(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	st := testutil.CreateAccount(t, f.accounts, account.RoleStudent, "Alan", "Turing", "alan", "").GetProfile().ID
	other := testutil.CreateAccount(t, f.accounts, account.RoleStudent, "Grace", "Hopper", "grace", "").GetProfile().ID

	enrolled := testutil.CreateCourse(t, f.courses, "CS101", "Intro", 0, st)
	notEnrolled := testutil.CreateCourse(t, f.courses, "CS102", "Other", 0, other)

	views, err := f.svc.StudentCourses(ctx, st)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, enrolled.ID, views[0].ID)
	assert.Equal(t, course.NotAssigned, views[0].TeacherName)

	_, err = f.svc.StudentCourse(ctx, st, notEnrolled.ID)
	assert.Equal(t, authz.ErrNotEnrolled, err)
	_, err = f.svc.StudentCourse(ctx, st, 999)
	assert.Equal(t, authz.ErrNotEnrolled, err)

	require.NoError(t, f.courses.ReplaceEnrollments(ctx, notEnrolled.ID, []int{other, st}))
	view, err := f.svc.StudentCourse(ctx, st, notEnrolled.ID)
	require.NoError(t, err)
	assert.Equal(t, "CS102", view.Code)
}
