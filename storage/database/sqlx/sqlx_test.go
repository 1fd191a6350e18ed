package sqlxrepos_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/storage/database"
	sqlxrepos "github.com/trezcool/elimu/storage/database/sqlx"
	testutil "github.com/trezcool/elimu/tests"
)

func TestAccountRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewAccountRepository(db)
	ctx := context.Background()

	grace := testutil.CreateAccount(t, repo, account.RoleTeacher, "Grace", "Hopper", "grace", "pwd")
	testutil.CreateAccount(t, repo, account.RoleTeacher, "Ada", "Lovelace", "ada", "pwd")
	// same username, other role
	testutil.CreateAccount(t, repo, account.RoleStudent, "Grace", "Student", "grace", "pwd")

	_, err := repo.CreateAccount(ctx, account.RoleTeacher, account.Profile{Username: "grace", CreatedAt: time.Now().UTC()})
	assert.Equal(t, account.ErrUsernameExists, err)
	assert.Equal(t, account.ErrUsernameExists, repo.CheckUsernameUniqueness(ctx, account.RoleTeacher, "grace", 0))
	assert.NoError(t, repo.CheckUsernameUniqueness(ctx, account.RoleTeacher, "grace", grace.GetProfile().ID))

	profiles, err := repo.QueryAccounts(ctx, account.RoleTeacher, core.DBOrdering{Field: "username", Ascending: false})
	require.NoError(t, err)
	if assert.Len(t, profiles, 2) {
		assert.Equal(t, "grace", profiles[0].Username)
		assert.Equal(t, "ada", profiles[1].Username)
	}

	p, err := repo.GetAccountByUsername(ctx, account.RoleTeacher, "ada")
	require.NoError(t, err)
	p.Email = "ada@math.cd"
	_, err = repo.UpdateAccount(ctx, account.RoleTeacher, p)
	require.NoError(t, err)
	p, err = repo.GetAccount(ctx, account.RoleTeacher, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@math.cd", p.Email)

	p.Username = "grace"
	_, err = repo.UpdateAccount(ctx, account.RoleTeacher, p)
	assert.Equal(t, account.ErrUsernameExists, err)

	require.NoError(t, repo.DeleteAccount(ctx, account.RoleTeacher, p.ID))
	assert.Equal(t, account.ErrTeacherNotFound, repo.DeleteAccount(ctx, account.RoleTeacher, p.ID))
	_, err = repo.GetAccount(ctx, account.RoleTeacher, p.ID)
	assert.Equal(t, account.ErrTeacherNotFound, err)

	count, err := repo.CountAccounts(ctx, account.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCourseRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	accounts := sqlxrepos.NewAccountRepository(db)
	repo := sqlxrepos.NewCourseRepository(db)
	tx := database.NewTxRunner(db)
	ctx := context.Background()

	teacher := testutil.CreateAccount(t, accounts, account.RoleTeacher, "Grace", "Hopper", "grace", "pwd").GetProfile()
	a := testutil.CreateAccount(t, accounts, account.RoleStudent, "Alan", "Turing", "alan", "pwd").GetProfile()
	b := testutil.CreateAccount(t, accounts, account.RoleStudent, "Barbara", "Liskov", "barbara", "pwd").GetProfile()

	c := testutil.CreateCourse(t, repo, "CS101", "Intro", teacher.ID, a.ID, a.ID, b.ID)

	t.Run("summary", func(t *testing.T) {
		s, err := repo.GetSummary(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, null.StringFrom("Grace Hopper"), s.TeacherName)
		assert.Equal(t, 2, s.StudentsEnrolled)

		enrolled, err := repo.IsEnrolled(ctx, c.ID, b.ID)
		require.NoError(t, err)
		assert.True(t, enrolled)
	})

	t.Run("code exists", func(t *testing.T) {
		_, err := repo.CreateCourse(ctx, course.Course{Code: "CS101", Name: "Dup", CreatedAt: time.Now().UTC()})
		assert.Equal(t, course.ErrCodeExists, err)
		assert.Equal(t, course.ErrCodeExists, repo.CheckCodeUniqueness(ctx, "CS101", 0))
		assert.NoError(t, repo.CheckCodeUniqueness(ctx, "CS101", c.ID))
	})

	t.Run("unknown teacher", func(t *testing.T) {
		_, err := repo.CreateCourse(ctx, course.Course{Code: "CS102", TeacherID: null.IntFrom(999), CreatedAt: time.Now().UTC()})
		assert.Equal(t, course.ErrUnknownTeacher, err)
	})

	t.Run("unknown student rolls back", func(t *testing.T) {
		err := tx.InTx(ctx, func(exec core.DBExecutor) error {
			if err := repo.ReplaceEnrollments(ctx, c.ID, []int{b.ID}, exec); err != nil {
				return err
			}
			return repo.ReplaceEnrollments(ctx, c.ID, []int{999}, exec)
		})
		assert.Equal(t, course.ErrUnknownStudent, err)

		students, err := repo.QueryEnrolledStudents(ctx, c.ID)
		require.NoError(t, err)
		assert.Len(t, students, 2)
	})

	t.Run("filters", func(t *testing.T) {
		testutil.CreateCourse(t, repo, "MA101", "Algebra", 0, b.ID)

		got, err := repo.QuerySummaries(ctx, course.Filter{StudentID: a.ID})
		require.NoError(t, err)
		if assert.Len(t, got, 1) {
			assert.Equal(t, "CS101", got[0].Code)
		}

		got, err = repo.QuerySummaries(ctx, course.Filter{}, core.DBOrdering{Field: "code", Ascending: false})
		require.NoError(t, err)
		if assert.Len(t, got, 2) {
			assert.Equal(t, "MA101", got[0].Code)
			assert.False(t, got[0].TeacherName.Valid)
		}
	})

	t.Run("teacher deleted", func(t *testing.T) {
		require.NoError(t, accounts.DeleteAccount(ctx, account.RoleTeacher, teacher.ID))
		got, err := repo.GetCourse(ctx, c.ID)
		require.NoError(t, err)
		assert.False(t, got.TeacherID.Valid)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteCourse(ctx, c.ID))
		assert.Equal(t, course.ErrNotFound, repo.DeleteCourse(ctx, c.ID))
		_, err := repo.GetSummary(ctx, c.ID)
		assert.Equal(t, course.ErrNotFound, err)
	})
}

func TestQuizRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	accounts := sqlxrepos.NewAccountRepository(db)
	courses := sqlxrepos.NewCourseRepository(db)
	repo := sqlxrepos.NewQuizRepository(db)
	ctx := context.Background()

	teacher := testutil.CreateAccount(t, accounts, account.RoleTeacher, "Grace", "Hopper", "grace", "pwd").GetProfile()
	st := testutil.CreateAccount(t, accounts, account.RoleStudent, "Alan", "Turing", "alan", "pwd").GetProfile()
	c := testutil.CreateCourse(t, courses, "CS101", "Intro", teacher.ID, st.ID)
	q := testutil.CreateQuiz(t, repo, c.ID, "Quiz 1", "quizzes/q1.pdf", 20, time.Now().Add(24*time.Hour))

	_, err := repo.GetStudentSubmission(ctx, q.ID, st.ID)
	assert.Equal(t, quiz.ErrSubmissionNotFound, err)

	s := testutil.CreateSubmission(t, repo, q.ID, st.ID, "submissions/s1.pdf")
	_, err = repo.CreateSubmission(ctx, quiz.Submission{QuizID: q.ID, StudentID: st.ID, FilePath: "submissions/s2.pdf", SubmittedAt: time.Now().UTC()})
	assert.Equal(t, quiz.ErrAlreadySubmitted, err)
	_, err = repo.CreateSubmission(ctx, quiz.Submission{QuizID: 999, StudentID: st.ID, FilePath: "submissions/s3.pdf", SubmittedAt: time.Now().UTC()})
	assert.Equal(t, quiz.ErrNotFound, err)

	tq, err := repo.QueryTeacherQuizzes(ctx, c.ID)
	require.NoError(t, err)
	if assert.Len(t, tq, 1) {
		assert.Equal(t, 1, tq[0].Submissions)
	}

	s.Score = null.Float64From(17.5)
	s.Feedback = null.StringFrom("good")
	s.GradedAt = null.TimeFrom(time.Now().UTC())
	_, err = repo.GradeSubmission(ctx, s)
	require.NoError(t, err)

	sq, err := repo.QueryStudentQuizzes(ctx, c.ID, st.ID)
	require.NoError(t, err)
	if assert.Len(t, sq, 1) {
		assert.Equal(t, null.Float64From(17.5), sq[0].Score)
	}

	views, err := repo.QuerySubmissionViews(ctx, q.ID)
	require.NoError(t, err)
	if assert.Len(t, views, 1) {
		assert.Equal(t, "Alan Turing", views[0].StudentName)
	}

	t.Run("file owner", func(t *testing.T) {
		owner, err := repo.FindFileOwner(ctx, "quizzes/q1.pdf")
		require.NoError(t, err)
		assert.Equal(t, c.ID, owner.CourseID)
		assert.Equal(t, null.IntFrom(teacher.ID), owner.TeacherID)

		owner, err = repo.FindFileOwner(ctx, "submissions/s1.pdf")
		require.NoError(t, err)
		assert.Equal(t, st.ID, owner.StudentID)

		_, err = repo.FindFileOwner(ctx, "submissions/nope.pdf")
		assert.True(t, errors.Is(err, core.ErrFileNotFound))

		paths, err := repo.QueryFilePaths(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"quizzes/q1.pdf", "submissions/s1.pdf"}, paths)
	})

	t.Run("course deleted", func(t *testing.T) {
		require.NoError(t, courses.DeleteCourse(ctx, c.ID))
		_, err := repo.GetQuiz(ctx, q.ID)
		assert.Equal(t, quiz.ErrNotFound, err)
		_, err = repo.GetSubmission(ctx, s.ID)
		assert.Equal(t, quiz.ErrSubmissionNotFound, err)
	})
}
