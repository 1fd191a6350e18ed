package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/storage/database"
)

// PrepareDB opens the postgres test database, migrates it and empties every table.
// The test is skipped unless TEST_DATABASE is set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv("TEST_DATABASE") == "" {
		t.Skip("TEST_DATABASE not set; skipping postgres test")
	}

	conf := core.NewConfig()
	conf.Database.Name = os.Getenv("TEST_DATABASE")
	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("database.CreateIfNotExist() failed: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(db.DB); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	q := "TRUNCATE submissions, quizzes, enrollments, courses, students, teachers, admins RESTART IDENTITY CASCADE"
	if _, err := db.Exec(q); err != nil {
		t.Fatalf("truncating tables failed: %v", err)
	}
	return db
}

func CreateAccount(
	t *testing.T,
	repo account.Repository,
	role account.Role,
	firstName, lastName, uname, pwd string,
	createdAt ...time.Time,
) account.Account {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	p := account.Profile{
		FirstName: firstName,
		LastName:  lastName,
		Email:     uname + "@test.cd",
		Username:  uname,
		CreatedAt: tstamp,
	}
	if pwd != "" {
		if err := p.SetPassword(pwd); err != nil {
			t.Fatalf("CreateAccount() failed: %v", err)
		}
	}
	p, err := repo.CreateAccount(context.Background(), role, p)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	acc, _ := account.New(role, p)
	return acc
}

// CreateCourse creates a course owned by teacherID (0: unassigned) with the given roster.
func CreateCourse(t *testing.T, repo course.Repository, code, name string, teacherID int, studentIDs ...int) course.Course {
	t.Helper()
	ctx := context.Background()
	c := course.Course{
		Code:      code,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if teacherID > 0 {
		c.TeacherID = null.IntFrom(teacherID)
	}
	c, err := repo.CreateCourse(ctx, c)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	if len(studentIDs) > 0 {
		if err := repo.ReplaceEnrollments(ctx, c.ID, studentIDs); err != nil {
			t.Fatalf("CreateCourse() enrolling failed: %v", err)
		}
	}
	return c
}

func CreateQuiz(t *testing.T, repo quiz.Repository, courseID int, title, filePath string, totalPoints float64, dueAt time.Time) quiz.Quiz {
	t.Helper()
	q, err := repo.CreateQuiz(context.Background(), quiz.Quiz{
		CourseID:    courseID,
		Title:       title,
		FilePath:    filePath,
		DueAt:       dueAt.UTC(),
		TotalPoints: totalPoints,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateQuiz() failed: %v", err)
	}
	return q
}

func CreateSubmission(t *testing.T, repo quiz.Repository, quizID, studentID int, filePath string) quiz.Submission {
	t.Helper()
	s, err := repo.CreateSubmission(context.Background(), quiz.Submission{
		QuizID:      quizID,
		StudentID:   studentID,
		FilePath:    filePath,
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSubmission() failed: %v", err)
	}
	return s
}
