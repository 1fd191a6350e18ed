package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/quiz"
)

const (
	quizColumns       = "q.id, q.course_id, q.title, q.description, q.file_path, q.due_at, q.total_points, q.created_at"
	submissionColumns = "id, quiz_id, student_id, file_path, submitted_at, score, feedback, graded_at"
)

var quizConstraintErrs = map[string]error{
	"submissions_quiz_id_student_id_key": quiz.ErrAlreadySubmitted,
	"submissions_quiz_id_fkey":           quiz.ErrNotFound,
}

type quizRepository struct {
	repository
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(exec core.DBExecutor) *quizRepository {
	return &quizRepository{repository{exec: exec}}
}

func (repo quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	stmt := `INSERT INTO quizzes (course_id, title, description, file_path, due_at, total_points, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := sqlx.GetContext(ctx, repo.exec, &q.ID, stmt,
		q.CourseID, q.Title, q.Description, q.FilePath, q.DueAt, q.TotalPoints, q.CreatedAt)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	return q, nil
}

func (repo quizRepository) GetQuiz(ctx context.Context, id int) (quiz.Quiz, error) {
	var q quiz.Quiz
	if err := sqlx.GetContext(ctx, repo.exec, &q, "SELECT "+quizColumns+" FROM quizzes q WHERE q.id = $1", id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return quiz.Quiz{}, quiz.ErrNotFound
		}
		return quiz.Quiz{}, errors.Wrap(err, "getting quiz")
	}
	return q, nil
}

func (repo quizRepository) QueryTeacherQuizzes(ctx context.Context, courseID int) ([]quiz.TeacherQuiz, error) {
	quizzes := make([]quiz.TeacherQuiz, 0)
	stmt := "SELECT " + quizColumns + `,
	(SELECT COUNT(*) FROM submissions s WHERE s.quiz_id = q.id) AS submissions
FROM quizzes q
WHERE q.course_id = $1
ORDER BY q.due_at, q.id`
	if err := sqlx.SelectContext(ctx, repo.exec, &quizzes, stmt, courseID); err != nil {
		return nil, errors.Wrap(err, "querying teacher quizzes")
	}
	return quizzes, nil
}

func (repo quizRepository) QueryStudentQuizzes(ctx context.Context, courseID, studentID int) ([]quiz.StudentQuiz, error) {
	quizzes := make([]quiz.StudentQuiz, 0)
	stmt := "SELECT " + quizColumns + `, s.submitted_at, s.score
FROM quizzes q
LEFT JOIN submissions s ON s.quiz_id = q.id AND s.student_id = $2
WHERE q.course_id = $1
ORDER BY q.due_at, q.id`
	if err := sqlx.SelectContext(ctx, repo.exec, &quizzes, stmt, courseID, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student quizzes")
	}
	return quizzes, nil
}

func (repo quizRepository) CreateSubmission(ctx context.Context, s quiz.Submission) (quiz.Submission, error) {
	stmt := "INSERT INTO submissions (quiz_id, student_id, file_path, submitted_at) VALUES ($1, $2, $3, $4) RETURNING id"
	if err := sqlx.GetContext(ctx, repo.exec, &s.ID, stmt, s.QuizID, s.StudentID, s.FilePath, s.SubmittedAt); err != nil {
		if cErr := constraintErr(err, quizConstraintErrs); cErr != nil {
			return quiz.Submission{}, cErr
		}
		return quiz.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return s, nil
}

func (repo quizRepository) getSubmission(ctx context.Context, where string, args ...interface{}) (quiz.Submission, error) {
	var s quiz.Submission
	if err := sqlx.GetContext(ctx, repo.exec, &s, "SELECT "+submissionColumns+" FROM submissions WHERE "+where, args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return quiz.Submission{}, quiz.ErrSubmissionNotFound
		}
		return quiz.Submission{}, errors.Wrap(err, "getting submission")
	}
	return s, nil
}

func (repo quizRepository) GetSubmission(ctx context.Context, id int) (quiz.Submission, error) {
	return repo.getSubmission(ctx, "id = $1", id)
}

func (repo quizRepository) GetStudentSubmission(ctx context.Context, quizID, studentID int) (quiz.Submission, error) {
	return repo.getSubmission(ctx, "quiz_id = $1 AND student_id = $2", quizID, studentID)
}

func (repo quizRepository) QuerySubmissionViews(ctx context.Context, quizID int) ([]quiz.SubmissionView, error) {
	views := make([]quiz.SubmissionView, 0)
	stmt := `SELECT s.id, s.student_id, st.first_name || ' ' || st.last_name AS student_name,
	s.file_path, s.submitted_at, s.score, s.feedback
FROM submissions s
JOIN students st ON st.id = s.student_id
WHERE s.quiz_id = $1
ORDER BY s.submitted_at, s.id`
	if err := sqlx.SelectContext(ctx, repo.exec, &views, stmt, quizID); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	return views, nil
}

func (repo quizRepository) GradeSubmission(ctx context.Context, s quiz.Submission) (quiz.Submission, error) {
	stmt := "UPDATE submissions SET score = $1, feedback = $2, graded_at = $3 WHERE id = $4"
	res, err := repo.exec.ExecContext(ctx, stmt, s.Score, s.Feedback, s.GradedAt, s.ID)
	if err != nil {
		return quiz.Submission{}, errors.Wrap(err, "grading submission")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return quiz.Submission{}, quiz.ErrSubmissionNotFound
	}
	return s, nil
}

func (repo quizRepository) FindFileOwner(ctx context.Context, relPath string) (quiz.FileOwner, error) {
	cat, _, err := core.SplitFilePath(relPath)
	if err != nil {
		return quiz.FileOwner{}, core.ErrFileNotFound
	}

	var row struct {
		CourseID  int      `db:"course_id"`
		TeacherID null.Int `db:"teacher_id"`
		StudentID null.Int `db:"student_id"`
	}
	var stmt string
	switch cat {
	case core.CategoryQuizzes:
		stmt = `SELECT q.course_id, c.teacher_id, NULL::INTEGER AS student_id
FROM quizzes q JOIN courses c ON c.id = q.course_id
WHERE q.file_path = $1
LIMIT 1`
	default:
		stmt = `SELECT q.course_id, c.teacher_id, s.student_id
FROM submissions s JOIN quizzes q ON q.id = s.quiz_id JOIN courses c ON c.id = q.course_id
WHERE s.file_path = $1
LIMIT 1`
	}
	if err := sqlx.GetContext(ctx, repo.exec, &row, stmt, relPath); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return quiz.FileOwner{}, core.ErrFileNotFound
		}
		return quiz.FileOwner{}, errors.Wrap(err, "finding file owner")
	}
	return quiz.FileOwner{
		Category:  cat,
		CourseID:  row.CourseID,
		TeacherID: row.TeacherID,
		StudentID: row.StudentID.Int,
	}, nil
}

func (repo quizRepository) QueryFilePaths(ctx context.Context) ([]string, error) {
	paths := make([]string, 0)
	stmt := "SELECT file_path FROM quizzes UNION SELECT file_path FROM submissions"
	if err := sqlx.SelectContext(ctx, repo.exec, &paths, stmt); err != nil {
		return nil, errors.Wrap(err, "querying file paths")
	}
	return paths, nil
}
