package dummydb

import (
	"context"
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/quiz"
)

type quizRepository struct {
	db *DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *DB) *quizRepository {
	return &quizRepository{db: db}
}

func sortQuizzes[T any](quizzes []T, get func(T) quiz.Quiz) {
	sort.SliceStable(quizzes, func(i, j int) bool {
		a, b := get(quizzes[i]), get(quizzes[j])
		if !a.DueAt.Equal(b.DueAt) {
			return a.DueAt.Before(b.DueAt)
		}
		return a.ID < b.ID
	})
}

func (repo *quizRepository) CreateQuiz(_ context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.data.courses.rows[q.CourseID]; !ok {
		return quiz.Quiz{}, course.ErrNotFound
	}
	return repo.db.data.quizzes.insert(func(id int) quiz.Quiz { q.ID = id; return q }), nil
}

func (repo *quizRepository) GetQuiz(_ context.Context, id int) (quiz.Quiz, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if q, ok := repo.db.data.quizzes.rows[id]; ok {
		return q, nil
	}
	return quiz.Quiz{}, quiz.ErrNotFound
}

func (repo *quizRepository) QueryTeacherQuizzes(_ context.Context, courseID int) ([]quiz.TeacherQuiz, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	counts := make(map[int]int)
	for _, s := range repo.db.data.submissions.rows {
		counts[s.QuizID]++
	}
	quizzes := make([]quiz.TeacherQuiz, 0)
	for _, q := range repo.db.data.quizzes.rows {
		if q.CourseID == courseID {
			quizzes = append(quizzes, quiz.TeacherQuiz{Quiz: q, Submissions: counts[q.ID]})
		}
	}
	sortQuizzes(quizzes, func(tq quiz.TeacherQuiz) quiz.Quiz { return tq.Quiz })
	return quizzes, nil
}

func (repo *quizRepository) findSubmission(quizID, studentID int) (quiz.Submission, bool) {
	for _, s := range repo.db.data.submissions.rows {
		if s.QuizID == quizID && s.StudentID == studentID {
			return s, true
		}
	}
	return quiz.Submission{}, false
}

func (repo *quizRepository) QueryStudentQuizzes(_ context.Context, courseID, studentID int) ([]quiz.StudentQuiz, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	quizzes := make([]quiz.StudentQuiz, 0)
	for _, q := range repo.db.data.quizzes.rows {
		if q.CourseID != courseID {
			continue
		}
		sq := quiz.StudentQuiz{Quiz: q}
		if s, ok := repo.findSubmission(q.ID, studentID); ok {
			sq.SubmittedAt = null.TimeFrom(s.SubmittedAt)
			sq.Score = s.Score
		}
		quizzes = append(quizzes, sq)
	}
	sortQuizzes(quizzes, func(sq quiz.StudentQuiz) quiz.Quiz { return sq.Quiz })
	return quizzes, nil
}

func (repo *quizRepository) CreateSubmission(_ context.Context, s quiz.Submission) (quiz.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.data.quizzes.rows[s.QuizID]; !ok {
		return quiz.Submission{}, quiz.ErrNotFound
	}
	if _, ok := repo.db.data.accounts[account.RoleStudent].rows[s.StudentID]; !ok {
		return quiz.Submission{}, account.ErrStudentNotFound
	}
	if _, ok := repo.findSubmission(s.QuizID, s.StudentID); ok {
		return quiz.Submission{}, quiz.ErrAlreadySubmitted
	}
	return repo.db.data.submissions.insert(func(id int) quiz.Submission { s.ID = id; return s }), nil
}

func (repo *quizRepository) GetSubmission(_ context.Context, id int) (quiz.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.data.submissions.rows[id]; ok {
		return s, nil
	}
	return quiz.Submission{}, quiz.ErrSubmissionNotFound
}

func (repo *quizRepository) GetStudentSubmission(_ context.Context, quizID, studentID int) (quiz.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.findSubmission(quizID, studentID); ok {
		return s, nil
	}
	return quiz.Submission{}, quiz.ErrSubmissionNotFound
}

func (repo *quizRepository) QuerySubmissionViews(_ context.Context, quizID int) ([]quiz.SubmissionView, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := repo.db.data.accounts[account.RoleStudent].rows
	views := make([]quiz.SubmissionView, 0)
	for _, s := range repo.db.data.submissions.sorted() {
		if s.QuizID != quizID {
			continue
		}
		st := students[s.StudentID]
		views = append(views, quiz.SubmissionView{
			ID:          s.ID,
			StudentID:   s.StudentID,
			StudentName: st.FirstName + " " + st.LastName,
			FilePath:    s.FilePath,
			SubmittedAt: s.SubmittedAt,
			Score:       s.Score,
			Feedback:    s.Feedback,
		})
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].SubmittedAt.Before(views[j].SubmittedAt) })
	return views, nil
}

func (repo *quizRepository) GradeSubmission(_ context.Context, s quiz.Submission) (quiz.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.data.submissions.rows[s.ID]
	if !ok {
		return quiz.Submission{}, quiz.ErrSubmissionNotFound
	}
	orig.Score = s.Score
	orig.Feedback = s.Feedback
	orig.GradedAt = s.GradedAt
	repo.db.data.submissions.rows[s.ID] = orig
	return orig, nil
}

func (repo *quizRepository) FindFileOwner(_ context.Context, relPath string) (quiz.FileOwner, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	cat, _, err := core.SplitFilePath(relPath)
	if err != nil {
		return quiz.FileOwner{}, core.ErrFileNotFound
	}
	owner := func(q quiz.Quiz, studentID int) quiz.FileOwner {
		c := repo.db.data.courses.rows[q.CourseID]
		return quiz.FileOwner{Category: cat, CourseID: q.CourseID, TeacherID: c.TeacherID, StudentID: studentID}
	}

	switch cat {
	case core.CategoryQuizzes:
		for _, q := range repo.db.data.quizzes.sorted() {
			if q.FilePath == relPath {
				return owner(q, 0), nil
			}
		}
	case core.CategorySubmissions:
		for _, s := range repo.db.data.submissions.sorted() {
			if s.FilePath == relPath {
				return owner(repo.db.data.quizzes.rows[s.QuizID], s.StudentID), nil
			}
		}
	}
	return quiz.FileOwner{}, core.ErrFileNotFound
}

func (repo *quizRepository) QueryFilePaths(_ context.Context) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	paths := make([]string, 0, len(repo.db.data.quizzes.rows)+len(repo.db.data.submissions.rows))
	for _, q := range repo.db.data.quizzes.rows {
		paths = append(paths, q.FilePath)
	}
	for _, s := range repo.db.data.submissions.rows {
		paths = append(paths, s.FilePath)
	}
	return paths, nil
}
