package quiz

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
	"github.com/trezcool/elimu/core/auth"
	"github.com/trezcool/elimu/core/authz"
	"github.com/trezcool/elimu/core/course"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("quiz")
	ErrSubmissionNotFound = core.NewNotFoundError("submission")
	ErrScoreNotFound      = core.NewNotFoundError("score")
	ErrAlreadySubmitted   = errors.New("You have already submitted an answer for this quiz")
	ErrScoreTooHigh       = errors.New("Score cannot exceed total points")
)

type (
	// Repository stores quizzes and submissions.
	// The storage layer reports a second submission of the same student to the same quiz as ErrAlreadySubmitted.
	Repository interface {
		CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		GetQuiz(ctx context.Context, id int) (Quiz, error)
		QueryTeacherQuizzes(ctx context.Context, courseID int) ([]TeacherQuiz, error)
		QueryStudentQuizzes(ctx context.Context, courseID, studentID int) ([]StudentQuiz, error)
		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		GetSubmission(ctx context.Context, id int) (Submission, error)
		GetStudentSubmission(ctx context.Context, quizID, studentID int) (Submission, error)
		QuerySubmissionViews(ctx context.Context, quizID int) ([]SubmissionView, error)
		GradeSubmission(ctx context.Context, s Submission) (Submission, error)
		// FindFileOwner returns what the stored file at relPath is attached to, or core.ErrFileNotFound.
		FindFileOwner(ctx context.Context, relPath string) (FileOwner, error)
		// QueryFilePaths returns the path of every file referenced by a quiz or a submission.
		QueryFilePaths(ctx context.Context) ([]string, error)
	}

	// Courses is the part of the course service quizzes rely on.
	Courses interface {
		CheckOwner(ctx context.Context, teacherID, courseID int) (course.Course, error)
		CheckEnrolled(ctx context.Context, studentID, courseID int) error
	}

	Service struct {
		repo    Repository
		courses Courses
		store   core.FileStore
		logger  core.Logger
		now     func() time.Time
	}
)

func NewService(repo Repository, courses Courses, store core.FileStore, logger core.Logger) *Service {
	return &Service{repo: repo, courses: courses, store: store, logger: logger, now: time.Now}
}

func (svc *Service) saveFile(ctx context.Context, r io.Reader, name string, cat core.FileCategory) (string, error) {
	relPath, err := svc.store.Save(ctx, r, name, cat)
	if err != nil {
		if errors.Cause(err) == core.ErrInvalidFileName {
			return "", core.NewFieldError("file", err)
		}
		return "", core.NewFileError("saving uploaded file", err)
	}
	return relPath, nil
}

// discardFile deletes a file whose row could not be written.
func (svc *Service) discardFile(ctx context.Context, relPath string) {
	if err := svc.store.Delete(ctx, relPath); err != nil && svc.logger != nil {
		svc.logger.Warn("deleting orphaned upload "+relPath, err)
	}
}

// CreateQuiz stores the quiz document and creates the quiz under a course owned by teacherID.
// nq must have been validated.
func (svc *Service) CreateQuiz(ctx context.Context, teacherID int, nq NewQuiz, file io.Reader, fileName string) (Quiz, error) {
	if _, err := svc.courses.CheckOwner(ctx, teacherID, nq.CourseID); err != nil {
		return Quiz{}, err
	}

	relPath, err := svc.saveFile(ctx, file, fileName, core.CategoryQuizzes)
	if err != nil {
		return Quiz{}, err
	}

	q, err := svc.repo.CreateQuiz(ctx, Quiz{
		CourseID:    nq.CourseID,
		Title:       nq.Title,
		Description: nq.Description,
		FilePath:    relPath,
		DueAt:       nq.DueAt,
		TotalPoints: nq.TotalPoints,
		CreatedAt:   svc.now().UTC(),
	})
	if err != nil {
		svc.discardFile(ctx, relPath)
		return Quiz{}, errors.Wrap(err, "creating quiz")
	}
	return q, nil
}

// TeacherQuizzes lists the quizzes of a course owned by teacherID.
func (svc *Service) TeacherQuizzes(ctx context.Context, teacherID, courseID int) ([]TeacherQuiz, error) {
	if _, err := svc.courses.CheckOwner(ctx, teacherID, courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryTeacherQuizzes(ctx, courseID)
}

// checkQuizOwner returns denied unless the quiz exists and its course is owned by teacherID.
func (svc *Service) checkQuizOwner(ctx context.Context, teacherID, quizID int, denied error) (Quiz, error) {
	q, err := svc.repo.GetQuiz(ctx, quizID)
	if err != nil {
		if core.IsNotFound(err) {
			return Quiz{}, denied
		}
		return Quiz{}, err
	}
	if _, err := svc.courses.CheckOwner(ctx, teacherID, q.CourseID); err != nil {
		if core.IsPermissionDenied(err) {
			return Quiz{}, denied
		}
		return Quiz{}, err
	}
	return q, nil
}

// Submissions lists the submissions of a quiz whose course is owned by teacherID.
func (svc *Service) Submissions(ctx context.Context, teacherID, quizID int) (QuizSubmissions, error) {
	q, err := svc.checkQuizOwner(ctx, teacherID, quizID, authz.ErrQuizDenied)
	if err != nil {
		return QuizSubmissions{}, err
	}
	subs, err := svc.repo.QuerySubmissionViews(ctx, quizID)
	if err != nil {
		return QuizSubmissions{}, errors.Wrap(err, "querying submissions")
	}
	return QuizSubmissions{QuizTitle: q.Title, TotalPoints: q.TotalPoints, Submissions: subs}, nil
}

// Grade scores a submission of a quiz whose course is owned by teacherID; g must have been validated.
func (svc *Service) Grade(ctx context.Context, teacherID, submissionID int, g Grade) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		if core.IsNotFound(err) {
			return Submission{}, authz.ErrSubmissionDenied
		}
		return Submission{}, err
	}
	q, err := svc.checkQuizOwner(ctx, teacherID, sub.QuizID, authz.ErrSubmissionDenied)
	if err != nil {
		return Submission{}, err
	}
	if g.Score == nil {
		return Submission{}, core.NewFieldError("score", errors.New("this field is required"))
	}
	if *g.Score > q.TotalPoints {
		return Submission{}, core.NewFieldError("score", ErrScoreTooHigh)
	}

	sub.Score = null.Float64From(*g.Score)
	sub.Feedback = null.StringFrom(g.Feedback)
	sub.GradedAt = null.TimeFrom(svc.now().UTC())
	return svc.repo.GradeSubmission(ctx, sub)
}

// StudentQuizzes lists the quizzes of a course studentID is enrolled in, with the student's own submission state.
func (svc *Service) StudentQuizzes(ctx context.Context, studentID, courseID int) ([]StudentQuiz, error) {
	if err := svc.courses.CheckEnrolled(ctx, studentID, courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryStudentQuizzes(ctx, courseID, studentID)
}

// Submit stores the answer document of studentID for a quiz, once.
// Enrollment and prior submission are checked before the file is written.
func (svc *Service) Submit(ctx context.Context, studentID int, ns NewSubmission, file io.Reader, fileName string) (Submission, error) {
	q, err := svc.repo.GetQuiz(ctx, ns.QuizID)
	if err != nil {
		return Submission{}, err
	}
	if err := svc.courses.CheckEnrolled(ctx, studentID, q.CourseID); err != nil {
		return Submission{}, err
	}
	if _, err := svc.repo.GetStudentSubmission(ctx, q.ID, studentID); err == nil {
		return Submission{}, core.NewFieldError("quizId", ErrAlreadySubmitted)
	} else if !core.IsNotFound(err) {
		return Submission{}, err
	}

	relPath, err := svc.saveFile(ctx, file, fileName, core.CategorySubmissions)
	if err != nil {
		return Submission{}, err
	}

	sub, err := svc.repo.CreateSubmission(ctx, Submission{
		QuizID:      q.ID,
		StudentID:   studentID,
		FilePath:    relPath,
		SubmittedAt: svc.now().UTC(),
	})
	if err != nil {
		svc.discardFile(ctx, relPath)
		if errors.Cause(err) == ErrAlreadySubmitted {
			return Submission{}, core.NewFieldError("quizId", ErrAlreadySubmitted)
		}
		return Submission{}, errors.Wrap(err, "creating submission")
	}
	return sub, nil
}

// StudentScore returns the graded submission of studentID for a quiz.
func (svc *Service) StudentScore(ctx context.Context, studentID, quizID int) (ScoreView, error) {
	q, err := svc.repo.GetQuiz(ctx, quizID)
	if err != nil {
		return ScoreView{}, err
	}
	sub, err := svc.repo.GetStudentSubmission(ctx, quizID, studentID)
	if err != nil {
		return ScoreView{}, err
	}
	if !sub.IsGraded() {
		return ScoreView{}, ErrScoreNotFound
	}
	return ScoreView{
		QuizTitle:   q.Title,
		TotalPoints: q.TotalPoints,
		Score:       sub.Score.Float64,
		SubmittedAt: sub.SubmittedAt,
		Feedback:    sub.Feedback.String,
		GradedAt:    sub.GradedAt.Time,
	}, nil
}

// OpenFile returns the stored file at relPath if the caller may read it.
// Files the caller may not read are reported as core.ErrFileNotFound.
func (svc *Service) OpenFile(ctx context.Context, caller auth.Identity, relPath string) (io.ReadCloser, error) {
	if _, _, err := core.SplitFilePath(relPath); err != nil {
		return nil, core.ErrFileNotFound
	}
	if err := svc.authorizeDownload(ctx, caller, relPath); err != nil {
		return nil, err
	}
	return svc.store.Open(ctx, relPath)
}

func (svc *Service) authorizeDownload(ctx context.Context, caller auth.Identity, relPath string) error {
	owner, err := svc.repo.FindFileOwner(ctx, relPath)
	if err != nil {
		return err
	}

	switch caller.Role {
	case account.RoleAdmin:
		return nil
	case account.RoleTeacher:
		if authz.OwnsCourse(owner.TeacherID, caller.UserID) {
			return nil
		}
	case account.RoleStudent:
		switch owner.Category {
		case core.CategoryQuizzes:
			err := svc.courses.CheckEnrolled(ctx, caller.UserID, owner.CourseID)
			if err == nil {
				return nil
			}
			if !core.IsPermissionDenied(err) {
				return err
			}
		case core.CategorySubmissions:
			if owner.StudentID == caller.UserID {
				return nil
			}
		}
	}
	return core.ErrFileNotFound
}

// SweepOrphanedFiles deletes stored files that no quiz or submission references and that are older than grace.
// It returns the number of deleted files.
func (svc *Service) SweepOrphanedFiles(ctx context.Context, grace time.Duration) (int, error) {
	paths, err := svc.repo.QueryFilePaths(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "querying referenced files")
	}
	referenced := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		referenced[p] = struct{}{}
	}

	cutoff := svc.now().Add(-grace)
	var deleted int
	for _, cat := range core.FileCategories {
		files, err := svc.store.List(ctx, cat)
		if err != nil {
			return deleted, errors.Wrapf(err, "listing %s files", cat)
		}
		for _, f := range files {
			if _, ok := referenced[f.Path]; ok || f.ModifiedAt.After(cutoff) {
				continue
			}
			if err := svc.store.Delete(ctx, f.Path); err != nil {
				return deleted, errors.Wrapf(err, "deleting %s", f.Path)
			}
			deleted++
		}
	}
	return deleted, nil
}
