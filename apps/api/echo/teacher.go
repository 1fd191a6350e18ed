package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/quiz"
)

// teacherAPI serves the routes scoped to the courses owned by the calling teacher.
type teacherAPI struct {
	courses  *course.Service
	quizzes  *quiz.Service
	validate *validator.Validate
}

func registerTeacherAPI(g *echo.Group, courses *course.Service, quizzes *quiz.Service, validate *validator.Validate) {
	api := teacherAPI{courses: courses, quizzes: quizzes, validate: validate}

	g.GET("/courses", api.queryCourses)
	g.GET("/courses/:id", api.retrieveCourse)
	g.GET("/courses/:id/quizzes", api.queryQuizzes)
	g.POST("/quizzes", api.createQuiz)
	g.GET("/quizzes/:id/submissions", api.querySubmissions)
	g.PUT("/submissions/:id/score", api.grade)
}

func (api *teacherAPI) queryCourses(ctx echo.Context) error {
	ident, err := contextIdentity(ctx)
	if err != nil {
		return err
	}
	courses, err := api.courses.TeacherCourses(ctx.Request().Context(), ident.UserID)
	if err != nil {
		return errors.Wrap(err, "querying teacher courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *teacherAPI) retrieveCourse(ctx echo.Context) error {
	ident, err := contextIdentity(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	detail, err := api.courses.TeacherCourse(ctx.Request().Context(), ident.UserID, id)
	if err != nil {
		return errors.Wrap(err, "getting teacher course")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *teacherAPI) queryQuizzes(ctx echo.Context) error {
	ident, err := contextIdentity(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	quizzes, err := api.quizzes.TeacherQuizzes(ctx.Request().Context(), ident.UserID, id)
	if err != nil {
		return errors.Wrap(err, "querying teacher quizzes")
	}
	return ctx.JSON(http.StatusOK, quizzes)
}

func (api *teacherAPI) createQuiz(ctx echo.Context) error {
	ident, err := contextIdentity(ctx)
	if err != nil {
		return err
	}

	var data quiz.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	file, name, err := formFile(ctx, "file")
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	q, err := api.quizzes.CreateQuiz(ctx.Request().Context(), ident.UserID, data, file, name)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *teacherAPI) querySubmissions(ctx echo.Context) error {
	ident, err := contextIdentity(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	subs, err := api.quizzes.Submissions(ctx.Request().Context(), ident.UserID, id)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *teacherAPI) grade(ctx echo.Context) error {
	ident, err := contextIdentity(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data quiz.Grade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Grade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.quizzes.Grade(ctx.Request().Context(), ident.UserID, id, data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
