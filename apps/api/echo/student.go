package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/quiz"
)

type studentAPI struct {
	courses  *course.Service
	quizzes  *quiz.Service
	validate *validator.Validate
}

func registerStudentAPI(g *echo.Group, courses *course.Service, quizzes *quiz.Service, validate *validator.Validate) {
	api := studentAPI{courses: courses, quizzes: quizzes, validate: validate}

	g.GET("/courses", api.queryCourses)
	g.GET("/courses/:id", api.retrieveCourse)
	g.GET("/courses/:id/quizzes", api.queryQuizzes)
	g.POST("/submissions", api.submit)
	g.GET("/quizzes/:id/score", api.retrieveScore)
}

func (api *studentAPI) queryCourses(ctx echo.Context) error {
	ident, err := contextIdentity(ctx)
	if err != nil {
		return err
	}
	courses, err := api.courses.StudentCourses(ctx.Request().Context(), ident.UserID)
	if err != nil {
		return errors.Wrap(err, "querying student courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *studentAPI) retrieveCourse(ctx echo.Context) error {
	ident, err := contextIdentity(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	view, err := api.courses.StudentCourse(ctx.Request().Context(), ident.UserID, id)
	if err != nil {
		return errors.Wrap(err, "getting student course")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *studentAPI) queryQuizzes(ctx echo.Context) error {
	ident, err := contextIdentity(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	quizzes, err := api.quizzes.StudentQuizzes(ctx.Request().Context(), ident.UserID, id)
	if err != nil {
		return errors.Wrap(err, "querying student quizzes")
	}
	return ctx.JSON(http.StatusOK, quizzes)
}

func (api *studentAPI) submit(ctx echo.Context) error {
	ident, err := contextIdentity(ctx)
	if err != nil {
		return err
	}

	var data quiz.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	file, name, err := formFile(ctx, "file")
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	sub, err := api.quizzes.Submit(ctx.Request().Context(), ident.UserID, data, file, name)
	if err != nil {
		return errors.Wrap(err, "submitting answer")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *studentAPI) retrieveScore(ctx echo.Context) error {
	ident, err := contextIdentity(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	score, err := api.quizzes.StudentScore(ctx.Request().Context(), ident.UserID, id)
	if err != nil {
		return errors.Wrap(err, "getting score")
	}
	return ctx.JSON(http.StatusOK, score)
}
