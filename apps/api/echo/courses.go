package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/course"
)

type courseAPI struct {
	svc      *course.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, svc *course.Service, validate *validator.Validate) {
	api := courseAPI{svc: svc, validate: validate}

	g.POST("", api.create)
	g.GET("", api.query)
	g.GET("/:id", api.retrieve)
	g.PUT("/:id", api.update)
	g.DELETE("/:id", api.destroy)
}

func (api *courseAPI) bind(ctx echo.Context) (course.EditCourse, error) {
	var data course.EditCourse
	if err := ctx.Bind(&data); err != nil {
		return data, errors.Wrap(err, "binding to EditCourse")
	}
	return data, data.Validate(api.validate)
}

func (api *courseAPI) create(ctx echo.Context) error {
	data, err := api.bind(ctx)
	if err != nil {
		return err
	}
	detail, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, detail)
}

func (api *courseAPI) query(ctx echo.Context) error {
	var ord Ordering
	ord.Bind(ctx)

	courses, err := api.svc.Query(ctx.Request().Context(), ord.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseAPI) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	detail, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *courseAPI) update(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	data, err := api.bind(ctx)
	if err != nil {
		return err
	}
	detail, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *courseAPI) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}
