package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/account"
)

// accountAPI serves the admin CRUD of one role's accounts.
type accountAPI struct {
	role     account.Role
	svc      *account.Service
	validate *validator.Validate
}

func registerAccountAPI(g *echo.Group, role account.Role, svc *account.Service, validate *validator.Validate) {
	api := accountAPI{role: role, svc: svc, validate: validate}

	g.POST("", api.create)
	g.GET("", api.query)
	g.GET("/:id", api.retrieve)
	g.PUT("/:id", api.update)
	g.DELETE("/:id", api.destroy)
}

func (api *accountAPI) create(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acc, err := api.svc.Create(ctx.Request().Context(), api.role, data)
	if err != nil {
		return errors.Wrapf(err, "creating %s", api.role)
	}
	return ctx.JSON(http.StatusCreated, acc)
}

func (api *accountAPI) query(ctx echo.Context) error {
	var ord Ordering
	ord.Bind(ctx)

	accounts, err := api.svc.Query(ctx.Request().Context(), api.role, ord.Orderings...)
	if err != nil {
		return errors.Wrapf(err, "querying %ss", api.role)
	}
	return ctx.JSON(http.StatusOK, accounts)
}

func (api *accountAPI) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	acc, err := api.svc.Get(ctx.Request().Context(), api.role, id)
	if err != nil {
		return errors.Wrapf(err, "getting %s", api.role)
	}
	return ctx.JSON(http.StatusOK, acc)
}

func (api *accountAPI) update(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data account.UpdateAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAccount")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acc, err := api.svc.Update(ctx.Request().Context(), api.role, id, data)
	if err != nil {
		return errors.Wrapf(err, "updating %s", api.role)
	}
	return ctx.JSON(http.StatusOK, acc)
}

func (api *accountAPI) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), api.role, id); err != nil {
		return errors.Wrapf(err, "deleting %s", api.role)
	}
	return ctx.NoContent(http.StatusNoContent)
}
