package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/org"
)

type orgApi struct {
	svc      org.Service
	validate *validator.Validate
}

func registerOrgAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := orgApi{svc: deps.OrgSvc, validate: deps.Validate}

	bg := g.Group("/branches", jwt)
	bg.POST("", api.create, superAdminMiddleware())
	bg.GET("", api.query)
	bg.DELETE("", api.destroyMultiple, superAdminMiddleware())
	bg.GET("/:id", api.retrieve)
	bg.PUT("/:id", api.update, superAdminMiddleware())
}

func (api *orgApi) create(ctx echo.Context) error {
	var data org.NewBranch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBranch")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	branch, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating branch")
	}
	return ctx.JSON(http.StatusCreated, core.NewDataResponse(branch))
}

func (api *orgApi) query(ctx echo.Context) error {
	filter := new(org.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters"))
	}
	filter.Clean()

	branches, total, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying branches")
	}
	if branches == nil {
		branches = []org.Branch{}
	}
	return ctx.JSON(http.StatusOK, core.NewListResponse(branches, core.NewMeta(total, filter.Params)))
}

func (api *orgApi) retrieve(ctx echo.Context) error {
	branch, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding branch by ID")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(branch))
}

func (api *orgApi) update(ctx echo.Context) error {
	orig, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding branch by ID")
	}

	var data org.UpdateBranch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBranch")
	}
	if err := data.Validate(api.validate, orig, api.svc); err != nil {
		return err
	}

	branch, err := api.svc.Update(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating branch")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(branch))
}

func (api *orgApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting branches")
	}
	return ctx.NoContent(http.StatusNoContent)
}
