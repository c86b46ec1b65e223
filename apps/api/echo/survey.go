package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/footpulse/core/survey"
	"github.com/trezcool/footpulse/core/user"
)

type surveyApi struct {
	svc      survey.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerSurveyAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc survey.Service, usrSvc user.Service, validate *validator.Validate) {
	api := surveyApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	sg := g.Group("/surveys", jwt)

	tg := sg.Group("/templates")
	tg.GET("", api.queryTemplates)
	tg.POST("", api.createTemplate, adminMiddleware())
	tg.GET("/:id", api.retrieveTemplate)
	tg.PUT("/:id", api.updateTemplate, adminMiddleware())
	tg.DELETE("/:id", api.destroyTemplate, adminMiddleware())

	ag := sg.Group("/assignments")
	ag.GET("", api.queryAssignments)
	ag.POST("", api.createAssignments, adminMiddleware())
	ag.POST("/preview", api.previewAssignments, adminMiddleware())
	ag.DELETE("/:id", api.destroyAssignment, adminMiddleware())

	rg := sg.Group("/responses")
	rg.GET("", api.queryResponses)
	rg.POST("", api.submitResponse)
	rg.DELETE("/:id", api.destroyResponse)
}

// Templates

func (api *surveyApi) createTemplate(ctx echo.Context) error {
	var data survey.NewTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTemplate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tmpl, err := api.svc.CreateTemplate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating template")
	}
	return ctx.JSON(http.StatusCreated, tmpl)
}

func (api *surveyApi) queryTemplates(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	templates, err := api.svc.QueryTemplates(ctx.Request().Context(), ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying templates")
	}
	if templates == nil {
		templates = []survey.Template{}
	}
	return ctx.JSON(http.StatusOK, templates)
}

func (api *surveyApi) retrieveTemplate(ctx echo.Context) error {
	tmpl, err := api.svc.GetTemplate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tmpl)
}

func (api *surveyApi) updateTemplate(ctx echo.Context) error {
	var data survey.UpdateTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTemplate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tmpl, err := api.svc.UpdateTemplate(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tmpl)
}

func (api *surveyApi) destroyTemplate(ctx echo.Context) error {
	if _, err := api.svc.GetTemplate(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	if err := api.svc.DeleteTemplate(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting template")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Assignments

func (api *surveyApi) createAssignments(ctx echo.Context) error {
	var data survey.NewAssignments
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignments")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	count, err := api.svc.CreateAssignments(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, CreatedCountResponse{Count: count})
}

func (api *surveyApi) previewAssignments(ctx echo.Context) error {
	var data survey.NewAssignments
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignments")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	pairs, err := api.svc.PreviewAssignments(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return err
	}
	if pairs == nil {
		pairs = []survey.PreviewPair{}
	}
	return ctx.JSON(http.StatusOK, pairs)
}

func (api *surveyApi) queryAssignments(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	assignments, err := api.svc.QueryAssignments(ctx.Request().Context(), ctxUsr, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []survey.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *surveyApi) destroyAssignment(ctx echo.Context) error {
	if err := api.svc.DeleteAssignment(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Responses

func (api *surveyApi) submitResponse(ctx echo.Context) error {
	var data survey.SubmitResponse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitResponse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	resp, err := api.svc.SubmitResponse(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, resp)
}

func (api *surveyApi) queryResponses(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	responses, err := api.svc.QueryResponses(ctx.Request().Context(), ctxUsr, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying responses")
	}
	if responses == nil {
		responses = []survey.Response{}
	}
	return ctx.JSON(http.StatusOK, responses)
}

// destroyResponse deletes a submission and re-opens its assignment. Allowed
// for admins and the owning respondent only.
func (api *surveyApi) destroyResponse(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	resp, err := api.svc.GetResponse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if !ctxUsr.IsAdmin() && resp.RespondentID != ctxUsr.ID {
		return errHttpForbidden
	}

	if err := api.svc.DeleteResponse(ctx.Request().Context(), resp.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

type CreatedCountResponse struct {
	Count int `json:"count"`
}
