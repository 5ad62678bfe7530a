package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/assessment"
)

type assessmentApi struct {
	svc      assessment.Service
	validate *validator.Validate
}

func registerAssessmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := assessmentApi{svc: deps.AssessmentSvc, validate: deps.Validate}

	tg := g.Group("/tests", jwt)
	tg.POST("", api.createTest, staffMiddleware())
	tg.GET("", api.queryTests)
	tg.DELETE("", api.destroyTests, adminMiddleware())
	tg.GET("/:id", api.retrieveTest)
	tg.PUT("/:id", api.updateTest, staffMiddleware())
	tg.GET("/:id/sections", api.testSections)

	tsg := g.Group("/test-sections", jwt)
	tsg.POST("", api.addTestSection, staffMiddleware())
	tsg.GET("/:id", api.retrieveTestSection)
	tsg.DELETE("/:id", api.removeTestSection, staffMiddleware())
	tsg.GET("/:id/questions", api.sectionQuestions)

	qg := g.Group("/questions", jwt)
	qg.POST("", api.createQuestion, staffMiddleware())
	qg.DELETE("", api.destroyQuestions, staffMiddleware())
	qg.GET("/:id", api.retrieveQuestion)
	qg.PUT("/:id", api.updateQuestion, staffMiddleware())
	qg.GET("/:id/options", api.questionOptions)

	og := g.Group("/question-options", jwt)
	og.POST("", api.addOption, staffMiddleware())
	og.DELETE("/:id", api.removeOption, staffMiddleware())
}

// Tests

func (api *assessmentApi) createTest(ctx echo.Context) error {
	var data assessment.NewTest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	test, err := api.svc.CreateTest(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating test")
	}
	return ctx.JSON(http.StatusCreated, core.NewDataResponse(test))
}

func (api *assessmentApi) queryTests(ctx echo.Context) error {
	filter := new(assessment.TestFilter)
	if err := ctx.Bind(filter); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters"))
	}
	filter.Clean()

	tests, total, err := api.svc.QueryTests(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying tests")
	}
	if tests == nil {
		tests = []assessment.Test{}
	}
	return ctx.JSON(http.StatusOK, core.NewListResponse(tests, core.NewMeta(total, filter.Params)))
}

func (api *assessmentApi) retrieveTest(ctx echo.Context) error {
	test, err := api.svc.GetTest(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding test by ID")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(test))
}

func (api *assessmentApi) updateTest(ctx echo.Context) error {
	orig, err := api.svc.GetTest(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding test by ID")
	}

	var data assessment.UpdateTest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTest")
	}
	if err := data.Validate(api.validate, orig); err != nil {
		return err
	}

	test, err := api.svc.UpdateTest(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating test")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(test))
}

func (api *assessmentApi) destroyTests(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.DeleteTests(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting tests")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assessmentApi) testSections(ctx echo.Context) error {
	sections, err := api.svc.TestSections(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing test sections")
	}
	if sections == nil {
		sections = []assessment.TestSection{}
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(sections))
}

// Test sections

func (api *assessmentApi) addTestSection(ctx echo.Context) error {
	var data assessment.NewTestSection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTestSection")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ts, err := api.svc.AddTestSection(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding test section")
	}
	return ctx.JSON(http.StatusCreated, core.NewDataResponse(ts))
}

func (api *assessmentApi) retrieveTestSection(ctx echo.Context) error {
	ts, err := api.svc.GetTestSection(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding test section by ID")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(ts))
}

func (api *assessmentApi) removeTestSection(ctx echo.Context) error {
	if err := api.svc.RemoveTestSection(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "removing test section")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assessmentApi) sectionQuestions(ctx echo.Context) error {
	questions, err := api.svc.SectionQuestions(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing section questions")
	}
	if questions == nil {
		questions = []assessment.Question{}
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(questions))
}

// Questions

func (api *assessmentApi) createQuestion(ctx echo.Context) error {
	var data assessment.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	question, err := api.svc.CreateQuestion(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating question")
	}
	return ctx.JSON(http.StatusCreated, core.NewDataResponse(question))
}

func (api *assessmentApi) retrieveQuestion(ctx echo.Context) error {
	question, err := api.svc.GetQuestion(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding question by ID")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(question))
}

func (api *assessmentApi) updateQuestion(ctx echo.Context) error {
	orig, err := api.svc.GetQuestion(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding question by ID")
	}

	var data assessment.UpdateQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuestion")
	}
	if err := data.Validate(api.validate, orig); err != nil {
		return err
	}

	question, err := api.svc.UpdateQuestion(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating question")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(question))
}

func (api *assessmentApi) destroyQuestions(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.DeleteQuestions(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting questions")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Options

func (api *assessmentApi) addOption(ctx echo.Context) error {
	var data assessment.NewQuestionOption
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestionOption")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	option, err := api.svc.AddOption(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding question option")
	}
	return ctx.JSON(http.StatusCreated, core.NewDataResponse(option))
}

func (api *assessmentApi) questionOptions(ctx echo.Context) error {
	options, err := api.svc.QuestionOptions(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing question options")
	}
	if options == nil {
		options = []assessment.QuestionOption{}
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(options))
}

func (api *assessmentApi) removeOption(ctx echo.Context) error {
	if err := api.svc.RemoveOption(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "removing question option")
	}
	return ctx.NoContent(http.StatusNoContent)
}
