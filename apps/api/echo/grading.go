package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/catalog"
	"github.com/darasahq/darasa/core/grading"
	"github.com/darasahq/darasa/core/user"
)

type gradingApi struct {
	svc      grading.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerGradingAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := gradingApi{svc: deps.GradingSvc, usrSvc: deps.UserSvc, validate: deps.Validate}

	ag := g.Group("/test-attempts", jwt)
	ag.POST("", api.startAttempt, staffMiddleware())
	ag.GET("", api.queryAttempts)
	ag.GET("/:id", api.retrieveAttempt)
	ag.POST("/:id/complete", api.completeAttempt)
	ag.POST("/:id/answers", api.submitAnswer)
	ag.GET("/:id/answers", api.attemptAnswers)

	rg := g.Group("/test-results", jwt)
	rg.GET("", api.queryResults, staffMiddleware())
	rg.GET("/:id", api.retrieveResult)
	rg.POST("/:id/publish", api.publishResult, staffMiddleware())
	rg.POST("/:id/section-results", api.saveSectionResult, staffMiddleware())
	rg.GET("/:id/section-results", api.sectionResults)

	mg := g.Group("/manual-evaluations", jwt)
	mg.POST("", api.evaluate, staffMiddleware())
	mg.GET("", api.answerEvaluations, staffMiddleware())

	bg := g.Group("/band-scores", jwt)
	bg.POST("", api.addBandScore, adminMiddleware())
	bg.GET("", api.queryBandScores)
	bg.GET("/resolve", api.resolveBand)
	bg.DELETE("/:id", api.removeBandScore, adminMiddleware())
}

// Attempts

func (api *gradingApi) startAttempt(ctx echo.Context) error {
	var data grading.NewAttempt
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttempt")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	attempt, err := api.svc.StartAttempt(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "starting attempt")
	}
	return ctx.JSON(http.StatusCreated, core.NewDataResponse(attempt))
}

func (api *gradingApi) queryAttempts(ctx echo.Context) error {
	filter := new(grading.AttemptFilter)
	if err := ctx.Bind(filter); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters"))
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	// students only ever see their own attempts
	if !ctxUsr.IsStaff() {
		filter.StudentID = ctxUsr.ID
	}
	filter.Clean()

	attempts, total, err := api.svc.QueryAttempts(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attempts")
	}
	if attempts == nil {
		attempts = []grading.TestAttempt{}
	}
	return ctx.JSON(http.StatusOK, core.NewListResponse(attempts, core.NewMeta(total, filter.Params)))
}

func (api *gradingApi) retrieveAttempt(ctx echo.Context) error {
	attempt, err := api.getAttemptForUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(attempt))
}

func (api *gradingApi) completeAttempt(ctx echo.Context) error {
	attempt, err := api.getAttemptForUser(ctx)
	if err != nil {
		return err
	}

	attempt, err = api.svc.CompleteAttempt(ctx.Request().Context(), attempt.ID)
	if err != nil {
		return errors.Wrap(err, "completing attempt")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(attempt))
}

func (api *gradingApi) submitAnswer(ctx echo.Context) error {
	attempt, err := api.getAttemptForUser(ctx)
	if err != nil {
		return err
	}

	var data grading.NewAnswer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnswer")
	}
	data.AttemptID = attempt.ID
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	answer, err := api.svc.SubmitAnswer(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting answer")
	}
	return ctx.JSON(http.StatusCreated, core.NewDataResponse(answer))
}

func (api *gradingApi) attemptAnswers(ctx echo.Context) error {
	attempt, err := api.getAttemptForUser(ctx)
	if err != nil {
		return err
	}

	answers, err := api.svc.AttemptAnswers(ctx.Request().Context(), attempt.ID)
	if err != nil {
		return errors.Wrap(err, "listing attempt answers")
	}
	if answers == nil {
		answers = []grading.StudentAnswer{}
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(answers))
}

// getAttemptForUser loads the attempt and hides other students' attempts
// behind a 404.
func (api *gradingApi) getAttemptForUser(ctx echo.Context) (grading.TestAttempt, error) {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return grading.TestAttempt{}, errors.Wrap(err, "getting context user")
	}

	attempt, err := api.svc.GetAttempt(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return grading.TestAttempt{}, errors.Wrap(err, "finding attempt by ID")
	}
	if !ctxUsr.IsStaff() && attempt.StudentID != ctxUsr.ID {
		return grading.TestAttempt{}, errHttpNotFound
	}
	return attempt, nil
}

// Results

func (api *gradingApi) queryResults(ctx echo.Context) error {
	filter := new(grading.ResultFilter)
	if err := ctx.Bind(filter); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters"))
	}
	filter.Clean()

	results, total, err := api.svc.QueryResults(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	if results == nil {
		results = []grading.TestResult{}
	}
	return ctx.JSON(http.StatusOK, core.NewListResponse(results, core.NewMeta(total, filter.Params)))
}

func (api *gradingApi) retrieveResult(ctx echo.Context) error {
	result, err := api.svc.GetResult(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding result by ID")
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsStaff() {
		// students only see their own published results
		attempt, err := api.svc.GetAttempt(ctx.Request().Context(), result.AttemptID)
		if err != nil {
			return errors.Wrap(err, "finding attempt by ID")
		}
		if attempt.StudentID != ctxUsr.ID || !result.IsPublished() {
			return errHttpNotFound
		}
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(result))
}

type PublishRequest struct {
	ObtainedScore int `json:"obtained_score" validate:"min=0"`
}

func (pr *PublishRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(pr)
}

func (api *gradingApi) publishResult(ctx echo.Context) error {
	var data PublishRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PublishRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	result, err := api.svc.MarkAndPublish(ctx.Request().Context(), ctx.Param("id"), data.ObtainedScore)
	if err != nil {
		return errors.Wrap(err, "publishing result")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(result))
}

func (api *gradingApi) saveSectionResult(ctx echo.Context) error {
	var data grading.NewSectionResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSectionResult")
	}
	data.ResultID = ctx.Param("id")
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sr, err := api.svc.SaveSectionResult(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving section result")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(sr))
}

func (api *gradingApi) sectionResults(ctx echo.Context) error {
	results, err := api.svc.SectionResults(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing section results")
	}
	if results == nil {
		results = []grading.SectionResult{}
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(results))
}

// Manual evaluations

func (api *gradingApi) evaluate(ctx echo.Context) error {
	var data grading.NewManualEvaluation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewManualEvaluation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	eval, err := api.svc.Evaluate(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "evaluating answer")
	}
	return ctx.JSON(http.StatusCreated, core.NewDataResponse(eval))
}

func (api *gradingApi) answerEvaluations(ctx echo.Context) error {
	answerID := ctx.QueryParam("answer_id")
	if answerID == "" {
		return core.NewValidationError(errors.New("answer_id is required"))
	}

	evals, err := api.svc.AnswerEvaluations(ctx.Request().Context(), answerID)
	if err != nil {
		return errors.Wrap(err, "listing answer evaluations")
	}
	if evals == nil {
		evals = []grading.ManualEvaluation{}
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(evals))
}

// Band scores

func (api *gradingApi) addBandScore(ctx echo.Context) error {
	var data grading.NewBandScore
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBandScore")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	band, err := api.svc.AddBandScore(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding band score")
	}
	return ctx.JSON(http.StatusCreated, core.NewDataResponse(band))
}

func (api *gradingApi) queryBandScores(ctx echo.Context) error {
	bands, err := api.svc.BandScores(ctx.Request().Context(), catalog.CourseType(ctx.QueryParam("course_type")))
	if err != nil {
		return errors.Wrap(err, "listing band scores")
	}
	if bands == nil {
		bands = []grading.BandScoreMapping{}
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(bands))
}

func (api *gradingApi) resolveBand(ctx echo.Context) error {
	score, err := strconv.Atoi(ctx.QueryParam("score"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "score", Error: "a numeric score is required"})
	}

	band, err := api.svc.BandFor(ctx.Request().Context(), catalog.CourseType(ctx.QueryParam("course_type")), score)
	if err != nil {
		return errors.Wrap(err, "resolving band")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(echo.Map{"band": band}))
}

func (api *gradingApi) removeBandScore(ctx echo.Context) error {
	if err := api.svc.RemoveBandScore(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "removing band score")
	}
	return ctx.NoContent(http.StatusNoContent)
}
