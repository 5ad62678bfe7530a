package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

type profilesApi struct {
	svc      user.ProfileService
	usrSvc   user.Service
	validate *validator.Validate
}

func registerProfilesAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := profilesApi{svc: deps.ProfileSvc, usrSvc: deps.UserSvc, validate: deps.Validate}

	pg := g.Group("/profiles", jwt)

	pg.GET("/users/:userID", api.userProfile)
	pg.PUT("/users/:userID", api.saveUserProfile)

	pg.GET("/students/by-grade", api.studentsByGrade, staffMiddleware())
	pg.GET("/students/:userID", api.studentProfile)
	pg.PUT("/students/:userID", api.saveStudentProfile)

	pg.GET("/teachers/by-subject", api.teachersBySubject, staffMiddleware())
	pg.GET("/teachers/:userID", api.teacherProfile)
	pg.PUT("/teachers/:userID", api.saveTeacherProfile)
}

// profileTarget resolves the :userID param and enforces that a profile is
// only readable/writable by its owner or staff.
func (api *profilesApi) profileTarget(ctx echo.Context) (string, error) {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	userID := ctx.Param("userID")
	if userID != ctxUsr.ID && !ctxUsr.IsStaff() {
		return "", errHttpForbidden
	}
	return userID, nil
}

func (api *profilesApi) userProfile(ctx echo.Context) error {
	userID, err := api.profileTarget(ctx)
	if err != nil {
		return err
	}

	profile, err := api.svc.UserProfile(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "finding user profile")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(profile))
}

func (api *profilesApi) saveUserProfile(ctx echo.Context) error {
	userID, err := api.profileTarget(ctx)
	if err != nil {
		return err
	}

	var data user.UserProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UserProfile")
	}
	data.UserID = userID

	profile, err := api.svc.SaveUserProfile(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving user profile")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(profile))
}

func (api *profilesApi) studentProfile(ctx echo.Context) error {
	userID, err := api.profileTarget(ctx)
	if err != nil {
		return err
	}

	profile, err := api.svc.StudentProfile(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "finding student profile")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(profile))
}

func (api *profilesApi) saveStudentProfile(ctx echo.Context) error {
	userID, err := api.profileTarget(ctx)
	if err != nil {
		return err
	}

	var data user.StudentProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudentProfile")
	}
	data.UserID = userID

	profile, err := api.svc.SaveStudentProfile(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving student profile")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(profile))
}

func (api *profilesApi) studentsByGrade(ctx echo.Context) error {
	var params core.Params
	if err := ctx.Bind(&params); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters"))
	}
	params.Clean()

	profiles, total, err := api.svc.StudentsByGrade(ctx.Request().Context(), ctx.QueryParam("grade"), params)
	if err != nil {
		return errors.Wrap(err, "listing students by grade")
	}
	if profiles == nil {
		profiles = []user.StudentProfile{}
	}
	return ctx.JSON(http.StatusOK, core.NewListResponse(profiles, core.NewMeta(total, params)))
}

func (api *profilesApi) teacherProfile(ctx echo.Context) error {
	userID, err := api.profileTarget(ctx)
	if err != nil {
		return err
	}

	profile, err := api.svc.TeacherProfile(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "finding teacher profile")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(profile))
}

func (api *profilesApi) saveTeacherProfile(ctx echo.Context) error {
	userID, err := api.profileTarget(ctx)
	if err != nil {
		return err
	}

	var data user.TeacherProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TeacherProfile")
	}
	data.UserID = userID

	profile, err := api.svc.SaveTeacherProfile(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving teacher profile")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(profile))
}

func (api *profilesApi) teachersBySubject(ctx echo.Context) error {
	var params core.Params
	if err := ctx.Bind(&params); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters"))
	}
	params.Clean()

	profiles, total, err := api.svc.TeachersBySubject(ctx.Request().Context(), ctx.QueryParam("subject"), params)
	if err != nil {
		return errors.Wrap(err, "listing teachers by subject")
	}
	if profiles == nil {
		profiles = []user.TeacherProfile{}
	}
	return ctx.JSON(http.StatusOK, core.NewListResponse(profiles, core.NewMeta(total, params)))
}
