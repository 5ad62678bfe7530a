package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/catalog"
	"github.com/darasahq/darasa/core/user"
)

type catalogApi struct {
	svc      catalog.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerCatalogAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := catalogApi{svc: deps.CatalogSvc, usrSvc: deps.UserSvc, validate: deps.Validate}

	cg := g.Group("/courses", jwt)
	cg.POST("", api.createCourse, adminMiddleware())
	cg.GET("", api.queryCourses)
	cg.GET("/assignable", api.assignableCourses)
	cg.GET("/:id", api.retrieveCourse)
	cg.PUT("/:id", api.updateCourse, adminMiddleware())
	cg.DELETE("/:id", api.destroyCourse, adminMiddleware())
	cg.GET("/:id/deletion-impact", api.courseDeletionImpact, adminMiddleware())
	cg.GET("/:id/sections", api.courseSections)

	sg := g.Group("/sections", jwt)
	sg.POST("", api.createSection, adminMiddleware())
	sg.GET("/:id", api.retrieveSection)
	sg.DELETE("/:id", api.destroySection, adminMiddleware())
	sg.GET("/:id/deletion-impact", api.sectionDeletionImpact, adminMiddleware())

	lg := g.Group("/lessons", jwt)
	lg.POST("", api.createLesson, adminMiddleware())
	lg.GET("", api.queryLessons)
	lg.DELETE("", api.destroyLessons, adminMiddleware())
	lg.POST("/progress", api.saveProgress)
	lg.GET("/progress", api.queryProgress)
	lg.GET("/:id", api.retrieveLesson)
	lg.PUT("/:id", api.updateLesson, adminMiddleware())

	eg := g.Group("/enrollments", jwt)
	eg.POST("", api.enroll, staffMiddleware())
	eg.GET("", api.queryEnrollments)
	eg.DELETE("", api.unenroll, staffMiddleware())
}

// Courses

func (api *catalogApi) createCourse(ctx echo.Context) error {
	var data catalog.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	course, err := api.svc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, core.NewDataResponse(course))
}

func (api *catalogApi) queryCourses(ctx echo.Context) error {
	filter := new(catalog.CourseFilter)
	if err := ctx.Bind(filter); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters"))
	}
	filter.Clean()

	courses, total, err := api.svc.QueryCourses(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []catalog.Course{}
	}
	return ctx.JSON(http.StatusOK, core.NewListResponse(courses, core.NewMeta(total, filter.Params)))
}

// assignableCourses lists the courses a student of the given branch may be
// enrolled into; students get their own branch, staff may pass branch_id.
func (api *catalogApi) assignableCourses(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	branchID := ctx.QueryParam("branch_id")
	if !ctxUsr.IsStaff() || branchID == "" {
		branchID = ctxUsr.BranchID
	}

	courses, err := api.svc.AssignableCourses(ctx.Request().Context(), branchID)
	if err != nil {
		return errors.Wrap(err, "listing assignable courses")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(courses))
}

func (api *catalogApi) retrieveCourse(ctx echo.Context) error {
	course, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(course))
}

func (api *catalogApi) updateCourse(ctx echo.Context) error {
	orig, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}

	var data catalog.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate, orig); err != nil {
		return err
	}

	course, err := api.svc.UpdateCourse(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(course))
}

func (api *catalogApi) courseDeletionImpact(ctx echo.Context) error {
	impact, err := api.svc.CourseDeletionImpact(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "previewing course deletion")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(impact))
}

func (api *catalogApi) destroyCourse(ctx echo.Context) error {
	if err := api.svc.DeleteCourse(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *catalogApi) courseSections(ctx echo.Context) error {
	sections, err := api.svc.CourseSections(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing course sections")
	}
	if sections == nil {
		sections = []catalog.Section{}
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(sections))
}

// Sections

func (api *catalogApi) createSection(ctx echo.Context) error {
	var data catalog.NewSection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSection")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	section, err := api.svc.CreateSection(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating section")
	}
	return ctx.JSON(http.StatusCreated, core.NewDataResponse(section))
}

func (api *catalogApi) retrieveSection(ctx echo.Context) error {
	section, err := api.svc.GetSection(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding section by ID")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(section))
}

func (api *catalogApi) sectionDeletionImpact(ctx echo.Context) error {
	impact, err := api.svc.SectionDeletionImpact(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "previewing section deletion")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(impact))
}

func (api *catalogApi) destroySection(ctx echo.Context) error {
	if err := api.svc.DeleteSection(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting section")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Lessons

func (api *catalogApi) createLesson(ctx echo.Context) error {
	var data catalog.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lesson, err := api.svc.CreateLesson(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, core.NewDataResponse(lesson))
}

func (api *catalogApi) queryLessons(ctx echo.Context) error {
	filter := new(catalog.LessonFilter)
	if err := ctx.Bind(filter); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters"))
	}
	filter.Clean()

	lessons, total, err := api.svc.QueryLessons(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []catalog.Lesson{}
	}
	return ctx.JSON(http.StatusOK, core.NewListResponse(lessons, core.NewMeta(total, filter.Params)))
}

func (api *catalogApi) retrieveLesson(ctx echo.Context) error {
	lesson, err := api.svc.GetLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding lesson by ID")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(lesson))
}

func (api *catalogApi) updateLesson(ctx echo.Context) error {
	orig, err := api.svc.GetLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding lesson by ID")
	}

	var data catalog.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err := data.Validate(api.validate, orig); err != nil {
		return err
	}

	lesson, err := api.svc.UpdateLesson(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(lesson))
}

func (api *catalogApi) destroyLessons(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.DeleteLessons(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting lessons")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Progress

func (api *catalogApi) saveProgress(ctx echo.Context) error {
	var data catalog.UpdateProgress
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProgress")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	progress, err := api.svc.SaveProgress(ctx.Request().Context(), ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "saving lesson progress")
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(progress))
}

func (api *catalogApi) queryProgress(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	userID := ctx.QueryParam("user_id")
	if userID == "" {
		userID = ctxUsr.ID
	} else if userID != ctxUsr.ID && !ctxUsr.IsStaff() {
		return errHttpForbidden
	}

	progress, err := api.svc.ProgressByUser(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "listing lesson progress")
	}
	if progress == nil {
		progress = []catalog.LessonProgress{}
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(progress))
}

// Enrollments

type EnrollRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	CourseID string `json:"course_id" validate:"required"`
}

func (er *EnrollRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(er)
}

func (api *catalogApi) enroll(ctx echo.Context) error {
	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// the student's branch caps what they can be enrolled into
	student, err := api.usrSvc.GetByID(ctx.Request().Context(), data.UserID)
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}

	enrollment, err := api.svc.Enroll(ctx.Request().Context(), student.ID, data.CourseID, student.BranchID)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, core.NewDataResponse(enrollment))
}

func (api *catalogApi) queryEnrollments(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	userID := ctx.QueryParam("user_id")
	if userID == "" {
		userID = ctxUsr.ID
	} else if userID != ctxUsr.ID && !ctxUsr.IsStaff() {
		return errHttpForbidden
	}

	enrollments, err := api.svc.Enrollments(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	if enrollments == nil {
		enrollments = []catalog.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, core.NewDataResponse(enrollments))
}

func (api *catalogApi) unenroll(ctx echo.Context) error {
	userID, courseID := ctx.QueryParam("user_id"), ctx.QueryParam("course_id")
	if userID == "" || courseID == "" {
		return core.NewValidationError(errors.New("user_id and course_id are required"))
	}

	if err := api.svc.Unenroll(ctx.Request().Context(), userID, courseID); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}
