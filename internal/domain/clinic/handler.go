package clinic

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medicare/voiceclinic/internal/platform/intake"
	"github.com/medicare/voiceclinic/internal/platform/outcome"
	"github.com/medicare/voiceclinic/pkg/pagination"
)

type Handler struct {
	svc   *Service
	actor int64
}

func NewHandler(svc *Service, auditActorID int64) *Handler {
	return &Handler{svc: svc, actor: auditActorID}
}

// RegisterRoutes mounts the voice tool endpoints on tools and the paginated
// directory listings on admin.
func (h *Handler) RegisterRoutes(tools *echo.Group, admin *echo.Group) {
	tools.POST("/branches", h.Branches)
	tools.POST("/doctors", h.Doctors)
	tools.POST("/patient/verify", h.VerifyPatient)
	tools.POST("/patient/register", h.RegisterPatient)
	tools.POST("/check_test", h.CheckTest)

	admin.GET("/branches", h.ListBranches)
	admin.GET("/doctors", h.ListDoctors)
}

// -- Tool endpoints --

func (h *Handler) Branches(c echo.Context) error {
	items, _, err := h.svc.ListBranches(c.Request().Context(), 0, 0)
	if err != nil {
		return outcome.WriteError(c, err)
	}
	if items == nil {
		items = []*Branch{}
	}
	return outcome.Write(c, outcome.Success(items))
}

type doctorsRequest struct {
	BranchID   *int64 `json:"branch_id"`
	Speciality string `json:"speciality"`
}

var doctorsSchema = intake.Schema{intake.BranchID, intake.Speciality}

func (h *Handler) Doctors(c echo.Context) error {
	var req doctorsRequest
	if err := intake.Bind(c, doctorsSchema, &req); err != nil {
		return outcome.WriteError(c, err)
	}
	items, _, err := h.svc.ListDoctors(c.Request().Context(), DoctorFilter{BranchID: req.BranchID, Speciality: req.Speciality}, 0, 0)
	if err != nil {
		return outcome.WriteError(c, err)
	}
	return outcome.Write(c, outcome.Success(items))
}

type verifyRequest struct {
	PatientID int64 `json:"patient_id" validate:"required,gt=0"`
}

type verifyResult struct {
	Status    string `json:"status"`
	PatientID int64  `json:"patient_id"`
	Name      string `json:"name"`
}

func (h *Handler) VerifyPatient(c echo.Context) error {
	var req verifyRequest
	if err := intake.Bind(c, intake.Schema{intake.PatientID}, &req); err != nil {
		return outcome.WriteError(c, err)
	}
	p, err := h.svc.VerifyPatient(c.Request().Context(), req.PatientID)
	if err != nil {
		return outcome.WriteError(c, err)
	}
	return outcome.Write(c, outcome.Success(&verifyResult{Status: "verified", PatientID: p.ID, Name: p.Name}))
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone" validate:"required,min=6,max=20"`
	Email    string `json:"email" validate:"omitempty,email"`
	GenderID int    `json:"gender_id" validate:"omitempty,gte=1"`
}

var registerSchema = intake.Schema{
	{Key: "name", Aliases: []string{"patient_name", "full_name"}, Prompt: "I need the patient's name to register."},
	{Key: "phone", Aliases: []string{"phone_number", "mobile"}, Prompt: "I need a valid phone number to register."},
	{Key: "email", Aliases: []string{"email_id", "emailId"}, Prompt: "That email address doesn't look right. Please ask the user to spell it again."},
	{Key: "gender_id", Aliases: []string{"genderId"}, Coerce: intake.OptionalID},
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var req registerRequest
	if err := intake.Bind(c, registerSchema, &req); err != nil {
		return outcome.WriteError(c, err)
	}
	reg, err := h.svc.RegisterPatient(c.Request().Context(), RegisterInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		GenderID: req.GenderID,
		Audit:    Audit{ActorID: h.actor, IP: c.RealIP()},
	})
	if err != nil {
		return outcome.WriteError(c, err)
	}
	return outcome.Write(c, outcome.Success(reg))
}

type checkTestRequest struct {
	TestName   string `json:"test_name" validate:"required"`
	Department string `json:"department"`
}

var checkTestSchema = intake.Schema{intake.TestName, intake.Department}

func (h *Handler) CheckTest(c echo.Context) error {
	var req checkTestRequest
	if err := intake.Bind(c, checkTestSchema, &req); err != nil {
		return outcome.WriteError(c, err)
	}
	res, err := h.svc.CheckTest(c.Request().Context(), req.TestName, req.Department)
	if err != nil {
		return outcome.WriteError(c, err)
	}
	return outcome.Write(c, outcome.Success(res))
}

// -- Admin listings --

func (h *Handler) ListBranches(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListBranches(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Path()))
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := DoctorFilter{
		NameContains: c.QueryParam("name"),
		Speciality:   c.QueryParam("speciality"),
	}
	if v := c.QueryParam("branch_id"); v != "" {
		var id int64
		if err := echo.QueryParamsBinder(c).Int64("branch_id", &id).BindError(); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "branch_id must be a number")
		}
		f.BranchID = &id
	}
	items, total, err := h.svc.ListDoctors(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Path()))
}
