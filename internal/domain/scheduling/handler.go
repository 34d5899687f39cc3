package scheduling

import (
	"github.com/labstack/echo/v4"

	"github.com/medicare/voiceclinic/internal/domain/clinic"
	"github.com/medicare/voiceclinic/internal/platform/intake"
	"github.com/medicare/voiceclinic/internal/platform/outcome"
)

type Handler struct {
	svc   *Service
	actor int64
}

func NewHandler(svc *Service, auditActorID int64) *Handler {
	return &Handler{svc: svc, actor: auditActorID}
}

// RegisterRoutes mounts the voice tool endpoints. They are all POST.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/availability", h.Availability)
	api.POST("/book", h.Book)
	api.POST("/appointment/reschedule", h.Reschedule)
	api.POST("/appointment/cancel", h.Cancel)
	api.POST("/book_test", h.BookTest)
}

func (h *Handler) audit(c echo.Context) clinic.Audit {
	return clinic.Audit{ActorID: h.actor, IP: c.RealIP()}
}

type availabilityRequest struct {
	DoctorName string `json:"doctor_name" validate:"required"`
	Date       string `json:"date" validate:"required"`
	BranchID   *int64 `json:"branch_id"`
}

var availabilitySchema = intake.Schema{
	intake.DoctorName,
	intake.Date.WithPrompt("Please provide a date (YYYY-MM-DD)."),
	intake.BranchID,
}

func (h *Handler) Availability(c echo.Context) error {
	var req availabilityRequest
	if err := intake.Bind(c, availabilitySchema, &req); err != nil {
		return outcome.WriteError(c, err)
	}
	date, err := intake.ParseDate(req.Date)
	if err != nil {
		return outcome.WriteError(c, err)
	}
	return outcome.Write(c, h.svc.Availability(c.Request().Context(), AvailabilityQuery{
		DoctorName: req.DoctorName,
		BranchID:   req.BranchID,
		Date:       date,
	}))
}

type bookRequest struct {
	PatientID  int64  `json:"patient_id" validate:"required,gt=0"`
	DoctorName string `json:"doctor_name" validate:"required"`
	Date       string `json:"date" validate:"required"`
	Time       string `json:"time" validate:"required"`
	BranchID   *int64 `json:"branch_id"`
}

var bookSchema = intake.Schema{intake.PatientID, intake.DoctorName, intake.Date, intake.Time, intake.BranchID}

func (h *Handler) Book(c echo.Context) error {
	var req bookRequest
	if err := intake.Bind(c, bookSchema, &req); err != nil {
		return outcome.WriteError(c, err)
	}
	at, err := intake.ParseInstant(req.Date, req.Time)
	if err != nil {
		return outcome.WriteError(c, err)
	}
	return outcome.Write(c, h.svc.Book(c.Request().Context(), BookCommand{
		PatientID:  req.PatientID,
		DoctorName: req.DoctorName,
		BranchID:   req.BranchID,
		At:         at,
		Audit:      h.audit(c),
	}))
}

type rescheduleRequest struct {
	PatientID  int64  `json:"patient_id" validate:"required,gt=0"`
	NewDate    string `json:"new_date" validate:"required"`
	NewTime    string `json:"new_time" validate:"required"`
	DoctorName string `json:"doctor_name"`
	BranchID   *int64 `json:"branch_id"`
}

var rescheduleSchema = intake.Schema{intake.PatientID, intake.NewDate, intake.NewTime, intake.DoctorName, intake.BranchID}

func (h *Handler) Reschedule(c echo.Context) error {
	var req rescheduleRequest
	if err := intake.Bind(c, rescheduleSchema, &req); err != nil {
		return outcome.WriteError(c, err)
	}
	at, err := intake.ParseInstant(req.NewDate, req.NewTime)
	if err != nil {
		return outcome.WriteError(c, err)
	}
	return outcome.Write(c, h.svc.Reschedule(c.Request().Context(), RescheduleCommand{
		PatientID:  req.PatientID,
		At:         at,
		DoctorName: req.DoctorName,
		BranchID:   req.BranchID,
		Audit:      h.audit(c),
	}))
}

type cancelRequest struct {
	PatientID int64 `json:"patient_id" validate:"required,gt=0"`
}

var cancelSchema = intake.Schema{
	intake.PatientID.WithPrompt("I lost the patient ID. Please ask the user for their ID again or use the one from the verification step."),
}

func (h *Handler) Cancel(c echo.Context) error {
	var req cancelRequest
	if err := intake.Bind(c, cancelSchema, &req); err != nil {
		return outcome.WriteError(c, err)
	}
	return outcome.Write(c, h.svc.Cancel(c.Request().Context(), CancelCommand{
		PatientID: req.PatientID,
		Audit:     h.audit(c),
	}))
}

type bookTestRequest struct {
	PatientID int64  `json:"patient_id" validate:"required,gt=0"`
	TestName  string `json:"test_name" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Time      string `json:"time" validate:"required"`
}

const testDateTimePrompt = "I need both date and time to book the test."

var bookTestSchema = intake.Schema{
	intake.PatientID,
	intake.TestName,
	intake.Date.WithPrompt(testDateTimePrompt),
	intake.Time.WithPrompt(testDateTimePrompt),
}

func (h *Handler) BookTest(c echo.Context) error {
	var req bookTestRequest
	if err := intake.Bind(c, bookTestSchema, &req); err != nil {
		return outcome.WriteError(c, err)
	}
	at, err := intake.ParseInstant(req.Date, req.Time)
	if err != nil {
		return outcome.WriteError(c, err)
	}
	return outcome.Write(c, h.svc.BookTest(c.Request().Context(), BookTestCommand{
		PatientID: req.PatientID,
		TestName:  req.TestName,
		At:        at,
	}))
}
