package knowledge

import (
	"github.com/labstack/echo/v4"

	"github.com/medicare/voiceclinic/internal/platform/intake"
	"github.com/medicare/voiceclinic/internal/platform/outcome"
)

const Instruction = "Use the information above to answer the user's question. If the answer is not in the text, say you don't have that specific information."

type Handler struct {
	index *Index
}

func NewHandler(index *Index) *Handler {
	return &Handler{index: index}
}

func (h *Handler) RegisterRoutes(tools *echo.Group, admin *echo.Group) {
	tools.POST("/hospital_info", h.HospitalInfo)
	admin.POST("/knowledge/reload", h.Reload)
}

type infoRequest struct {
	Query string `json:"query" validate:"required"`
}

type SearchResult struct {
	Results     string `json:"results"`
	Instruction string `json:"instruction"`
}

var infoSchema = intake.Schema{intake.Query}

func (h *Handler) HospitalInfo(c echo.Context) error {
	var req infoRequest
	if err := intake.Bind(c, infoSchema, &req); err != nil {
		return outcome.WriteError(c, err)
	}
	return outcome.Write(c, outcome.Success(SearchResult{
		Results:     h.index.Search(req.Query, DefaultLimit),
		Instruction: Instruction,
	}))
}

type reloadResult struct {
	Documents int `json:"documents"`
}

func (h *Handler) Reload(c echo.Context) error {
	if err := h.index.Reload(c.Request().Context()); err != nil {
		return outcome.WriteError(c, outcome.Storage(err))
	}
	return outcome.Write(c, outcome.Success(reloadResult{Documents: h.index.Len()}))
}
