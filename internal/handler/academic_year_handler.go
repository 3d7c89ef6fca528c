package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/service"
	appErrors "github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/errors"
	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/response"
)

// AcademicYearHandler exposes the year registry endpoints.
type AcademicYearHandler struct {
	years      *service.AcademicYearService
	promotions *service.PromotionService
}

// NewAcademicYearHandler constructs an academic year handler.
func NewAcademicYearHandler(years *service.AcademicYearService, promotions *service.PromotionService) *AcademicYearHandler {
	return &AcademicYearHandler{years: years, promotions: promotions}
}

// List godoc
// @Summary List academic years
// @Description All years with derived status and enrollment counts
// @Tags AcademicYears
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic-years [get]
func (h *AcademicYearHandler) List(c *gin.Context) {
	years, err := h.years.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}

// Get godoc
// @Summary Get academic year
// @Tags AcademicYears
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id} [get]
func (h *AcademicYearHandler) Get(c *gin.Context) {
	year, err := h.years.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// Suggestion godoc
// @Summary Suggest next year range
// @Description September-to-August range derived from the current date
// @Tags AcademicYears
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic-years/suggestion [get]
func (h *AcademicYearHandler) Suggestion(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.years.SuggestRange(c.Request.Context()), nil)
}

// Create godoc
// @Summary Create academic year
// @Tags AcademicYears
// @Accept json
// @Produce json
// @Param payload body service.CreateAcademicYearRequest true "Year payload"
// @Success 201 {object} response.Envelope
// @Router /academic-years [post]
func (h *AcademicYearHandler) Create(c *gin.Context) {
	var req service.CreateAcademicYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	year, err := h.years.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// Update godoc
// @Summary Update academic year
// @Tags AcademicYears
// @Accept json
// @Produce json
// @Param id path string true "Academic year ID"
// @Param payload body service.UpdateAcademicYearRequest true "Year payload"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id} [put]
func (h *AcademicYearHandler) Update(c *gin.Context) {
	var req service.UpdateAcademicYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	year, err := h.years.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// SetActive godoc
// @Summary Activate academic year
// @Description Designate the year new admissions target
// @Tags AcademicYears
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id}/activate [post]
func (h *AcademicYearHandler) SetActive(c *gin.Context) {
	year, err := h.years.SetActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// Delete godoc
// @Summary Delete academic year
// @Description Remove a year that has no students
// @Tags AcademicYears
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 204
// @Router /academic-years/{id} [delete]
func (h *AcademicYearHandler) Delete(c *gin.Context) {
	if err := h.years.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Details godoc
// @Summary Academic year details
// @Description Aggregate view with applicant breakdown
// @Tags AcademicYears
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id}/details [get]
func (h *AcademicYearHandler) Details(c *gin.Context) {
	details, err := h.years.GetDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, nil)
}

// Promote godoc
// @Summary Run cohort promotion
// @Description Graduate final-class students and advance the rest into the active year
// @Tags AcademicYears
// @Produce json
// @Param id path string true "Source academic year ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id}/promote [post]
func (h *AcademicYearHandler) Promote(c *gin.Context) {
	result, err := h.promotions.Promote(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
