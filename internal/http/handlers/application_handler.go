package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gigboard/gig-backend/internal/dto"
	"github.com/gigboard/gig-backend/internal/http/handlers/common"
	"github.com/gigboard/gig-backend/internal/service"
)

// ApplicationHandler предоставляет HTTP слой для заявок на гиги.
type ApplicationHandler struct {
	applications *service.ApplicationService
}

// NewApplicationHandler создаёт хэндлер.
func NewApplicationHandler(applications *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

// Submit обрабатывает POST /gigs/:id/applications.
func (h *ApplicationHandler) Submit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	gigID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	app, err := h.applications.SubmitApplication(c.Request.Context(), gigID, userID, req.CoverLetter)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, app)
}

// ListByGig обрабатывает GET /gigs/:id/applications — только для заказчика.
func (h *ApplicationHandler) ListByGig(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	gigID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	apps, err := h.applications.ListByGig(c.Request.Context(), gigID, userID, limit, offset)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

// ListMine обрабатывает GET /applications/my.
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	apps, err := h.applications.ListMine(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

// Get обрабатывает GET /applications/:id.
func (h *ApplicationHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	applicationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	app, err := h.applications.GetApplication(c.Request.Context(), applicationID, userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, app)
}

// Accept обрабатывает POST /applications/:id/accept.
// Принятая заявка назначает исполнителя, гиг уходит в работу.
func (h *ApplicationHandler) Accept(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	applicationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	app, gig, err := h.applications.AcceptApplication(c.Request.Context(), applicationID, userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"application": app, "gig": gig})
}

// Reject обрабатывает POST /applications/:id/reject.
func (h *ApplicationHandler) Reject(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	applicationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	app, err := h.applications.RejectApplication(c.Request.Context(), applicationID, userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, app)
}
