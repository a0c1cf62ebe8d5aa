package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gigboard/gig-backend/internal/dto"
	"github.com/gigboard/gig-backend/internal/http/handlers/common"
	"github.com/gigboard/gig-backend/internal/logger"
	"github.com/gigboard/gig-backend/internal/repository"
	"github.com/gigboard/gig-backend/internal/service"
)

// GigHandler предоставляет HTTP слой для гигов.
type GigHandler struct {
	gigs    *service.GigService
	escrows *service.EscrowService
	media   *repository.MediaRepository
}

// NewGigHandler создаёт хэндлер.
func NewGigHandler(gigs *service.GigService, escrows *service.EscrowService, media *repository.MediaRepository) *GigHandler {
	return &GigHandler{gigs: gigs, escrows: escrows, media: media}
}

// Create обрабатывает POST /gigs.
func (h *GigHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateGigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	gig, err := h.gigs.CreateGig(c.Request.Context(), service.CreateGigInput{
		PosterID:    userID,
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
	})
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	// Вложения прикрепляются после создания; ошибки привязки не откатывают гиг.
	var mediaIDs []uuid.UUID
	for _, rawID := range req.Attachments {
		mediaID, err := uuid.Parse(rawID)
		if err != nil {
			continue
		}
		mediaIDs = append(mediaIDs, mediaID)
	}
	if err := h.media.AttachManyToGig(c.Request.Context(), gig.ID, userID, mediaIDs); err != nil {
		logger.Log.Warnf("gig handler: не удалось прикрепить вложения к гигу %s: %v", gig.ID, err)
	}

	c.JSON(http.StatusCreated, gig)
}

// List обрабатывает GET /gigs — открытые гиги со счётчиком заявок.
func (h *GigHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	gigs, err := h.gigs.ListOpenGigs(c.Request.Context(), limit, offset)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"gigs": gigs})
}

// ListMine обрабатывает GET /gigs/my.
func (h *GigHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	gigs, err := h.gigs.ListUserGigs(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"gigs": gigs})
}

// Get обрабатывает GET /gigs/:id.
func (h *GigHandler) Get(c *gin.Context) {
	gigID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	gig, err := h.gigs.GetGig(c.Request.Context(), gigID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	attachments, err := h.media.ListByGig(c.Request.Context(), gigID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.GigResponse{Gig: gig, Attachments: attachments})
}

// Cancel обрабатывает POST /gigs/:id/cancel.
func (h *GigHandler) Cancel(c *gin.Context) {
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

	gig, err := h.gigs.CancelGig(c.Request.Context(), gigID, userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gig)
}

// Confirm обрабатывает POST /gigs/:id/confirm — подтверждение выполнения.
// Когда подтверждают обе стороны, в ответе появляется выплаченный escrow.
func (h *GigHandler) Confirm(c *gin.Context) {
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

	gig, escrow, err := h.escrows.ConfirmCompletion(c.Request.Context(), gigID, userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ConfirmResponse{Gig: gig, Escrow: escrow})
}
