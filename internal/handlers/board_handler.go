package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "plata/internal/errors"
	"plata/internal/pagination"
	"plata/internal/services"
)

// BoardHandler handles budget board requests.
type BoardHandler struct {
	boardService services.BoardServicer
	ruleService  services.RuleServicer
	auditService services.AuditServicer
}

// NewBoardHandler creates a new BoardHandler.
func NewBoardHandler(boardService services.BoardServicer, ruleService services.RuleServicer, auditService services.AuditServicer) *BoardHandler {
	return &BoardHandler{boardService: boardService, ruleService: ruleService, auditService: auditService}
}

// CreateBoardRequest represents the request payload for creating a board.
// Rules are optional; when omitted the board is seeded with the default
// 50/30/20 set.
type CreateBoardRequest struct {
	Year     int                  `json:"year" binding:"required,min=2000,max=2100"`
	Month    int                  `json:"month" binding:"required,min=1,max=12"`
	Currency string               `json:"currency" binding:"required,iso4217"`
	Rules    []services.RuleInput `json:"rules" binding:"omitempty,dive"`
}

// CreateBoard creates a monthly budget board.
// @Summary     Create board
// @Description Create a budget board for a given month, seeding rules
// @Tags        boards
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateBoardRequest true "Board details"
// @Success     201 {object} models.Board "Board created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Board already exists for month"
// @Router      /boards [post]
func (h *BoardHandler) CreateBoard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	board, err := h.boardService.CreateBoard(userID, req.Year, req.Month, req.Currency, req.Rules)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "create", "board", board.ID, c.ClientIP(), map[string]interface{}{
		"month_key": board.MonthKey,
		"currency":  board.Currency,
	})

	c.JSON(http.StatusCreated, gin.H{"board": board})
}

// GetBoards lists the user's boards.
// @Summary     List boards
// @Description Get the authenticated user's boards, newest month first
// @Tags        boards
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.Board] "Boards"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /boards [get]
func (h *BoardHandler) GetBoards(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	boards, err := h.boardService.GetUserBoards(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, boards)
}

// GetBoard returns a single board with its rules.
// @Summary     Get board
// @Description Get a board by ID, including its rules and validity state
// @Tags        boards
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Board ID"
// @Success     200 {object} models.Board "Board"
// @Failure     404 {object} ErrorResponse "Board not found"
// @Router      /boards/{id} [get]
func (h *BoardHandler) GetBoard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	boardID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	board, err := h.boardService.GetBoardByID(userID, boardID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"board": board})
}

// DeleteBoard removes a board, its rules, and detaches tagged records.
// @Summary     Delete board
// @Description Delete a board; tagged transactions and incomes are detached, not deleted
// @Tags        boards
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Board ID"
// @Success     200 {object} MessageResponse "Board deleted"
// @Failure     404 {object} ErrorResponse "Board not found"
// @Router      /boards/{id} [delete]
func (h *BoardHandler) DeleteBoard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	boardID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.boardService.DeleteBoard(userID, boardID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "delete", "board", boardID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Board deleted successfully"})
}
