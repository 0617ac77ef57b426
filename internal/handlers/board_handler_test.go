package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "plata/internal/errors"
	"plata/internal/models"
	"plata/internal/pagination"
	"plata/internal/services"
)

// --- mock board service ---

type mockBoardService struct {
	createBoardFn    func(userID uint, year, month int, currency string, rules []services.RuleInput) (*models.Board, error)
	getUserBoardsFn  func(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Board], error)
	getBoardByIDFn   func(userID, boardID uint) (*models.Board, error)
	deleteBoardFn    func(userID, boardID uint) error
	recomputeBoardFn func(tx *gorm.DB, boardID uint) (*models.Board, error)
}

func (m *mockBoardService) CreateBoard(userID uint, year, month int, currency string, rules []services.RuleInput) (*models.Board, error) {
	if m.createBoardFn != nil {
		return m.createBoardFn(userID, year, month, currency, rules)
	}
	return &models.Board{}, nil
}

func (m *mockBoardService) GetUserBoards(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Board], error) {
	if m.getUserBoardsFn != nil {
		return m.getUserBoardsFn(userID, page)
	}
	resp := pagination.NewPageResponse([]models.Board{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockBoardService) GetBoardByID(userID, boardID uint) (*models.Board, error) {
	if m.getBoardByIDFn != nil {
		return m.getBoardByIDFn(userID, boardID)
	}
	return &models.Board{}, nil
}

func (m *mockBoardService) DeleteBoard(userID, boardID uint) error {
	if m.deleteBoardFn != nil {
		return m.deleteBoardFn(userID, boardID)
	}
	return nil
}

func (m *mockBoardService) RecomputeBoard(tx *gorm.DB, boardID uint) (*models.Board, error) {
	if m.recomputeBoardFn != nil {
		return m.recomputeBoardFn(tx, boardID)
	}
	return &models.Board{}, nil
}

// verify interface compliance
var _ services.BoardServicer = (*mockBoardService)(nil)

// --- mock rule service ---

type mockRuleService struct {
	createRuleFn          func(userID, boardID uint, name string, percentage float64) (*models.Rule, *services.BoardValidity, error)
	updateRuleFn          func(userID, ruleID uint, name string, percentage *float64) (*models.Rule, *services.BoardValidity, error)
	deleteRuleFn          func(userID, ruleID uint) (*services.BoardValidity, error)
	getBoardRulesFn       func(userID, boardID uint) ([]models.Rule, *services.BoardValidity, error)
	recomputeRuleFn       func(tx *gorm.DB, ruleID uint) (*models.Rule, error)
	recomputeBoardRulesFn func(tx *gorm.DB, boardID uint) error
	refreshValidityFn     func(tx *gorm.DB, boardID uint) (*services.BoardValidity, error)
}

func (m *mockRuleService) CreateRule(userID, boardID uint, name string, percentage float64) (*models.Rule, *services.BoardValidity, error) {
	if m.createRuleFn != nil {
		return m.createRuleFn(userID, boardID, name, percentage)
	}
	return &models.Rule{}, &services.BoardValidity{}, nil
}

func (m *mockRuleService) UpdateRule(userID, ruleID uint, name string, percentage *float64) (*models.Rule, *services.BoardValidity, error) {
	if m.updateRuleFn != nil {
		return m.updateRuleFn(userID, ruleID, name, percentage)
	}
	return &models.Rule{}, &services.BoardValidity{}, nil
}

func (m *mockRuleService) DeleteRule(userID, ruleID uint) (*services.BoardValidity, error) {
	if m.deleteRuleFn != nil {
		return m.deleteRuleFn(userID, ruleID)
	}
	return &services.BoardValidity{}, nil
}

func (m *mockRuleService) GetBoardRules(userID, boardID uint) ([]models.Rule, *services.BoardValidity, error) {
	if m.getBoardRulesFn != nil {
		return m.getBoardRulesFn(userID, boardID)
	}
	return []models.Rule{}, &services.BoardValidity{}, nil
}

func (m *mockRuleService) RecomputeRule(tx *gorm.DB, ruleID uint) (*models.Rule, error) {
	if m.recomputeRuleFn != nil {
		return m.recomputeRuleFn(tx, ruleID)
	}
	return &models.Rule{}, nil
}

func (m *mockRuleService) RecomputeBoardRules(tx *gorm.DB, boardID uint) error {
	if m.recomputeBoardRulesFn != nil {
		return m.recomputeBoardRulesFn(tx, boardID)
	}
	return nil
}

func (m *mockRuleService) RefreshValidity(tx *gorm.DB, boardID uint) (*services.BoardValidity, error) {
	if m.refreshValidityFn != nil {
		return m.refreshValidityFn(tx, boardID)
	}
	return &services.BoardValidity{}, nil
}

// verify interface compliance
var _ services.RuleServicer = (*mockRuleService)(nil)

func setupBoardRouter(handler *BoardHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(1))
	auth.POST("/boards", handler.CreateBoard)
	auth.GET("/boards", handler.GetBoards)
	auth.GET("/boards/:id", handler.GetBoard)
	auth.DELETE("/boards/:id", handler.DeleteBoard)
	return r
}

func TestBoardHandler_CreateBoard(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		boardSvc := &mockBoardService{
			createBoardFn: func(userID uint, year, month int, currency string, rules []services.RuleInput) (*models.Board, error) {
				return &models.Board{
					Base:     models.Base{ID: 1},
					UserID:   userID,
					Year:     year,
					Month:    month,
					MonthKey: models.MonthKey(year, month),
					Currency: currency,
					IsValid:  true,
				}, nil
			},
		}
		handler := NewBoardHandler(boardSvc, &mockRuleService{}, &mockAuditService{})
		r := setupBoardRouter(handler)

		rec := doRequest(r, "POST", "/boards", `{"year":2026,"month":3,"currency":"COP"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		board := result["board"].(map[string]interface{})
		if board["month_key"] != "2026-03" {
			t.Errorf("expected month_key 2026-03, got %v", board["month_key"])
		}
	})

	t.Run("returns 400 on month out of range", func(t *testing.T) {
		handler := NewBoardHandler(&mockBoardService{}, &mockRuleService{}, &mockAuditService{})
		r := setupBoardRouter(handler)

		rec := doRequest(r, "POST", "/boards", `{"year":2026,"month":13,"currency":"COP"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on bad supplied rule", func(t *testing.T) {
		handler := NewBoardHandler(&mockBoardService{}, &mockRuleService{}, &mockAuditService{})
		r := setupBoardRouter(handler)

		rec := doRequest(r, "POST", "/boards",
			`{"year":2026,"month":3,"currency":"COP","rules":[{"name":"Todo","percentage":120}]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 409 on duplicate month", func(t *testing.T) {
		boardSvc := &mockBoardService{
			createBoardFn: func(_ uint, _, _ int, _ string, _ []services.RuleInput) (*models.Board, error) {
				return nil, apperrors.ErrDuplicateBoard
			},
		}
		handler := NewBoardHandler(boardSvc, &mockRuleService{}, &mockAuditService{})
		r := setupBoardRouter(handler)

		rec := doRequest(r, "POST", "/boards", `{"year":2026,"month":3,"currency":"COP"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_BOARD")
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewBoardHandler(&mockBoardService{}, &mockRuleService{}, &mockAuditService{})
		r := gin.New()
		r.POST("/boards", handler.CreateBoard)

		rec := doRequest(r, "POST", "/boards", `{"year":2026,"month":3,"currency":"COP"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestBoardHandler_GetBoards(t *testing.T) {
	t.Run("returns 200 with paginated boards", func(t *testing.T) {
		boardSvc := &mockBoardService{
			getUserBoardsFn: func(_ uint, _ pagination.PageRequest) (*pagination.PageResponse[models.Board], error) {
				resp := pagination.NewPageResponse([]models.Board{
					{Base: models.Base{ID: 2}, MonthKey: "2026-02"},
					{Base: models.Base{ID: 1}, MonthKey: "2026-01"},
				}, 1, 20, 2)
				return &resp, nil
			},
		}
		handler := NewBoardHandler(boardSvc, &mockRuleService{}, &mockAuditService{})
		r := setupBoardRouter(handler)

		rec := doRequest(r, "GET", "/boards", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		data := result["data"].([]interface{})
		if len(data) != 2 {
			t.Errorf("expected 2 boards, got %d", len(data))
		}
	})
}

func TestBoardHandler_GetBoard(t *testing.T) {
	t.Run("returns 200 with rules", func(t *testing.T) {
		boardSvc := &mockBoardService{
			getBoardByIDFn: func(_, boardID uint) (*models.Board, error) {
				return &models.Board{
					Base:     models.Base{ID: boardID},
					MonthKey: "2026-03",
					Rules: []models.Rule{
						{Name: "Necesidades", Percentage: 50},
						{Name: "Deseos", Percentage: 30},
						{Name: "Ahorro", Percentage: 20},
					},
				}, nil
			},
		}
		handler := NewBoardHandler(boardSvc, &mockRuleService{}, &mockAuditService{})
		r := setupBoardRouter(handler)

		rec := doRequest(r, "GET", "/boards/1", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		board := result["board"].(map[string]interface{})
		rules := board["rules"].([]interface{})
		if len(rules) != 3 {
			t.Errorf("expected 3 rules, got %d", len(rules))
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		boardSvc := &mockBoardService{
			getBoardByIDFn: func(_, _ uint) (*models.Board, error) {
				return nil, apperrors.ErrBoardNotFound
			},
		}
		handler := NewBoardHandler(boardSvc, &mockRuleService{}, &mockAuditService{})
		r := setupBoardRouter(handler)

		rec := doRequest(r, "GET", "/boards/999", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BOARD_NOT_FOUND")
	})
}

func TestBoardHandler_DeleteBoard(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		var deletedID uint
		boardSvc := &mockBoardService{
			deleteBoardFn: func(_, boardID uint) error {
				deletedID = boardID
				return nil
			},
		}
		handler := NewBoardHandler(boardSvc, &mockRuleService{}, &mockAuditService{})
		r := setupBoardRouter(handler)

		rec := doRequest(r, "DELETE", "/boards/4", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if deletedID != 4 {
			t.Errorf("expected board 4 deleted, got %d", deletedID)
		}
	})
}
