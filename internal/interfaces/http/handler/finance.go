package handler

import (
	"context"

	financeapp "github.com/erp/backoffice/internal/application/finance"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// FinanceService is the application surface the finance endpoints call
type FinanceService interface {
	ListLedger(ctx context.Context, tenantID int64) (*finance.TransactionList, error)
	AddLedgerEntry(ctx context.Context, tenantID int64, req financeapp.CreateLedgerEntryRequest) (*financeapp.LedgerEntryResponse, error)
	DeleteLedgerEntry(ctx context.Context, tenantID int64, userID string, id int64) error
	GetAggregateTotals(ctx context.Context, companyID, tenantID int64) (*finance.AggregateTotals, error)
	ListCategories(ctx context.Context, companyID, tenantID int64) (*finance.CategoryList, error)
	AddCategory(ctx context.Context, tenantID int64, req financeapp.CreateCategoryRequest) (*finance.ExpenseCategory, error)
	ListBudgets(ctx context.Context, companyID, tenantID int64) (*finance.BudgetList, error)
	AddBudget(ctx context.Context, companyID, tenantID int64, req financeapp.CreateBudgetRequest) (*financeapp.BudgetResult, error)
	DeleteBudget(ctx context.Context, companyID, tenantID, id int64) error
	ListPettyCash(ctx context.Context, companyID, tenantID int64) (*finance.PettyCashLedger, error)
	AddPettyCash(ctx context.Context, companyID, tenantID int64, req financeapp.CreatePettyCashRequest) (*finance.PettyCashEntry, error)
}

// FinanceHandler handles the finance API endpoints. Tenant identity comes
// from the tenant middleware; isolation decisions are left to the service.
type FinanceHandler struct {
	BaseHandler
	financeService FinanceService
}

// NewFinanceHandler creates a new FinanceHandler
func NewFinanceHandler(financeService FinanceService) *FinanceHandler {
	return &FinanceHandler{
		financeService: financeService,
	}
}

// RegisterRoutes mounts the finance endpoints under rg/finance
func (h *FinanceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg = rg.Group("/finance")
	rg.GET("/ledger", h.ListLedger)
	rg.POST("/ledger", h.AddLedgerEntry)
	rg.DELETE("/ledger/:id", h.DeleteLedgerEntry)
	rg.GET("/totals", h.GetTotals)
	rg.GET("/categories", h.ListCategories)
	rg.POST("/categories", h.AddCategory)
	rg.GET("/budgets", h.ListBudgets)
	rg.POST("/budgets", h.AddBudget)
	rg.DELETE("/budgets/:id", h.DeleteBudget)
	rg.GET("/petty-cash", h.ListPettyCash)
	rg.POST("/petty-cash", h.AddPettyCash)
}

// ListLedger handles GET /finance/ledger
func (h *FinanceHandler) ListLedger(c *gin.Context) {
	list, err := h.financeService.ListLedger(c.Request.Context(), middleware.GetDeviceID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	view := *list
	view.Warnings = nil
	h.SuccessWithWarnings(c, view, list.Warnings)
}

// AddLedgerEntry handles POST /finance/ledger
func (h *FinanceHandler) AddLedgerEntry(c *gin.Context) {
	var req financeapp.CreateLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	req.CompanyID = middleware.GetCompanyID(c)
	req.CreatedBy = middleware.GetUserID(c)

	entry, err := h.financeService.AddLedgerEntry(c.Request.Context(), middleware.GetDeviceID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, entry)
}

// DeleteLedgerEntry handles DELETE /finance/ledger/:id
func (h *FinanceHandler) DeleteLedgerEntry(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.ValidationError(c, err)
		return
	}

	err := h.financeService.DeleteLedgerEntry(c.Request.Context(),
		middleware.GetDeviceID(c), middleware.GetUserID(c), uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"id": uri.ID})
}

// GetTotals handles GET /finance/totals
func (h *FinanceHandler) GetTotals(c *gin.Context) {
	totals, err := h.financeService.GetAggregateTotals(c.Request.Context(),
		middleware.GetCompanyID(c), middleware.GetDeviceID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	view := *totals
	view.Warnings = nil
	h.SuccessWithWarnings(c, view, totals.Warnings)
}

// ListCategories handles GET /finance/categories
func (h *FinanceHandler) ListCategories(c *gin.Context) {
	list, err := h.financeService.ListCategories(c.Request.Context(),
		middleware.GetCompanyID(c), middleware.GetDeviceID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	view := *list
	view.Warnings = nil
	h.SuccessWithWarnings(c, view, list.Warnings)
}

// AddCategory handles POST /finance/categories
func (h *FinanceHandler) AddCategory(c *gin.Context) {
	var req financeapp.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	req.CompanyID = middleware.GetCompanyID(c)

	category, err := h.financeService.AddCategory(c.Request.Context(), middleware.GetDeviceID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, category)
}

// ListBudgets handles GET /finance/budgets
func (h *FinanceHandler) ListBudgets(c *gin.Context) {
	list, err := h.financeService.ListBudgets(c.Request.Context(),
		middleware.GetCompanyID(c), middleware.GetDeviceID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	view := *list
	view.Warnings = nil
	h.SuccessWithWarnings(c, view, list.Warnings)
}

// AddBudget handles POST /finance/budgets
func (h *FinanceHandler) AddBudget(c *gin.Context) {
	var req financeapp.CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.financeService.AddBudget(c.Request.Context(),
		middleware.GetCompanyID(c), middleware.GetDeviceID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result.Budget, result.Warnings...)
}

// DeleteBudget handles DELETE /finance/budgets/:id
func (h *FinanceHandler) DeleteBudget(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.ValidationError(c, err)
		return
	}

	err := h.financeService.DeleteBudget(c.Request.Context(),
		middleware.GetCompanyID(c), middleware.GetDeviceID(c), uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"id": uri.ID})
}

// ListPettyCash handles GET /finance/petty-cash
func (h *FinanceHandler) ListPettyCash(c *gin.Context) {
	ledger, err := h.financeService.ListPettyCash(c.Request.Context(),
		middleware.GetCompanyID(c), middleware.GetDeviceID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	view := *ledger
	view.Warnings = nil
	h.SuccessWithWarnings(c, view, ledger.Warnings)
}

// AddPettyCash handles POST /finance/petty-cash
func (h *FinanceHandler) AddPettyCash(c *gin.Context) {
	var req financeapp.CreatePettyCashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	req.CreatedBy = middleware.GetUserID(c)

	entry, err := h.financeService.AddPettyCash(c.Request.Context(),
		middleware.GetCompanyID(c), middleware.GetDeviceID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, entry)
}
