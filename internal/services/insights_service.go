package services

import (
	"math"
	"time"

	"gorm.io/gorm"

	apperrors "plata/internal/errors"
	"plata/internal/models"
	"plata/internal/money"
)

// Point budgets for the financial score factors.
const (
	savingsRatePoints   = 25.0
	debtRatioPoints     = 25.0
	diversityPoints     = 15.0
	consistencyPoints   = 15.0
	assetBasePoints     = 10.0
	scoreBaselinePoints = 10.0
)

// insightsService aggregates over assets, accounts, debts and transaction
// history. Read-only: it consumes the other aggregates and mutates nothing;
// results are recomputed on every call, never cached.
type insightsService struct {
	db *gorm.DB
}

// NewInsightsService creates a new InsightsServicer.
func NewInsightsService(db *gorm.DB) InsightsServicer {
	return &insightsService{db: db}
}

// NetWorth computes assets + cash-equivalent balances - pending debt,
// with a per-category breakdown. Only active debts count against it.
func (s *insightsService) NetWorth(userID uint) (*NetWorthSummary, error) {
	var assets []models.Asset
	if err := s.db.Where("user_id = ?", userID).Find(&assets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	byType := make(map[models.AssetType]float64)
	var assetTotal float64
	for _, a := range assets {
		byType[a.Type] = money.Add(byType[a.Type], a.Value)
		assetTotal = money.Add(assetTotal, a.Value)
	}

	var accountTotal float64
	if err := s.db.Model(&models.Account{}).
		Select("COALESCE(SUM(balance), 0)").
		Where("user_id = ? AND is_active = ?", userID, true).
		Scan(&accountTotal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var debtTotal float64
	if err := s.db.Model(&models.Debt{}).
		Select("COALESCE(SUM(pending_balance), 0)").
		Where("user_id = ? AND state = ?", userID, models.DebtStateActive).
		Scan(&debtTotal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &NetWorthSummary{
		Assets:       money.Round2(assetTotal),
		AssetsByType: byType,
		Accounts:     money.Round2(accountTotal),
		Debts:        money.Round2(debtTotal),
		NetWorth:     money.Sub(money.Add(assetTotal, accountTotal), debtTotal),
	}, nil
}

// Score computes the advisory financial score: five bounded factors plus a
// fixed baseline, summed and clamped to [0,100], mapped to a grade band.
func (s *insightsService) Score(userID uint, now time.Time) (*FinancialScore, error) {
	since := now.AddDate(0, -3, 0)

	var incomeSum float64
	if err := s.db.Model(&models.Income{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND date >= ?", userID, since).
		Scan(&incomeSum).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	var txIncome float64
	if err := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND type = ? AND date >= ?", userID, models.TransactionTypeIncome, since).
		Scan(&txIncome).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	incomeSum += txIncome

	var expenseSum float64
	if err := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND type = ? AND date >= ?", userID, models.TransactionTypeExpense, since).
		Scan(&expenseSum).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Savings rate: fraction of the last quarter's income not spent.
	var savings float64
	if incomeSum > 0 {
		savings = clamp01((incomeSum-expenseSum)/incomeSum) * savingsRatePoints
	}

	// Debt-to-income: monthly obligations vs average monthly income.
	var obligations float64
	if err := s.db.Model(&models.Debt{}).
		Select("COALESCE(SUM(installment_amount), 0)").
		Where("user_id = ? AND state = ?", userID, models.DebtStateActive).
		Scan(&obligations).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	var debtFactor float64
	monthlyIncome := incomeSum / 3
	if monthlyIncome > 0 {
		debtFactor = (1 - clamp01(obligations/monthlyIncome)) * debtRatioPoints
	}

	// Diversity: active accounts and distinct asset types, 3 points each.
	var accountCount int64
	if err := s.db.Model(&models.Account{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&accountCount).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	var assetTypeCount int64
	if err := s.db.Model(&models.Asset{}).
		Where("user_id = ?", userID).
		Distinct("type").
		Count(&assetTypeCount).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	diversity := math.Min(float64(accountCount+assetTypeCount)*3, diversityPoints)

	// Consistency: weeks with at least one transaction in the last 8 weeks.
	var dates []time.Time
	if err := s.db.Model(&models.Transaction{}).
		Where("user_id = ? AND date >= ?", userID, now.AddDate(0, 0, -56)).
		Pluck("date", &dates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	weeks := make(map[int]bool)
	for _, d := range dates {
		weeks[int(now.Sub(d).Hours()/(24*7))] = true
	}
	consistency := math.Min(float64(len(weeks))/8, 1) * consistencyPoints

	// Asset base: log-scaled so the factor saturates slowly.
	var assetTotal float64
	if err := s.db.Model(&models.Asset{}).
		Select("COALESCE(SUM(value), 0)").
		Where("user_id = ?", userID).
		Scan(&assetTotal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	assetBase := math.Min(math.Log10(assetTotal+1)/7*assetBasePoints, assetBasePoints)

	factors := []ScoreFactor{
		{Name: "savings_rate", Points: round1(savings), Max: savingsRatePoints},
		{Name: "debt_to_income", Points: round1(debtFactor), Max: debtRatioPoints},
		{Name: "diversity", Points: round1(diversity), Max: diversityPoints},
		{Name: "consistency", Points: round1(consistency), Max: consistencyPoints},
		{Name: "asset_base", Points: round1(assetBase), Max: assetBasePoints},
		{Name: "baseline", Points: scoreBaselinePoints, Max: scoreBaselinePoints},
	}

	var total float64
	for _, f := range factors {
		total += f.Points
	}
	total = math.Max(0, math.Min(total, 100))

	return &FinancialScore{
		Score:   round1(total),
		Grade:   gradeFor(total),
		Factors: factors,
	}, nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func gradeFor(score float64) string {
	switch {
	case score >= 90:
		return "A+"
	case score >= 80:
		return "A"
	case score >= 65:
		return "B"
	case score >= 50:
		return "C"
	default:
		return "D"
	}
}
