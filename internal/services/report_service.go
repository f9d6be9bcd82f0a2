package services

import (
	"context"
	"sort"
	"time"

	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"

	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/internal/repositories"
)

const DefaultReportDateLayout = "2006-01-02"

// ReportService reads archived sessions and stock levels; it never writes.
type ReportService interface {
	DailyReport(ctx context.Context, day time.Time) (*models.DailyReport, error)
	Dashboard(ctx context.Context) (*models.DashboardSummary, error)
	LowStock(ctx context.Context) ([]models.LowStockItem, error)
	RecentActivity(ctx context.Context, limit int) ([]models.ActivityLog, error)
}

type reportService struct {
	rt        Runtime
	inventory InventoryLedger
}

// NewReportService creates a new instance of ReportService.
func NewReportService(rt Runtime, inventory InventoryLedger) ReportService {
	return &reportService{rt: rt.withDefaults(), inventory: inventory}
}

// dayWindow returns [start, end) of the lounge-local calendar day holding t.
func (r *reportService) dayWindow(t time.Time) (time.Time, time.Time) {
	cfg := &now.Config{WeekStartDay: time.Monday, TimeLocation: r.rt.Settings.Location}
	day := cfg.With(t.In(r.rt.Settings.Location))
	start := day.BeginningOfDay()
	return start, start.AddDate(0, 0, 1)
}

func (r *reportService) DailyReport(ctx context.Context, day time.Time) (*models.DailyReport, error) {
	from, to := r.dayWindow(day)
	var archived []models.BookingHistory
	err := r.rt.Store.WithTx(ctx, func(tx repositories.Tx) error {
		var err error
		archived, err = tx.History().ListArchivedBetween(ctx, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}

	report := &models.DailyReport{
		Date:           from.Format(DefaultReportDateLayout),
		From:           from,
		To:             to,
		SessionRevenue: decimal.Zero,
		FoodRevenue:    decimal.Zero,
		FoodCost:       decimal.Zero,
		FoodWriteOff:   decimal.Zero,
		CashCollected:  decimal.Zero,
		UpiCollected:   decimal.Zero,
		Outstanding:    decimal.Zero,
		DiscountsGiven: decimal.Zero,
		ByCategory:     []models.CategoryRevenue{},
	}
	byCategory := map[string]*models.CategoryRevenue{}
	for i := range archived {
		b := &archived[i].Booking
		report.CashCollected = report.CashCollected.Add(b.CashAmount)
		report.UpiCollected = report.UpiCollected.Add(b.UpiAmount)
		report.FoodCost = report.FoodCost.Add(b.FoodCost())
		if b.Status == models.BookingStatusCancelled {
			// stock left the shelf either way; nothing was billed for it
			report.CancelledCount++
			report.FoodWriteOff = report.FoodWriteOff.Add(b.FoodCost())
			continue
		}
		report.CompletedCount++
		report.SessionRevenue = report.SessionRevenue.Add(b.FinalPrice)
		report.FoodRevenue = report.FoodRevenue.Add(b.FoodTotal())
		report.Outstanding = report.Outstanding.Add(b.Balance())
		if b.OriginalPrice.GreaterThan(b.FinalPrice) {
			report.DiscountsGiven = report.DiscountsGiven.Add(b.OriginalPrice.Sub(b.FinalPrice))
		}
		if b.AppliedRuleKind == models.RuleKindHappyHour {
			report.HappyHourSessions++
		}

		cat, ok := byCategory[b.Category]
		if !ok {
			cat = &models.CategoryRevenue{Category: b.Category, Revenue: decimal.Zero}
			byCategory[b.Category] = cat
		}
		cat.Sessions++
		cat.Revenue = cat.Revenue.Add(b.FinalPrice)
		cat.Minutes += int(b.ActiveSeconds / 60)
	}
	report.FoodProfit = report.FoodRevenue.Sub(report.FoodCost)
	report.TotalRevenue = report.SessionRevenue.Add(report.FoodRevenue)

	for _, cat := range byCategory {
		report.ByCategory = append(report.ByCategory, *cat)
	}
	sort.Slice(report.ByCategory, func(i, j int) bool {
		return report.ByCategory[i].Category < report.ByCategory[j].Category
	})
	return report, nil
}

func (r *reportService) Dashboard(ctx context.Context) (*models.DashboardSummary, error) {
	summary := &models.DashboardSummary{RevenueToday: decimal.Zero}
	err := r.rt.Store.WithTx(ctx, func(tx repositories.Tx) error {
		live, err := tx.Bookings().ListLive(ctx)
		if err != nil {
			return err
		}
		for _, b := range live {
			if b.Status == models.BookingStatusPaused {
				summary.PausedSessions++
			} else {
				summary.ActiveSessions++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	today, err := r.DailyReport(ctx, r.rt.now())
	if err != nil {
		return nil, err
	}
	summary.RevenueToday = today.TotalRevenue
	summary.SessionsToday = today.CompletedCount

	low, err := r.inventory.LowStockItems(ctx)
	if err != nil {
		return nil, err
	}
	summary.LowStockItemsCount = len(low)
	return summary, nil
}

func (r *reportService) LowStock(ctx context.Context) ([]models.LowStockItem, error) {
	return r.inventory.LowStockItems(ctx)
}

func (r *reportService) RecentActivity(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var logs []models.ActivityLog
	err := r.rt.Store.WithTx(ctx, func(tx repositories.Tx) error {
		var err error
		logs, err = tx.ActivityLogs().List(ctx, limit)
		return err
	})
	return logs, err
}
