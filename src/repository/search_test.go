package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"exchangeapi/src/model"
)

func newSearchTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	if err := db.AutoMigrate(&model.User{}, &model.Order{}, &model.Transaction{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	return db
}

func seedSearchFixtures(t *testing.T, db *gorm.DB) {
	t.Helper()

	users := []model.User{
		{Username: "seller-one", PasswordHash: "x", Role: model.RoleSeller, Phone: "+1000"},
		{Username: "seller-two", PasswordHash: "x", Role: model.RoleSeller, Phone: "+2000"},
		{Username: "buyer-one", PasswordHash: "x", Role: model.RoleBuyer, Phone: "+3000"},
	}
	for i := range users {
		if err := db.Create(&users[i]).Error; err != nil {
			t.Fatalf("failed to seed user: %v", err)
		}
	}

	orders := []model.Order{
		{SellerID: 1, CurrencyPair: "USD/RUB", OperationType: model.OperationSell,
			Amount: decimal.RequireFromString("100.00"), Price: decimal.RequireFromString("92.50"),
			Status: model.OrderStatusActive},
		{SellerID: 1, CurrencyPair: "RUB/USD", OperationType: model.OperationSell,
			Amount: decimal.RequireFromString("50.00"), Price: decimal.RequireFromString("0.01"),
			Status: model.OrderStatusActive},
		{SellerID: 2, CurrencyPair: "USD/RUB", OperationType: model.OperationSell,
			Amount: decimal.RequireFromString("200.00"), Price: decimal.RequireFromString("91.00"),
			Status: model.OrderStatusClosed},
	}
	for i := range orders {
		if err := db.Create(&orders[i]).Error; err != nil {
			t.Fatalf("failed to seed order: %v", err)
		}
	}

	transactions := []model.Transaction{
		{Reference: "ref-1", BuyerID: 3, SellerID: 1, OrderID: 1,
			ExchangeRate: decimal.RequireFromString("92.50"),
			Amount:       decimal.RequireFromString("30.00"),
			Status:       model.TransactionStatusPending},
		{Reference: "ref-2", BuyerID: 3, SellerID: 1, OrderID: 1,
			ExchangeRate: decimal.RequireFromString("92.50"),
			Amount:       decimal.RequireFromString("20.00"),
			Status:       model.TransactionStatusPending},
		{Reference: "ref-3", BuyerID: 3, SellerID: 1, OrderID: 1,
			ExchangeRate: decimal.RequireFromString("92.50"),
			Amount:       decimal.RequireFromString("40.00"),
			Status:       model.TransactionStatusCanceled},
		{Reference: "ref-4", BuyerID: 3, SellerID: 2, OrderID: 3,
			ExchangeRate: decimal.RequireFromString("91.00"),
			Amount:       decimal.RequireFromString("15.00"),
			Status:       model.TransactionStatusDone},
	}
	for i := range transactions {
		if err := db.Create(&transactions[i]).Error; err != nil {
			t.Fatalf("failed to seed transaction: %v", err)
		}
	}
}

func TestOrderRepositoryReserveAmountGuardOnSqlite(t *testing.T) {
	db := newSearchTestDB(t)
	seedSearchFixtures(t, db)

	repo := NewOrderRepository().WithDB(db)
	ctx := context.Background()

	// Decimal parameters bind as text; the guard must still compare
	// numerically against the 100.00 capacity of order 1.
	reserved, err := repo.ReserveAmount(ctx, 1, decimal.RequireFromString("60.00"))
	if err != nil {
		t.Fatalf("unexpected error reserving: %v", err)
	}
	if !reserved {
		t.Fatal("expected 60.00 to fit into 100.00")
	}

	reserved, err = repo.ReserveAmount(ctx, 1, decimal.RequireFromString("50.00"))
	if err != nil {
		t.Fatalf("unexpected error reserving: %v", err)
	}
	if reserved {
		t.Fatal("expected 50.00 not to fit into the remaining 40.00")
	}

	reserved, err = repo.ReserveAmount(ctx, 1, decimal.RequireFromString("40.00"))
	if err != nil {
		t.Fatalf("unexpected error reserving: %v", err)
	}
	if !reserved {
		t.Fatal("expected exactly the remaining 40.00 to fit")
	}

	var order model.Order
	if err := db.First(&order, 1).Error; err != nil {
		t.Fatalf("failed to reload order: %v", err)
	}
	if !order.ReservedAmount.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("expected reserved 100.00, got %s", order.ReservedAmount)
	}
}

func TestOrderRepositorySearch(t *testing.T) {
	db := newSearchTestDB(t)
	seedSearchFixtures(t, db)

	repo := NewOrderRepository().WithDB(db)
	ctx := context.Background()

	t.Run("filters by pair and status", func(t *testing.T) {
		pair := "USD/RUB"
		status := model.OrderStatusActive

		orders, total, err := repo.Search(ctx, OrderSearchOptions{
			CurrencyPair: &pair,
			Status:       &status,
		})
		if err != nil {
			t.Fatalf("unexpected search error: %v", err)
		}
		if total != 1 || len(orders) != 1 {
			t.Fatalf("expected exactly one active USD/RUB order, got total=%d len=%d", total, len(orders))
		}
		if orders[0].SellerID != 1 {
			t.Fatalf("expected seller 1, got %d", orders[0].SellerID)
		}
		if orders[0].Seller == nil {
			t.Fatal("expected the seller to be preloaded")
		}
	})

	t.Run("total counts beyond the page", func(t *testing.T) {
		orders, total, err := repo.Search(ctx, OrderSearchOptions{Page: 1, Limit: 2})
		if err != nil {
			t.Fatalf("unexpected search error: %v", err)
		}
		if total != 3 {
			t.Fatalf("expected total 3, got %d", total)
		}
		if len(orders) != 2 {
			t.Fatalf("expected page of 2, got %d", len(orders))
		}
	})

	t.Run("sorts by whitelisted column", func(t *testing.T) {
		orders, _, err := repo.Search(ctx, OrderSearchOptions{
			SortField: "price",
			SortOrder: "desc",
		})
		if err != nil {
			t.Fatalf("unexpected search error: %v", err)
		}
		if len(orders) < 2 {
			t.Fatalf("expected multiple orders, got %d", len(orders))
		}
		if orders[0].Price.LessThan(orders[1].Price) {
			t.Fatalf("expected descending price ordering, got %s before %s",
				orders[0].Price, orders[1].Price)
		}
	})

	t.Run("rejects unknown sort field", func(t *testing.T) {
		_, _, err := repo.Search(ctx, OrderSearchOptions{SortField: "price; DROP TABLE orders"})
		if err == nil {
			t.Fatal("expected an error for a sort field outside the whitelist")
		}
	})
}

func TestTransactionRepositorySearch(t *testing.T) {
	db := newSearchTestDB(t)
	seedSearchFixtures(t, db)

	repo := NewTransactionRepository().WithDB(db)
	ctx := context.Background()

	t.Run("filters by status and minimum amount", func(t *testing.T) {
		status := model.TransactionStatusPending
		minAmount := decimal.RequireFromString("25.00")

		transactions, total, err := repo.Search(ctx, TransactionSearchOptions{
			Status:    &status,
			MinAmount: &minAmount,
		})
		if err != nil {
			t.Fatalf("unexpected search error: %v", err)
		}
		if total != 1 || len(transactions) != 1 {
			t.Fatalf("expected one pending transaction >= 25.00, got total=%d len=%d", total, len(transactions))
		}
		if transactions[0].Reference != "ref-1" {
			t.Fatalf("expected ref-1, got %s", transactions[0].Reference)
		}
	})

	t.Run("restricts to a participant", func(t *testing.T) {
		sellerID := uint(2)

		transactions, total, err := repo.Search(ctx, TransactionSearchOptions{UserID: &sellerID})
		if err != nil {
			t.Fatalf("unexpected search error: %v", err)
		}
		if total != 1 || len(transactions) != 1 {
			t.Fatalf("expected one transaction involving seller 2, got total=%d len=%d", total, len(transactions))
		}
		if transactions[0].SellerID != sellerID {
			t.Fatalf("expected seller 2, got %d", transactions[0].SellerID)
		}
	})

	t.Run("rejects unknown sort field", func(t *testing.T) {
		_, _, err := repo.Search(ctx, TransactionSearchOptions{SortField: "reference"})
		if err == nil {
			t.Fatal("expected an error for a sort field outside the whitelist")
		}
	})
}

func TestTransactionRepositorySumPendingAmount(t *testing.T) {
	db := newSearchTestDB(t)
	seedSearchFixtures(t, db)

	repo := NewTransactionRepository().WithDB(db)
	ctx := context.Background()

	sum, err := repo.SumPendingAmount(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error summing pending amounts: %v", err)
	}
	if !sum.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("expected pending sum 50.00, got %s", sum)
	}

	sum, err = repo.SumPendingAmount(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error summing pending amounts: %v", err)
	}
	if !sum.IsZero() {
		t.Fatalf("expected zero pending sum for an order with no transactions, got %s", sum)
	}
}
