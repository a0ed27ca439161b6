package repository

import (
	"context"
	"regexp"
	"testing"

	"autotrader/src/model"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestOrderRepositoryCreate(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &OrderRepository{db: mockDB}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	order := &model.Order{
		ClientOrderID: "cid-1",
		Symbol:        "SPY",
		Side:          model.OrderSideBuy,
		OrderType:     model.OrderTypeMarket,
		TimeInForce:   model.TimeInForceDay,
		Quantity:      5,
		Status:        model.OrderStatusSubmitted,
	}

	if err := repo.Create(context.Background(), order); err != nil {
		t.Fatalf("unexpected error creating order: %v", err)
	}
	if order.ID != 7 {
		t.Fatalf("expected generated id 7, got %d", order.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestOrderRepositoryFindByClientOrderID(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &OrderRepository{db: mockDB}

	rows := sqlmock.NewRows([]string{"id", "client_order_id", "symbol", "side", "status"}).
		AddRow(7, "cid-1", "SPY", "buy", "submitted")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE client_order_id = $1`)).
		WithArgs("cid-1", 1).
		WillReturnRows(rows)

	order, err := repo.FindByClientOrderID(context.Background(), "cid-1")
	if err != nil {
		t.Fatalf("unexpected error fetching order: %v", err)
	}
	if order == nil || order.ID != 7 || order.Symbol != "SPY" {
		t.Fatalf("unexpected order: %+v", order)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestOrderRepositoryFindByClientOrderIDNotFound(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &OrderRepository{db: mockDB}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE client_order_id = $1`)).
		WithArgs("cid-missing", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	order, err := repo.FindByClientOrderID(context.Background(), "cid-missing")
	if err != nil {
		t.Fatalf("not-found must not be an error, got %v", err)
	}
	if order != nil {
		t.Fatalf("expected nil order for unknown client order id, got %+v", order)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
