package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Codingbot456/trendwear/internal/domain"
)

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

// fakeTx records transaction outcomes. Exec can be made to fail on the
// nth call to simulate an item insert dying mid-transaction. Unstubbed
// pgx.Tx methods panic, which is fine: the store must not reach them.
type fakeTx struct {
	pgx.Tx
	execCalls  int
	execFailOn int
	committed  bool
	rolledBack bool
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return scanFunc(func(dest ...any) error {
		*(dest[0].(*int64)) = 7
		return nil
	})
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.execCalls++
	if t.execFailOn != 0 && t.execCalls == t.execFailOn {
		return pgconn.CommandTag{}, errors.New("connection reset by peer")
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

// fakeDB hands out the fake transaction and serves the shipping fee
// lookup that runs before any write.
type fakeDB struct {
	tx  *fakeTx
	fee int64
}

var _ DB = (*fakeDB)(nil)

func (db *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return db.tx, nil
}

func (db *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected Query")
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return scanFunc(func(dest ...any) error {
		*(dest[0].(*int64)) = db.fee
		return nil
	})
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("unexpected Exec outside transaction")
}

func twoItemOrder() domain.NewOrder {
	return domain.NewOrder{
		UserName:    "Wanjiku Kamau",
		Email:       "wanjiku@example.com",
		PhoneNumber: "254712345678",
		Address:     "Moi Avenue 12",
		City:        "Nairobi",
		State:       "Nairobi",
		ZipCode:     "00100",
		CountyID:    1,
		Items: []domain.NewOrderItem{
			{ProductID: 7, Name: "Denim Jacket", Price: 500, Quantity: 2, Subtotal: 1000},
			{ProductID: 9, Name: "Ankara Dress", Price: 800, Quantity: 1, Subtotal: 800},
		},
	}
}

func TestCreateOrder_CommitsWhenAllInsertsSucceed(t *testing.T) {
	tx := &fakeTx{}
	svc := NewOrderService(&fakeDB{tx: tx, fee: 200})

	orderID, err := svc.CreateOrder(context.Background(), twoItemOrder())
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if orderID != 7 {
		t.Errorf("order id = %d, want 7", orderID)
	}
	if !tx.committed {
		t.Error("transaction was not committed")
	}
	if tx.rolledBack {
		t.Error("committed transaction must not roll back")
	}
	if tx.execCalls != 2 {
		t.Errorf("item inserts = %d, want 2", tx.execCalls)
	}
}

func TestCreateOrder_RollsBackWhenItemInsertFails(t *testing.T) {
	// The header insert and the first item land; the second item insert
	// dies. Nothing may become visible: the whole transaction rolls back.
	tx := &fakeTx{execFailOn: 2}
	svc := NewOrderService(&fakeDB{tx: tx, fee: 200})

	_, err := svc.CreateOrder(context.Background(), twoItemOrder())
	if err == nil {
		t.Fatal("expected CreateOrder to fail")
	}
	if code := domain.ErrorCode(err); code != domain.EINTERNAL {
		t.Errorf("error code = %q, want %q", code, domain.EINTERNAL)
	}
	if tx.committed {
		t.Error("failed transaction must not commit")
	}
	if !tx.rolledBack {
		t.Error("failed transaction must roll back")
	}
}

func TestCreateOrder_InvalidCountyWritesNothing(t *testing.T) {
	// Pricing runs before Begin; a county that does not resolve must
	// fail the order without opening a transaction.
	tx := &fakeTx{}
	db := &invalidCountyDB{fakeDB{tx: tx, fee: 0}}
	svc := NewOrderService(db)

	_, err := svc.CreateOrder(context.Background(), twoItemOrder())
	if code := domain.ErrorCode(err); code != domain.EINVALID {
		t.Fatalf("error code = %q, want %q", code, domain.EINVALID)
	}
	if tx.execCalls != 0 || tx.committed || tx.rolledBack {
		t.Error("no transaction activity expected for an invalid county")
	}
}

type invalidCountyDB struct {
	fakeDB
}

func (db *invalidCountyDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return scanFunc(func(dest ...any) error {
		return pgx.ErrNoRows
	})
}
