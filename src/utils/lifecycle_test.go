package utils

import (
	"rifa/src/db"
	"rifa/src/types"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDb(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{})
	if err != nil {
		t.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}
	db.NewDB(gormDB)
	return mock
}

func TestSellTicketAlreadySold(t *testing.T) {
	mock := newMockDb(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "raffles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "ticket_price", "ticket_count"}).
			AddRow(1, "active", 10.0, 100))
	mock.ExpectExec(`UPDATE "tickets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := SellTicket(1, 7, &types.SellTicketRequestBody{
		Buyer: types.BuyerInfo{Name: "Maria Souza", Phone: "11 98888-0001"},
	}, 2)
	assert.ErrorIs(t, err, types.ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveTicketAlreadyReserved(t *testing.T) {
	mock := newMockDb(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "raffles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "ticket_price", "ticket_count"}).
			AddRow(1, "active", 10.0, 100))
	mock.ExpectExec(`UPDATE "tickets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := ReserveTicket(1, 7, &types.BuyerInfo{Name: "Maria Souza", Phone: "11 98888-0001"}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveTicketInactiveRaffle(t *testing.T) {
	mock := newMockDb(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "raffles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(1, "paused"))
	mock.ExpectRollback()

	_, err := ReserveTicket(1, 7, &types.BuyerInfo{Name: "Maria Souza", Phone: "11 98888-0001"}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefundTicketTwice(t *testing.T) {
	mock := newMockDb(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "raffles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "ticket_price", "ticket_count"}).
			AddRow(1, "active", 10.0, 100))
	mock.ExpectQuery(`SELECT \* FROM "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "raffle_id", "number", "status", "price", "participant_id"}).
			AddRow(7, 1, 7, "sold", 10.0, nil))
	mock.ExpectExec(`UPDATE "tickets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "payments" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT "id","ticket_count" FROM "raffles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ticket_count"}).AddRow(1, 100))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(price\), 0\) FROM "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(0.0))
	mock.ExpectExec(`UPDATE "raffles" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "raffle_id", "number", "status", "price"}).
			AddRow(7, 1, 7, "available", 10.0))
	mock.ExpectCommit()

	ticket, err := RefundTicket(1, 7, "buyer gave up")
	assert.NoError(t, err)
	assert.Equal(t, types.TICKET_AVAILABLE, ticket.Status)

	// The second attempt finds the ticket back in the pool and must not
	// touch payments or aggregates again.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "raffles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "ticket_price", "ticket_count"}).
			AddRow(1, "active", 10.0, 100))
	mock.ExpectQuery(`SELECT \* FROM "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "raffle_id", "number", "status", "price"}).
			AddRow(7, 1, 7, "available", 10.0))
	mock.ExpectExec(`UPDATE "tickets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = RefundTicket(1, 7, "buyer gave up")
	assert.ErrorIs(t, err, types.ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefundTicketMissing(t *testing.T) {
	mock := newMockDb(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "raffles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(1, "active"))
	mock.ExpectQuery(`SELECT \* FROM "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := RefundTicket(1, 999, "typo")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelReservationClearsBuyer(t *testing.T) {
	mock := newMockDb(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "raffle_id", "number", "status", "price", "buyer_name", "buyer_phone"}).
			AddRow(7, 1, 7, "reserved", 10.0, "Maria Souza", "11988880001"))
	mock.ExpectExec(`UPDATE "tickets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "raffle_id", "number", "status", "price", "buyer_name", "buyer_phone", "reserved_at"}).
			AddRow(7, 1, 7, "available", 10.0, nil, nil, nil))
	mock.ExpectCommit()

	ticket, err := CancelReservation(1, 7)
	assert.NoError(t, err)
	assert.Equal(t, types.TICKET_AVAILABLE, ticket.Status)
	assert.Nil(t, ticket.BuyerName)
	assert.Nil(t, ticket.BuyerPhone)
	assert.Nil(t, ticket.ReservedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelReservationMissingTicket(t *testing.T) {
	mock := newMockDb(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := CancelReservation(1, 999)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelReservationNotReserved(t *testing.T) {
	mock := newMockDb(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "raffle_id", "number", "status", "price"}).
			AddRow(7, 1, 7, "sold", 10.0))
	mock.ExpectExec(`UPDATE "tickets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := CancelReservation(1, 7)
	assert.ErrorIs(t, err, types.ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseRaffleExtendedDeadline(t *testing.T) {
	mock := newMockDb(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "raffles" SET "status"=.+end_date <= NOW\(\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	// A close job queued before the deadline was pushed back finds no
	// row to update and leaves the raffle open.
	err := CloseRaffle(1)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMakeRaffleSlugCollision(t *testing.T) {
	mock := newMockDb(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "raffles"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "raffles"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	s, err := MakeRaffleSlug(db.GetDb(), "Rifa do Notebook")
	assert.NoError(t, err)
	assert.Equal(t, "rifa-do-notebook-1", s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRaffleBySlugOrID(t *testing.T) {
	mock := newMockDb(t)
	mock.ExpectQuery(`SELECT \* FROM "raffles" WHERE slug =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug"}).AddRow(3, "rifa-do-notebook"))
	raffle, err := GetRaffleBySlugOrID("rifa-do-notebook")
	assert.NoError(t, err)
	assert.Equal(t, uint(3), raffle.ID)

	mock.ExpectQuery(`SELECT \* FROM "raffles" WHERE slug =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug"}))
	mock.ExpectQuery(`SELECT \* FROM "raffles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "status"}).AddRow(3, "rifa-do-notebook", "active"))
	byId, err := GetRaffleBySlugOrID("3")
	assert.NoError(t, err)
	assert.Equal(t, "rifa-do-notebook", byId.Slug)

	mock.ExpectQuery(`SELECT \* FROM "raffles" WHERE slug =`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = GetRaffleBySlugOrID("no-such-raffle")
	assert.ErrorIs(t, err, types.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
