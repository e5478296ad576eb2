package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/famledger/internal/domain"
	"github.com/iho/famledger/internal/infrastructure/postgres/generated"
	"github.com/iho/famledger/internal/usecase"
)

// queriesFor binds queries to tx, or returns base when tx is nil.
func queriesFor(base *generated.Queries, tx usecase.Transaction) (*generated.Queries, error) {
	if tx == nil {
		return base, nil
	}
	pgxTx, err := pgxTxOf(tx)
	if err != nil {
		return nil, err
	}
	return base.WithTx(pgxTx), nil
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func moneyFromNumeric(n pgtype.Numeric, currency string) (domain.Money, error) {
	return domain.NewMoney(numericToDecimal(n), domain.CurrencyCode(currency))
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func timestamptzPtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}

func dateToPg(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: domain.Day(t), Valid: true}
}

func pgToDate(d pgtype.Date) time.Time {
	if !d.Valid {
		return time.Time{}
	}
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

func textFromPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func idToPg[K domain.Kind](id *domain.ID[K]) pgtype.UUID {
	if id == nil || id.IsZero() {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id.UUID(), Valid: true}
}

func idFromPg[K domain.Kind](u pgtype.UUID) *domain.ID[K] {
	if !u.Valid {
		return nil
	}
	id := domain.IDFromUUID[K](u.Bytes)
	return &id
}
