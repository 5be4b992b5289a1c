package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, symbol, strategy, contracts, entry_premium, exit_premium, open_time, close_time, realized_pl, day_trade)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Symbol, t.Strategy, t.Contracts,
		t.EntryPremium.String(), t.ExitPremium.String(),
		t.OpenTime.UTC(), t.CloseTime.UTC(),
		t.RealizedPL.String(), t.DayTrade,
	)
	return err
}

// TradesOnDay returns the trades closed on the given UTC calendar date,
// oldest first.
func (j *SQLiteJournal) TradesOnDay(day time.Time) ([]TradeRecord, error) {
	y, m, d := day.UTC().Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	rows, err := j.db.Query(`
		SELECT trade_id, symbol, strategy, contracts, entry_premium, exit_premium,
		       open_time, close_time, realized_pl, day_trade
		FROM trades
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		var entry, exit, pl string
		if err := rows.Scan(&t.TradeID, &t.Symbol, &t.Strategy, &t.Contracts,
			&entry, &exit, &t.OpenTime, &t.CloseTime, &pl, &t.DayTrade); err != nil {
			return nil, err
		}
		if t.EntryPremium, err = decimal.NewFromString(entry); err != nil {
			return nil, fmt.Errorf("journal: bad entry_premium %q: %w", entry, err)
		}
		if t.ExitPremium, err = decimal.NewFromString(exit); err != nil {
			return nil, fmt.Errorf("journal: bad exit_premium %q: %w", exit, err)
		}
		if t.RealizedPL, err = decimal.NewFromString(pl); err != nil {
			return nil, fmt.Errorf("journal: bad realized_pl %q: %w", pl, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
