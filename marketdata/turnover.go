package marketdata

import (
	"database/sql"

	"daytrader/errs"
)

// SQLTurnoverRanker implements prediction.TurnoverRanker directly against
// bars_5min: the top-N stocks by Σ(volume × close) over the morning window
// for a date (§4.7 step 1, GLOSSARY "Turnover"). Kept in this package
// rather than prediction's because it is pure SQL over the same table
// SQLAccessor already queries.
type SQLTurnoverRanker struct {
	db *sql.DB
}

// NewSQLTurnoverRanker wraps an already-open *sql.DB, same ownership
// contract as NewSQLAccessor.
func NewSQLTurnoverRanker(db *sql.DB) *SQLTurnoverRanker {
	return &SQLTurnoverRanker{db: db}
}

// TopByTurnover returns up to n stock codes ordered by descending turnover
// for date's morning window.
func (r *SQLTurnoverRanker) TopByTurnover(date int, n int) ([]string, error) {
	rows, err := r.db.Query(
		`SELECT stock_code, SUM(volume * close) AS turnover FROM bars_5min
		 WHERE ts/10000 = ? AND is_morning_window = 1
		 GROUP BY stock_code
		 ORDER BY turnover DESC
		 LIMIT ?`,
		date, n,
	)
	if err != nil {
		return nil, errs.New(errs.Io, "marketdata.TopByTurnover", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var stock string
		var turnover int64
		if err := rows.Scan(&stock, &turnover); err != nil {
			return nil, errs.New(errs.Parse, "marketdata.TopByTurnover", err)
		}
		out = append(out, NormalizeStockCode(stock))
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.Io, "marketdata.TopByTurnover", err)
	}
	return out, nil
}
