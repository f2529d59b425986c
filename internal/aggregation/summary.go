package aggregation

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	dailyvolumedomain "github.com/smallbiznis/gascustody/internal/dailyvolume/domain"
)

// Source lists ledger rows for a site in a window, oldest first.
type Source interface {
	ListInWindow(ctx context.Context, customerID, siteID snowflake.ID, start, end time.Time) ([]dailyvolumedomain.DailyVolume, error)
}

type Summary struct {
	TotalQuantityOfGas float64    `json:"total_quantity_of_gas"`
	FromDate           *time.Time `json:"from_date"`
	ToDate             *time.Time `json:"to_date"`
	Count              int        `json:"count"`
}

// Collect returns the rows for a customer site inside w ordered by created_at.
func Collect(ctx context.Context, src Source, customerID, siteID snowflake.ID, w Window) ([]dailyvolumedomain.DailyVolume, error) {
	return src.ListInWindow(ctx, customerID, siteID, w.Start, w.End)
}

// Summarize totals rows already sorted by created_at. Dates stay nil when rows is empty.
func Summarize(rows []dailyvolumedomain.DailyVolume) Summary {
	summary := Summary{Count: len(rows)}
	if len(rows) == 0 {
		return summary
	}
	for _, row := range rows {
		summary.TotalQuantityOfGas += row.Volume
	}
	from := rows[0].CreatedAt
	to := rows[len(rows)-1].CreatedAt
	summary.FromDate = &from
	summary.ToDate = &to
	return summary
}
