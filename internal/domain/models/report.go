package models

import "time"

// CategoryTotal is one expense category with its summed amount.
type CategoryTotal struct {
	Category string  `bson:"category" json:"category"`
	Total    float64 `bson:"total" json:"total"`
}

// ProfitAndLoss is the derived P&L statement for a date range. COGS comes from
// the cost snapshots stored on sale items, so the report is stable under later
// cost changes.
type ProfitAndLoss struct {
	OwnerID       string          `bson:"owner_id" json:"owner_id"`
	Start         time.Time       `bson:"start" json:"start"`
	End           time.Time       `bson:"end" json:"end"`
	TotalSales    float64         `bson:"total_sales" json:"total_sales"`
	TotalCOGS     float64         `bson:"total_cogs" json:"total_cogs"`
	TotalExpenses float64         `bson:"total_expenses" json:"total_expenses"`
	GrossProfit   float64         `bson:"gross_profit" json:"gross_profit"`
	NetProfit     float64         `bson:"net_profit" json:"net_profit"`
	TopExpenses   []CategoryTotal `bson:"top_expenses" json:"top_expenses"`
}

// DailySnapshot is the aggregated daily P&L stored in MongoDB by the nightly
// scheduler job, one document per owner per day.
type DailySnapshot struct {
	ID        string        `bson:"_id,omitempty" json:"id"`
	OwnerID   string        `bson:"owner_id" json:"owner_id"`
	Date      time.Time     `bson:"date" json:"date"`
	Report    ProfitAndLoss `bson:"report" json:"report"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
}
