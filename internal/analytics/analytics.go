// Package analytics runs read-only summary queries over the loaded tables
// after a successful pipeline run. Failures here are reported but never
// affect the run's outcome.
package analytics

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// AccountStats summarizes accounts sharing one account type.
type AccountStats struct {
	AccountType   int64
	Accounts      int64
	TotalCash     decimal.Decimal
	TotalAsset    decimal.Decimal
	AvgTotalAsset decimal.Decimal
}

// TransactionStats summarizes trades sharing a strategy and offset flag.
type TransactionStats struct {
	StrategyName string
	OffsetFlag   int64
	Trades       int64
	TotalVolume  int64
	TotalAmount  decimal.Decimal
	AvgPrice     decimal.Decimal
}

// Reporter builds and logs the post-run summaries.
type Reporter struct {
	pool *pgxpool.Pool
	qb   squirrel.StatementBuilderType
	log  *logrus.Logger
}

func NewReporter(pool *pgxpool.Pool, log *logrus.Logger) *Reporter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Reporter{
		pool: pool,
		qb:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		log:  log,
	}
}

// AccountSummary aggregates the accounts table by account type. Numeric
// aggregates come back as text so they land in decimals without a float
// round trip.
func (r *Reporter) AccountSummary(ctx context.Context) ([]AccountStats, error) {
	query, args, err := r.qb.
		Select(
			"account_type",
			"COUNT(*)",
			"COALESCE(SUM(cash), 0)::text",
			"COALESCE(SUM(total_asset), 0)::text",
			"COALESCE(AVG(total_asset), 0)::text",
		).
		From("accounts").
		GroupBy("account_type").
		OrderBy("account_type").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build account summary: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("account summary: %w", err)
	}
	defer rows.Close()

	var stats []AccountStats
	for rows.Next() {
		var s AccountStats
		var cash, total, avg string
		if err := rows.Scan(&s.AccountType, &s.Accounts, &cash, &total, &avg); err != nil {
			return nil, fmt.Errorf("scan account summary: %w", err)
		}
		if s.TotalCash, err = decimal.NewFromString(cash); err != nil {
			return nil, fmt.Errorf("parse total cash: %w", err)
		}
		if s.TotalAsset, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parse total asset: %w", err)
		}
		if s.AvgTotalAsset, err = decimal.NewFromString(avg); err != nil {
			return nil, fmt.Errorf("parse avg asset: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("account summary: %w", err)
	}
	return stats, nil
}

// TransactionSummary aggregates the transactions table by strategy and
// offset flag.
func (r *Reporter) TransactionSummary(ctx context.Context) ([]TransactionStats, error) {
	query, args, err := r.qb.
		Select(
			"strategy_name",
			"offset_flag",
			"COUNT(*)",
			"COALESCE(SUM(traded_volume), 0)",
			"COALESCE(SUM(traded_amount), 0)::text",
			"COALESCE(AVG(traded_price), 0)::text",
		).
		From("transactions").
		GroupBy("strategy_name", "offset_flag").
		OrderBy("strategy_name", "offset_flag").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build transaction summary: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("transaction summary: %w", err)
	}
	defer rows.Close()

	var stats []TransactionStats
	for rows.Next() {
		var s TransactionStats
		var amount, price string
		if err := rows.Scan(&s.StrategyName, &s.OffsetFlag, &s.Trades, &s.TotalVolume, &amount, &price); err != nil {
			return nil, fmt.Errorf("scan transaction summary: %w", err)
		}
		if s.TotalAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse total amount: %w", err)
		}
		if s.AvgPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse avg price: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transaction summary: %w", err)
	}
	return stats, nil
}

// Report runs both summaries and logs the results.
func (r *Reporter) Report(ctx context.Context) error {
	accounts, err := r.AccountSummary(ctx)
	if err != nil {
		return err
	}
	for _, s := range accounts {
		r.log.WithFields(logrus.Fields{
			"account_type": s.AccountType,
			"accounts":     s.Accounts,
			"total_cash":   s.TotalCash.StringFixed(2),
			"total_asset":  s.TotalAsset.StringFixed(2),
			"avg_asset":    s.AvgTotalAsset.StringFixed(2),
		}).Info("account summary")
	}

	trades, err := r.TransactionSummary(ctx)
	if err != nil {
		return err
	}
	for _, s := range trades {
		r.log.WithFields(logrus.Fields{
			"strategy":     s.StrategyName,
			"offset_flag":  s.OffsetFlag,
			"trades":       s.Trades,
			"total_volume": s.TotalVolume,
			"total_amount": s.TotalAmount.StringFixed(2),
			"avg_price":    s.AvgPrice.StringFixed(2),
		}).Info("transaction summary")
	}
	return nil
}
