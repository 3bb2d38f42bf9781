package sqlite

import (
	"context"
	"encoding/json"
	"time"

	"planc/internal/gateway/exchange"

	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

type IncomeModel struct {
	ID         int64          `gorm:"column:id;primaryKey;autoIncrement"`
	TranID     int64          `gorm:"column:tran_id;uniqueIndex:idx_income_tran"`
	IncomeType string         `gorm:"column:income_type;uniqueIndex:idx_income_tran;index"`
	Symbol     string         `gorm:"column:symbol;index"`
	Income     float64        `gorm:"column:income"`
	Asset      string         `gorm:"column:asset"`
	Time       time.Time      `gorm:"column:time;index"`
	Raw        datatypes.JSON `gorm:"column:raw;type:TEXT"`
	CreatedAt  time.Time      `gorm:"column:created_at"`
}

func (IncomeModel) TableName() string { return "income_history" }

// SaveIncomes 写入资金流水，按 (tran_id, income_type) 去重，返回新写入条数。
func (s *SqliteStore) SaveIncomes(ctx context.Context, items []exchange.Income) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	rows := make([]IncomeModel, 0, len(items))
	for _, it := range items {
		raw, _ := json.Marshal(it)
		rows = append(rows, IncomeModel{
			TranID:     it.TranID,
			IncomeType: it.IncomeType,
			Symbol:     it.Symbol,
			Income:     it.Income,
			Asset:      it.Asset,
			Time:       it.Time.UTC(),
			Raw:        datatypes.JSON(raw),
		})
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tran_id"}, {Name: "income_type"}},
		DoNothing: true,
	}).CreateInBatches(rows, 200)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

// SumIncome 汇总 since 之后指定类型的流水；types 为空时汇总全部类型。
func (s *SqliteStore) SumIncome(ctx context.Context, since time.Time, types []string) (float64, error) {
	var total float64
	q := s.db.WithContext(ctx).Model(&IncomeModel{}).Where("time >= ?", since.UTC())
	if len(types) > 0 {
		q = q.Where("income_type IN ?", types)
	}
	if err := q.Select("COALESCE(SUM(income), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// RecentIncomes 按时间倒序返回最近的流水。
func (s *SqliteStore) RecentIncomes(ctx context.Context, limit int) ([]exchange.Income, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []IncomeModel
	if err := s.db.WithContext(ctx).
		Order("time DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]exchange.Income, 0, len(rows))
	for _, r := range rows {
		out = append(out, exchange.Income{
			TranID:     r.TranID,
			Symbol:     r.Symbol,
			IncomeType: r.IncomeType,
			Income:     r.Income,
			Asset:      r.Asset,
			Time:       r.Time,
		})
	}
	return out, nil
}
