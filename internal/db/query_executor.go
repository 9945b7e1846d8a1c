package db

import (
	"gorm.io/gorm"

	"cataid-backend/internal/db/query"
)

// QueryExecutor runs filtered and aggregate queries that do not map onto a
// single model.
type QueryExecutor struct {
	DB *gorm.DB
}

// NewQueryExecutor creates a new instance of QueryExecutor.
func NewQueryExecutor(db *gorm.DB) *QueryExecutor {
	return &QueryExecutor{DB: db}
}

// Apply narrows tx by a filter. An empty filter leaves tx unchanged.
func (qe *QueryExecutor) Apply(tx *gorm.DB, f *query.Filter) *gorm.DB {
	clause, args := f.Build()
	if clause == "" {
		return tx
	}
	return tx.Where(clause, args...)
}

// GroupCount counts rows of table per distinct value of column, restricted by f.
func (qe *QueryExecutor) GroupCount(table, column string, f *query.Filter) (map[string]int64, error) {
	type row struct {
		Name  string
		Total int64
	}
	var rows []row

	tx := qe.Apply(qe.DB.Table(table), f)
	err := tx.Select(column + " AS name, COUNT(*) AS total").Group(column).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Total
	}
	return out, nil
}

// Transaction executes a set of operations within a database transaction.
func (qe *QueryExecutor) Transaction(txFunc func(tx *gorm.DB) error) error {
	return qe.DB.Transaction(txFunc)
}
