package services

import (
	"context"

	"github.com/princinho/dashbackend/database"
	"github.com/princinho/dashbackend/models"
)

// MetricsService stores the dashboard's free-form metrics object.
type MetricsService struct {
	store *database.Store
}

func NewMetricsService(store *database.Store) *MetricsService {
	return &MetricsService{store: store}
}

// Get returns the metrics object and false when none has been set yet.
func (s *MetricsService) Get(ctx context.Context) (models.Metrics, bool) {
	var out models.Metrics
	s.store.View(func(db *models.Database) {
		if db.Metrics != nil {
			out = make(models.Metrics, len(db.Metrics))
			for k, v := range db.Metrics {
				out[k] = v
			}
		}
	})
	return out, out != nil
}

// Set replaces the metrics object.
func (s *MetricsService) Set(ctx context.Context, m models.Metrics) error {
	if m == nil {
		return NewInvalidError("metrics must be a JSON object")
	}
	return s.store.Update(ctx, func(db *models.Database) error {
		db.Metrics = m
		return nil
	})
}
