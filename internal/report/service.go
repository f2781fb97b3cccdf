package report

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mentalytics/internal/i18n"
	"mentalytics/internal/store"
	"mentalytics/internal/study"
)

// Renderer produces a printable summary of a guidance.
type Renderer interface {
	Render(g Guidance, generated time.Time) ([]byte, error)
}

type Service struct {
	store    store.Store
	table    *i18n.Table
	renderer Renderer
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(s store.Store, table *i18n.Table, renderer Renderer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    s,
		table:    table,
		renderer: renderer,
		logger:   logger,
		now:      time.Now,
	}
}

// Guidance computes the chart data from the latest survey of deviceID.
func (s *Service) Guidance(ctx context.Context, deviceID string, lang i18n.Lang) (Guidance, error) {
	survey, err := s.store.LoadLatestJSONL(ctx, deviceID, store.NameSurvey)
	if err != nil {
		return Guidance{}, fmt.Errorf("load survey: %w", err)
	}
	if len(survey) == 0 {
		return Guidance{}, study.ErrNoSurvey
	}
	g := ComputeGuidance(s.table, lang, survey)
	if g.DeviceID == "" {
		g.DeviceID = deviceID
	}
	return g, nil
}

// PDF renders the participant summary of deviceID.
func (s *Service) PDF(ctx context.Context, deviceID string, lang i18n.Lang) ([]byte, error) {
	g, err := s.Guidance(ctx, deviceID, lang)
	if err != nil {
		return nil, err
	}
	s.logger.Info("rendering participant summary", zap.String("device_id", deviceID), zap.String("run_id", g.RunID))
	data, err := s.renderer.Render(g, s.now())
	if err != nil {
		return nil, fmt.Errorf("render summary: %w", err)
	}
	return data, nil
}
