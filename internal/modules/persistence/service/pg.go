package service

import (
	"context"
	"fmt"
	"time"

	"signal_engine/internal/models"
	storesql "signal_engine/internal/modules/persistence/service/sql"
	"signal_engine/pkg/db"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
)

// Pg хранит сигналы в postgres, филлы лежат как jsonb.
type Pg struct {
	db  db.TxManager
	sql *storesql.Queries
}

func NewPg(txm db.TxManager) *Pg {
	return &Pg{
		db:  txm,
		sql: storesql.New(),
	}
}

func (p *Pg) Save(ctx context.Context, s *models.Signal) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Save: %w", err)
		}
	}()

	var fills []byte
	fills, err = sonic.Marshal(s.Fills)
	if err != nil {
		return err
	}
	var fractions []byte
	fractions, err = sonic.Marshal(s.Fractions)
	if err != nil {
		return err
	}

	var closedAt *time.Time
	if !s.ClosedAt.IsZero() {
		t := s.ClosedAt
		closedAt = &t
	}

	return p.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return p.sql.UpsertSignal(ctxTx, tx, &storesql.UpsertSignalParams{
			ID:           s.ID,
			Symbol:       s.Symbol,
			Direction:    string(s.Direction),
			EntryPrice:   s.EntryPrice,
			StopLoss:     s.StopLoss,
			Tp1:          s.TP1,
			Tp2:          s.TP2,
			Tp3:          s.TP3,
			Fills:        fills,
			Tp1Hit:       s.TP1Hit,
			Tp2Hit:       s.TP2Hit,
			Tp3Hit:       s.TP3Hit,
			SlHit:        s.SLHit,
			Status:       string(s.Status),
			CurrentRoi:   s.CurrentROI,
			CurrentPrice: s.CurrentPrice,
			ScenarioID:   s.ScenarioID,
			ScenarioName: s.ScenarioName,
			Score:        s.Score,
			CreatedAt:    s.CreatedAt,
			ClosedAt:     closedAt,
			Fractions:    fractions,
		})
	})
}

func (p *Pg) LoadActive(ctx context.Context) (out []*models.Signal, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.LoadActive: %w", err)
		}
	}()

	var rows []*storesql.SignalRow
	err = p.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, err = p.sql.GetActive(ctxTx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	out = make([]*models.Signal, 0, len(rows))
	for _, r := range rows {
		s, err := rowToSignal(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (p *Pg) MarkPrice(ctx context.Context, symbol string, price float64) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.MarkPrice: %w", err)
		}
	}()
	return p.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return p.sql.MarkPrice(ctxTx, tx, &storesql.MarkPriceParams{
			Symbol:       symbol,
			CurrentPrice: price,
		})
	})
}

func rowToSignal(r *storesql.SignalRow) (*models.Signal, error) {
	var fills []models.Fill
	if len(r.Fills) > 0 {
		if err := sonic.Unmarshal(r.Fills, &fills); err != nil {
			return nil, fmt.Errorf("signal %s: fills: %w", r.ID, err)
		}
	}
	fractions := [3]float64{0.25, 0.50, 0.25}
	if len(r.Fractions) > 0 {
		if err := sonic.Unmarshal(r.Fractions, &fractions); err != nil {
			return nil, fmt.Errorf("signal %s: fractions: %w", r.ID, err)
		}
	}

	s := &models.Signal{
		ID:           r.ID,
		Symbol:       r.Symbol,
		Direction:    models.Direction(r.Direction),
		EntryPrice:   r.EntryPrice,
		StopLoss:     r.StopLoss,
		TP1:          r.Tp1,
		TP2:          r.Tp2,
		TP3:          r.Tp3,
		Fractions:    fractions,
		Fills:        fills,
		TP1Hit:       r.Tp1Hit,
		TP2Hit:       r.Tp2Hit,
		TP3Hit:       r.Tp3Hit,
		SLHit:        r.SlHit,
		Status:       models.Status(r.Status),
		CurrentROI:   r.CurrentRoi,
		CurrentPrice: r.CurrentPrice,
		ScenarioID:   r.ScenarioID,
		ScenarioName: r.ScenarioName,
		Score:        r.Score,
		CreatedAt:    r.CreatedAt,
	}
	if r.ClosedAt != nil {
		s.ClosedAt = *r.ClosedAt
	}
	return s, nil
}
