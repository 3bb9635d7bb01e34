package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"praxis/internal/config"
	"praxis/internal/database"
	"praxis/internal/metrics"
	"praxis/internal/model"
)

type feedKey struct {
	exchange string
	pair     string
}

// Recorder streams configured exchange feeds and stores each tick's
// mid-price as an observation of the feed's symbol.
type Recorder struct {
	logger  *slog.Logger
	repo    database.Repository
	metrics *metrics.Metrics
	feeds   []config.FeedConfig
	clients []ExchangeClient
	now     func() time.Time
}

// NewRecorder builds one client per feed.
func NewRecorder(logger *slog.Logger, repo database.Repository, m *metrics.Metrics, feeds []config.FeedConfig) (*Recorder, error) {
	r := &Recorder{
		logger:  logger,
		repo:    repo,
		metrics: m,
		feeds:   feeds,
		now:     time.Now,
	}
	seen := make(map[feedKey]int, len(feeds))
	for i := range feeds {
		if feeds[i].Symbol == "" || feeds[i].Pair == "" {
			return nil, fmt.Errorf("feed %d: symbol and pair are required", i)
		}
		client, err := NewClient(feeds[i].Exchange, logger, &feeds[i])
		if err != nil {
			return nil, fmt.Errorf("feed %d: %w", i, err)
		}
		// ticks are routed by exchange and pair, so each combination may appear once
		key := feedKey{client.GetName(), feeds[i].Pair}
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("feed %d: %s %s already configured by feed %d", i, key.exchange, key.pair, prev)
		}
		seen[key] = i
		r.clients = append(r.clients, client)
	}
	return r, nil
}

// Run streams every feed until ctx is cancelled.
func (r *Recorder) Run(ctx context.Context) error {
	if len(r.clients) == 0 {
		return nil
	}

	symbols := make(map[feedKey]string, len(r.feeds))
	for i, f := range r.feeds {
		symbols[feedKey{r.clients[i].GetName(), f.Pair}] = f.Symbol
	}

	ticks := make(chan model.PriceTick, 64)
	g, gctx := errgroup.WithContext(ctx)
	for i, client := range r.clients {
		pair := r.feeds[i].Pair
		g.Go(func() error {
			return client.StartStream(gctx, ticks, pair)
		})
	}
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case tick := <-ticks:
				symbol, ok := symbols[feedKey{tick.Exchange, tick.Pair}]
				if !ok {
					r.logger.Warn("Tick from unknown feed", "exchange", tick.Exchange, "pair", tick.Pair)
					continue
				}
				r.ProcessTick(gctx, symbol, tick)
			}
		}
	})
	return g.Wait()
}

// ProcessTick stores the mid-price of tick under symbol.
func (r *Recorder) ProcessTick(ctx context.Context, symbol string, tick model.PriceTick) {
	if tick.Bid <= 0 || tick.Ask <= 0 {
		r.logger.Warn("Discarding tick without a two-sided quote", "exchange", tick.Exchange, "bid", tick.Bid, "ask", tick.Ask)
		return
	}
	obs := model.PriceObservation{Symbol: symbol, Level: tick.Mid(), ObservedAt: r.now()}
	if err := r.repo.AppendObservations(ctx, []model.PriceObservation{obs}); err != nil {
		r.logger.Error("Failed to record price tick", "symbol", symbol, "error", err)
		return
	}
	if r.metrics != nil {
		r.metrics.FeedTicks.WithLabelValues(tick.Exchange).Inc()
	}
}
