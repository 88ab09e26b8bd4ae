package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	service "github.com/okian/rice/internal/app"
	"github.com/okian/rice/internal/domain/catalog"
	"github.com/okian/rice/internal/domain/model"
	"github.com/okian/rice/internal/domain/types"
	"github.com/okian/rice/pkg/logger"
)

// ErrInvalidConfig reports an unusable simulation config.
var ErrInvalidConfig = errors.New("invalid simulation config")

// reportLimit is the largest report the service returns.
const reportLimit = 1000

// session action paths.
const (
	pathAdvance      = "/advance"
	pathForceAdvance = "/force-advance"
	pathReveal       = "/reveal"
	pathResult       = "/result"
)

type counters struct {
	created, finalized, participants, votes, votesFailed, reveals atomic.Int64
}

// runner plays sessions against one service.
type runner struct {
	cfg    *Config
	client *HTTPClient
	gen    *generator
	log    logger.Logger
	counts counters
}

// Run plays cfg.Sessions complete sessions concurrently and verifies the
// results report against the computed results.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("simulator")

	log.Info(ctx, "starting rice session simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("voters", cfg.Voters),
		logger.Int("workers", cfg.Workers),
		logger.String("catalog", cfg.CatalogID))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := checkServiceHealth(ctx, client); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	var c catalog.Catalog
	if err := client.get(ctx, "/catalogs/"+cfg.CatalogID, &c); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if len(c.ReachCategories) == 0 || len(c.ImpactKPIs) == 0 || len(c.ConfidenceSources) == 0 || len(c.EffortSizes) == 0 {
		return nil, fmt.Errorf("%w: catalog %q has an empty collection", ErrInvalidConfig, cfg.CatalogID)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	r := &runner{cfg: cfg, client: client, gen: newGenerator(&c, seed), log: log}

	outcomes, err := r.playAll(ctx)
	r.fill(stats)
	if err != nil {
		return stats, fmt.Errorf("session play failed: %w", err)
	}

	var report []types.Entry
	if err := client.get(ctx, fmt.Sprintf("/results?limit=%d", reportLimit), &report); err != nil {
		return stats, fmt.Errorf("report retrieval failed: %w", err)
	}
	stats.ReportEntries = len(report)
	if err := verifyReport(outcomes, report, reportLimit); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func validate(cfg *Config) error {
	switch {
	case cfg == nil:
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	case cfg.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case cfg.Sessions < 1:
		return fmt.Errorf("%w: at least one session is required", ErrInvalidConfig)
	case cfg.Voters < 0:
		return fmt.Errorf("%w: voters must not be negative", ErrInvalidConfig)
	case cfg.Workers < 1:
		return fmt.Errorf("%w: at least one worker is required", ErrInvalidConfig)
	}
	if cfg.CatalogID == "" {
		cfg.CatalogID = catalog.DefaultID
	}
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	return client.get(ctx, "/healthz", nil)
}

func (r *runner) playAll(ctx context.Context) ([]Outcome, error) {
	var (
		mu       sync.Mutex
		outcomes = make([]Outcome, 0, r.cfg.Sessions)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i := range r.cfg.Sessions {
		g.Go(func() error {
			out, err := r.play(gctx, i)
			if err != nil {
				return fmt.Errorf("session %d: %w", i, err)
			}
			mu.Lock()
			outcomes = append(outcomes, out)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	return outcomes, err
}

// play runs one session from creation to its result.
func (r *runner) play(ctx context.Context, n int) (Outcome, error) {
	var sess model.Session
	if err := r.client.post(ctx, "/sessions", service.CreateSessionInput{
		Name:      fmt.Sprintf("simulated initiative %d", n),
		CatalogID: r.cfg.CatalogID,
	}, &sess); err != nil {
		return Outcome{}, err
	}
	r.counts.created.Add(1)
	base := "/sessions/" + sess.ID

	participants := make([]model.Participant, 0, r.cfg.Voters+1)
	for i := range r.cfg.Voters + 1 {
		var p model.Participant
		if err := r.client.post(ctx, base+"/participants", service.JoinInput{
			Name:     fmt.Sprintf("participant %d", i),
			Identity: fmt.Sprintf("sim-%d-%d", n, i),
		}, &p); err != nil {
			return Outcome{}, err
		}
		participants = append(participants, p)
	}
	r.counts.participants.Add(int64(len(participants)))
	facilitator := participants[0].ID
	actor := map[string]string{"actor_id": facilitator}

	// Force-advance moves every client into the first voting stage at once.
	if err := r.client.post(ctx, base+pathForceAdvance, actor, nil); err != nil {
		return Outcome{}, err
	}
	for i, d := range model.Dimensions {
		if err := r.voteAll(ctx, base, d, participants); err != nil {
			return Outcome{}, err
		}
		var out service.RevealOutcome
		if err := r.client.post(ctx, base+pathReveal, actor, &out); err != nil {
			return Outcome{}, err
		}
		r.counts.reveals.Add(1)
		if i < len(model.Dimensions)-1 {
			if err := r.client.post(ctx, base+pathAdvance, actor, nil); err != nil {
				return Outcome{}, err
			}
		}
	}

	var res model.RiceResult
	if err := r.client.post(ctx, base+pathResult, actor, &res); err != nil {
		return Outcome{}, err
	}
	r.counts.finalized.Add(1)
	if r.cfg.Verbose {
		r.log.Info(ctx, "session finalized",
			logger.String("session_id", sess.ID),
			logger.Float64("rice", res.RiceScore),
			logger.String("priority", string(res.Priority)))
	}
	return Outcome{SessionID: sess.ID, RiceScore: res.RiceScore, Priority: string(res.Priority)}, nil
}

// voteAll submits every participant's vote on d concurrently.
func (r *runner) voteAll(ctx context.Context, base string, d model.Dimension, participants []model.Participant) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range participants {
		v := r.gen.vote(d, p.ID)
		g.Go(func() error {
			if err := r.client.put(gctx, base+"/votes/"+string(d), v, nil); err != nil {
				r.counts.votesFailed.Add(1)
				return err
			}
			r.counts.votes.Add(1)
			return nil
		})
	}
	return g.Wait()
}

func (r *runner) fill(stats *Stats) {
	stats.SessionsCreated = int(r.counts.created.Load())
	stats.SessionsFinalized = int(r.counts.finalized.Load())
	stats.Participants = int(r.counts.participants.Load())
	stats.VotesSubmitted = int(r.counts.votes.Load())
	stats.VotesFailed = int(r.counts.votesFailed.Load())
	stats.Reveals = int(r.counts.reveals.Load())
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var votesPerSecond float64
	if stats.Duration > 0 {
		votesPerSecond = float64(stats.VotesSubmitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("sessionsCreated", stats.SessionsCreated),
		logger.Int("sessionsFinalized", stats.SessionsFinalized),
		logger.Int("participants", stats.Participants),
		logger.Int("votesSubmitted", stats.VotesSubmitted),
		logger.Int("votesFailed", stats.VotesFailed),
		logger.Int("reveals", stats.Reveals),
		logger.Int("reportEntries", stats.ReportEntries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("votesPerSecond", votesPerSecond))
}
