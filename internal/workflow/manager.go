package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cbzmage/internal/bufpool"
	"cbzmage/internal/cbz"
	"cbzmage/internal/config"
	"cbzmage/internal/discovery"
	"cbzmage/internal/engine"
	"cbzmage/internal/hdmatch"
	"cbzmage/internal/logging"
	"cbzmage/internal/metrics"
	"cbzmage/internal/mobi"
	"cbzmage/internal/preflight"
	"cbzmage/internal/state"
)

// Request describes one run.
type Request struct {
	// Path is a primary container or a directory. A trailing "*" requests a
	// recursive search.
	Path      string
	Mode      engine.Mode
	Recursive bool
}

// Manager runs conversions with the settings of one config.
type Manager struct {
	cfg     *config.Config
	base    *slog.Logger
	logger  *slog.Logger
	reader  *mobi.Reader
	metrics *metrics.Recorder
	store   *state.Store
	now     func() time.Time
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithMetrics records book outcomes on recorder instead of a per-run one.
func WithMetrics(recorder *metrics.Recorder) ManagerOption {
	return func(m *Manager) { m.metrics = recorder }
}

// WithStore records history in store instead of opening history.db per run.
// The caller keeps ownership of store.
func WithStore(store *state.Store) ManagerOption {
	return func(m *Manager) { m.store = store }
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:    cfg,
		base:   logger,
		logger: logging.NewComponentLogger(logger, "workflow"),
		reader: mobi.NewReader(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run discovers the books under req.Path and processes them. Errors before
// the first book starts fail the whole run; book failures are reported in
// the returned Summary.
func (m *Manager) Run(ctx context.Context, req Request) (*Summary, error) {
	if m.cfg == nil {
		return nil, errors.New("workflow requires a config")
	}
	compression, err := cbz.ParseCompression(m.cfg.Conversion.Compression)
	if err != nil {
		return nil, err
	}
	if err := m.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock := flock.New(m.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock %s)", ErrRunLocked, m.cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			m.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	if req.Mode != engine.ModeScan {
		if err := preflight.Failures(preflight.RunAll(m.cfg)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPreflight, err)
		}
	}

	inputs, err := discovery.Discover(req.Path, req.Recursive || m.cfg.Conversion.Recursive)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:     uuid.NewString(),
		Mode:      req.Mode,
		Source:    inputs.Root,
		StartedAt: m.now(),
		Books:     make([]BookOutcome, len(inputs.Primary)),
	}
	ctx = logging.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, m.logger).With(logging.Mode(req.Mode.String()))
	workers := max(m.cfg.Conversion.Workers, 1)

	table, err := hdmatch.Analyze(ctx, m.reader, inputs.HD, workers, logging.WithContext(ctx, m.base))
	if err != nil {
		return nil, err
	}
	summary.HDContainers = table.Len()
	for _, primary := range inputs.Primary {
		if len(table.Match(primary)) == 0 {
			summary.Unmatched++
		}
	}

	recorder := m.metrics
	if recorder == nil {
		recorder = metrics.NewRecorder()
	}
	history, closeHistory := m.openHistory(ctx, logger, summary)
	defer closeHistory()

	eng := engine.New(engine.Options{
		Reader: m.reader,
		Pool: bufpool.New(bufpool.Options{
			MinCapacity: m.cfg.BufferMinCapacity(),
			LowWater:    m.cfg.BufferLowWater(),
		}),
		Compression: compression,
		OutputDir:   m.cfg.Paths.OutputDir,
		CoverDir:    m.cfg.Paths.CoverDir,
		Logger:      m.base,
		Now:         m.now,
	})

	logger.Info("conversion started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("source", inputs.Root),
		logging.Int("books", len(inputs.Primary)),
		logging.Int("hd_containers", summary.HDContainers),
		logging.Int("unmatched", summary.Unmatched),
		logging.Int("workers", workers),
		logging.String("compression", compression.String()),
	)

	group := new(errgroup.Group)
	group.SetLimit(workers)
	for i, primary := range inputs.Primary {
		if ctx.Err() != nil {
			summary.Books[i] = BookOutcome{Primary: primary, Status: StatusCanceled}
			continue
		}
		group.Go(func() error {
			if ctx.Err() != nil {
				summary.Books[i] = BookOutcome{Primary: primary, Status: StatusCanceled}
				return nil
			}
			outcome := m.processBook(ctx, eng, req.Mode, engine.Job{
				Primary:    primary,
				Containers: table.Match(primary),
			})
			summary.Books[i] = outcome
			m.record(ctx, logger, history, recorder, summary.RunID, req.Mode, outcome)
			return nil
		})
	}
	_ = group.Wait()

	summary.FinishedAt = m.now()
	summary.tally()
	if history != nil {
		if err := history.FinishRun(context.WithoutCancel(ctx), state.Run{
			ID:         summary.RunID,
			FinishedAt: summary.FinishedAt,
			Total:      summary.Total,
			Succeeded:  summary.Succeeded,
			Failed:     summary.Failed,
			Canceled:   summary.Canceled,
		}); err != nil {
			logging.WarnWithContext(logger, "run history not updated", "history_write_failed",
				logging.Error(err),
				logging.Impact("history shows this run as unfinished"),
			)
		}
	}
	if err := recorder.WriteTextfile(m.cfg.Metrics.Textfile); err != nil {
		logging.WarnWithContext(logger, "metrics textfile not written", "metrics_write_failed",
			logging.Error(err),
			logging.Hint("check metrics.textfile"),
			logging.Impact("metrics for this run are not exported"),
		)
	}

	hdPages, sdPages := summary.Pages()
	logger.Info("conversion finished",
		logging.String(logging.FieldEventType, "run_finished"),
		logging.Int("books", summary.Total),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("canceled", summary.Canceled),
		logging.Int("hd_images", hdPages),
		logging.Int("sd_images", sdPages),
		logging.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}

func (m *Manager) processBook(ctx context.Context, eng *engine.Engine, mode engine.Mode, job engine.Job) BookOutcome {
	start := m.now()
	result, err := eng.Run(ctx, mode, job)
	outcome := BookOutcome{
		Primary:  job.Primary,
		Result:   result,
		Duration: m.now().Sub(start),
	}
	if err != nil {
		kind := errorKind(err)
		outcome.Status = StatusFailed
		outcome.Err = err
		outcome.Error = err.Error()
		outcome.ErrorKind = kind
		outcome.Result = nil
		logging.ErrorWithContext(logging.WithContext(logging.WithBook(ctx, job.Primary), m.logger), "book failed", "book_failed",
			logging.Mode(mode.String()),
			logging.String("error_kind", kind),
			logging.Error(err),
			logging.Hint(errorHint(kind)),
		)
		return outcome
	}
	outcome.Status = StatusSucceeded
	return outcome
}

// openHistory returns the store to record into, or nil when history is
// disabled or unavailable. A history failure never fails the run.
func (m *Manager) openHistory(ctx context.Context, logger *slog.Logger, summary *Summary) (*state.Store, func()) {
	noop := func() {}
	store := m.store
	closeFn := noop
	if store == nil {
		if !m.cfg.History.Enabled {
			return nil, noop
		}
		opened, err := state.Open(m.cfg)
		if err != nil {
			logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
				logging.Error(err),
				logging.Hint(fmt.Sprintf("remove %s if it is damaged", filepath.Base(m.cfg.HistoryPath()))),
				logging.Impact("this run is not recorded in history"),
			)
			return nil, noop
		}
		store = opened
		closeFn = func() { _ = opened.Close() }
	}
	if err := store.BeginRun(context.WithoutCancel(ctx), state.Run{
		ID:        summary.RunID,
		Mode:      summary.Mode.String(),
		Source:    summary.Source,
		StartedAt: summary.StartedAt,
	}); err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_write_failed",
			logging.Error(err),
			logging.Impact("this run is not recorded in history"),
		)
		closeFn()
		return nil, noop
	}
	return store, closeFn
}

func (m *Manager) record(ctx context.Context, logger *slog.Logger, history *state.Store, recorder *metrics.Recorder, runID string, mode engine.Mode, outcome BookOutcome) {
	sample := metrics.BookSample{
		Mode:     mode.String(),
		Status:   outcome.Status,
		Duration: outcome.Duration,
	}
	rec := state.BookRecord{
		RunID:        runID,
		PrimaryPath:  outcome.Primary,
		Mode:         mode.String(),
		ErrorMessage: outcome.Error,
		CheckedAt:    m.now(),
	}
	if result := outcome.Result; result != nil {
		sample.HdImages = result.HdImages
		sample.SdImages = result.SdImages
		sample.CoverSource = result.CoverSource()
		sample.ArchiveBytes = result.ArchiveBytes

		rec.Name = result.Name
		rec.HdCover = result.HdCover
		rec.SdCover = result.SdCover
		rec.FallbackCover = result.FallbackCover
		rec.HdImages = result.HdImages
		rec.SdImages = result.SdImages
		rec.Pages = result.Pages
		rec.HDContainer = result.HDContainer
		rec.ArchivePath = result.Archive
		rec.ArchiveBytes = result.ArchiveBytes
		rec.CheckedAt = result.Checked
	}
	recorder.ObserveBook(sample)

	if history == nil {
		return
	}
	if err := history.RecordBook(context.WithoutCancel(ctx), rec); err != nil {
		logging.WarnWithContext(logger, "book history not recorded", "history_write_failed",
			logging.Book(outcome.Primary),
			logging.Error(err),
			logging.Impact("history misses this book"),
		)
	}
}
