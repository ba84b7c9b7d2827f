package flow

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/f0rthspace/refinance-go/internal/balance"
	"github.com/f0rthspace/refinance-go/internal/models"
)

// DepositService is the slice of the backend a DepositMonitor needs.
type DepositService interface {
	GetDeposit(ctx context.Context, id int64) (*models.Deposit, error)
	CompleteDepositDev(ctx context.Context, id int64) (*models.Deposit, error)
}

// autoState tracks the development auto-complete path. A single enum keeps
// the illegal combinations unrepresentable: a timer cannot be armed twice,
// and a second dev-complete call cannot start while one is outstanding.
type autoState int

const (
	// autoIdle: arming condition may fire.
	autoIdle autoState = iota
	// autoArmed: one-shot timer scheduled (or consumed); arming is blocked.
	autoArmed
	// autoCalling: a complete-dev call is outstanding.
	autoCalling
)

// MonitorConfig carries the deposit polling knobs.
type MonitorConfig struct {
	// PollInterval between deposit refetches while pending.
	PollInterval time.Duration
	// AutoCompleteDelay before a dev-mode deposit is force-completed.
	AutoCompleteDelay time.Duration
	// DevPaymentURL is the sentinel payment link marking a provider stub.
	// Empty disables the auto-complete path entirely.
	DevPaymentURL string
}

// DefaultMonitorConfig matches the production polling cadence.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		PollInterval:      10 * time.Second,
		AutoCompleteDelay: 10 * time.Second,
	}
}

// DepositMonitor tracks one deposit from pending to a terminal state. The
// deposit's status is externally owned; the monitor only consumes fetched
// snapshots, arms the bounded dev auto-complete, and latches the terminal
// success side effects so they fire at most once per instance.
type DepositMonitor struct {
	svc         DepositService
	cache       *balance.Cache
	log         *zap.Logger
	cfg         MonitorConfig
	depositID   int64
	actor       int64
	onCompleted func(models.Deposit)
	schedule    schedule

	mu     sync.Mutex
	auto   autoState
	done   bool
	timer  *Timer
	latest *models.Deposit
	ctx    context.Context
}

// NewDepositMonitor builds a monitor for one deposit. onCompleted fires
// exactly once when the deposit is first observed completed; nil is allowed.
func NewDepositMonitor(svc DepositService, cache *balance.Cache, cfg MonitorConfig, depositID, actorEntityID int64, onCompleted func(models.Deposit), log *zap.Logger) *DepositMonitor {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultMonitorConfig().PollInterval
	}
	if cfg.AutoCompleteDelay <= 0 {
		cfg.AutoCompleteDelay = DefaultMonitorConfig().AutoCompleteDelay
	}
	return &DepositMonitor{
		svc:         svc,
		cache:       cache,
		log:         log,
		cfg:         cfg,
		depositID:   depositID,
		actor:       actorEntityID,
		onCompleted: onCompleted,
		schedule:    realSchedule,
		ctx:         context.Background(),
	}
}

// Deposit returns the most recently observed deposit, nil before the first
// poll.
func (m *DepositMonitor) Deposit() *models.Deposit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest
}

// Completed reports whether the terminal success transition has fired.
func (m *DepositMonitor) Completed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Run polls the deposit until it leaves pending or ctx is cancelled. The
// auto-complete timer is stopped on return so no callback outlives the
// monitor.
func (m *DepositMonitor) Run(ctx context.Context) error {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()
	defer m.stopTimer()

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		dep, err := m.svc.GetDeposit(ctx, m.depositID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.log.Warn("deposit poll failed",
				zap.Int64("deposit_id", m.depositID), zap.Error(err))
		} else {
			m.Observe(*dep)
			if dep.Status != models.DepositPending {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Observe consumes the latest fetched deposit and advances the monitor.
// Arming is idempotent: re-entering the pending/dev-mode condition after the
// timer is already armed does nothing.
func (m *DepositMonitor) Observe(dep models.Deposit) {
	m.mu.Lock()
	m.latest = &dep

	if dep.Status == models.DepositCompleted && !m.done {
		m.done = true
		timer := m.timer
		m.timer = nil
		m.mu.Unlock()

		timer.Stop()
		m.cache.Invalidate(m.actor)
		m.log.Info("deposit completed",
			zap.Int64("deposit_id", dep.ID),
			zap.String("amount", dep.Amount),
			zap.String("currency", dep.Currency))
		if m.onCompleted != nil {
			m.onCompleted(dep)
		}
		return
	}

	if dep.Status == models.DepositPending &&
		dep.IsDevMode(m.cfg.DevPaymentURL) &&
		m.auto == autoIdle {
		m.auto = autoArmed
		m.timer = m.schedule(m.cfg.AutoCompleteDelay, m.autoFire)
		m.log.Debug("dev auto-complete armed",
			zap.Int64("deposit_id", dep.ID),
			zap.Duration("delay", m.cfg.AutoCompleteDelay))
	}
	m.mu.Unlock()
}

// autoFire is the timer callback for the armed auto-complete.
func (m *DepositMonitor) autoFire() {
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()
	if err := m.completeDev(ctx, false); err != nil {
		m.log.Warn("dev auto-complete failed",
			zap.Int64("deposit_id", m.depositID), zap.Error(err))
	}
}

// CompleteNow is the user-triggered "complete now" override. It also stops
// the armed timer so it cannot fire redundantly afterwards.
func (m *DepositMonitor) CompleteNow(ctx context.Context) error {
	return m.completeDev(ctx, true)
}

// completeDev issues the force-complete call, guarded against concurrent
// invocations. A failure returns the arming condition to idle so the next
// pending poll can re-arm the timer; the retry is therefore delay-gated,
// never immediate.
func (m *DepositMonitor) completeDev(ctx context.Context, manual bool) error {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return nil
	}
	if m.auto == autoCalling {
		m.mu.Unlock()
		return ErrBusy
	}
	prev := m.auto
	m.auto = autoCalling
	var timer *Timer
	if manual && prev == autoArmed {
		timer = m.timer
		m.timer = nil
	}
	m.mu.Unlock()
	timer.Stop()

	dep, err := m.svc.CompleteDepositDev(ctx, m.depositID)

	m.mu.Lock()
	if err != nil {
		m.auto = autoIdle
		m.mu.Unlock()
		return err
	}
	m.auto = autoArmed
	m.mu.Unlock()

	m.Observe(*dep)
	return nil
}

func (m *DepositMonitor) stopTimer() {
	m.mu.Lock()
	timer := m.timer
	m.timer = nil
	m.mu.Unlock()
	timer.Stop()
}
