package quota

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	warnThreshold     = 0.70
	criticalThreshold = 0.90

	checkpointFile  = "checkpoint.json"
	auditFilePrefix = "quota-usage-"
)

// Config holds the provider quota limits and the durable storage location
type Config struct {
	DailyLimit  int
	BurstLimit  int
	BurstWindow time.Duration
	DataDir     string
}

// counter is one usage window with a lazy reset boundary
type counter struct {
	Used    int       `json:"used"`
	ResetAt time.Time `json:"reset_at"`
}

// latches holds the one-alert-per-threshold-per-cycle state for a counter
type latches struct {
	warned   bool
	critical bool
}

// Monitor keeps authoritative usage counters for the upstream API,
// independent of the rate limiter: the limiter shapes traffic, the monitor
// accounts for it. Counters survive restarts through a checkpoint file, and
// every tracked call is appended to a per-day audit log.
type Monitor struct {
	mu     sync.Mutex
	cfg    Config
	logger *zap.Logger

	daily counter
	burst counter

	dailyAlerts latches
	burstAlerts latches

	auditFile *os.File
	auditDay  string

	now func() time.Time
}

type checkpoint struct {
	Daily   counter   `json:"daily"`
	Burst   counter   `json:"burst"`
	SavedAt time.Time `json:"saved_at"`
}

// auditRecord is one line of the per-day usage log
type auditRecord struct {
	Timestamp time.Time `json:"ts"`
	Endpoint  string    `json:"endpoint"`
	DailyUsed int       `json:"daily_used"`
	BurstUsed int       `json:"burst_used"`
}

// NewMonitor creates a monitor, reloading the last checkpoint if its reset
// boundaries are still in the future. A stale checkpoint (reset already
// passed) is discarded so an outage cannot resurrect old counts.
func NewMonitor(cfg Config, logger *zap.Logger) (*Monitor, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create quota data dir: %w", err)
	}

	m := &Monitor{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}

	now := m.now().UTC()
	m.daily = counter{ResetAt: nextUTCMidnight(now)}
	m.burst = counter{ResetAt: now.Add(cfg.BurstWindow)}

	if cp, err := m.loadCheckpoint(); err == nil {
		if cp.Daily.ResetAt.After(now) {
			m.daily = cp.Daily
		}
		if cp.Burst.ResetAt.After(now) {
			m.burst = cp.Burst
		}
	}

	return m, nil
}

// Track records one attempted upstream call: lazy-resets expired windows,
// increments both counters, appends an audit line, and fires threshold
// alerts at most once per crossing per cycle.
func (m *Monitor) Track(endpoint string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()

	if !now.Before(m.daily.ResetAt) {
		m.persistCheckpointLocked()
		m.daily = counter{ResetAt: nextUTCMidnight(now)}
		m.dailyAlerts = latches{}
	}
	if !now.Before(m.burst.ResetAt) {
		m.burst = counter{ResetAt: now.Add(m.cfg.BurstWindow)}
		m.burstAlerts = latches{}
	}

	m.daily.Used++
	m.burst.Used++

	m.appendAuditLocked(now, endpoint)

	m.evaluateAlertsLocked("daily", m.daily.Used, m.cfg.DailyLimit, &m.dailyAlerts)
	m.evaluateAlertsLocked("burst", m.burst.Used, m.cfg.BurstLimit, &m.burstAlerts)
}

// Decision is the result of a pre-call admission check
type Decision struct {
	Allowed           bool
	Reason            string
	DailyRemaining    int
	BurstRemaining    int
	RetryAfterSeconds int
}

// ShouldAllow reports whether a call may be attempted right now. It is a
// read-only check: expired windows are treated as empty without mutating
// state. Callers consult it before queuing a call behind the rate limiter.
func (m *Monitor) ShouldAllow() Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()

	dailyUsed := m.daily.Used
	if !now.Before(m.daily.ResetAt) {
		dailyUsed = 0
	}
	burstUsed := m.burst.Used
	if !now.Before(m.burst.ResetAt) {
		burstUsed = 0
	}

	d := Decision{
		DailyRemaining: max(m.cfg.DailyLimit-dailyUsed, 0),
		BurstRemaining: max(m.cfg.BurstLimit-burstUsed, 0),
	}

	switch {
	case dailyUsed >= m.cfg.DailyLimit:
		d.Reason = fmt.Sprintf("daily quota exhausted (%d/%d)", dailyUsed, m.cfg.DailyLimit)
		d.RetryAfterSeconds = int(m.daily.ResetAt.Sub(now).Seconds()) + 1
	case burstUsed >= m.cfg.BurstLimit:
		d.Reason = fmt.Sprintf("burst quota exhausted (%d/%d per %s)", burstUsed, m.cfg.BurstLimit, m.cfg.BurstWindow)
		d.RetryAfterSeconds = int(m.burst.ResetAt.Sub(now).Seconds()) + 1
	default:
		d.Allowed = true
	}

	return d
}

// CounterStats is a snapshot of one usage window
type CounterStats struct {
	Used    int       `json:"used"`
	Limit   int       `json:"limit"`
	ResetAt time.Time `json:"reset_at"`
}

// Stats is a snapshot of both usage windows
type Stats struct {
	Daily CounterStats `json:"daily"`
	Burst CounterStats `json:"burst"`
}

// Stats returns the current counter values
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		Daily: CounterStats{Used: m.daily.Used, Limit: m.cfg.DailyLimit, ResetAt: m.daily.ResetAt},
		Burst: CounterStats{Used: m.burst.Used, Limit: m.cfg.BurstLimit, ResetAt: m.burst.ResetAt},
	}
}

// DayUsage aggregates one day of the audit log
type DayUsage struct {
	Date       string         `json:"date"`
	Calls      int            `json:"calls"`
	ByEndpoint map[string]int `json:"by_endpoint"`
}

// Report aggregates audit logs over a date range
type Report struct {
	Days       []DayUsage `json:"days"`
	TotalCalls int        `json:"total_calls"`
}

// UsageReport aggregates the persisted audit logs between start and end
// (inclusive, UTC dates). Days with no log file count as zero usage.
func (m *Monitor) UsageReport(start, end time.Time) (*Report, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("report end %s is before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	report := &Report{}
	for day := start.UTC().Truncate(24 * time.Hour); !day.After(end.UTC()); day = day.Add(24 * time.Hour) {
		date := day.Format("2006-01-02")
		usage := DayUsage{Date: date, ByEndpoint: map[string]int{}}

		f, err := os.Open(m.auditPath(date))
		if err != nil {
			if os.IsNotExist(err) {
				report.Days = append(report.Days, usage)
				continue
			}
			return nil, fmt.Errorf("failed to open audit log for %s: %w", date, err)
		}

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var rec auditRecord
			if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
				continue
			}
			usage.Calls++
			usage.ByEndpoint[rec.Endpoint]++
		}
		err = scanner.Err()
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read audit log for %s: %w", date, err)
		}

		report.Days = append(report.Days, usage)
		report.TotalCalls += usage.Calls
	}

	return report, nil
}

// Close checkpoints the counters and releases the audit log handle
func (m *Monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.persistCheckpointLocked()
	if m.auditFile != nil {
		return m.auditFile.Close()
	}
	return nil
}

func (m *Monitor) evaluateAlertsLocked(window string, used, limit int, l *latches) {
	if limit <= 0 {
		return
	}
	ratio := float64(used) / float64(limit)

	if ratio >= criticalThreshold && !l.critical {
		l.critical = true
		m.logger.Error("quota usage critical",
			zap.String("window", window),
			zap.Int("used", used),
			zap.Int("limit", limit),
		)
		return
	}
	if ratio >= warnThreshold && !l.warned {
		l.warned = true
		m.logger.Warn("quota usage high",
			zap.String("window", window),
			zap.Int("used", used),
			zap.Int("limit", limit),
		)
	}
}

func (m *Monitor) appendAuditLocked(now time.Time, endpoint string) {
	date := now.Format("2006-01-02")
	if m.auditFile == nil || m.auditDay != date {
		if m.auditFile != nil {
			_ = m.auditFile.Close()
		}
		f, err := os.OpenFile(m.auditPath(date), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			m.logger.Error("failed to open quota audit log", zap.Error(err))
			m.auditFile = nil
			return
		}
		m.auditFile = f
		m.auditDay = date
	}

	line, err := json.Marshal(auditRecord{
		Timestamp: now,
		Endpoint:  endpoint,
		DailyUsed: m.daily.Used,
		BurstUsed: m.burst.Used,
	})
	if err != nil {
		return
	}
	if _, err := m.auditFile.Write(append(line, '\n')); err != nil {
		m.logger.Error("failed to append quota audit log", zap.Error(err))
	}
}

func (m *Monitor) persistCheckpointLocked() {
	cp := checkpoint{Daily: m.daily, Burst: m.burst, SavedAt: m.now().UTC()}

	data, err := json.Marshal(cp)
	if err != nil {
		return
	}
	path := filepath.Join(m.cfg.DataDir, checkpointFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		m.logger.Error("failed to persist quota checkpoint", zap.Error(err))
	}
}

func (m *Monitor) loadCheckpoint() (*checkpoint, error) {
	data, err := os.ReadFile(filepath.Join(m.cfg.DataDir, checkpointFile))
	if err != nil {
		return nil, err
	}
	var cp checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (m *Monitor) auditPath(date string) string {
	return filepath.Join(m.cfg.DataDir, auditFilePrefix+date+".log")
}

func nextUTCMidnight(now time.Time) time.Time {
	y, mo, d := now.UTC().Date()
	return time.Date(y, mo, d+1, 0, 0, 0, 0, time.UTC)
}
