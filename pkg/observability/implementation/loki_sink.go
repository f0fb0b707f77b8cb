package implementation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jt828/users-api/pkg/circuitbreaker"
	cbImpl "github.com/jt828/users-api/pkg/circuitbreaker/implementation"
	"github.com/jt828/users-api/pkg/observability"
	"github.com/jt828/users-api/pkg/retry"
	retryImpl "github.com/jt828/users-api/pkg/retry/implementation"
	"github.com/sony/gobreaker/v2"
)

const lokiPushPath = "/loki/api/v1/push"

type LokiConfig struct {
	URL           string
	Labels        map[string]string
	BatchInterval time.Duration
	BasicAuth     string
	MaxPending    int
	Timeout       time.Duration
	Retries       uint64
	RetryInterval time.Duration
}

func (c LokiConfig) withDefaults() LokiConfig {
	if c.BatchInterval <= 0 {
		c.BatchInterval = 5 * time.Second
	}
	if c.MaxPending <= 0 {
		c.MaxPending = 10000
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 200 * time.Millisecond
	}
	return c
}

type lokiEntry struct {
	ts   time.Time
	line string
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

type lokiPushRequest struct {
	Streams []lokiStream `json:"streams"`
}

type lokiStatusError struct {
	code int
	body string
}

func (e *lokiStatusError) Error() string {
	return fmt.Sprintf("loki push: unexpected status %d: %s", e.code, e.body)
}

// LokiSink buffers encoded log lines and ships them to a Loki push endpoint
// in batches. Write never fails and never blocks on the network; delivery is
// best-effort and happens on the flush loop or on Close.
type LokiSink struct {
	cfg      LokiConfig
	endpoint string
	client   *http.Client
	cb       circuitbreaker.CircuitBreaker
	retry    retry.Retry
	onError  func(error)

	pushed   observability.Counter
	dropped  observability.Counter
	failures observability.Counter
	pendingG observability.Gauge

	// mu guards pending and orders every pendingG update with it.
	mu      sync.Mutex
	pending []lokiEntry

	flushMu   sync.Mutex
	startOnce sync.Once
	closeOnce sync.Once
	started   bool
	stop      chan struct{}
	done      chan struct{}
}

func NewLokiSink(cfg LokiConfig, meter observability.Meter, onError func(error)) (*LokiSink, error) {
	cfg = cfg.withDefaults()
	if cfg.URL == "" {
		return nil, errors.New("loki: url is required")
	}
	if onError == nil {
		onError = func(error) {}
	}

	pushed, err := meter.Counter("log_shipper_pushed_entries_total", observability.MetricOpt{
		Help: "Total number of log entries delivered to the remote collector",
	})
	if err != nil {
		return nil, err
	}
	dropped, err := meter.Counter("log_shipper_dropped_entries_total", observability.MetricOpt{
		Help:      "Total number of log entries dropped before delivery",
		LabelKeys: []string{"reason"},
	})
	if err != nil {
		return nil, err
	}
	failures, err := meter.Counter("log_shipper_push_failures_total", observability.MetricOpt{
		Help: "Total number of failed pushes to the remote collector",
	})
	if err != nil {
		return nil, err
	}
	pendingG, err := meter.Gauge("log_shipper_pending_entries", observability.MetricOpt{
		Help: "Number of log entries waiting for the next flush",
	})
	if err != nil {
		return nil, err
	}

	circuitState, err := CircuitStateGauge(meter, "log_shipper_circuit_state")
	if err != nil {
		return nil, err
	}

	cb := cbImpl.NewCircuitBreaker(gobreaker.Settings{
		Name: "loki",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		Timeout: 30 * time.Second,
	}, circuitState)

	r := retryImpl.NewRetry(cfg.Retries, retry.WithInterval(cfg.RetryInterval), retry.WithRetryable(func(err error) bool {
		var se *lokiStatusError
		if errors.As(err, &se) {
			return se.code == http.StatusTooManyRequests || se.code >= http.StatusInternalServerError
		}
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}))

	return &LokiSink{
		cfg:      cfg,
		endpoint: strings.TrimRight(cfg.URL, "/") + lokiPushPath,
		client:   &http.Client{Timeout: cfg.Timeout},
		cb:       cb,
		retry:    r,
		onError:  onError,
		pushed:   pushed,
		dropped:  dropped,
		failures: failures,
		pendingG: pendingG,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Write implements zapcore.WriteSyncer. p is copied since zap reuses its buffers.
func (s *LokiSink) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")
	if line == "" {
		return len(p), nil
	}

	s.mu.Lock()
	overflow := 0
	if len(s.pending) >= s.cfg.MaxPending {
		overflow = len(s.pending) - s.cfg.MaxPending + 1
		s.pending = append(s.pending[:0], s.pending[overflow:]...)
	}
	s.pending = append(s.pending, lokiEntry{ts: time.Now(), line: line})
	s.pendingG.Set(float64(len(s.pending)))
	s.mu.Unlock()

	if overflow > 0 {
		s.dropped.Inc(float64(overflow), observability.Label{Key: "reason", Value: "buffer_full"})
	}
	return len(p), nil
}

// Sync is a no-op: zap calls it on the request path and delivery must not
// block there. Use Flush or Close to force delivery.
func (s *LokiSink) Sync() error {
	return nil
}

func (s *LokiSink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *LokiSink) Start() {
	s.startOnce.Do(func() {
		s.mu.Lock()
		s.started = true
		s.mu.Unlock()
		go s.run()
	})
}

func (s *LokiSink) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.BatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
			if err := s.Flush(ctx); err != nil {
				s.onError(err)
			}
			cancel()
		}
	}
}

// Flush takes every pending entry and pushes it as one batch. Entries taken
// by a failed flush are dropped, not requeued.
func (s *LokiSink) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.pendingG.Set(0)
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.retry.Execute(ctx, func() error {
			return s.push(ctx, batch)
		})
	})
	if err != nil {
		reason := "push_failed"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			reason = "circuit_open"
		} else {
			s.failures.Inc(1)
		}
		s.dropped.Inc(float64(len(batch)), observability.Label{Key: "reason", Value: reason})
		return fmt.Errorf("loki flush of %d entries: %w", len(batch), err)
	}

	s.pushed.Inc(float64(len(batch)))
	return nil
}

// Close stops the flush loop and makes a final delivery attempt bounded by ctx.
func (s *LokiSink) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()

		if started {
			close(s.stop)
			select {
			case <-s.done:
			case <-ctx.Done():
				err = ctx.Err()
				return
			}
		}
		err = s.Flush(ctx)
	})
	return err
}

func (s *LokiSink) push(ctx context.Context, batch []lokiEntry) error {
	values := make([][2]string, len(batch))
	for i, e := range batch {
		values[i] = [2]string{strconv.FormatInt(e.ts.UnixNano(), 10), e.line}
	}

	body, err := json.Marshal(lokiPushRequest{
		Streams: []lokiStream{{Stream: s.cfg.Labels, Values: values}},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.BasicAuth != "" {
		user, pass, _ := strings.Cut(s.cfg.BasicAuth, ":")
		req.SetBasicAuth(user, pass)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &lokiStatusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
