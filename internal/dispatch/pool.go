package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/briefing-cli/internal/apperr"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultBatchTimeout   = 30 * time.Second
	DefaultRestartBackoff = 500 * time.Millisecond
	MaxDefaultWorkers     = 4
)

// ErrNotRunning is returned when a batch is submitted to a pool that was
// never started or has been shut down.
var ErrNotRunning = errors.New("dispatch: pool is not running")

// WorkerState is the lifecycle state of one worker slot.
type WorkerState int

const (
	StateIdle WorkerState = iota
	StateBusy
	StateCrashed
)

func (s WorkerState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateBusy:
		return "BUSY"
	case StateCrashed:
		return "CRASHED"
	}
	return fmt.Sprintf("WorkerState(%d)", int(s))
}

// Config sizes the pool.
type Config struct {
	// Workers is the number of worker slots; 0 means min(NumCPU, 4).
	Workers        int
	BatchTimeout   time.Duration
	RestartBackoff time.Duration
}

// DefaultWorkers is min(runtime.NumCPU(), MaxDefaultWorkers).
func DefaultWorkers() int {
	return min(runtime.NumCPU(), MaxDefaultWorkers)
}

// Stats is a point-in-time snapshot of the pool.
type Stats struct {
	Workers   int   `json:"workers"`
	Idle      int   `json:"idle"`
	Busy      int   `json:"busy"`
	Crashed   int   `json:"crashed"`
	Queued    int   `json:"queued"`
	InFlight  int   `json:"inFlight"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Crashes   int64 `json:"crashes"`
	Restarts  int64 `json:"restarts"`
}

type batch struct {
	id        uint64
	ctx       context.Context
	results   []Result
	resolved  []bool
	pending   int
	done      chan struct{}
	abandoned bool
}

// Pool is a fixed set of persistent workers fed from a shared priority queue.
// It is created once, started, reused across requests and shut down
// explicitly.
type Pool struct {
	cfg Config

	mu        sync.Mutex
	cond      *sync.Cond
	queue     taskQueue
	inflight  map[string]*entry
	states    []WorkerState
	running   bool
	closed    bool
	nextBatch uint64

	completed int64
	failed    int64
	crashes   int64
	restarts  int64

	quit chan struct{}
	wg   sync.WaitGroup
}

// New builds a pool. Call Start before submitting batches.
func New(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers()
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}
	if cfg.RestartBackoff <= 0 {
		cfg.RestartBackoff = DefaultRestartBackoff
	}
	p := &Pool{
		cfg:      cfg,
		inflight: make(map[string]*entry),
		states:   make([]WorkerState, cfg.Workers),
		quit:     make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Config returns the effective configuration.
func (p *Pool) Config() Config { return p.cfg }

// Start launches the workers. Starting a running pool is a no-op.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return eris.New("dispatch: pool already shut down")
	}
	if p.running {
		return nil
	}
	p.running = true
	for slot := range p.states {
		p.states[slot] = StateIdle
		p.wg.Add(1)
		go p.work(slot)
	}
	zap.L().Info("dispatch: pool started",
		zap.Int("workers", p.cfg.Workers),
		zap.Duration("batch_timeout", p.cfg.BatchTimeout),
	)
	return nil
}

// Shutdown stops accepting work, fails every queued task and waits for
// in-flight tasks to finish or ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.running = false
	for {
		e, ok := p.queue.pop()
		if !ok {
			break
		}
		p.resolveLocked(e, Result{TaskID: e.task.ID, Kind: e.task.Kind, Worker: -1, Err: ErrNotRunning})
	}
	close(p.quit)
	p.cond.Broadcast()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		zap.L().Info("dispatch: pool stopped")
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "dispatch: shutdown")
	}
}

// ProcessBatch runs tasks on the pool and returns their results in
// submission order once every task resolved. If the batch does not finish
// within the configured timeout, its still-queued tasks are dropped and an
// *apperr.ComputationTimeoutError lists the unresolved task ids; partial
// results are never returned.
func (p *Pool) ProcessBatch(ctx context.Context, tasks []Task) ([]Result, error) {
	if len(tasks) == 0 {
		return []Result{}, nil
	}

	entries := make([]*entry, len(tasks))
	seen := make(map[string]struct{}, len(tasks))
	for i, t := range tasks {
		if t.ID == "" {
			t.ID = fmt.Sprintf("%s-%d", t.Kind, i)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, eris.Errorf("dispatch: duplicate task id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
		entries[i] = &entry{task: t, index: i}
	}

	bctx, cancel := context.WithTimeout(ctx, p.cfg.BatchTimeout)
	defer cancel()

	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil, ErrNotRunning
	}
	p.nextBatch++
	b := &batch{
		id:       p.nextBatch,
		ctx:      bctx,
		results:  make([]Result, len(tasks)),
		resolved: make([]bool, len(tasks)),
		pending:  len(tasks),
		done:     make(chan struct{}),
	}
	for _, e := range entries {
		e.batch = b
		e.key = fmt.Sprintf("%d/%s", b.id, e.task.ID)
		p.queue.push(e)
	}
	p.cond.Broadcast()
	p.mu.Unlock()

	zap.L().Debug("dispatch: batch submitted", zap.Uint64("batch", b.id), zap.Int("tasks", len(tasks)))

	select {
	case <-b.done:
		return b.results, nil
	case <-bctx.Done():
	}

	p.mu.Lock()
	select {
	case <-b.done:
		p.mu.Unlock()
		return b.results, nil
	default:
	}
	b.abandoned = true
	dropped := p.queue.drop(b)
	var unresolved []string
	for i, ok := range b.resolved {
		if !ok {
			unresolved = append(unresolved, entries[i].task.ID)
		}
	}
	p.mu.Unlock()

	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, eris.Wrap(ctx.Err(), "dispatch: batch cancelled")
	}
	zap.L().Warn("dispatch: batch timed out",
		zap.Uint64("batch", b.id),
		zap.Int("unresolved", len(unresolved)),
		zap.Int("dropped", len(dropped)),
		zap.Strings("task_ids", unresolved),
	)
	return nil, &apperr.ComputationTimeoutError{
		Unresolved: unresolved,
		Timeout:    p.cfg.BatchTimeout.String(),
	}
}

// Stats returns a snapshot of worker states and counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		Workers:   len(p.states),
		Queued:    p.queue.len(),
		InFlight:  len(p.inflight),
		Completed: p.completed,
		Failed:    p.failed,
		Crashes:   p.crashes,
		Restarts:  p.restarts,
	}
	for _, st := range p.states {
		switch st {
		case StateIdle:
			s.Idle++
		case StateBusy:
			s.Busy++
		case StateCrashed:
			s.Crashed++
		}
	}
	return s
}

func (p *Pool) work(slot int) {
	defer p.wg.Done()
	for {
		e, ok := p.next(slot)
		if !ok {
			return
		}
		res, crashed := p.execute(slot, e)
		p.complete(slot, e, res, crashed)
		if crashed {
			p.wg.Add(1)
			go p.restart(slot)
			return
		}
	}
}

func (p *Pool) next(slot int) (*entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.queue.len() == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.closed {
		return nil, false
	}
	e, _ := p.queue.pop()
	p.inflight[e.key] = e
	p.states[slot] = StateBusy
	return e, true
}

func (p *Pool) execute(slot int, e *entry) (res Result, crashed bool) {
	res = Result{TaskID: e.task.ID, Kind: e.task.Kind, Worker: slot}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if r := recover(); r != nil {
			crashed = true
			res.Success = false
			res.Value = nil
			res.Err = &PanicError{TaskID: e.task.ID, Value: r}
		}
	}()

	if e.task.Run == nil {
		res.Err = eris.Errorf("dispatch: task %s has no body", e.task.ID)
		return res, false
	}
	v, err := e.task.Run(e.batch.ctx)
	if err != nil {
		res.Err = err
		return res, false
	}
	res.Success = true
	res.Value = v
	return res, false
}

func (p *Pool) complete(slot int, e *entry, res Result, crashed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.inflight, e.key)
	if crashed {
		p.states[slot] = StateCrashed
		p.crashes++
		zap.L().Warn("dispatch: worker crashed",
			zap.Int("worker", slot),
			zap.String("task_id", e.task.ID),
			zap.String("kind", string(e.task.Kind)),
			zap.Error(res.Err),
		)
	} else {
		p.states[slot] = StateIdle
	}
	p.resolveLocked(e, res)
}

// resolveLocked records res in its batch slot. Caller holds p.mu.
func (p *Pool) resolveLocked(e *entry, res Result) {
	if res.Success {
		p.completed++
	} else {
		p.failed++
	}
	b := e.batch
	if b.abandoned || b.resolved[e.index] {
		return
	}
	b.results[e.index] = res
	b.resolved[e.index] = true
	b.pending--
	if b.pending == 0 {
		close(b.done)
	}
}

// restart recreates a crashed worker slot after the back-off.
func (p *Pool) restart(slot int) {
	defer p.wg.Done()

	timer := time.NewTimer(p.cfg.RestartBackoff)
	defer timer.Stop()
	select {
	case <-p.quit:
		return
	case <-timer.C:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.states[slot] = StateIdle
	p.restarts++
	p.wg.Add(1)
	p.mu.Unlock()

	zap.L().Info("dispatch: worker restarted", zap.Int("worker", slot))
	go p.work(slot)
}
