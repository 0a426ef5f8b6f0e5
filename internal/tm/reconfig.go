package tm

import (
	"context"
	"time"

	"github.com/klagrassa/prog-tm-bmv2/internal/action"
	"github.com/klagrassa/prog-tm-bmv2/internal/hierarchy"
	"github.com/klagrassa/prog-tm-bmv2/internal/log"
	"github.com/klagrassa/prog-tm-bmv2/internal/metrics"
)

// DefaultDrainWarnAfter is how long the reconfiguration supervisor waits
// for the packet pool to drain before logging a warning. It never aborts
// the wait: the drain itself stays unbounded by design (a stuck pool
// indicates an upstream bug), this is observability only.
const DefaultDrainWarnAfter = 30 * time.Second

// ReconfigOptions parameterises the reconfiguration supervisor.
type ReconfigOptions struct {
	Actions        *action.Table
	ParamsByNode   map[int]map[int][]int64
	DebugDir       string
	DrainWarnAfter time.Duration
}

// RunSupervisor is the long-lived reconfiguration supervisor loop attached
// to the traffic manager. It consumes candidate specs delivered by the
// configuration server (already parsed; a parse failure never reaches this
// channel, per the server's own drop-and-log policy) and, for each one,
// runs the quiesce/swap/resume sequence of the specification's §4.5.
//
// Only one reconfiguration may be in flight; specs is expected to be a
// small-capacity channel (the listener's backlog), so multiple
// near-simultaneous deliveries queue and are processed serially here.
func (t *TrafficManager) RunSupervisor(ctx context.Context, specs <-chan *hierarchy.Spec, opts ReconfigOptions) {
	warnAfter := opts.DrainWarnAfter
	if warnAfter <= 0 {
		warnAfter = DefaultDrainWarnAfter
	}
	logger := log.FromCtx(ctx).New("worker", "reconfig_supervisor")
	logger.Info("reconfiguration supervisor starting")
	defer logger.Info("reconfiguration supervisor stopping")
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		case spec := <-specs:
			t.reconfigure(ctx, logger, spec, opts, warnAfter)
		}
	}
}

func (t *TrafficManager) reconfigure(
	ctx context.Context,
	logger log.Logger,
	spec *hierarchy.Spec,
	opts ReconfigOptions,
	warnAfter time.Duration,
) {
	ctx, span := log.StartSpan(ctx, "tm.reconfigure")
	defer span.Finish()
	logger = log.AttachSpan(ctx, logger)

	candidate, err := hierarchy.Build(spec, hierarchy.BuildOptions{
		Actions:      opts.Actions,
		ParamsByNode: opts.ParamsByNode,
		DebugDir:     opts.DebugDir,
	})
	if err != nil {
		logger.Error("failed to build candidate hierarchy", "err", err.Error())
		metrics.ReconfigurationsTotal.WithLabelValues("build_error").Inc()
		return
	}

	// Step 3: close the enqueue gate. No new enqueues are accepted; callers
	// already in TM.Enqueue block on the gate's condition variable.
	t.mu.Lock()
	t.readyToEnqueue = false
	t.mu.Unlock()

	// Step 4: wait for every in-flight payload to drain.
	start := time.Now()
	drained := t.waitDrainWithWarning(logger, warnAfter)
	metrics.ReconfigurationDrainSeconds.Observe(drained.Seconds())

	// Step 5: atomically publish the candidate hierarchy. Node workers for
	// the candidate must already be running before publication, so that an
	// enqueue routed to it the instant the gate reopens has somewhere to
	// land.
	candidate.SetTMQueue(t.taskQueue)
	candidate.Start(ctx)
	old := t.active.Swap(candidate)

	// Step 6: the action table was installed into the candidate at Build
	// time (action.Table.Require is checked per node before any worker
	// starts), so there is nothing further to install here; this step is a
	// no-op by construction rather than a separate pass.

	// Step 7: reopen the gate.
	t.mu.Lock()
	t.readyToEnqueue = true
	t.mu.Unlock()
	t.readyCond.Broadcast()

	if old != nil {
		old.Stop()
	}

	metrics.ReconfigurationsTotal.WithLabelValues("ok").Inc()
	metrics.ReconfigurationDurationSeconds.Observe(time.Since(start).Seconds())
	logger.Info("reconfiguration complete", "nodes", len(candidate.Nodes()))
}

// waitDrainWithWarning blocks until the pool is empty, logging a warning
// (and nothing more — the wait itself never gives up) if it takes longer
// than warnAfter.
func (t *TrafficManager) waitDrainWithWarning(logger log.Logger, warnAfter time.Duration) time.Duration {
	start := time.Now()
	done := make(chan struct{})
	go func() {
		t.pool.WaitEmpty()
		close(done)
	}()
	select {
	case <-done:
		return time.Since(start)
	case <-time.After(warnAfter):
		logger.Warn("pool drain exceeded warn threshold, still waiting", "waited", time.Since(start).String())
	}
	<-done
	return time.Since(start)
}
