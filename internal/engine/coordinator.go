// Package engine runs agent-creation workflows. The coordinator owns every
// workflow's lifecycle: it sequences the fixed stage pipeline, applies the
// retry policy, parks workflows for human validation and fans progress out to
// subscribers. Exactly one goroutine mutates a given workflow; API calls from
// other goroutines observe the store or signal the owning goroutine, never
// write workflow state themselves.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/voxlane/voxlane/internal/classify"
	"github.com/voxlane/voxlane/internal/knowledge"
	"github.com/voxlane/voxlane/internal/progress"
	"github.com/voxlane/voxlane/internal/stages"
	"github.com/voxlane/voxlane/internal/tenant"
	"github.com/voxlane/voxlane/internal/types"
)

// RetryPolicy bounds per-stage retries with exponential backoff.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is three attempts with delays of 1s and 2s between them,
// capped at 30s.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   time.Second,
	Factor:      2,
	MaxDelay:    30 * time.Second,
}

// Delay returns the backoff before the attempt following failedAttempts.
func (p RetryPolicy) Delay(failedAttempts int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < failedAttempts; i++ {
		d = time.Duration(float64(d) * p.Factor)
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Options tunes coordinator behavior. The zero value picks sane defaults.
type Options struct {
	Retry RetryPolicy
	// Sleep waits for the backoff delay. Tests inject an instant sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

type resumeSignal struct {
	abort       bool
	corrections map[string]knowledge.CategoryData
}

// errAborted signals a retry loop cut short by a concurrent abort.
var errAborted = errors.New("workflow aborted")

// run is the coordinator-side handle for one live workflow goroutine. The
// resume channel covers the parked validation wait; decided claims the single
// reviewer decision a workflow will ever accept; the aborted flag covers the
// race where an abort lands while a stage retry loop is still spinning.
type run struct {
	resume  chan resumeSignal
	decided atomic.Bool
	aborted atomic.Bool
}

// Coordinator drives agent-creation workflows end to end.
type Coordinator struct {
	store      Store
	guard      *tenant.Guard
	broker     *progress.Broker
	classifier stages.Executor
	extractor  stages.Executor
	deployer   stages.Executor
	retry      RetryPolicy
	sleep      func(ctx context.Context, d time.Duration) error

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu   sync.Mutex
	runs map[uuid.UUID]*run
}

// New creates a coordinator over the store and the three computational stage
// executors.
func New(store Store, classifier, extractor, deployer stages.Executor, opts *Options) *Coordinator {
	retry := DefaultRetryPolicy
	sleep := sleepWithContext
	if opts != nil {
		if opts.Retry.MaxAttempts > 0 {
			retry = opts.Retry
		}
		if opts.Sleep != nil {
			sleep = opts.Sleep
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		store:      store,
		guard:      tenant.NewGuard(),
		broker:     progress.NewBroker(),
		classifier: classifier,
		extractor:  extractor,
		deployer:   deployer,
		retry:      retry,
		sleep:      sleep,
		baseCtx:    ctx,
		cancel:     cancel,
		runs:       make(map[uuid.UUID]*run),
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit accepts a new agent-creation request for the tenant and starts its
// workflow. It returns as soon as the workflow is persisted; execution
// continues in the background.
func (c *Coordinator) Submit(ctx context.Context, tenantID string, req *types.CreateAgentRequest) (*types.Workflow, error) {
	if tenantID == "" {
		return nil, &ValidationError{Message: "missing tenant"}
	}
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Message: "invalid agent request", Cause: err}
	}

	now := time.Now().UTC()
	wf := &types.Workflow{
		ID:           uuid.New(),
		TenantID:     tenantID,
		BusinessURL:  req.BusinessURL,
		AgentName:    agentName(req),
		AreaCode:     req.AreaCode,
		CurrentStage: types.StageCreated,
		Status:       types.StatusRunning,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.store.CreateWorkflow(ctx, wf); err != nil {
		return nil, fmt.Errorf("failed to persist workflow: %w", err)
	}

	r := &run{resume: make(chan resumeSignal, 1)}
	c.mu.Lock()
	c.runs[wf.ID] = r
	c.mu.Unlock()
	c.broker.OpenTopic(wf.ID)

	started := *wf
	c.wg.Add(1)
	go c.execute(&started, r)

	return wf, nil
}

func agentName(req *types.CreateAgentRequest) string {
	if req.AgentName != "" {
		return req.AgentName
	}
	if u, err := url.Parse(req.BusinessURL); err == nil && u.Hostname() != "" {
		return u.Hostname() + " agent"
	}
	return "voice agent"
}

// GetWorkflow returns the workflow if it belongs to the tenant. A workflow
// owned by another tenant is reported as not found.
func (c *Coordinator) GetWorkflow(ctx context.Context, tenantID string, id uuid.UUID) (*types.Workflow, error) {
	return c.authorized(ctx, tenantID, id)
}

// ListWorkflows returns the tenant's workflows, newest first.
func (c *Coordinator) ListWorkflows(ctx context.Context, tenantID string) ([]types.Workflow, error) {
	return c.store.ListWorkflows(ctx, tenantID)
}

// GetSnapshot returns the workflow's current knowledge snapshot.
func (c *Coordinator) GetSnapshot(ctx context.Context, tenantID string, id uuid.UUID) (*knowledge.Snapshot, error) {
	if _, err := c.authorized(ctx, tenantID, id); err != nil {
		return nil, err
	}
	return c.store.GetSnapshot(ctx, id)
}

// ListStageRecords returns the workflow's stage attempt history.
func (c *Coordinator) ListStageRecords(ctx context.Context, tenantID string, id uuid.UUID) ([]types.StageRecord, error) {
	if _, err := c.authorized(ctx, tenantID, id); err != nil {
		return nil, err
	}
	return c.store.ListStageRecords(ctx, id)
}

// SubmitValidation resumes a workflow parked for human validation. The
// corrections are checked in full before anything is applied; a rejected
// submission leaves the snapshot untouched and the workflow still waiting.
func (c *Coordinator) SubmitValidation(ctx context.Context, tenantID string, id uuid.UUID, corrections map[string]knowledge.CategoryData) error {
	for name := range corrections {
		if !knowledge.ValidCategory(name) {
			return &ValidationError{Message: fmt.Sprintf("unknown knowledge category: %s", name)}
		}
	}
	return c.signal(ctx, tenantID, id, "validate", resumeSignal{corrections: corrections})
}

// Abort cancels a workflow parked for human validation. Workflows in any
// other state cannot be aborted.
func (c *Coordinator) Abort(ctx context.Context, tenantID string, id uuid.UUID) error {
	return c.signal(ctx, tenantID, id, "abort", resumeSignal{abort: true})
}

func (c *Coordinator) signal(ctx context.Context, tenantID string, id uuid.UUID, action string, sig resumeSignal) error {
	wf, err := c.authorized(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if wf.Status != types.StatusWaitingOnUser {
		return &InvalidStateError{WorkflowID: id, Status: wf.Status, Stage: wf.CurrentStage, Action: action}
	}

	c.mu.Lock()
	r, ok := c.runs[id]
	c.mu.Unlock()
	if !ok {
		return &InvalidStateError{WorkflowID: id, Status: wf.Status, Stage: wf.CurrentStage, Action: action}
	}

	// The first reviewer decision wins. Claiming it here also rejects a
	// decision arriving after the run goroutine consumed the first one but
	// before it persisted the transition; the stale store status would
	// otherwise let it queue on the channel unread.
	if !r.decided.CompareAndSwap(false, true) {
		return &InvalidStateError{WorkflowID: id, Status: wf.Status, Stage: wf.CurrentStage, Action: action}
	}
	if sig.abort {
		r.aborted.Store(true)
	}
	// Buffered channel, exactly one winner of the swap, so this never blocks.
	r.resume <- sig
	return nil
}

// Subscribe attaches to the workflow's progress topic. Terminal workflows
// have no topic and return progress.ErrNoTopic.
func (c *Coordinator) Subscribe(ctx context.Context, tenantID string, id uuid.UUID) (<-chan types.ProgressEvent, func(), error) {
	if _, err := c.authorized(ctx, tenantID, id); err != nil {
		return nil, nil, err
	}
	return c.broker.Subscribe(id)
}

// Shutdown stops accepting work and waits for live workflows to park or
// finish, up to the context deadline.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.cancel()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) authorized(ctx context.Context, tenantID string, id uuid.UUID) (*types.Workflow, error) {
	wf, err := c.store.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.guard.Authorize(wf.TenantID, tenantID); err != nil {
		// Indistinguishable from a workflow that does not exist.
		return nil, &NotFoundError{Resource: "workflow", ID: id.String()}
	}
	return wf, nil
}

// execute owns one workflow from acceptance to a terminal state. It is the
// only goroutine that writes the workflow.
func (c *Coordinator) execute(wf *types.Workflow, r *run) {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		delete(c.runs, wf.ID)
		c.mu.Unlock()
		c.broker.CloseTopic(wf.ID)
	}()

	ctx := c.baseCtx
	sc := &stages.Context{Workflow: *wf}
	c.publish(wf, "workflow accepted")

	res, err := c.runStage(ctx, wf, c.classifier, sc, r)
	if err != nil {
		c.finish(ctx, wf, err)
		return
	}
	classification, ok := res.Payload.(*classify.Result)
	if !ok {
		c.fail(ctx, wf, fmt.Errorf("classification produced unexpected payload %T", res.Payload))
		return
	}
	sc.Classification = classification

	res, err = c.runStage(ctx, wf, c.extractor, sc, r)
	if err != nil {
		c.finish(ctx, wf, err)
		return
	}
	snapshot, ok := res.Payload.(*knowledge.Snapshot)
	if !ok {
		c.fail(ctx, wf, fmt.Errorf("extraction produced unexpected payload %T", res.Payload))
		return
	}
	if err := c.store.SaveSnapshot(ctx, wf.ID, snapshot); err != nil {
		c.fail(ctx, wf, fmt.Errorf("failed to persist knowledge snapshot: %w", err))
		return
	}
	sc.Snapshot = snapshot

	c.transition(ctx, wf, types.StageAwaitingValidation, types.StatusWaitingOnUser)
	c.publish(wf, "knowledge snapshot ready for review")

	sig, ok := c.awaitResume(ctx, r)
	if !ok {
		// Coordinator is shutting down. The workflow stays parked in the
		// store and can be resumed by a future process.
		log.Printf("workflow %s left waiting on user during shutdown", wf.ID)
		return
	}
	if sig.abort {
		c.markAborted(ctx, wf)
		return
	}
	if len(sig.corrections) > 0 {
		if err := snapshot.ApplyCorrections(sig.corrections); err != nil {
			c.fail(ctx, wf, fmt.Errorf("failed to apply reviewer corrections: %w", err))
			return
		}
		if err := c.store.SaveSnapshot(ctx, wf.ID, snapshot); err != nil {
			c.fail(ctx, wf, fmt.Errorf("failed to persist corrected snapshot: %w", err))
			return
		}
	}

	res, err = c.runStage(ctx, wf, c.deployer, sc, r)
	if err != nil {
		c.finish(ctx, wf, err)
		return
	}
	result, ok := res.Payload.(*types.DeploymentResult)
	if !ok {
		c.fail(ctx, wf, fmt.Errorf("deployment produced unexpected payload %T", res.Payload))
		return
	}

	wf.Result = result
	wf.Status = types.StatusSucceeded
	wf.UpdatedAt = time.Now().UTC()
	if err := c.store.UpdateWorkflow(ctx, wf); err != nil {
		log.Printf("failed to persist success for workflow %s: %v", wf.ID, err)
	}
	c.publish(wf, fmt.Sprintf("agent deployed at %s", result.PhoneNumber))
}

// awaitResume parks the goroutine until a reviewer decision arrives or the
// coordinator shuts down.
func (c *Coordinator) awaitResume(ctx context.Context, r *run) (resumeSignal, bool) {
	select {
	case sig := <-r.resume:
		return sig, true
	case <-ctx.Done():
		return resumeSignal{}, false
	}
}

// runStage transitions the workflow into the executor's stage and drives it
// through the retry policy. Retryable failures back off exponentially; the
// final error of an exhausted stage is returned as-is.
func (c *Coordinator) runStage(ctx context.Context, wf *types.Workflow, exec stages.Executor, sc *stages.Context, r *run) (*stages.Result, error) {
	c.transition(ctx, wf, exec.Stage(), types.StatusRunning)
	c.publish(wf, "")
	sc.Workflow = *wf

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		started := time.Now().UTC()
		res, err := exec.Execute(ctx, sc)
		completed := time.Now().UTC()

		rec := &types.StageRecord{
			ID:          uuid.New(),
			WorkflowID:  wf.ID,
			Stage:       exec.Stage(),
			Attempt:     attempt,
			StartedAt:   started,
			CompletedAt: completed,
		}

		if err == nil {
			rec.Outcome = types.OutcomeOK
			if payload, merr := json.Marshal(res.Payload); merr == nil {
				rec.Payload = payload
			}
			c.appendRecord(ctx, rec)
			return res, nil
		}

		lastErr = err
		rec.ErrorDetail = err.Error()

		var retryable *stages.RetryableError
		if errors.As(err, &retryable) {
			rec.Outcome = types.OutcomeRetryableError
			c.appendRecord(ctx, rec)
			if attempt == c.retry.MaxAttempts {
				break
			}
			log.Printf("workflow %s stage %s attempt %d failed, retrying: %v", wf.ID, exec.Stage(), attempt, err)
			if serr := c.sleep(ctx, c.retry.Delay(attempt)); serr != nil {
				return nil, lastErr
			}
			// An abort that raced with this retry loop takes effect here,
			// before the next attempt touches any external service.
			if r.aborted.Load() {
				return nil, errAborted
			}
			continue
		}

		rec.Outcome = types.OutcomeFatalError
		c.appendRecord(ctx, rec)
		return nil, err
	}
	return nil, lastErr
}

func (c *Coordinator) appendRecord(ctx context.Context, rec *types.StageRecord) {
	if err := c.store.AppendStageRecord(ctx, rec); err != nil {
		log.Printf("failed to persist stage record for workflow %s stage %s: %v", rec.WorkflowID, rec.Stage, err)
	}
}

func (c *Coordinator) transition(ctx context.Context, wf *types.Workflow, stage types.Stage, status types.Status) {
	wf.CurrentStage = stage
	wf.Status = status
	wf.UpdatedAt = time.Now().UTC()
	if err := c.store.UpdateWorkflow(ctx, wf); err != nil {
		log.Printf("failed to persist transition for workflow %s to %s: %v", wf.ID, stage, err)
	}
}

// finish resolves a stage error into the workflow's terminal state. An abort
// observed mid-retry ends the workflow as aborted rather than failed.
func (c *Coordinator) finish(ctx context.Context, wf *types.Workflow, cause error) {
	if errors.Is(cause, errAborted) {
		c.markAborted(ctx, wf)
		return
	}
	c.fail(ctx, wf, cause)
}

func (c *Coordinator) markAborted(ctx context.Context, wf *types.Workflow) {
	wf.Status = types.StatusAborted
	wf.UpdatedAt = time.Now().UTC()
	if err := c.store.UpdateWorkflow(ctx, wf); err != nil {
		log.Printf("failed to persist abort for workflow %s: %v", wf.ID, err)
	}
	c.publish(wf, "workflow aborted by reviewer")
}

func (c *Coordinator) fail(ctx context.Context, wf *types.Workflow, cause error) {
	wf.Status = types.StatusFailed
	wf.ErrorDetail = cause.Error()
	wf.UpdatedAt = time.Now().UTC()
	if err := c.store.UpdateWorkflow(ctx, wf); err != nil {
		log.Printf("failed to persist failure for workflow %s: %v", wf.ID, err)
	}
	log.Printf("workflow %s failed at stage %s: %v", wf.ID, wf.CurrentStage, cause)
	c.publish(wf, "workflow failed")
}

// stagePercent maps stages to a coarse progress figure for subscribers.
func stagePercent(wf *types.Workflow) int {
	if wf.Status.Terminal() {
		return 100
	}
	switch wf.CurrentStage {
	case types.StageCreated:
		return 5
	case types.StageClassifying:
		return 15
	case types.StageExtracting:
		return 40
	case types.StageAwaitingValidation:
		return 65
	case types.StageDeploying:
		return 85
	default:
		return 0
	}
}

func (c *Coordinator) publish(wf *types.Workflow, detail string) {
	c.broker.Publish(wf.ID, types.ProgressEvent{
		WorkflowID: wf.ID,
		Stage:      wf.CurrentStage,
		Percent:    stagePercent(wf),
		Timestamp:  time.Now().UTC(),
		Detail:     detail,
	})
}
