// Package engine orchestrates one event's journey from classification through
// recipient resolution and template selection to dispatch or deferral.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"tribunal-notifier/classify"
	"tribunal-notifier/hours"
	"tribunal-notifier/pkg/notify"
	"tribunal-notifier/resolve"
	"tribunal-notifier/template"
)

// deferredGroup is the group key prefix for jobs that only exist to move an
// immediate notification past a delay or the out-of-hours window.
const deferredGroup = "deferred:"

// Scheduler is the job-scheduling port.
type Scheduler interface {
	Schedule(ctx context.Context, caseID, groupKey string, role notify.Role, triggerAt time.Time, event string, payload []byte) (*notify.ScheduledJob, error)
	CancelGroup(ctx context.Context, caseID, groupKey string) int
}

// Dispatcher hands finished plans to the delivery provider.
type Dispatcher interface {
	Dispatch(ctx context.Context, plan *notify.DispatchPlan, snap *notify.CaseSnapshot) []notify.DispatchResult
}

// SnapshotSource reads the current case snapshot, used when a job fires so
// recipients are re-resolved against fresh case facts rather than the facts
// captured at scheduling time.
type SnapshotSource interface {
	Snapshot(ctx context.Context, caseID string) (*notify.CaseSnapshot, error)
}

// Clock abstracts time for the out-of-hours gate and reminder arithmetic.
type Clock interface {
	Now() time.Time
}

// Engine processes case events into dispatched or scheduled notifications.
type Engine struct {
	scheduler  Scheduler
	dispatcher Dispatcher
	snapshots  SnapshotSource // may be nil; job payloads then carry the snapshot
	window     *hours.Window
	clock      Clock
	logger     *slog.Logger
}

// Config holds engine dependencies.
type Config struct {
	Scheduler  Scheduler
	Dispatcher Dispatcher
	Snapshots  SnapshotSource
	Window     *hours.Window
	Clock      Clock
	Logger     *slog.Logger
}

// New creates an engine.
func New(cfg *Config) *Engine {
	return &Engine{
		scheduler:  cfg.Scheduler,
		dispatcher: cfg.Dispatcher,
		snapshots:  cfg.Snapshots,
		window:     cfg.Window,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}
}

// Process handles one inbound case event synchronously. An unknown raw event
// identifier or a resolution that reaches nobody yields an empty result, not
// an error.
func (e *Engine) Process(ctx context.Context, rawEventID string, oldState notify.CaseState, snap *notify.CaseSnapshot) ([]notify.DispatchResult, error) {
	events := classify.Classify(rawEventID, oldState)
	if len(events) == 0 {
		e.logger.Debug("Event classifies to nothing", "case_id", snap.CaseID, "event", rawEventID)
		return nil, nil
	}

	var results []notify.DispatchResult
	for _, et := range events {
		r, err := e.processType(ctx, et, snap, false)
		if err != nil {
			return results, err
		}
		results = append(results, r...)
	}
	return results, nil
}

// Replay re-runs a reminder-class event through the normal path on behalf of
// the scheduler's administrative surface. Delay timers are not re-applied.
func (e *Engine) Replay(ctx context.Context, rawEventID string, snap *notify.CaseSnapshot) ([]notify.DispatchResult, error) {
	events := classify.Classify(rawEventID, "")
	if len(events) == 0 {
		return nil, nil
	}

	var results []notify.DispatchResult
	for _, et := range events {
		r, err := e.processType(ctx, et, snap, true)
		if err != nil {
			return results, err
		}
		results = append(results, r...)
	}
	return results, nil
}

// OnFire is the scheduler's firing callback. The job's event is re-resolved
// against the current case snapshot; if nobody qualifies any more the firing
// is a no-op.
func (e *Engine) OnFire(ctx context.Context, job notify.ScheduledJob) error {
	et := classify.EventType(job.Event)
	if !classify.Known(et) {
		e.logger.Warn("Fired job carries unknown event type", "job_id", job.ID, "event", job.Event)
		return nil
	}

	snap, err := e.fireSnapshot(ctx, job)
	if err != nil {
		return fmt.Errorf("read case snapshot for fired job: %w", err)
	}

	_, err = e.processType(ctx, et, snap, true)
	return err
}

// fireSnapshot prefers a fresh read of the case over the snapshot serialized
// into the job at scheduling time.
func (e *Engine) fireSnapshot(ctx context.Context, job notify.ScheduledJob) (*notify.CaseSnapshot, error) {
	if e.snapshots != nil {
		snap, err := e.snapshots.Snapshot(ctx, job.CaseID)
		if err == nil {
			return snap, nil
		}
		e.logger.Warn("Fresh snapshot read failed, falling back to job payload",
			"job_id", job.ID, "case_id", job.CaseID, "error", err)
	}

	if len(job.Payload) == 0 {
		return nil, fmt.Errorf("no snapshot source and no payload for job %s", job.ID)
	}
	var snap notify.CaseSnapshot
	if err := json.Unmarshal(job.Payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal job payload: %w", err)
	}
	return &snap, nil
}

func (e *Engine) processType(ctx context.Context, et classify.EventType, snap *notify.CaseSnapshot, fromScheduler bool) ([]notify.DispatchResult, error) {
	et = classify.ForLanguage(et, snap.Language)
	props := classify.Props(et)
	now := e.clock.Now()

	// Superseding events void their victims' pending jobs before anything
	// else, so a postponement observed just before a reminder fires wins.
	for _, group := range props.CancelsGroups {
		e.scheduler.CancelGroup(ctx, snap.CaseID, group)
	}

	// A hearing already in the past warrants neither a notice nor a reminder.
	if props.RequiresOralHearing && !snap.HearingDate.IsZero() && snap.HearingDate.Before(now) {
		e.logger.Info("Hearing date in the past, nothing to notify",
			"case_id", snap.CaseID, "event", et, "hearing_date", snap.HearingDate.Format(time.RFC3339))
		return nil, nil
	}

	if !resolve.Applies(et, snap) {
		e.logger.Debug("Event addresses nobody on this case", "case_id", snap.CaseID, "event", et)
		return nil, nil
	}

	// Delayed classes are scheduled at their own computed offset; the trigger
	// is already in the future, so the hours window does not apply.
	if props.Delay > 0 && !fromScheduler {
		return nil, e.deferDispatch(ctx, et, snap, now.Add(props.Delay))
	}

	// Ordinary immediate classes wait for business hours.
	if !props.AllowOutOfHours && !fromScheduler && e.window.IsOutOfHours(now) {
		return nil, e.deferDispatch(ctx, et, snap, e.window.NextInHours(now))
	}

	plan := e.BuildPlan(et, snap)
	var results []notify.DispatchResult
	if plan.IsEmpty() {
		e.logger.Info("Plan resolved to zero recipients", "case_id", snap.CaseID, "event", et)
	} else {
		results = e.dispatcher.Dispatch(ctx, plan, snap)
	}

	if err := e.createReminders(ctx, et, snap, now); err != nil {
		return results, err
	}
	return results, nil
}

// deferDispatch parks the whole event as a single scheduled job under a per-type
// deferral group. Firing re-resolves against the then-current snapshot.
func (e *Engine) deferDispatch(ctx context.Context, et classify.EventType, snap *notify.CaseSnapshot, triggerAt time.Time) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot payload: %w", err)
	}

	_, err = e.scheduler.Schedule(ctx, snap.CaseID, deferredGroup+string(et), "", triggerAt, string(et), payload)
	if err != nil {
		return fmt.Errorf("schedule deferred notification: %w", err)
	}

	e.logger.Info("Notification deferred",
		"case_id", snap.CaseID,
		"event", et,
		"trigger", triggerAt.Format(time.RFC3339))
	return nil
}

// createReminders enqueues the event's reminder jobs: one per configured
// offset, all under one group key, each counted back from the hearing date.
// Offsets that land in the past are skipped.
func (e *Engine) createReminders(ctx context.Context, et classify.EventType, snap *notify.CaseSnapshot, now time.Time) error {
	props := classify.Props(et)
	if props.ReminderGroup == "" || snap.HearingDate.IsZero() {
		return nil
	}

	reminderEvent := props.ReminderGroup
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot payload: %w", err)
	}

	for _, offset := range props.ReminderOffsets {
		triggerAt := snap.HearingDate.Add(-offset)
		if !triggerAt.After(now) {
			e.logger.Debug("Reminder offset already passed, skipping",
				"case_id", snap.CaseID,
				"group_key", props.ReminderGroup,
				"trigger", triggerAt.Format(time.RFC3339))
			continue
		}

		// The offset occupies the role slot so the jobs under one group key
		// keep distinct identities and survive independently.
		slot := notify.Role(fmt.Sprintf("offset-%dh", int(offset.Hours())))
		if _, err := e.scheduler.Schedule(ctx, snap.CaseID, props.ReminderGroup, slot, triggerAt, reminderEvent, payload); err != nil {
			return fmt.Errorf("schedule reminder: %w", err)
		}
	}
	return nil
}

// BuildPlan runs resolution and template selection for one event type and
// assembles the ordered, duplicate-free instruction list.
func (e *Engine) BuildPlan(et classify.EventType, snap *notify.CaseSnapshot) *notify.DispatchPlan {
	plan := &notify.DispatchPlan{CaseID: snap.CaseID, Event: string(et)}

	seen := make(map[string]bool)
	for _, role := range resolve.Resolve(et, snap) {
		for _, ct := range template.Select(role, et, snap) {
			key := string(role) + "|" + string(ct.Channel) + "|" + ct.TemplateID
			if seen[key] {
				continue
			}
			seen[key] = true
			plan.Instructions = append(plan.Instructions, notify.RecipientInstruction{
				Role:       role,
				Channel:    ct.Channel,
				TemplateID: ct.TemplateID,
				Personalisation: map[string]string{
					"case_id":      snap.CaseID,
					"benefit_code": snap.BenefitCode,
				},
			})
		}
	}
	return plan
}
