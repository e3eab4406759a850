// Package dispatch hands a resolved plan to the delivery provider, one call
// per instruction. Instructions are independent: a failure on one never
// prevents the others in the same plan from being attempted.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"tribunal-notifier/pkg/notify"
	"tribunal-notifier/provider"
)

// Dispatcher invokes the delivery provider for each instruction in a plan.
type Dispatcher struct {
	provider provider.Provider
	logger   *slog.Logger
}

// New creates a dispatcher over the given provider.
func New(p provider.Provider, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{provider: p, logger: logger}
}

// Dispatch attempts every instruction in the plan and reports every outcome.
// Contact details come from the snapshot's subscriptions; the plan itself
// only carries roles, channels and templates.
func (d *Dispatcher) Dispatch(ctx context.Context, plan *notify.DispatchPlan, snap *notify.CaseSnapshot) []notify.DispatchResult {
	results := make([]notify.DispatchResult, 0, len(plan.Instructions))

	for _, inst := range plan.Instructions {
		reference := fmt.Sprintf("%s-%s", plan.CaseID, uuid.NewString())
		sub := snap.SubscriptionFor(inst.Role)

		var err error
		switch inst.Channel {
		case notify.Email:
			err = d.provider.SendEmail(ctx, inst.TemplateID, sub.Address, inst.Personalisation, reference)
		case notify.SMS:
			err = d.provider.SendSms(ctx, inst.TemplateID, sub.Number, inst.Personalisation, reference, "")
		case notify.Letter:
			if len(inst.Document) > 0 {
				err = d.provider.SendPrecompiledLetter(ctx, reference, inst.Document)
			} else {
				err = d.provider.SendLetter(ctx, inst.TemplateID, inst.Personalisation, reference)
			}
		default:
			err = fmt.Errorf("unknown channel %q", inst.Channel)
		}

		if err != nil {
			d.logger.Warn("Instruction delivery failed",
				"case_id", plan.CaseID,
				"event", plan.Event,
				"role", inst.Role,
				"channel", inst.Channel,
				"template_id", inst.TemplateID,
				"error", err)
		} else {
			d.logger.Info("Instruction delivered",
				"case_id", plan.CaseID,
				"event", plan.Event,
				"role", inst.Role,
				"channel", inst.Channel,
				"template_id", inst.TemplateID,
				"reference", reference)
		}

		results = append(results, notify.DispatchResult{
			Instruction: inst,
			Reference:   reference,
			Err:         err,
		})
	}

	return results
}
