package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jcmexdev/classic-carry/internal/checkout/orderlog"
)

// Step is one unit of checkout work. Compensate undoes Execute and may be
// nil when there is nothing to undo.
type Step struct {
	Name string
	// Status is written to the order log once the step succeeds; steps
	// with no Status are not logged.
	Status orderlog.Status
	// Durable makes a failed log write fail the step. The step's own
	// compensation then runs with the others.
	Durable    bool
	Execute    func(ctx context.Context, o *Order) error
	Compensate func(ctx context.Context, o *Order) error
}

// Orchestrator runs checkout steps in order. When a step fails the steps
// that already succeeded are compensated in reverse order and the order is
// logged as FAILED.
type Orchestrator struct {
	steps  []Step
	log    orderlog.Repository
	logger *slog.Logger
}

func NewOrchestrator(steps []Step, log orderlog.Repository, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{steps: steps, log: log, logger: logger}
}

func (o *Orchestrator) Run(ctx context.Context, order *Order) error {
	var done []Step
	logged := false

	fail := func(step Step, err error) error {
		o.logger.WarnContext(ctx, "checkout step failed, rolling back",
			"order_id", order.ID, "step", step.Name, "error", err)
		o.rollback(ctx, order, done)
		if logged {
			_ = o.record(ctx, order, orderlog.StatusFailed, step.Name, "", append(order.Warnings, err.Error()))
		}
		return fmt.Errorf("checkout: %s: %w", step.Name, err)
	}

	for _, step := range o.steps {
		o.logger.DebugContext(ctx, "executing checkout step", "order_id", order.ID, "step", step.Name)
		if err := step.Execute(ctx, order); err != nil {
			return fail(step, err)
		}
		done = append(done, step)

		if step.Status == "" {
			continue
		}
		payload := ""
		if !logged {
			var err error
			if payload, err = order.encode(); err != nil {
				o.logger.ErrorContext(ctx, "error encoding order", "order_id", order.ID, "error", err)
			}
		}
		if err := o.record(ctx, order, step.Status, step.Name, payload, order.Warnings); err != nil {
			if step.Durable {
				return fail(step, err)
			}
			continue
		}
		logged = true
	}

	o.logger.InfoContext(ctx, "checkout completed",
		"order_id", order.ID, "channel", order.Channel, "warnings", len(order.Warnings))
	return nil
}

func (o *Orchestrator) rollback(ctx context.Context, order *Order, steps []Step) {
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx, order); err != nil {
			o.logger.ErrorContext(ctx, "CRITICAL: failed to compensate checkout step",
				"order_id", order.ID, "step", step.Name, "error", err)
		}
	}
}

// record writes a log row. Failures are logged and returned; only Durable
// steps act on them.
func (o *Orchestrator) record(ctx context.Context, order *Order, status orderlog.Status, step, payload string, warnings []string) error {
	if o.log == nil {
		return nil
	}
	entry := orderlog.NewEntry(ctx, order.ID, status, order.Channel, step, payload, warnings)
	if err := o.log.Save(ctx, entry); err != nil {
		o.logger.ErrorContext(ctx, "error saving order log", "order_id", order.ID, "status", status, "error", err)
		return fmt.Errorf("record %s: %w", status, err)
	}
	return nil
}
