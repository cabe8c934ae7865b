package messaging

import (
	"context"

	"salesbot/internal/fallback"
	"salesbot/internal/orchestrator"
)

// Responder отвечает на входящее сообщение.
type Responder interface {
	Handle(ctx context.Context, in orchestrator.Inbound) orchestrator.Outcome
}

// FallbackOnly отвечает только детерминированными репликами. Используется,
// когда completion-бэкенд не удалось сконфигурировать.
type FallbackOnly struct {
	Fallback *fallback.Responder
}

func (f FallbackOnly) Handle(ctx context.Context, in orchestrator.Inbound) orchestrator.Outcome {
	if reason, drop := orchestrator.DropReason(in.Validate()); drop {
		return orchestrator.Outcome{State: orchestrator.StateDropped, Reason: reason}
	}
	responder := f.Fallback
	if responder == nil {
		responder = fallback.New(nil)
	}
	return orchestrator.Outcome{
		Reply:  responder.Reply(in.Body),
		State:  orchestrator.StateFallbackReplied,
		Reason: "completion backend not configured",
	}
}
