package orchestrator

import (
	"errors"
	"strings"
)

// StatusBroadcast отправитель, от которого приходят статусы WhatsApp.
const StatusBroadcast = "status@broadcast"

// Inbound входящее сообщение от транспортного моста.
type Inbound struct {
	ID          string `json:"id,omitempty"`
	From        string `json:"from"`
	Body        string `json:"body"`
	DisplayName string `json:"display_name,omitempty"`
	IsGroup     bool   `json:"is_group"`
	IsStatus    bool   `json:"is_status"`
	FromMe      bool   `json:"from_me"`
}

// ValidationError сообщение исключено и молча отбрасывается, без ответа.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "inbound message dropped: " + e.Reason
}

var (
	ErrEmptyBody    = &ValidationError{Reason: "empty body"}
	ErrNoSender     = &ValidationError{Reason: "missing sender"}
	ErrGroupMessage = &ValidationError{Reason: "group message"}
	ErrStatusUpdate = &ValidationError{Reason: "status update"}
	ErrSelfSent     = &ValidationError{Reason: "self-sent"}
)

// Validate возвращает *ValidationError для сообщений, которые нельзя обрабатывать.
func (in Inbound) Validate() error {
	switch {
	case in.IsGroup:
		return ErrGroupMessage
	case in.IsStatus || in.From == StatusBroadcast:
		return ErrStatusUpdate
	case in.FromMe:
		return ErrSelfSent
	case strings.TrimSpace(in.From) == "":
		return ErrNoSender
	case strings.TrimSpace(in.Body) == "":
		return ErrEmptyBody
	}
	return nil
}

// DropReason возвращает причину, если err означает «отбросить молча».
func DropReason(err error) (string, bool) {
	var v *ValidationError
	if !errors.As(err, &v) {
		return "", false
	}
	return v.Reason, true
}
