package session

import (
	"context"
	"errors"
	"sync"
)

var ErrExecutionHandleNil = errors.New("execution handle is nil")

// ExecutionHandle represents one in-flight tutoring request.
//
// It is cancelable and waitable. The provider call is always driven by context cancellation.
type ExecutionHandle struct {
	SessionID   string
	InferenceID string
	// StudentTurnID is the student turn appended by Submit.
	StudentTurnID string
	// PendingTurnID is the tutor turn that receives the streamed fragments.
	PendingTurnID string

	done chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	text   string
	err    error
}

func newExecutionHandle(sessionID, inferenceID, studentTurnID, pendingTurnID string, cancel context.CancelFunc) *ExecutionHandle {
	return &ExecutionHandle{
		SessionID:     sessionID,
		InferenceID:   inferenceID,
		StudentTurnID: studentTurnID,
		PendingTurnID: pendingTurnID,
		done:          make(chan struct{}),
		cancel:        cancel,
	}
}

func (h *ExecutionHandle) setText(text string) {
	h.mu.Lock()
	h.text = text
	h.mu.Unlock()
}

func (h *ExecutionHandle) setResult(err error) {
	h.mu.Lock()
	h.err = err
	cancel := h.cancel
	h.cancel = nil
	close(h.done)
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Cancel cancels the in-flight request. It is safe to call multiple times.
func (h *ExecutionHandle) Cancel() {
	if h == nil {
		return
	}
	h.mu.Lock()
	cancel := h.cancel
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the request settles and returns the text merged into the
// pending turn together with the provider error, if any.
func (h *ExecutionHandle) Wait() (string, error) {
	if h == nil {
		return "", ErrExecutionHandleNil
	}
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.text, h.err
}

// Done is closed once the request has settled.
func (h *ExecutionHandle) Done() <-chan struct{} {
	return h.done
}

func (h *ExecutionHandle) IsRunning() bool {
	if h == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}
