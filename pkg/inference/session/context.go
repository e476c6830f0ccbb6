package session

import "context"

type sessionMetaContextKey string

const (
	sessionIDContextKey   sessionMetaContextKey = "session_id"
	inferenceIDContextKey sessionMetaContextKey = "inference_id"
	turnIDContextKey      sessionMetaContextKey = "turn_id"
)

// WithSessionMeta stores the identifiers of a tutoring request in ctx so that
// providers can correlate their logs with session events.
func WithSessionMeta(ctx context.Context, sessionID, inferenceID, turnID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if sessionID != "" {
		ctx = context.WithValue(ctx, sessionIDContextKey, sessionID)
	}
	if inferenceID != "" {
		ctx = context.WithValue(ctx, inferenceIDContextKey, inferenceID)
	}
	if turnID != "" {
		ctx = context.WithValue(ctx, turnIDContextKey, turnID)
	}
	return ctx
}

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(sessionIDContextKey).(string)
	return v
}

func InferenceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(inferenceIDContextKey).(string)
	return v
}

// TurnIDFromContext returns the pending tutor turn the request is filling.
func TurnIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(turnIDContextKey).(string)
	return v
}
