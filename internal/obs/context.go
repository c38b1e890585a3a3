package obs

import "context"

type ctxKey int

const (
	routePatternKey ctxKey = iota
	commandIDKey
)

// WithRoutePattern stores the matched ops router pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routePatternKey, pattern)
}

// RoutePatternFromContext returns the stored route pattern, or "".
func RoutePatternFromContext(ctx context.Context) string {
	v, _ := ctx.Value(routePatternKey).(string)
	return v
}

// WithCommandID tags ctx with the id of the chat command being served, so
// spans started below it can be correlated with the command's log lines.
func WithCommandID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, commandIDKey, id)
}

// CommandIDFromContext returns the chat command id, or "" outside a command.
func CommandIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(commandIDKey).(string)
	return v
}
