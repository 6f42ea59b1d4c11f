package cli

import (
	"context"
	"time"
)

func withStart(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, commandStartKey{}, t)
}

func startFrom(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(commandStartKey{}).(time.Time)
	return t, ok
}
