package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook tags events logged with Ctx(ctx) with the repository being
// browsed ("repo", as owner/repo) and the analysis request in flight
// ("request_id"). Fields that were never set on ctx are left off the event.
type ContextHook struct{}

func (ContextHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	ctx := e.GetCtx()
	if ctx == nil || ctx == context.Background() {
		return
	}

	for _, f := range [...]struct {
		key   string
		value string
	}{
		{"repo", GetRepo(ctx)},
		{"request_id", GetRequestID(ctx)},
	} {
		if f.value != "" {
			e.Str(f.key, f.value)
		}
	}
}
