package main

import (
	"context"

	"radar-scraping/cmd/radar/commands"
	"radar-scraping/lib/serviceutil"
	"radar-scraping/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	telemetry.InitSlog(false)
	t, err := telemetry.SetupFromEnv(ctx, "radar")
	if err == nil {
		defer t.Shutdown(context.Background())
	}

	commands.ExecuteContext(ctx)
}
