package main

import (
	"context"

	"gallwatch/cmd/gallwatch/commands"
	"gallwatch/lib/osutil"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
