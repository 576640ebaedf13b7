package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/neurobridge-tutor/internal/cli"
	"github.com/yungbote/neurobridge-tutor/internal/platform/shutdown"
)

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
