// Command shelfwise administers a Shelfwise data directory: importing batch
// files, seeding the taxonomy, managing publisher contracts and minting tokens.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
)

const version = "0.1.0"

func main() {
	cmdCtx := &commandContext{}
	root := newRootCommand(cmdCtx)

	err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	)
	cmdCtx.close()
	if err != nil {
		os.Exit(1)
	}
}
