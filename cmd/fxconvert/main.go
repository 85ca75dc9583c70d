package main

import (
	"context"
	"fmt"
	"os"

	"github.com/infigaming-com/go-fxconvert/cli"
)

func main() {
	cmd := cli.NewRootCommand(cli.DefaultAppFactory)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
