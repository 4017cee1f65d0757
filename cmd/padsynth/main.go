// Command padsynth drives the reference wavetable synth from gesture
// scenarios and inspects recorded sessions.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/padsynth/internal/cli"
)

func main() {
	err := cli.NewRootCommand().ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
