package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	askcmder "github.com/curavault/cura/cmd/cura/ask"
	servecmder "github.com/curavault/cura/cmd/cura/serve"
	snippetscmder "github.com/curavault/cura/cmd/cura/snippets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "cura",
		Short:         "Records-grounded health chat backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		servecmder.NewServeCmd(),
		askcmder.NewAskCmd(),
		snippetscmder.NewSnippetsCmd(),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
