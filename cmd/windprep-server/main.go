// Command windprep-server serves a pipeline artifact bundle over HTTP for the
// interactive front end: precomputed wind roses, segments, calm summaries and
// diagnostics, as JSON or MessagePack.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/wxarchive/windprep/internal/artifact"
	"github.com/wxarchive/windprep/internal/log"
	"github.com/wxarchive/windprep/internal/server"
)

func main() {
	artifactPath := flag.String("artifact", "data/artifacts/artifacts.msgpack", "Path to the artifact bundle to serve")
	addr := flag.String("addr", ":8080", "Listen address")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	data, err := artifact.Load(*artifactPath)
	if err != nil {
		log.Errorf("Failed to load artifact: %v", err)
		os.Exit(1)
	}
	log.Infof("loaded artifact with %d stations from %s", len(data.Results), *artifactPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(*addr, data, log.GetSugaredLogger())
	if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
		log.Errorf("Server error: %v", err)
		os.Exit(1)
	}
}
