// Command config-convert converts a YAML pipeline configuration into the
// SQLite config backend used by deployments that manage settings in place.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/wxarchive/windprep/pkg/config"
)

func main() {
	in := flag.String("in", "config.yaml", "YAML configuration to convert")
	out := flag.String("out", "config.db", "SQLite database to write")
	flag.Parse()

	data, err := config.NewYAMLProvider(*in).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", *in, err)
		os.Exit(1)
	}

	provider, err := config.NewSQLiteProvider(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", *out, err)
		os.Exit(1)
	}
	defer provider.Close()

	if err := provider.SaveConfig(data); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Converted %s -> %s\n", *in, *out)
}
