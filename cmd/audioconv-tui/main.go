package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/handiism/audioconv/internal/config"
	"github.com/handiism/audioconv/internal/tui"
)

func main() {
	configFlag := flag.String("config", "", "Path to config file")
	flag.Parse()

	path := *configFlag
	if path == "" {
		if p, err := config.DefaultConfigPath(); err == nil {
			path = p
		}
	}

	settings := config.DefaultSettings()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		settings = loaded
	}

	if err := tui.Run(settings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
