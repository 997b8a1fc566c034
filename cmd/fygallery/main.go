// Command fygallery is the desktop photo gallery.
package main

import (
	"flag"
	"log"

	"fygallery/internal/config"
	"fygallery/internal/storage"
	"fygallery/internal/ui"

	"github.com/joho/godotenv"
)

func main() {
	// Set the logger prefix
	log.SetPrefix("[fygallery] ")

	configPath := flag.String("config", config.DefaultPath(), "path to the YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})
	cfg, err := config.Load(*configPath, explicit)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	kv, err := storage.Open(storage.Backend(cfg.Storage.Backend), cfg.Storage.Path)
	if err != nil {
		log.Printf("Warning: preferences will not persist: %v", err)
		kv = storage.NewMemory()
	}

	if err := ui.CreateApplication(cfg, kv, flag.Args()); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
