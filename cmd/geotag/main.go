// Command geotag prints the coordinate the intake pipeline would assign to
// local image files, and where it came from (geotag, hint, or fallback).
//
// Usage:
//
//	go run ./cmd/geotag [-lat 40.7 -lon -74.0] [-json] photo1.jpg photo2.jpg
//
// The fallback coordinate comes from FALLBACK_LATITUDE / FALLBACK_LONGITUDE,
// exactly as the service reads it.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"

	"github.com/couchcryptid/deal-discovery/internal/config"
	"github.com/couchcryptid/deal-discovery/internal/domain"
	"github.com/couchcryptid/deal-discovery/internal/geotag"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := run(os.Args[1:], geotag.NewExtractor(cfg.FallbackLocation), os.Stdout); err != nil {
		log.Fatal(err)
	}
}

type located struct {
	File      string                `json:"file"`
	Latitude  float64               `json:"latitude"`
	Longitude float64               `json:"longitude"`
	Source    domain.LocationSource `json:"source"`
}

func run(args []string, extractor *geotag.Extractor, out io.Writer) error {
	fs := flag.NewFlagSet("geotag", flag.ContinueOnError)
	lat := fs.Float64("lat", math.NaN(), "client hint latitude")
	lon := fs.Float64("lon", math.NaN(), "client hint longitude")
	asJSON := fs.Bool("json", false, "print one JSON object per file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no image files given")
	}

	var hint *domain.Coordinate
	if !math.IsNaN(*lat) || !math.IsNaN(*lon) {
		if math.IsNaN(*lat) || math.IsNaN(*lon) {
			return errors.New("-lat and -lon must be given together")
		}
		hint = &domain.Coordinate{Latitude: *lat, Longitude: *lon}
	}

	enc := json.NewEncoder(out)
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		c, src := extractor.Extract(data, hint)

		if *asJSON {
			if err := enc.Encode(located{File: path, Latitude: c.Latitude, Longitude: c.Longitude, Source: src}); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(out, "%s\t%s\t%s\n", path, c, src); err != nil {
			return err
		}
	}
	return nil
}
