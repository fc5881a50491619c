// Package geo provides best-effort coordinate enrichment for outgoing
// interaction uploads.
//
// Enrichment is strictly optional: the probe is bounded by a short
// timeout, and any failure simply yields no coordinates. It must never
// block or fail an upload.
package geo

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"
)

// ProbeTimeout bounds a coordinate lookup.
const ProbeTimeout = 5 * time.Second

// Coords is a device position.
type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Enricher attempts to produce coordinates. The boolean result reports
// whether coordinates were obtained; false is a normal outcome, not an
// error.
type Enricher func(ctx context.Context) (Coords, bool)

// None is an Enricher that never produces coordinates. Used when no
// geolocation source is configured.
func None(ctx context.Context) (Coords, bool) {
	return Coords{}, false
}

// HTTPEnricher builds an Enricher that queries a JSON endpoint returning
// {"lat": ..., "lon": ...}. Every failure path (timeout, transport error,
// bad payload) reports no coordinates.
func HTTPEnricher(url string, logger *log.Logger) Enricher {
	if logger == nil {
		logger = log.New(os.Stderr, "[geo] ", log.LstdFlags)
	}
	httpc := &http.Client{Timeout: ProbeTimeout}

	return func(ctx context.Context) (Coords, bool) {
		ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			logger.Printf("WARNING: bad geolocation URL: %v", err)
			return Coords{}, false
		}

		resp, err := httpc.Do(req)
		if err != nil {
			logger.Printf("geolocation probe failed: %v", err)
			return Coords{}, false
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			logger.Printf("geolocation probe returned %s", resp.Status)
			return Coords{}, false
		}

		var c Coords
		if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
			logger.Printf("geolocation probe returned bad payload: %v", err)
			return Coords{}, false
		}
		return c, true
	}
}
