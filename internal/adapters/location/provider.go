// Package location contains adapters for the device positioning
// capability. Field units run a platform helper (termux-location,
// gpspipe or similar) that prints one JSON fix; desks without hardware
// pin a static coordinate in the config.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/ronda/internal/ports/secondary"
)

// fixTimeout bounds the wait for a single fix. A stale reading is worse
// than no reading, so there is no cache to fall back to.
const fixTimeout = 15 * time.Second

// CommandProvider obtains a fix by running an external command that
// prints {"lat": ..., "lng": ...} on stdout.
type CommandProvider struct {
	command string
	logger  *zap.Logger
	timeout time.Duration
}

// NewCommandProvider creates a provider around the given shell command.
func NewCommandProvider(command string, logger *zap.Logger) *CommandProvider {
	return &CommandProvider{
		command: command,
		logger:  logger,
		timeout: fixTimeout,
	}
}

// CurrentLocation requests a single fresh fix from the helper command.
func (p *CommandProvider) CurrentLocation(ctx context.Context) (secondary.Coordinate, error) {
	if strings.TrimSpace(p.command) == "" {
		return secondary.Coordinate{}, fmt.Errorf("no location command configured: %w", secondary.ErrLocationUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", p.command)
	output, err := cmd.Output()
	if err != nil {
		p.logger.Warn("location command failed",
			zap.String("command", p.command),
			zap.Error(err),
		)
		return secondary.Coordinate{}, fmt.Errorf("location command failed: %w", secondary.ErrLocationUnavailable)
	}

	var fix struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := json.Unmarshal(output, &fix); err != nil {
		p.logger.Warn("location command produced invalid output",
			zap.String("output", strings.TrimSpace(string(output))),
			zap.Error(err),
		)
		return secondary.Coordinate{}, fmt.Errorf("invalid location output: %w", secondary.ErrLocationUnavailable)
	}
	if fix.Lat == nil || fix.Lng == nil {
		return secondary.Coordinate{}, fmt.Errorf("location output missing lat/lng: %w", secondary.ErrLocationUnavailable)
	}

	coord := secondary.Coordinate{Lat: *fix.Lat, Lng: *fix.Lng}
	p.logger.Debug("location fix obtained",
		zap.Float64("lat", coord.Lat),
		zap.Float64("lng", coord.Lng),
	)
	return coord, nil
}

// StaticProvider always reports one fixed coordinate. For desk testing
// and installations without positioning hardware.
type StaticProvider struct {
	coord secondary.Coordinate
}

// NewStaticProvider creates a provider pinned to the given coordinate.
func NewStaticProvider(lat, lng float64) *StaticProvider {
	return &StaticProvider{coord: secondary.Coordinate{Lat: lat, Lng: lng}}
}

// CurrentLocation returns the pinned coordinate.
func (p *StaticProvider) CurrentLocation(ctx context.Context) (secondary.Coordinate, error) {
	return p.coord, nil
}

// Ensure both providers implement the interface
var (
	_ secondary.LocationProvider = (*CommandProvider)(nil)
	_ secondary.LocationProvider = (*StaticProvider)(nil)
)
