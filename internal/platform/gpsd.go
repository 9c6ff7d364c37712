package platform

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	"github.com/catcha-app/geotag/pkg/logger"
)

const gpsdWatchCommand = `?WATCH={"enable":true,"json":true};` + "\n"

// GPSDProvider reads fixes from a gpsd daemon over its newline-delimited
// JSON protocol. Permission maps to reachability of the daemon.
type GPSDProvider struct {
	addr        string
	dialTimeout time.Duration
	log         logger.Logger
}

func NewGPSDProvider(addr string, log logger.Logger) *GPSDProvider {
	return &GPSDProvider{
		addr:        addr,
		dialTimeout: 5 * time.Second,
		log:         log,
	}
}

// tpvReport is the subset of a gpsd TPV message we consume.
type tpvReport struct {
	Class string   `json:"class"`
	Mode  int      `json:"mode"` // 2 = 2D fix, 3 = 3D fix
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	EPH   *float64 `json:"eph"` // horizontal error estimate, meters
	EPX   *float64 `json:"epx"`
	EPY   *float64 `json:"epy"`
	Speed *float64 `json:"speed"`
	Track *float64 `json:"track"`
}

func (r tpvReport) fix() (Fix, bool) {
	if r.Class != "TPV" || r.Mode < 2 || r.Lat == nil || r.Lon == nil {
		return Fix{}, false
	}
	f := Fix{
		Latitude:  *r.Lat,
		Longitude: *r.Lon,
		Speed:     r.Speed,
		Heading:   r.Track,
	}
	switch {
	case r.EPH != nil:
		f.Accuracy = r.EPH
	case r.EPX != nil && r.EPY != nil:
		acc := math.Max(*r.EPX, *r.EPY)
		f.Accuracy = &acc
	}
	return f, true
}

func (p *GPSDProvider) RequestPermission(ctx context.Context) (PermissionStatus, error) {
	d := net.Dialer{Timeout: p.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		p.log.Warn("gpsd not reachable", "addr", p.addr, "error", err)
		return PermissionDenied, nil
	}
	conn.Close()
	return PermissionGranted, nil
}

// GetOnce connects, enables watch mode and returns the first usable TPV
// report. The accuracy mode has no effect here: gpsd always reports at the
// receiver's best precision.
func (p *GPSDProvider) GetOnce(ctx context.Context, _ AccuracyMode) (Fix, error) {
	d := net.Dialer{Timeout: p.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return Fix{}, fmt.Errorf("gpsd connection failed: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(time.Minute))
	}

	if _, err := conn.Write([]byte(gpsdWatchCommand)); err != nil {
		return Fix{}, fmt.Errorf("gpsd watch command failed: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var report tpvReport
		if err := json.Unmarshal(scanner.Bytes(), &report); err != nil {
			continue
		}
		if fix, ok := report.fix(); ok {
			return fix, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return Fix{}, fmt.Errorf("gpsd read failed: %w", err)
	}
	return Fix{}, fmt.Errorf("gpsd stream ended without a fix")
}

type gpsdSubscription struct {
	cancel context.CancelFunc
	once   sync.Once
}

func (s *gpsdSubscription) Remove() {
	s.once.Do(s.cancel)
}

// Watch streams fixes until the subscription is removed, applying the
// requested time and distance gates client-side.
func (p *GPSDProvider) Watch(ctx context.Context, opts WatchOptions, onFix func(Fix)) (Subscription, error) {
	d := net.Dialer{Timeout: p.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return nil, fmt.Errorf("gpsd connection failed: %w", err)
	}

	if _, err := conn.Write([]byte(gpsdWatchCommand)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("gpsd watch command failed: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	sub := &gpsdSubscription{cancel: cancel}

	go func() {
		defer conn.Close()
		// the reader cancels on its way out so the closer goroutine is
		// released even when the stream ends without Remove being called
		defer sub.Remove()
		go func() {
			<-watchCtx.Done()
			conn.Close() // unblocks the scanner
		}()

		var (
			lastEmit time.Time
			lastFix  *Fix
		)

		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			if watchCtx.Err() != nil {
				return
			}
			var report tpvReport
			if err := json.Unmarshal(scanner.Bytes(), &report); err != nil {
				continue
			}
			fix, ok := report.fix()
			if !ok {
				continue
			}
			if !lastEmit.IsZero() && time.Since(lastEmit) < opts.MinTime {
				continue
			}
			if lastFix != nil && opts.MinDistance > 0 {
				moved := haversineMeters(lastFix.Latitude, lastFix.Longitude, fix.Latitude, fix.Longitude)
				if moved < opts.MinDistance {
					continue
				}
			}
			lastEmit = time.Now()
			f := fix
			lastFix = &f
			onFix(fix)
		}
		if err := scanner.Err(); err != nil && watchCtx.Err() == nil {
			p.log.Warn("gpsd watch stream failed", "error", err)
		}
	}()

	return sub, nil
}

// haversineMeters duplicates the small great-circle formula locally so the
// platform package stays a leaf.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const r = 6371000.0
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return r * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
