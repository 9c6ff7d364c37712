package platform

import (
	"bufio"
	"context"
	"net"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catcha-app/geotag/pkg/logger"
)

// fakeGPSD accepts connections, consumes the WATCH command and replays the
// given lines before closing the stream.
func fakeGPSD(t *testing.T, lines ...string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				r := bufio.NewReader(c)
				if _, err := r.ReadString('\n'); err != nil {
					return
				}
				for _, line := range lines {
					if _, err := c.Write([]byte(line + "\n")); err != nil {
						return
					}
				}
			}(conn)
		}
	}()
	return ln.Addr().String()
}

func f64(v float64) *float64 { return &v }

func TestTPVReportFix(t *testing.T) {
	tests := []struct {
		name   string
		report tpvReport
		want   Fix
		usable bool
	}{
		{
			name:   "non-TPV class",
			report: tpvReport{Class: "SKY", Mode: 3, Lat: f64(1), Lon: f64(2)},
		},
		{
			name:   "no fix yet",
			report: tpvReport{Class: "TPV", Mode: 1, Lat: f64(1), Lon: f64(2)},
		},
		{
			name:   "missing coordinates",
			report: tpvReport{Class: "TPV", Mode: 2},
		},
		{
			name:   "eph preferred",
			report: tpvReport{Class: "TPV", Mode: 3, Lat: f64(18.35), Lon: f64(121.63), EPH: f64(4.5), EPX: f64(9), EPY: f64(9)},
			want:   Fix{Latitude: 18.35, Longitude: 121.63, Accuracy: f64(4.5)},
			usable: true,
		},
		{
			name:   "epx epy fallback takes the larger",
			report: tpvReport{Class: "TPV", Mode: 2, Lat: f64(1), Lon: f64(2), EPX: f64(3), EPY: f64(5)},
			want:   Fix{Latitude: 1, Longitude: 2, Accuracy: f64(5)},
			usable: true,
		},
		{
			name:   "no error estimate",
			report: tpvReport{Class: "TPV", Mode: 2, Lat: f64(1), Lon: f64(2)},
			want:   Fix{Latitude: 1, Longitude: 2},
			usable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fix, ok := tt.report.fix()
			require.Equal(t, tt.usable, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.want.Latitude, fix.Latitude)
			assert.Equal(t, tt.want.Longitude, fix.Longitude)
			if tt.want.Accuracy == nil {
				assert.Nil(t, fix.Accuracy)
			} else {
				require.NotNil(t, fix.Accuracy)
				assert.Equal(t, *tt.want.Accuracy, *fix.Accuracy)
			}
		})
	}
}

func TestGetOnceSkipsUnusableReports(t *testing.T) {
	addr := fakeGPSD(t,
		`{"class":"VERSION","release":"3.25"}`,
		`{"class":"TPV","mode":1}`,
		`{"class":"TPV","mode":3,"lat":18.35,"lon":121.63,"eph":4.5,"speed":0.4,"track":270}`,
	)
	p := NewGPSDProvider(addr, logger.NewNop())

	fix, err := p.GetOnce(context.Background(), AccuracyBestForNavigation)
	require.NoError(t, err)
	assert.Equal(t, 18.35, fix.Latitude)
	assert.Equal(t, 121.63, fix.Longitude)
	require.NotNil(t, fix.Accuracy)
	assert.Equal(t, 4.5, *fix.Accuracy)
	require.NotNil(t, fix.Speed)
	assert.Equal(t, 0.4, *fix.Speed)
}

func TestGetOnceStreamEndsWithoutFix(t *testing.T) {
	addr := fakeGPSD(t, `{"class":"VERSION","release":"3.25"}`)
	p := NewGPSDProvider(addr, logger.NewNop())

	_, err := p.GetOnce(context.Background(), AccuracyBalanced)
	assert.Error(t, err)
}

func TestGetOnceConnectionRefused(t *testing.T) {
	p := NewGPSDProvider("127.0.0.1:1", logger.NewNop())
	p.dialTimeout = 200 * time.Millisecond

	_, err := p.GetOnce(context.Background(), AccuracyBalanced)
	assert.Error(t, err)
}

func TestRequestPermissionTracksReachability(t *testing.T) {
	addr := fakeGPSD(t)
	p := NewGPSDProvider(addr, logger.NewNop())

	status, err := p.RequestPermission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionGranted, status)

	down := NewGPSDProvider("127.0.0.1:1", logger.NewNop())
	down.dialTimeout = 200 * time.Millisecond
	status, err = down.RequestPermission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionDenied, status)
}

type fixCollector struct {
	mu    sync.Mutex
	fixes []Fix
}

func (c *fixCollector) add(f Fix) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fixes = append(c.fixes, f)
}

func (c *fixCollector) all() []Fix {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Fix, len(c.fixes))
	copy(out, c.fixes)
	return out
}

func TestWatchDistanceGating(t *testing.T) {
	addr := fakeGPSD(t,
		`{"class":"TPV","mode":3,"lat":0,"lon":0,"eph":5}`,
		`{"class":"TPV","mode":3,"lat":0,"lon":0.00001,"eph":5}`,
		`{"class":"TPV","mode":3,"lat":0,"lon":0.01,"eph":5}`,
	)
	p := NewGPSDProvider(addr, logger.NewNop())
	var c fixCollector

	sub, err := p.Watch(context.Background(), WatchOptions{
		MinTime:     0,
		MinDistance: 10,
	}, c.add)
	require.NoError(t, err)
	defer sub.Remove()

	require.Eventually(t, func() bool {
		return len(c.all()) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	fixes := c.all()
	require.Len(t, fixes, 2, "the ~1 m move must be gated out")
	assert.Equal(t, 0.0, fixes[0].Longitude)
	assert.Equal(t, 0.01, fixes[1].Longitude)
}

func TestWatchTimeGating(t *testing.T) {
	addr := fakeGPSD(t,
		`{"class":"TPV","mode":3,"lat":0,"lon":0,"eph":5}`,
		`{"class":"TPV","mode":3,"lat":0,"lon":0.01,"eph":5}`,
	)
	p := NewGPSDProvider(addr, logger.NewNop())
	var c fixCollector

	sub, err := p.Watch(context.Background(), WatchOptions{
		MinTime: time.Hour,
	}, c.add)
	require.NoError(t, err)
	defer sub.Remove()

	require.Eventually(t, func() bool {
		return len(c.all()) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// give the back-to-back second report a chance to arrive, then confirm
	// the time gate swallowed it
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, c.all(), 1)
}

func TestWatchReleasesGoroutinesWhenStreamEnds(t *testing.T) {
	addr := fakeGPSD(t, `{"class":"TPV","mode":3,"lat":1,"lon":2,"eph":5}`)
	p := NewGPSDProvider(addr, logger.NewNop())
	var c fixCollector

	baseline := runtime.NumGoroutine()

	// non-cancellable parent and no Remove call: the reader must still
	// release the closer goroutine when the server hangs up
	_, err := p.Watch(context.Background(), WatchOptions{}, c.add)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(c.all()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= baseline
	}, 2*time.Second, 10*time.Millisecond, "watch goroutines leaked after the stream ended")
}
