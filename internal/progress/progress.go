// Package progress reports load/fetch/compare progress to the operator
// (spec §6): an interactive multi-bar renderer for a TTY, and a throttled
// log-line renderer otherwise, behind one small interface so callers never
// branch on which is active.
package progress

import (
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Tracker reports progress for a single in-flight operation: loading a
// source's parts, fetching an index's referenced URLs, or running a batch
// comparison.
type Tracker interface {
	SetStage(stage string)
	SetProgress(current, total int64)
	SetCounter(name string, value int64)
	LogWarning(msg string)
	Done()
}

// Manager creates Trackers for individual operations and coordinates their
// shared display.
type Manager interface {
	NewTracker(index, total int, label string) Tracker
	Wait()
	StartDiskMonitor(scratchDir string)
	StopDiskMonitor()
}

// MPBManager implements Manager with the mpb multi-progress-bar library.
type MPBManager struct {
	container *mpb.Progress
	mu        sync.Mutex
	diskStop  chan struct{}
}

// NewMPBManager creates a new mpb-based progress manager for an interactive
// terminal.
func NewMPBManager() *MPBManager {
	return &MPBManager{container: mpb.New(mpb.WithWidth(60))}
}

// NewTracker creates a new progress tracker for one operation.
func (m *MPBManager) NewTracker(index, total int, label string) Tracker {
	stageVal := &atomic.Value{}
	stageVal.Store("")
	detailVal := &atomic.Value{}
	detailVal.Store("")
	bar := m.container.AddBar(100,
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("[%d/%d] %s ", index+1, total, label), decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.Any(func(s decor.Statistics) string {
				stage := stageVal.Load().(string)
				detail := detailVal.Load().(string)
				if detail != "" {
					return stage + "  " + detail
				}
				return stage
			}),
		),
	)

	return &mpbTracker{
		bar:       bar,
		name:      label,
		stagePtr:  stageVal,
		detailPtr: detailVal,
		mgr:       m,
	}
}

// Wait blocks until every tracker created by this manager has called Done.
func (m *MPBManager) Wait() {
	m.container.Wait()
}

// StartDiskMonitor adds a status line showing scratchDir's disk usage,
// tracking the delta from this process's own writes (spec §9 "scratch
// resources").
func (m *MPBManager) StartDiskMonitor(scratchDir string) {
	diskVal := &atomic.Value{}
	diskVal.Store("")

	m.mu.Lock()
	bar := m.container.AddBar(0,
		mpb.PrependDecorators(
			decor.Any(func(s decor.Statistics) string {
				return diskVal.Load().(string)
			}),
		),
	)
	m.mu.Unlock()

	m.diskStop = make(chan struct{})
	startTime := time.Now()
	var baselineUsed uint64
	var stat0 syscall.Statfs_t
	if syscall.Statfs(scratchDir, &stat0) == nil {
		baselineUsed = (stat0.Blocks - stat0.Bavail) * uint64(stat0.Bsize)
	}
	var peakDelta uint64
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			elapsed := time.Since(startTime).Truncate(time.Second)
			var stat syscall.Statfs_t
			if err := syscall.Statfs(scratchDir, &stat); err == nil {
				avail := stat.Bavail * uint64(stat.Bsize)
				used := (stat.Blocks - stat.Bavail) * uint64(stat.Bsize)
				delta := uint64(0)
				if used > baselineUsed {
					delta = used - baselineUsed
				}
				if delta > peakDelta {
					peakDelta = delta
				}
				diskVal.Store(fmt.Sprintf("Elapsed: %s  |  Scratch: %s used (peak %s), %s free",
					elapsed, humanBytesUint(delta), humanBytesUint(peakDelta), humanBytesUint(avail)))
			} else {
				diskVal.Store(fmt.Sprintf("Elapsed: %s", elapsed))
			}
			select {
			case <-ticker.C:
			case <-m.diskStop:
				bar.Abort(false)
				return
			}
		}
	}()
}

// StopDiskMonitor stops the disk usage monitor started by StartDiskMonitor.
func (m *MPBManager) StopDiskMonitor() {
	if m.diskStop != nil {
		close(m.diskStop)
	}
}

type mpbTracker struct {
	bar       *mpb.Bar
	name      string
	stagePtr  *atomic.Value
	detailPtr *atomic.Value
	mgr       *MPBManager

	dlStart     time.Time
	dlPrevBytes int64
	dlPrevTime  time.Time
	dlSpeed     float64
}

func (t *mpbTracker) SetStage(stage string) {
	t.stagePtr.Store(stage)
	t.detailPtr.Store("")
	t.bar.SetCurrent(0)
	t.dlStart = time.Time{}
	t.dlPrevBytes = 0
	t.dlPrevTime = time.Time{}
	t.dlSpeed = 0
}

func (t *mpbTracker) SetProgress(current, total int64) {
	now := time.Now()
	if t.dlStart.IsZero() {
		t.dlStart = now
		t.dlPrevTime = now
		t.dlPrevBytes = current
	}

	speedStr := ""
	if elapsed := now.Sub(t.dlPrevTime).Seconds(); elapsed >= 0.5 {
		instantMBps := float64(current-t.dlPrevBytes) / elapsed / (1024 * 1024)
		if t.dlSpeed == 0 {
			t.dlSpeed = instantMBps
		} else {
			t.dlSpeed = 0.3*instantMBps + 0.7*t.dlSpeed
		}
		t.dlPrevBytes = current
		t.dlPrevTime = now
	}
	if t.dlSpeed > 0 {
		speedStr = fmt.Sprintf("  %.1f MB/s", t.dlSpeed)
	}

	if total > 0 {
		pct := int64(float64(current) / float64(total) * 100)
		t.bar.SetTotal(100, false)
		t.bar.SetCurrent(pct)
		t.detailPtr.Store(fmt.Sprintf("%s / %s%s", humanBytes(current), humanBytes(total), speedStr))
	} else if current > 0 {
		t.detailPtr.Store(fmt.Sprintf("%s%s", humanBytes(current), speedStr))
	}
}

func (t *mpbTracker) SetCounter(name string, value int64) {
	t.detailPtr.Store(fmt.Sprintf("%s: %s", name, humanCount(value)))
}

func (t *mpbTracker) LogWarning(msg string) {
	t.mgr.mu.Lock()
	defer t.mgr.mu.Unlock()
	logBar := t.mgr.container.AddBar(0,
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("  [%s] %s", t.name, msg)),
		),
	)
	logBar.Abort(false)
}

func (t *mpbTracker) Done() {
	t.bar.SetTotal(100, false)
	t.bar.SetCurrent(100)
	t.bar.Abort(false)
}

// NoopManager discards all progress; used by library callers that don't
// want any output.
type NoopManager struct{}

func (m *NoopManager) NewTracker(index, total int, label string) Tracker { return &noopTracker{} }
func (m *NoopManager) Wait()                                             {}
func (m *NoopManager) StartDiskMonitor(scratchDir string)                {}
func (m *NoopManager) StopDiskMonitor()                                  {}

type noopTracker struct{}

func (t *noopTracker) SetStage(stage string)                {}
func (t *noopTracker) SetProgress(current, total int64)     {}
func (t *noopTracker) SetCounter(name string, value int64)  {}
func (t *noopTracker) LogWarning(msg string)                {}
func (t *noopTracker) Done()                                {}

func humanBytes(b int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func humanBytesUint(b uint64) string {
	const (
		kb uint64 = 1024
		mb        = 1024 * kb
		gb        = 1024 * mb
		tb        = 1024 * gb
	)
	switch {
	case b >= tb:
		return fmt.Sprintf("%.1f TB", float64(b)/float64(tb))
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func humanCount(n int64) string {
	if n < 0 {
		return "-" + humanCount(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return humanCount(n/1000) + fmt.Sprintf(",%03d", n%1000)
}
