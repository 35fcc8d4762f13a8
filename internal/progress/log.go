package progress

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LogManager implements Manager with throttled line-based output, for
// non-TTY environments (CI, a background batch job) where an interactive
// multi-bar display would just spam the log.
type LogManager struct {
	mu        sync.Mutex
	diskStop  chan struct{}
	completed int32
	total     int32
	host      string
}

// NewLogManager creates a new log-based progress manager.
func NewLogManager() *LogManager {
	host, _ := os.Hostname()
	if len(host) > 8 {
		host = host[len(host)-8:]
	}
	return &LogManager{host: host}
}

func (m *LogManager) NewTracker(index, total int, label string) Tracker {
	atomic.StoreInt32(&m.total, int32(total))
	name := strings.TrimSuffix(label, ".json.gz")
	if len(name) > logNameWidth {
		name = "..." + name[len(name)-(logNameWidth-3):]
	}
	return &logTracker{
		mgr:   m,
		name:  fmt.Sprintf("%-*s", logNameWidth, name),
		start: time.Now(),
	}
}

func (m *LogManager) Wait() {}

func (m *LogManager) StartDiskMonitor(scratchDir string) {}
func (m *LogManager) StopDiskMonitor()                   {}

type logTracker struct {
	mgr       *LogManager
	name      string
	start     time.Time
	stage     string
	lastLog   time.Time
	prevBytes int64
	prevTime  time.Time
}

const (
	logInterval  = 20 * time.Second
	logNameWidth = 40
)

func (t *logTracker) log(msg string) {
	t.mgr.mu.Lock()
	defer t.mgr.mu.Unlock()
	ts := time.Now().Format("15:04:05")
	prefix := ""
	if t.mgr.host != "" {
		prefix = fmt.Sprintf("[host|%s] ", t.mgr.host)
	}
	w := len(fmt.Sprintf("%d", atomic.LoadInt32(&t.mgr.total)))
	fmt.Fprintf(os.Stderr, "%s %s[%*d/%d] [%s]  %s\n", ts, prefix, w, atomic.LoadInt32(&t.mgr.completed), t.mgr.total, t.name, msg)
}

func (t *logTracker) SetStage(stage string) {
	t.stage = stage
	t.lastLog = time.Time{}
	t.prevBytes = 0
	t.prevTime = time.Time{}
	t.log(stage)
}

func (t *logTracker) SetProgress(current, total int64) {
	now := time.Now()
	if now.Sub(t.lastLog) < logInterval {
		return
	}

	speedStr := ""
	if !t.prevTime.IsZero() {
		if elapsed := now.Sub(t.prevTime).Seconds(); elapsed > 0 {
			mbps := float64(current-t.prevBytes) / elapsed / (1024 * 1024)
			speedStr = fmt.Sprintf("  %.1f MB/s", mbps)
		}
	}
	t.prevBytes = current
	t.prevTime = now
	t.lastLog = now

	if total > 0 {
		pct := float64(current) / float64(total) * 100
		t.log(fmt.Sprintf("%s  %s / %s (%.0f%%)%s", t.stage, humanBytes(current), humanBytes(total), pct, speedStr))
	} else if current > 0 {
		t.log(fmt.Sprintf("%s  %s%s", t.stage, humanBytes(current), speedStr))
	}
}

func (t *logTracker) SetCounter(name string, value int64) {
	if time.Since(t.lastLog) < logInterval {
		return
	}
	t.lastLog = time.Now()
	t.log(fmt.Sprintf("%s  %s: %s", t.stage, name, humanCount(value)))
}

func (t *logTracker) LogWarning(msg string) {
	t.log("WARN: " + msg)
}

func (t *logTracker) Done() {
	done := atomic.AddInt32(&t.mgr.completed, 1)
	elapsed := time.Since(t.start).Truncate(time.Second)
	t.log(fmt.Sprintf("Finished in %s  [%d/%d complete]", elapsed, done, atomic.LoadInt32(&t.mgr.total)))
}
