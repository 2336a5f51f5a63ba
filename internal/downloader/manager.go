package downloader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"soundcrate/internal/config"
	"soundcrate/internal/fetcher"
	"soundcrate/internal/metrics"
	"soundcrate/internal/models"
)

// State is the download manager's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Manager transfers a batch of remote audio previews to local files,
// reporting progress on a timer cadence and supporting cooperative
// cancellation. Batches run one at a time and never interleave.
//
// A cancelled batch reports allSuccessful=false to its listeners.
// Partially written files from a cancelled or failed item are left in
// place; the sample cleanup removes them later if nothing references them.
type Manager struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
	fetcher fetcher.Provider

	chunkSize    int
	tickInterval time.Duration
	cancelWait   time.Duration

	listeners listenerList

	mu              sync.Mutex
	state           State
	progress        models.DownloadProgress
	anyFailed       bool
	cancelRequested bool
	results         []models.DownloadedFileInfo
	cancelCh        chan struct{}
	doneCh          chan struct{}
}

// NewManager creates a download manager. The fetcher supplies the
// byte-stream transport for preview URLs.
func NewManager(logger *zap.Logger, m *metrics.Metrics, f fetcher.Provider, cfg *config.Config) *Manager {
	return &Manager{
		logger:       logger,
		metrics:      m,
		fetcher:      f,
		chunkSize:    cfg.DownloadChunkSize,
		tickInterval: cfg.ProgressTickInterval,
		cancelWait:   cfg.CancelWaitTimeout,
		state:        StateIdle,
	}
}

// AddListener registers a subscriber for progress and completion events.
func (m *Manager) AddListener(l Listener) {
	m.listeners.add(l)
}

// RemoveListener unregisters a subscriber.
func (m *Manager) RemoveListener(l Listener) {
	m.listeners.remove(l)
}

// Progress returns a snapshot of the current progress record.
func (m *Manager) Progress() models.DownloadProgress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progress
}

// State returns the manager's lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsRunning reports whether a batch is in flight.
func (m *Manager) IsRunning() bool {
	return m.State() == StateRunning
}

// Cancel requests cooperative cancellation of the running batch, if any.
// It returns immediately; completion is observed through the listeners.
func (m *Manager) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateRunning {
		return false
	}
	m.requestCancelLocked()
	return true
}

func (m *Manager) requestCancelLocked() {
	if !m.cancelRequested {
		close(m.cancelCh)
		m.cancelRequested = true
	}
}

// StartDownloads begins downloading the given sounds into targetDir,
// sequentially and in order. If a batch is already running it is cancelled
// first; if it does not stop within the bounded wait an error is returned
// and no new batch starts. An empty sound list is a degenerate batch that
// completes immediately with totalFiles = 0.
func (m *Manager) StartDownloads(sounds []models.SoundDescriptor, targetDir, searchQuery string) error {
	m.mu.Lock()
	if m.state == StateRunning {
		m.requestCancelLocked()
		done := m.doneCh
		m.mu.Unlock()

		select {
		case <-done:
		case <-time.After(m.cancelWait):
			return fmt.Errorf("previous batch did not stop within %s", m.cancelWait)
		}
		m.mu.Lock()
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("create target directory: %w", err)
	}

	m.state = StateRunning
	m.progress = models.DownloadProgress{TotalFiles: len(sounds)}
	m.anyFailed = false
	m.cancelRequested = false
	m.results = nil
	m.cancelCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	cancel, done := m.cancelCh, m.doneCh
	m.mu.Unlock()

	m.metrics.ActiveBatches.Inc()
	m.metrics.FilesRequestedHist.Observe(float64(len(sounds)))
	m.logger.Info("starting download batch",
		zap.Int("sounds", len(sounds)),
		zap.String("dir", targetDir),
		zap.String("query", searchQuery))

	go m.run(sounds, targetDir, searchQuery, cancel, done)
	return nil
}

// run executes one batch to completion or cancellation. It owns the
// notification ticker and always emits exactly one final progress snapshot
// at 1.0 followed by exactly one completion callback.
func (m *Manager) run(sounds []models.SoundDescriptor, targetDir, searchQuery string, cancel <-chan struct{}, done chan struct{}) {
	start := time.Now()

	workEnd := make(chan struct{})
	tickerDone := make(chan struct{})
	go m.notifyLoop(workEnd, tickerDone)

	cancelled := m.processBatch(sounds, targetDir, searchQuery, cancel)

	// Stop the ticker before the final notifications so no ordinary tick
	// can follow the terminal snapshot.
	close(workEnd)
	<-tickerDone

	m.mu.Lock()
	m.progress.OverallProgress = 1.0
	snapshot := m.progress
	allSuccessful := !m.anyFailed && !cancelled
	files := append([]models.DownloadedFileInfo(nil), m.results...)
	if cancelled {
		m.state = StateCancelled
	} else {
		m.state = StateCompleted
	}
	m.mu.Unlock()

	outcome := "completed"
	if cancelled {
		outcome = "cancelled"
	} else if !allSuccessful {
		outcome = "failed"
	}
	m.metrics.BatchesTotal.WithLabelValues(outcome).Inc()
	m.metrics.BatchDurationHist.Observe(time.Since(start).Seconds())
	m.metrics.FilesSuccessHist.Observe(float64(len(files)))
	m.metrics.ActiveBatches.Dec()

	m.listeners.notifyProgress(snapshot)
	m.listeners.notifyCompleted(allSuccessful, files)

	m.logger.Info("download batch finished",
		zap.String("outcome", outcome),
		zap.Int("requested", snapshot.TotalFiles),
		zap.Int("downloaded", len(files)),
		zap.Duration("duration", time.Since(start)))

	close(done)
}

// notifyLoop pushes progress snapshots to listeners on the tick cadence,
// independent of worker activity, until stopped.
func (m *Manager) notifyLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			snapshot := m.progress
			m.mu.Unlock()
			m.listeners.notifyProgress(snapshot)
		}
	}
}

// processBatch walks the sounds in order. Per-item failures are recovered
// locally; only cancellation stops the loop early. Returns true if the
// batch was cancelled.
func (m *Manager) processBatch(sounds []models.SoundDescriptor, targetDir, searchQuery string, cancel <-chan struct{}) bool {
	for i, sound := range sounds {
		select {
		case <-cancel:
			return true
		default:
		}

		if sound.PreviewURL == "" {
			m.logger.Warn("sound has no preview url, skipping", zap.String("id", sound.ID))
			m.metrics.FileDownloadsTotal.WithLabelValues("skipped").Inc()
			m.completeItem()
			continue
		}

		fileName := models.SampleFileName(sound.ID, sound.PreviewURL)

		m.mu.Lock()
		m.progress.CurrentFileName = fileName
		m.progress.CurrentFileDownloadedBytes = 0
		m.progress.CurrentFileTotalBytes = 0
		m.mu.Unlock()

		written, cancelled, err := m.downloadOne(sound.PreviewURL, filepath.Join(targetDir, fileName), cancel)
		if cancelled {
			return true
		}

		if err != nil {
			m.logger.Warn("download failed",
				zap.String("id", sound.ID),
				zap.String("file", fileName),
				zap.Error(err))
			m.mu.Lock()
			m.anyFailed = true
			m.mu.Unlock()
			m.metrics.FileDownloadsTotal.WithLabelValues("error").Inc()
		} else {
			m.metrics.FileDownloadsTotal.WithLabelValues("success").Inc()
			m.metrics.DownloadedBytesHist.Observe(float64(written))

			info := models.DownloadedFileInfo{
				FileName:        fileName,
				OriginalName:    sound.Name,
				FreesoundID:     sound.ID,
				SearchQuery:     searchQuery,
				Author:          sound.Author,
				License:         sound.License,
				DurationSeconds: sound.DurationSeconds,
				FileSizeBytes:   written,
				DownloadedAt:    time.Now().Format(models.TimestampFormat),
				PadIndex:        i,
			}
			m.mu.Lock()
			m.results = append(m.results, info)
			m.mu.Unlock()
		}

		m.completeItem()
	}
	return false
}

// downloadOne streams a single preview into destPath in fixed-size chunks,
// checking the cancellation signal at every chunk boundary. A partially
// written file is left in place on cancellation or error.
func (m *Manager) downloadOne(previewURL, destPath string, cancel <-chan struct{}) (written int64, cancelled bool, err error) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	// Bridge the batch cancel signal into the fetch context so a stalled
	// connect cannot outlive the cancellation request.
	go func() {
		select {
		case <-cancel:
			cancelCtx()
		case <-ctx.Done():
		}
	}()

	body, total, err := m.fetcher.Open(ctx, previewURL)
	if err != nil {
		select {
		case <-cancel:
			return 0, true, nil
		default:
		}
		return 0, false, fmt.Errorf("connect: %w", err)
	}
	defer body.Close()

	if total > 0 {
		m.mu.Lock()
		m.progress.CurrentFileTotalBytes = total
		m.mu.Unlock()
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, false, fmt.Errorf("create file: %w", err)
	}
	defer out.Close()

	cw := &models.CountingWriter{
		Writer: out,
		OnWrite: func(total int64) {
			m.mu.Lock()
			m.progress.CurrentFileDownloadedBytes = total
			m.recomputeProgressLocked()
			m.mu.Unlock()
		},
	}

	buf := make([]byte, m.chunkSize)
	for {
		select {
		case <-cancel:
			return cw.Count, true, nil
		default:
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := cw.Write(buf[:n]); writeErr != nil {
				return cw.Count, false, fmt.Errorf("write chunk: %w", writeErr)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			select {
			case <-cancel:
				return cw.Count, true, nil
			default:
			}
			return cw.Count, false, fmt.Errorf("read chunk: %w", readErr)
		}
	}

	if err := out.Close(); err != nil {
		return cw.Count, false, fmt.Errorf("close file: %w", err)
	}
	return cw.Count, false, nil
}

// completeItem advances the file counter and clears the in-flight fields.
// Called once per sound whether it succeeded, was skipped, or failed.
func (m *Manager) completeItem() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress.CompletedFiles++
	m.progress.CurrentFileDownloadedBytes = 0
	m.progress.CurrentFileTotalBytes = 0
	m.progress.CurrentFileName = ""
	m.recomputeProgressLocked()
}

// recomputeProgressLocked updates OverallProgress from the file counter and
// the in-flight byte fraction. When the server did not report a length the
// fractional term is 0 until the file completes. Progress never decreases
// within a batch, caller must hold the lock.
func (m *Manager) recomputeProgressLocked() {
	p := &m.progress
	if p.TotalFiles == 0 {
		return
	}

	value := float64(p.CompletedFiles) / float64(p.TotalFiles)
	if p.CurrentFileTotalBytes > 0 {
		fileFrac := float64(p.CurrentFileDownloadedBytes) / float64(p.CurrentFileTotalBytes)
		if fileFrac > 1 {
			fileFrac = 1
		}
		value += fileFrac / float64(p.TotalFiles)
	}
	if value > 1 {
		value = 1
	}
	if value > p.OverallProgress {
		p.OverallProgress = value
	}
}
