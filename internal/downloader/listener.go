package downloader

import (
	"sync"

	"soundcrate/internal/models"
)

// Listener receives progress snapshots while a batch runs and exactly one
// completion callback when it stops. Snapshots are value copies; a listener
// never sees the manager's live progress record.
type Listener interface {
	DownloadProgressChanged(progress models.DownloadProgress)
	DownloadCompleted(allSuccessful bool, files []models.DownloadedFileInfo)
}

// listenerList is an ordered registry of subscribers, invoked synchronously
// by the notifying goroutine.
type listenerList struct {
	mu        sync.RWMutex
	listeners []Listener
}

func (l *listenerList) add(listener Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, listener)
}

func (l *listenerList) remove(listener Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, existing := range l.listeners {
		if existing == listener {
			l.listeners = append(l.listeners[:i], l.listeners[i+1:]...)
			return
		}
	}
}

func (l *listenerList) notifyProgress(progress models.DownloadProgress) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, listener := range l.listeners {
		listener.DownloadProgressChanged(progress)
	}
}

func (l *listenerList) notifyCompleted(allSuccessful bool, files []models.DownloadedFileInfo) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, listener := range l.listeners {
		listener.DownloadCompleted(allSuccessful, files)
	}
}
