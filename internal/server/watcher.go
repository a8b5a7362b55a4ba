package server

import (
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// startFileWatcher watches the audio directory so files dropped in or removed
// out-of-band are reflected in the catalog without a restart.
func (ms *MusicServer) startFileWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(ms.config.Media.AudioDir); err != nil {
		watcher.Close()
		return err
	}

	ms.watcher = watcher
	go ms.watchFiles()

	log.Printf("Watching %s for changes", ms.config.Media.AudioDir)
	return nil
}

func (ms *MusicServer) stopFileWatcher() {
	if ms.watcher != nil {
		ms.watcher.Close()
	}
}

func (ms *MusicServer) watchFiles() {
	for {
		select {
		case event, ok := <-ms.watcher.Events:
			if !ok {
				return
			}
			ms.handleFileEvent(event)
		case err, ok := <-ms.watcher.Errors:
			if !ok {
				return
			}
			ms.logger.WithError(err).Warn("File watcher error")
		}
	}
}

func (ms *MusicServer) handleFileEvent(event fsnotify.Event) {
	if !ms.extractor.IsAudioFile(event.Name) {
		return
	}

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		// Writers may still be flushing when the event fires. A short
		// delay avoids reading half-copied files.
		time.Sleep(500 * time.Millisecond)
		if err := ms.registerAudioFile(event.Name); err != nil {
			ms.logger.WithError(err).WithField("path", event.Name).Warn("Failed to register new audio file")
		} else {
			ms.logger.WithField("path", event.Name).Info("Registered audio file from watcher")
		}
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if err := ms.db.RemoveTrackByPath(event.Name); err != nil {
			ms.logger.WithError(err).WithField("path", event.Name).Warn("Failed to remove track for deleted file")
		} else {
			ms.logger.WithField("path", event.Name).Info("Removed track for deleted file")
		}
	}
}
