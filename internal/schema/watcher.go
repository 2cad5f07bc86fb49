package schema

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watcher reloads a Registry whenever the schema directory changes.
// Reloaded types are merged with the fixed system types.
type Watcher struct {
	dir      string
	registry *Registry
	system   []ContentType
	watcher  *fsnotify.Watcher

	// OnReload, if set, is called with the registry size after each
	// successful reload triggered by Run.
	OnReload func(types int)
}

// NewWatcher loads dir into registry once and prepares a watcher on it.
func NewWatcher(dir string, registry *Registry, system []ContentType) (*Watcher, error) {
	w := &Watcher{dir: dir, registry: registry, system: system}
	if err := w.reload(); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w.watcher = fw
	return w, nil
}

// Run processes filesystem events until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".hcl" {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			log.WithFields(log.Fields{"event": event.Op.String(), "file": event.Name}).Debug("schema change")
			err := w.reload()
			if err != nil {
				log.WithError(err).Warn("schema reload failed, keeping previous content types")
			} else if w.OnReload != nil {
				w.OnReload(w.registry.Len())
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Error("schema watcher error")
		}
	}
}

func (w *Watcher) reload() error {
	types, err := LoadDir(w.dir)
	if err != nil {
		return err
	}
	all := make([]ContentType, 0, len(w.system)+len(types))
	all = append(all, w.system...)
	all = append(all, types...)
	w.registry.Replace(all)
	log.WithFields(log.Fields{"dir": w.dir, "content_types": len(types)}).Info("schema loaded")
	return nil
}
