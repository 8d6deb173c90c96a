package assetsync

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// EventKind classifies an AssetLoader change event, matching §4.6's three
// generator-invoking events (initial load, hot reload, unload).
type EventKind int

const (
	EventInit EventKind = iota
	EventAddOrUpdate
	EventRemove
)

func (k EventKind) String() string {
	switch k {
	case EventInit:
		return "init"
	case EventAddOrUpdate:
		return "add_or_update"
	case EventRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event is what an AssetLoader emits: an asset type name (derived from the
// watched file's base name, e.g. "items", "recipes"), the kind of change,
// and the affected id set (§6: "emits (asset_type, kind, id_set) change
// events consumed by C6").
type Event struct {
	AssetType string
	Kind      EventKind
	IDs       []string
}

// AssetLoader is the external collaborator named in §6. This package ships
// one concrete, file-system-backed implementation (FSLoader) to exercise C6
// end-to-end, the way the teacher ships one concrete chunkstore even though
// storage is conceptually pluggable.
type AssetLoader interface {
	Events() <-chan Event
	Close() error
}

// FSLoader watches a directory of JSON asset files, one file per asset
// type (items.json, recipes.json, itemqualities.json, itemreticles.json —
// matching the teacher's own asset families in gamerules/item.go and
// gamerules/recipe_loader_test.go, which load each asset family from its
// own JSON document). Each file holds a JSON object keyed by asset id; on
// create/write FSLoader diffs the new key set and per-key raw bytes against
// its last-seen snapshot to compute the added/changed/removed id sets, and
// on remove it emits an EventRemove for every id the file last held.
type FSLoader struct {
	dir    string
	log    *logrus.Entry
	watch  *fsnotify.Watcher
	events chan Event

	mu       sync.Mutex
	snapshot map[string]map[string][]byte // asset type -> id -> raw JSON
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewFSLoader starts watching dir for *.json asset files and performs an
// initial full load, emitting one EventInit per discovered asset type.
func NewFSLoader(dir string, log *logrus.Logger) (*FSLoader, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	l := &FSLoader{
		dir:      dir,
		log:      log.WithField("component", "assetsync.fsloader"),
		watch:    w,
		events:   make(chan Event, 16),
		snapshot: make(map[string]map[string][]byte),
		done:     make(chan struct{}),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.Close()
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := l.loadFile(filepath.Join(dir, e.Name()), EventInit); err != nil {
			l.log.WithError(err).WithField("file", e.Name()).Warn("skipping unparseable asset file")
		}
	}

	l.wg.Add(1)
	go l.watchLoop()
	return l, nil
}

func (l *FSLoader) Events() <-chan Event { return l.events }

func (l *FSLoader) Close() error {
	close(l.done)
	err := l.watch.Close()
	l.wg.Wait()
	close(l.events)
	return err
}

func (l *FSLoader) watchLoop() {
	defer l.wg.Done()
	for {
		select {
		case <-l.done:
			return
		case ev, ok := <-l.watch.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
				if err := l.loadFile(ev.Name, EventAddOrUpdate); err != nil {
					l.log.WithError(err).WithField("file", ev.Name).Warn("failed to reload asset file")
				}
			case ev.Op&fsnotify.Remove != 0:
				l.removeFile(ev.Name)
			}
		case err, ok := <-l.watch.Errors:
			if !ok {
				return
			}
			l.log.WithError(err).Warn("fsnotify watcher error")
		}
	}
}

func assetTypeOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (l *FSLoader) loadFile(path string, kind EventKind) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}

	assetType := assetTypeOf(path)

	l.mu.Lock()
	prev := l.snapshot[assetType]
	next := make(map[string][]byte, len(doc))
	var changed []string
	for id, body := range doc {
		next[id] = body
		if old, ok := prev[id]; !ok || !bytes.Equal(old, body) {
			changed = append(changed, id)
		}
	}
	var removed []string
	for id := range prev {
		if _, ok := next[id]; !ok {
			removed = append(removed, id)
		}
	}
	l.snapshot[assetType] = next
	l.mu.Unlock()

	if kind == EventInit {
		ids := make([]string, 0, len(next))
		for id := range next {
			ids = append(ids, id)
		}
		l.emit(Event{AssetType: assetType, Kind: EventInit, IDs: ids})
		return nil
	}
	if len(changed) > 0 {
		l.emit(Event{AssetType: assetType, Kind: EventAddOrUpdate, IDs: changed})
	}
	if len(removed) > 0 {
		l.emit(Event{AssetType: assetType, Kind: EventRemove, IDs: removed})
	}
	return nil
}

func (l *FSLoader) removeFile(path string) {
	assetType := assetTypeOf(path)

	l.mu.Lock()
	prev := l.snapshot[assetType]
	delete(l.snapshot, assetType)
	l.mu.Unlock()

	if len(prev) == 0 {
		return
	}
	ids := make([]string, 0, len(prev))
	for id := range prev {
		ids = append(ids, id)
	}
	l.emit(Event{AssetType: assetType, Kind: EventRemove, IDs: ids})
}

func (l *FSLoader) emit(ev Event) {
	select {
	case l.events <- ev:
	case <-l.done:
	}
}
