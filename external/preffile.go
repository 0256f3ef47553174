package external

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/axonbase/extcore/ecode"
	"github.com/axonbase/extcore/logging/logger"
	"github.com/axonbase/extcore/types"
)

// prefEntry is one record in an external preferences file. An entry names
// either a local archive plus its version, or an update URL, never both.
type prefEntry struct {
	ExternalCrx       string `json:"external_crx,omitempty"`
	ExternalVersion   string `json:"external_version,omitempty"`
	ExternalUpdateURL string `json:"external_update_url,omitempty"`
}

// PrefFileProvider reads external install demands from a JSON preferences
// file keyed by extension id. File entries pointing at a local archive get
// the provider's crx location; entries carrying an update URL get the
// download location. The file is re-read on every Enumerate, so edits take
// effect at the next reconciliation pass even without a watch.
type PrefFileProvider struct {
	name             string
	path             string
	crxLocation      types.Location
	downloadLocation types.Location

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// NewPrefFileProvider builds a provider over the given preferences file.
func NewPrefFileProvider(name, path string, crxLocation, downloadLocation types.Location) *PrefFileProvider {
	return &PrefFileProvider{
		name:             name,
		path:             path,
		crxLocation:      crxLocation,
		downloadLocation: downloadLocation,
	}
}

// Name identifies the provider.
func (p *PrefFileProvider) Name() string { return p.name }

// Location returns the location used for local-archive entries.
func (p *PrefFileProvider) Location() types.Location { return p.crxLocation }

// Enumerate parses the preferences file into candidates. A missing file
// yields an empty set, not an error. Malformed entries are skipped with a
// warning so one bad record cannot block the rest of the file.
func (p *PrefFileProvider) Enumerate(ctx context.Context) ([]types.Candidate, error) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	entries := make(map[string]prefEntry)
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []types.Candidate
	for _, id := range ids {
		entry := entries[id]
		cand, err := p.candidateFor(id, entry)
		if err != nil {
			logger.Warnf(ctx, "external: skipping pref entry %s in %s: %v", id, p.path, err)
			continue
		}
		out = append(out, cand)
	}
	return out, nil
}

func (p *PrefFileProvider) candidateFor(id string, entry prefEntry) (types.Candidate, error) {
	if !types.IsValidID(id) {
		return types.Candidate{}, ecode.NewCandidateError(id, ecode.ErrMalformedCandidate)
	}
	switch {
	case entry.ExternalCrx != "" && entry.ExternalUpdateURL != "":
		return types.Candidate{}, ecode.NewCandidateError(id, ecode.ErrMalformedCandidate)
	case entry.ExternalCrx != "":
		version, err := types.ParseVersion(entry.ExternalVersion)
		if err != nil {
			return types.Candidate{}, ecode.NewCandidateError(id, err)
		}
		return types.Candidate{
			ID:       id,
			Version:  version,
			Location: p.crxLocation,
			Path:     entry.ExternalCrx,
		}, nil
	case entry.ExternalUpdateURL != "":
		return types.Candidate{
			ID:        id,
			Location:  p.downloadLocation,
			UpdateURL: entry.ExternalUpdateURL,
		}, nil
	default:
		return types.Candidate{}, ecode.NewCandidateError(id, ecode.ErrMalformedCandidate)
	}
}

// Watch starts watching the preferences file and invokes onChange whenever
// it is written or replaced. Stop the watch with Close.
func (p *PrefFileProvider) Watch(onChange func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(p.path); err != nil {
		_ = watcher.Close()
		return err
	}
	p.watcher = watcher

	go func() {
		for {
			select {
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnf(context.Background(), "external: watch error on %s: %v", p.path, err)
			}
		}
	}()
	return nil
}

// Close stops the file watch if one is running.
func (p *PrefFileProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watcher == nil {
		return nil
	}
	err := p.watcher.Close()
	p.watcher = nil
	return err
}
