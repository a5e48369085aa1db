// Package search drives the search-as-you-type location box shared by the
// map and report screens.
//
// Each keystroke cancels the pending debounce timer and the autocomplete
// request of the previous cycle, so a slow response can never overwrite the
// results of a newer query. Autocomplete failures are swallowed; explicit
// searches and resolutions report theirs.
package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/vbonduro/floodzone/internal/domain"
	"github.com/vbonduro/floodzone/internal/geocode"
)

const (
	DefaultDebounce = 400 * time.Millisecond
	// MinQueryLength is the shortest query that triggers autocomplete.
	MinQueryLength = 3
)

// ErrEmptyQuery is returned by Search and Resolve when there is no text.
var ErrEmptyQuery = errors.New("search query is empty")

// ErrClosed is returned once the flow has been torn down.
var ErrClosed = errors.New("search flow is closed")

type State int

const (
	StateIdle State = iota
	StateDebouncing
	StateSearching
	StateResultsShown
	StateNoResults
	StateError
)

func (s State) String() string {
	switch s {
	case StateDebouncing:
		return "debouncing"
	case StateSearching:
		return "searching"
	case StateResultsShown:
		return "results-shown"
	case StateNoResults:
		return "no-results"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Snapshot is a consistent view of the flow for rendering.
type Snapshot struct {
	Query     string
	State     State
	Results   []domain.SearchResult
	Selected  *domain.SearchResult
	Searching bool
}

type Flow struct {
	gateway  geocode.Gateway
	debounce time.Duration
	logger   *slog.Logger

	base       context.Context
	cancelBase context.CancelFunc

	mu        sync.Mutex
	query     string
	state     State
	results   []domain.SearchResult
	selected  *domain.SearchResult
	selectedQ string
	searching bool
	gen       uint64
	timer     *time.Timer
	inflight  context.CancelFunc
	closed    bool
	nextSubID int
	listeners map[int]func(Snapshot)
}

func NewFlow(gateway geocode.Gateway, debounce time.Duration, logger *slog.Logger) *Flow {
	if debounce < 0 {
		debounce = DefaultDebounce
	}
	base, cancel := context.WithCancel(context.Background())
	return &Flow{
		gateway:    gateway,
		debounce:   debounce,
		logger:     logger,
		base:       base,
		cancelBase: cancel,
		listeners:  make(map[int]func(Snapshot)),
	}
}

// Subscribe registers fn to receive every state change. Callbacks may run on
// timer goroutines. The returned func unsubscribes.
func (f *Flow) Subscribe(fn func(Snapshot)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSubID
	f.nextSubID++
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// SetQuery records a keystroke. Queries shorter than MinQueryLength clear the
// results without any request; longer ones restart the debounce timer.
func (f *Flow) SetQuery(q string) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	if f.selected != nil && q == f.selectedQ && q == f.query {
		f.mu.Unlock()
		return
	}

	f.query = q
	if f.selected != nil && q != f.selectedQ {
		f.selected = nil
		f.selectedQ = ""
	}
	f.abortLocked()

	if utf8.RuneCountInString(q) < MinQueryLength {
		f.results = nil
		f.state = StateIdle
		f.emitLocked()
		return
	}

	gen := f.gen
	f.state = StateDebouncing
	f.timer = time.AfterFunc(f.debounce, func() { f.fire(gen, q) })
	f.emitLocked()
}

// fire runs one autocomplete cycle unless it was superseded.
func (f *Flow) fire(gen uint64, q string) {
	f.mu.Lock()
	if f.closed || gen != f.gen {
		f.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(f.base)
	defer cancel()
	f.timer = nil
	f.inflight = cancel
	f.state = StateSearching
	f.emitLocked()

	results, err := f.gateway.Autocomplete(ctx, q, geocode.AutocompleteLimit)

	f.mu.Lock()
	if f.closed || gen != f.gen {
		f.mu.Unlock()
		f.logger.Debug("dropping superseded autocomplete response", "query", q)
		return
	}
	f.inflight = nil
	if err != nil {
		f.logger.Debug("autocomplete failed", "query", q, "error", err)
		f.results = nil
		f.state = StateError
		f.emitLocked()
		return
	}
	if len(results) > geocode.AutocompleteLimit {
		results = results[:geocode.AutocompleteLimit]
	}
	f.results = results
	if len(results) == 0 {
		f.state = StateNoResults
	} else {
		f.state = StateResultsShown
	}
	f.emitLocked()
}

// Select picks the i-th shown result: the query becomes its address, the
// list closes and no new search starts.
func (f *Flow) Select(i int) (*domain.SearchResult, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if i < 0 || i >= len(f.results) {
		f.mu.Unlock()
		return nil, errors.New("no such search result")
	}
	chosen := f.results[i]
	f.abortLocked()
	f.selectLocked(chosen, chosen.Address.FreeformAddress)
	f.results = nil
	f.state = StateIdle
	f.emitLocked()
	return &chosen, nil
}

// Search runs an explicit fuzzy search on the current query. Unlike
// autocomplete, failures and empty results are returned.
func (f *Flow) Search(ctx context.Context) (*domain.SearchResult, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	q := strings.TrimSpace(f.query)
	if q == "" {
		f.mu.Unlock()
		return nil, ErrEmptyQuery
	}
	f.abortLocked()
	f.searching = true
	f.emitLocked()

	res, err := geocode.FirstMatch(ctx, f.gateway, q)

	f.mu.Lock()
	f.searching = false
	if !f.closed && strings.TrimSpace(f.query) == q {
		f.results = nil
		if err != nil {
			f.state = StateError
		} else {
			f.selectLocked(*res, f.query)
			f.state = StateIdle
		}
	}
	f.emitLocked()
	return res, err
}

// Resolve returns the location to submit for the current query: the selected
// result when the text still matches it, otherwise the top fuzzy match.
func (f *Flow) Resolve(ctx context.Context) (*domain.SearchResult, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if f.selected != nil && f.query == f.selectedQ {
		chosen := *f.selected
		f.mu.Unlock()
		return &chosen, nil
	}
	query := f.query
	q := strings.TrimSpace(query)
	f.mu.Unlock()

	if q == "" {
		return nil, ErrEmptyQuery
	}

	res, err := geocode.FirstMatch(ctx, f.gateway, q)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	if !f.closed && f.query == query {
		f.selectLocked(*res, query)
	}
	f.mu.Unlock()
	return res, nil
}

// Reset clears the query, results and selection.
func (f *Flow) Reset() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.abortLocked()
	f.query = ""
	f.results = nil
	f.selected = nil
	f.selectedQ = ""
	f.state = StateIdle
	f.emitLocked()
}

// Close stops the pending timer and cancels any in-flight request. Later
// calls are ignored.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.abortLocked()
	f.cancelBase()
	f.listeners = map[int]func(Snapshot){}
}

// abortLocked invalidates the current cycle: the timer is stopped, the
// in-flight request cancelled, and late callbacks see a newer generation.
func (f *Flow) abortLocked() {
	f.gen++
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	if f.inflight != nil {
		f.inflight()
		f.inflight = nil
	}
}

func (f *Flow) selectLocked(res domain.SearchResult, query string) {
	f.selected = &res
	f.selectedQ = query
	f.query = query
}

func (f *Flow) snapshotLocked() Snapshot {
	snap := Snapshot{
		Query:     f.query,
		State:     f.state,
		Searching: f.searching,
	}
	if len(f.results) > 0 {
		snap.Results = append([]domain.SearchResult(nil), f.results...)
	}
	if f.selected != nil {
		sel := *f.selected
		snap.Selected = &sel
	}
	return snap
}

// emitLocked unlocks f.mu and then notifies listeners with the state as it
// was at unlock time.
func (f *Flow) emitLocked() {
	snap := f.snapshotLocked()
	listeners := make([]func(Snapshot), 0, len(f.listeners))
	for _, fn := range f.listeners {
		listeners = append(listeners, fn)
	}
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}
