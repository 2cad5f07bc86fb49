package widget

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/contentmetrics/contentmetrics/internal/counts"
)

// State is the display state.
type State int

const (
	StateLoading State = iota
	StateError
	StateEmpty
	StatePopulated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateEmpty:
		return "empty"
	case StatePopulated:
		return "populated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Rendered messages.
const (
	LoadingText = "Loading..."
	ErrorText   = "Unable to load content metrics"
	EmptyText   = "No content types found"
)

const genericError = "An error occurred"

// Fetcher retrieves the count mapping from the server.
type Fetcher interface {
	FetchCounts(ctx context.Context) (*counts.Result, error)
}

// Row is one rendered table row.
type Row struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Display is one mounted instance of the metrics widget. Load fetches at most
// once; mount a new Display to fetch again.
type Display struct {
	fetcher Fetcher

	once  sync.Once
	mu    sync.RWMutex
	state State
	err   string
	rows  []Row
}

// NewDisplay mounts a display in the Loading state.
func NewDisplay(f Fetcher) *Display {
	return &Display{fetcher: f, state: StateLoading}
}

// Load performs the single fetch and settles the state. Calls after the first
// return immediately without fetching.
func (d *Display) Load(ctx context.Context) State {
	d.once.Do(func() {
		rows, err := d.fetch(ctx)
		d.mu.Lock()
		defer d.mu.Unlock()
		switch {
		case err != nil:
			log.WithError(err).Error("loading content metrics")
			d.state = StateError
			d.err = errorText(err)
		case len(rows) == 0:
			d.state = StateEmpty
		default:
			d.state = StatePopulated
			d.rows = rows
		}
	})
	return d.State()
}

func (d *Display) fetch(ctx context.Context) ([]Row, error) {
	result, err := d.fetcher.FetchCounts(ctx)
	if err != nil {
		return nil, err
	}
	entries := result.Entries()
	rows := make([]Row, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		g.Go(func() error {
			v, err := e.Value.Resolve(gctx)
			if err != nil {
				return err
			}
			rows[i] = Row{Name: e.Name, Value: v.String()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

func errorText(err error) string {
	if err == nil || err.Error() == "" {
		return genericError
	}
	return err.Error()
}

// State returns the current state.
func (d *Display) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Err returns the captured error message in the Error state.
func (d *Display) Err() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}

// Rows returns the table rows in the Populated state.
func (d *Display) Rows() []Row {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Row(nil), d.rows...)
}

// Render writes the current state. The Error state shows only a generic
// indicator, never the captured message.
func (d *Display) Render(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch d.state {
	case StateLoading:
		_, err := fmt.Fprintln(w, LoadingText)
		return err
	case StateError:
		_, err := fmt.Fprintln(w, ErrorText)
		return err
	case StateEmpty:
		_, err := fmt.Fprintln(w, EmptyText)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range d.rows {
		fmt.Fprintf(tw, "%s\t%s\n", row.Name, row.Value)
	}
	return tw.Flush()
}
