package classgraph

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WorkUnit is one scheduled scan unit: a configured root, a discovered
// package root, or a discovered nested archive.
type WorkUnit struct {
	// Path is the absolute path of the entry to scan.
	Path string

	// Loader is the opaque loader reference carried from the parent.
	Loader any

	// Parent is the root element this unit was discovered under, or nil
	// for configured roots.
	Parent *Element

	// Order is the unit's index within its parent: densely increasing
	// from 0, assigned in sorted-name order.
	Order int
}

// Submitter accepts work units discovered during scanning. Element.Open
// submits nested roots through it; implementations must be safe for
// concurrent use.
type Submitter interface {
	Submit(u WorkUnit)
}

// Result holds the outcome of a Scanner run.
type Result struct {
	// Elements are the scanned root elements, in submission order.
	Elements []*Element

	// Resources are all selected resources, grouped by element in
	// submission order.
	Resources []*Resource

	// Archives are discovered nested archive work units. Archive
	// containers are not parsed here; they are handed to the caller.
	Archives []WorkUnit
}

// Scanner scans multiple classpath roots concurrently. Each root is
// traversed by a single worker; discovered package roots feed back into the
// queue as new work.
type Scanner struct {
	cfg *config
}

// NewScanner creates a scanner from the given options.
func NewScanner(opts ...Option) *Scanner {
	return &Scanner{cfg: newConfig(opts...)}
}

// Scan opens and scans the given root directories and every nested root
// discovered beneath them. It blocks until all work is done, the context is
// canceled, or a worker fails.
func (s *Scanner) Scan(ctx context.Context, roots ...string) (*Result, error) {
	q := newWorkQueue()
	for i, root := range roots {
		q.Submit(WorkUnit{Path: root, Loader: s.cfg.loader, Order: i})
	}

	var (
		mu       sync.Mutex
		elements []scannedElement
		archives []queuedUnit
	)

	g, ctx := errgroup.WithContext(ctx)
	q.wakeOnDone(ctx)
	for w := 0; w < s.cfg.workers; w++ {
		g.Go(func() error {
			for {
				u, ok := q.next(ctx)
				if !ok {
					return ctx.Err()
				}
				if isArchivePath(u.unit.Path) {
					mu.Lock()
					archives = append(archives, u)
					mu.Unlock()
					q.done()
					continue
				}
				elt := newElement(s.cfg, u.unit.Path, u.unit.Loader)
				elt.Open(q)
				resources := elt.Scan()
				mu.Lock()
				elements = append(elements, scannedElement{seq: u.seq, elt: elt, resources: resources})
				mu.Unlock()
				q.done()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(elements, func(i, j int) bool { return elements[i].seq < elements[j].seq })
	sort.Slice(archives, func(i, j int) bool { return archives[i].seq < archives[j].seq })

	res := &Result{}
	for _, se := range elements {
		res.Elements = append(res.Elements, se.elt)
		res.Resources = append(res.Resources, se.resources...)
	}
	for _, a := range archives {
		res.Archives = append(res.Archives, a.unit)
	}
	s.cfg.log.Debug("scan complete",
		zap.Int("elements", len(res.Elements)),
		zap.Int("resources", len(res.Resources)),
		zap.Int("archives", len(res.Archives)))
	return res, nil
}

// scannedElement pairs a scanned element with its submission sequence so
// results can be reported in submission order.
type scannedElement struct {
	seq       int
	elt       *Element
	resources []*Resource
}

func isArchivePath(p string) bool {
	return strings.HasSuffix(strings.ToLower(p), archiveExt)
}

// queuedUnit tags a work unit with a global submission sequence number.
type queuedUnit struct {
	seq  int
	unit WorkUnit
}

// workQueue is an unbounded FIFO of work units with completion tracking:
// next returns false only once every submitted unit has been marked done,
// so units submitted mid-scan extend the run.
type workQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []queuedUnit
	pending int
	seq     int
}

func newWorkQueue() *workQueue {
	q := &workQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Submit implements Submitter.
func (q *workQueue) Submit(u WorkUnit) {
	q.mu.Lock()
	q.items = append(q.items, queuedUnit{seq: q.seq, unit: u})
	q.seq++
	q.pending++
	q.mu.Unlock()
	q.cond.Broadcast()
}

// next blocks until a unit is available, all work has drained, or the
// context is canceled.
func (q *workQueue) next(ctx context.Context) (queuedUnit, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if ctx.Err() != nil {
			return queuedUnit{}, false
		}
		if len(q.items) > 0 {
			u := q.items[0]
			q.items = q.items[1:]
			return u, true
		}
		if q.pending == 0 {
			return queuedUnit{}, false
		}
		q.cond.Wait()
	}
}

// done marks one previously returned unit as completed.
func (q *workQueue) done() {
	q.mu.Lock()
	q.pending--
	drained := q.pending == 0
	q.mu.Unlock()
	if drained {
		q.cond.Broadcast()
	}
}

// wakeOnDone wakes blocked workers when the context is canceled, so they can
// observe the cancellation.
func (q *workQueue) wakeOnDone(ctx context.Context) {
	go func() {
		<-ctx.Done()
		q.cond.Broadcast()
	}()
}
