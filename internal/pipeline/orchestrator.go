package pipeline

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/collector"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/composer"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/dedup"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/dispatcher"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/filter"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/store"
)

// Orchestrator drives one application request through
// collect -> filter -> compose -> dispatch, fanning compose/dispatch work
// out per accepted posting under a bounded worker pool and recording every
// transition in the request store.
type Orchestrator struct {
	store      *store.Store
	collector  *collector.Collector
	filter     *filter.Filter
	composer   *composer.Composer
	dispatcher *dispatcher.Dispatcher
	applied    *dedup.AppliedCache // optional
	poolSize   int

	notify     func(*models.ApplicationRequest)
	onComplete []func(*models.ApplicationRequest)
}

func NewOrchestrator(st *store.Store, col *collector.Collector, fil *filter.Filter, comp *composer.Composer, disp *dispatcher.Dispatcher, applied *dedup.AppliedCache, poolSize int) *Orchestrator {
	if poolSize <= 0 {
		poolSize = 3
	}
	return &Orchestrator{
		store:      st,
		collector:  col,
		filter:     fil,
		composer:   comp,
		dispatcher: disp,
		applied:    applied,
		poolSize:   poolSize,
	}
}

// SetNotifier registers a callback invoked with a fresh snapshot after
// every request status change and item terminal transition.
func (o *Orchestrator) SetNotifier(fn func(*models.ApplicationRequest)) {
	o.notify = fn
}

// OnComplete registers a callback invoked once per request when it reaches
// a terminal status.
func (o *Orchestrator) OnComplete(fn func(*models.ApplicationRequest)) {
	o.onComplete = append(o.onComplete, fn)
}

// Submit registers a request and starts processing it in the background.
// Returns immediately with the request ID; progress is polled via the store.
func (o *Orchestrator) Submit(ctx context.Context, profile models.UserProfile, criteria models.SearchCriteria, autoApply bool) string {
	req := o.store.Create(profile, criteria, autoApply)
	log.Printf("🚀 Request %s submitted: keywords=%v max_jobs=%d auto_apply=%v", req.ID, criteria.Keywords, criteria.MaxJobs, autoApply)

	// the run outlives the caller: an HTTP request context dies the moment
	// the handler returns, and the pipeline must not die with it. Values
	// (trace ids) survive; cancellation happens via the store flag.
	go o.run(context.WithoutCancel(ctx), req.ID)
	return req.ID
}

// Cancel flags the request; workers observe the flag at stage boundaries.
func (o *Orchestrator) Cancel(id string) bool {
	ok := o.store.RequestCancel(id)
	if ok {
		log.Printf("🛑 Cancellation requested for %s", id)
	}
	return ok
}

func (o *Orchestrator) run(ctx context.Context, id string) {
	snap, ok := o.store.Get(id)
	if !ok {
		return
	}
	profile, criteria, autoApply := snap.Profile, snap.Criteria, snap.AutoApply

	// scrape stage
	o.setStatus(id, models.RequestScraping)
	postings, err := o.collector.Collect(ctx, criteria)
	if err != nil {
		o.finishFailed(id, err)
		return
	}
	if len(postings) == 0 {
		// zero candidates is the one request-level precondition failure
		o.finishFailed(id, collector.ErrNoPostings)
		return
	}

	// filter stage
	o.setStatus(id, models.RequestFiltering)
	accepted, rejected := o.filter.Split(postings, profile)

	now := time.Now().UTC()
	o.store.Update(id, func(req *models.ApplicationRequest) {
		for _, sp := range accepted {
			req.Items = append(req.Items, models.ApplicationItem{
				Posting:   sp.Posting,
				Status:    models.ItemPending,
				Score:     sp.Score,
				UpdatedAt: now,
			})
		}
		for _, sp := range rejected {
			req.Items = append(req.Items, models.ApplicationItem{
				Posting:   sp.Posting,
				Status:    models.ItemFilteredOut,
				Score:     sp.Score,
				UpdatedAt: now,
			})
		}
	})
	log.Printf("🔍 Request %s: %d accepted, %d filtered out", id, len(accepted), len(rejected))

	// process stage: accepted items occupy indexes 0..len(accepted)-1 in
	// priority order, so dequeueing by index preserves the ranking
	o.setStatus(id, models.RequestProcessing)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.poolSize)
	for i := range accepted {
		idx := i
		g.Go(func() error {
			o.processItem(gctx, id, idx, autoApply)
			return nil
		})
	}
	g.Wait()

	o.finalize(id)
}

// processItem owns one item exclusively: no other worker touches this
// index while it runs.
func (o *Orchestrator) processItem(ctx context.Context, id string, idx int, autoApply bool) {
	// cancellation is observed here, before the item starts; items already
	// past this point run to their natural terminal state
	if o.cancelled(id) {
		o.updateItem(id, idx, func(it *models.ApplicationItem) {
			if it.Status == models.ItemPending {
				it.Status = models.ItemCancelled
			}
		})
		return
	}

	var posting models.JobPosting
	var profile models.UserProfile
	o.store.Update(id, func(req *models.ApplicationRequest) {
		req.Items[idx].Status = models.ItemComposing
		req.Items[idx].UpdatedAt = time.Now().UTC()
		posting = req.Items[idx].Posting
		profile = req.Profile
	})

	msg, composeAttempts, err := o.composer.Compose(ctx, posting, profile, models.EmailCoverLetter)
	if err != nil {
		// only cancellation reaches here; compose degrades instead of failing
		o.updateItem(id, idx, func(it *models.ApplicationItem) {
			it.Status = models.ItemFailed
			it.Error = err.Error()
			it.ComposeAttempts = composeAttempts
		})
		o.notifySnapshot(id)
		return
	}

	o.updateItem(id, idx, func(it *models.ApplicationItem) {
		it.Status = models.ItemComposed
		it.Message = msg
		it.ComposeAttempts = composeAttempts
		if msg.Degraded {
			it.Error = msg.DegradedReason
		}
	})

	if !autoApply {
		// preview mode: composed is as far as this item goes
		o.notifySnapshot(id)
		return
	}

	o.updateItem(id, idx, func(it *models.ApplicationItem) {
		it.Status = models.ItemSending
	})

	result, sendAttempts, err := o.dispatcher.Send(ctx, msg)
	if err != nil {
		o.updateItem(id, idx, func(it *models.ApplicationItem) {
			it.Status = models.ItemFailed
			it.Error = err.Error()
			it.SendAttempts = sendAttempts
		})
		o.notifySnapshot(id)
		return
	}

	o.updateItem(id, idx, func(it *models.ApplicationItem) {
		it.Status = models.ItemSent
		it.Delivery = result
		it.SendAttempts = sendAttempts
	})
	if o.applied != nil {
		o.applied.Mark(posting.Key())
	}
	o.notifySnapshot(id)
}

// finalize recomputes the aggregate status once every item is settled.
func (o *Orchestrator) finalize(id string) {
	var done *models.ApplicationRequest
	o.store.Update(id, func(req *models.ApplicationRequest) {
		var sent, composed, failed, cancelled, filtered int
		for _, it := range req.Items {
			switch it.Status {
			case models.ItemSent:
				sent++
			case models.ItemComposed:
				composed++
			case models.ItemFailed:
				failed++
			case models.ItemCancelled:
				cancelled++
			case models.ItemFilteredOut:
				filtered++
			}
		}

		switch {
		case cancelled > 0:
			req.Status = models.RequestCancelled
		case failed > 0:
			req.Status = models.RequestCompletedWithErrors
		default:
			req.Status = models.RequestCompleted
		}

		now := time.Now().UTC()
		req.CompletedAt = &now
		done = req.Clone()
	})

	if done == nil {
		return
	}
	c := done.Count()
	log.Printf("🏁 Request %s finished: %s (sent=%d composed=%d filtered=%d errors=%d)",
		id, done.Status, c.EmailsSent, c.Composed, c.FilteredOut, c.Errors)

	if o.notify != nil {
		o.notify(done)
	}
	for _, fn := range o.onComplete {
		fn(done)
	}
}

func (o *Orchestrator) finishFailed(id string, err error) {
	var done *models.ApplicationRequest
	o.store.Update(id, func(req *models.ApplicationRequest) {
		req.Status = models.RequestFailed
		req.Error = err.Error()
		now := time.Now().UTC()
		req.CompletedAt = &now
		done = req.Clone()
	})
	if done == nil {
		return
	}
	log.Printf("❌ Request %s failed: %v", id, err)

	if o.notify != nil {
		o.notify(done)
	}
	for _, fn := range o.onComplete {
		fn(done)
	}
}

func (o *Orchestrator) setStatus(id string, status models.RequestStatus) {
	o.store.Update(id, func(req *models.ApplicationRequest) {
		req.Status = status
	})
	o.notifySnapshot(id)
}

func (o *Orchestrator) updateItem(id string, idx int, fn func(*models.ApplicationItem)) {
	o.store.Update(id, func(req *models.ApplicationRequest) {
		fn(&req.Items[idx])
		req.Items[idx].UpdatedAt = time.Now().UTC()
	})
}

func (o *Orchestrator) cancelled(id string) bool {
	snap, ok := o.store.Get(id)
	return ok && snap.CancelRequested
}

func (o *Orchestrator) notifySnapshot(id string) {
	if o.notify == nil {
		return
	}
	if snap, ok := o.store.Get(id); ok {
		o.notify(snap)
	}
}
