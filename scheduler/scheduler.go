package scheduler

import (
	"context"
	"log"
	"time"

	"dropwatch/bot"
	"dropwatch/models"
	"dropwatch/pipeline"
)

// SubscriberStore lists the users to fan out to.
type SubscriberStore interface {
	SubscribedUsers() ([]int64, error)
}

// Notifier delivers one product to a set of users and reports whether at
// least one delivery succeeded.
type Notifier interface {
	BroadcastProduct(userIDs []int64, p models.Product) bool
}

// Scheduler runs scrape cycles on a fixed interval and dispatches each new
// item to subscribers.
type Scheduler struct {
	store    SubscriberStore
	bot      Notifier
	pipeline *pipeline.Pipeline
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a new scheduler
func NewScheduler(store SubscriberStore, notifier Notifier, pipe *pipeline.Pipeline, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		store:    store,
		bot:      notifier,
		pipeline: pipe,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start starts the scheduler in a goroutine
func (s *Scheduler) Start() {
	go s.run()
}

// Stop cancels the loop, waits for any in-flight cycle to finish, then
// releases fetch sessions. The pipeline owns live browser resources, so
// they must not be closed under a running cycle.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.done
	s.pipeline.Close()
	log.Println("Scheduler stopped")
}

// run is the main scheduler loop. The first cycle fires immediately so a
// restart does not wait out a full interval.
func (s *Scheduler) run() {
	defer close(s.done)

	s.runCycle()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runCycle()
		}
	}
}

// runCycle executes one scrape cycle and dispatches the resulting batch.
func (s *Scheduler) runCycle() {
	users, err := s.store.SubscribedUsers()
	if err != nil {
		log.Printf("Error getting subscribers: %v\n", err)
		return
	}
	if len(users) == 0 {
		log.Println("No subscribers, skipping cycle")
		return
	}

	log.Println("Starting scrape cycle...")
	batch, err := s.pipeline.RunCycle(s.ctx)
	if err != nil {
		log.Printf("Cycle failed: %v\n", err)
		return
	}
	if len(batch) == 0 {
		log.Println("No new items this cycle")
		return
	}

	log.Printf("Dispatching %d new items to %d subscribers\n", len(batch), len(users))

	for _, product := range batch {
		delivered := s.bot.BroadcastProduct(users, product)
		if delivered {
			// Only a confirmed delivery marks the record as sent, so an
			// item lost to a Telegram outage is retried next cycle.
			if err := s.pipeline.ConfirmSent(pipeline.Fingerprint(product)); err != nil {
				log.Printf("Error confirming sent for %q: %v\n", product.Title, err)
			}
		}
		time.Sleep(bot.PerProductDelay)
	}
}
