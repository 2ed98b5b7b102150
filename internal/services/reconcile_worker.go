package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/codyseavey/pokemon-collector/backend/internal/metrics"
	"github.com/codyseavey/pokemon-collector/backend/internal/models"
)

const defaultReconcileInterval = 15 * time.Minute

// ReconcileWorker periodically recomputes the derived counters (assignment
// progress, master set totals) from the documents they summarize, and
// refreshes the card count cache after each run.
type ReconcileWorker struct {
	masterSets *MasterSetService
	cardCounts *CardCountService
	interval   time.Duration
	mu         sync.RWMutex

	lastRunTime    time.Time
	lastDuration   time.Duration
	lastReconciled int
	lastError      string
	runs           int
}

type ReconcileStatus struct {
	LastRunTime    time.Time `json:"lastRunTime"`
	NextRunTime    time.Time `json:"nextRunTime"`
	LastDurationMS int64     `json:"lastDurationMs"`
	Reconciled     int       `json:"masterSetsReconciled"`
	Runs           int       `json:"runs"`
	LastError      string    `json:"lastError,omitempty"`
}

func NewReconcileWorker(masterSets *MasterSetService, cardCounts *CardCountService, interval time.Duration) *ReconcileWorker {
	if interval <= 0 {
		interval = defaultReconcileInterval
	}
	return &ReconcileWorker{
		masterSets: masterSets,
		cardCounts: cardCounts,
		interval:   interval,
	}
}

// Start runs once immediately and then on every tick until ctx is done.
func (w *ReconcileWorker) Start(ctx context.Context) {
	log.Printf("Reconcile worker started: will reconcile counters every %v", w.interval)

	if n, err := w.RunOnce(ctx); err != nil {
		log.Printf("Reconcile worker: initial run failed: %v", err)
	} else {
		log.Printf("Reconcile worker: initial run reconciled %d master sets", n)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Reconcile worker stopping...")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				log.Printf("Reconcile worker: run failed: %v", err)
			}
		}
	}
}

// RunOnce reconciles every master set and assignment, then rescans card
// counts for each language.
func (w *ReconcileWorker) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	reconciled, err := w.masterSets.ReconcileAll(ctx)

	if err == nil && w.cardCounts != nil {
		for _, lang := range append([]models.Language{models.LanguageAll}, models.Languages...) {
			if _, cerr := w.cardCounts.GetCardCountsByDexNumber(ctx, lang, true); cerr != nil {
				err = cerr
				break
			}
		}
	}

	w.mu.Lock()
	w.lastRunTime = start
	w.lastDuration = time.Since(start)
	w.lastReconciled = reconciled
	w.runs++
	w.lastError = ""
	if err != nil {
		w.lastError = err.Error()
	}
	w.mu.Unlock()

	if err != nil {
		metrics.ReconcileRunsTotal.WithLabelValues("error").Inc()
		return reconciled, err
	}
	metrics.ReconcileRunsTotal.WithLabelValues("success").Inc()
	return reconciled, nil
}

// GetStatus returns the current status
func (w *ReconcileWorker) GetStatus() ReconcileStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return ReconcileStatus{
		LastRunTime:    w.lastRunTime,
		NextRunTime:    w.lastRunTime.Add(w.interval),
		LastDurationMS: w.lastDuration.Milliseconds(),
		Reconciled:     w.lastReconciled,
		Runs:           w.runs,
		LastError:      w.lastError,
	}
}
