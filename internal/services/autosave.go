package services

import (
	"log"
	"sync"
	"time"

	"github.com/EcoFlow-E2/ecoflow_backend/internal/store"
)

// Archiver persists the application state between runs
type Archiver interface {
	SaveState(state store.AppState) error
}

// AutoSaver periodically persists the full application state
type AutoSaver struct {
	store     *store.Store
	archiver  Archiver
	interval  time.Duration
	ticker    *time.Ticker
	stopChan  chan bool
	mu        sync.Mutex
	isRunning bool
}

// NewAutoSaver creates a new autosave service instance
func NewAutoSaver(s *store.Store, archiver Archiver, interval time.Duration) *AutoSaver {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &AutoSaver{
		store:    s,
		archiver: archiver,
		interval: interval,
		stopChan: make(chan bool),
	}
}

// Start begins the autosave background process
func (a *AutoSaver) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isRunning {
		log.Println("⚠️  AutoSaver: Already running")
		return
	}

	a.ticker = time.NewTicker(a.interval)
	a.isRunning = true

	log.Printf("💾 AutoSaver: Started - persisting state every %s", a.interval)

	go a.run()
}

// Stop halts the autosave loop after flushing a final save
func (a *AutoSaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isRunning {
		return
	}

	a.ticker.Stop()
	a.stopChan <- true
	a.isRunning = false

	a.save()
	log.Println("🛑 AutoSaver: Stopped")
}

// run is the main autosave loop
func (a *AutoSaver) run() {
	for {
		select {
		case <-a.ticker.C:
			a.save()
		case <-a.stopChan:
			return
		}
	}
}

func (a *AutoSaver) save() {
	if err := a.archiver.SaveState(a.store.GetState()); err != nil {
		log.Printf("❌ AutoSaver: Failed to persist state: %v", err)
	}
}
