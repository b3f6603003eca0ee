package cron

import (
	"context"
	"log"
	"time"

	"innkeeper/config"
	"innkeeper/services/session"

	"github.com/hibiken/asynq"
)

const TypeSessionSweep = "session:sweep"

// InitSessionSweeper runs the async worker in background and periodically
// enqueues sweep tasks.
func InitSessionSweeper(sessionSvc session.Service) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSessionSweep, handleSweepTask(sessionSvc))

	// Start async worker with retry logic
	go func() {
		log.Println("[SessionSweeper] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[SessionSweeper] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[SessionSweeper] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()

	// Enqueue a sweep on every tick.
	go func() {
		client := asynq.NewClient(redisOpts)
		interval := time.Duration(config.AppConfig.SweepIntervalSeconds) * time.Second
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			task := asynq.NewTask(TypeSessionSweep, nil)
			if _, err := client.Enqueue(task, asynq.Unique(interval)); err != nil {
				log.Printf("[SessionSweeper] Failed to enqueue sweep task: %v", err)
			}
		}
	}()
}

func handleSweepTask(sessionSvc session.Service) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		purged, active, err := sessionSvc.Sweep(ctx)
		if err != nil {
			log.Printf("[SessionSweeper] Sweep failed: %v", err)
			return err
		}
		log.Printf("[SessionSweeper] Sweep complete: %d purged, %d active", purged, active)
		return nil
	}
}
