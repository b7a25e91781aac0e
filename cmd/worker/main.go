package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rollcall/internal/archive"
	"rollcall/internal/config"
	"rollcall/internal/queue"
	"rollcall/internal/session"
)

// Worker consumes accepted submissions from the queue and archives them in
// Postgres so attendance survives code rotations.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL required: the worker exists to archive into Postgres")
	}
	db, err := archive.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()
	repo := archive.NewRepository(db)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(session.NewRedisStore(cfg.RedisAddr).Client(), "rollcall:present")
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != archive.MessagePresent {
			continue
		}

		var pm archive.PresentMessage
		if err := json.Unmarshal(msg.Body, &pm); err != nil {
			log.Printf("bad message body: %v", err)
			continue
		}

		rec, err := repo.InsertRecord(ctx, archive.Record{
			StudentID:  pm.StudentID,
			Code:       pm.Code,
			RecordedAt: pm.At,
		})
		if err != nil {
			log.Printf("archive insert failed for %s: %v", pm.StudentID, err)
			continue
		}
		log.Printf("archived %s as %s", pm.StudentID, rec.ID)
	}

	log.Println("worker stopped")
}
