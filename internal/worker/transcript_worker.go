package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"cabinetquote/internal/model"
)

type MessageStore interface {
	Create(message *model.Message) error
}

// TranscriptWorker drains the transcript queue into the database.
type TranscriptWorker struct {
	conn      *amqp.Connection
	store     MessageStore
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTranscriptWorker(conn *amqp.Connection, store MessageStore, queueName string) *TranscriptWorker {
	return &TranscriptWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
	}
}

func (w *TranscriptWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set worker qos failed: %w", err)
	}
	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(d)
			}
		}
	}()
	return nil
}

func (w *TranscriptWorker) handle(d amqp.Delivery) {
	if err := w.persist(d.Body); err != nil {
		log.Printf("transcript worker: %v", err)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (w *TranscriptWorker) persist(body []byte) error {
	var msg model.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode transcript failed: %w", err)
	}
	msg.ID = 0
	if err := w.store.Create(&msg); err != nil {
		return fmt.Errorf("persist transcript failed: %w", err)
	}
	return nil
}

func (w *TranscriptWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
