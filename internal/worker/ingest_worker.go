package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"studymate/internal/metrics"
	"studymate/internal/model"
	"studymate/internal/platform/rabbitmq"
	"studymate/internal/rag"
)

type Indexer interface {
	Ingest(ctx context.Context, documentID uint, externalFileID, content string) (int, error)
}

type StatusStore interface {
	GetByID(ctx context.Context, id uint) (*model.Document, error)
	UpdateStatus(ctx context.Context, id uint, status model.DocumentStatus, chunkCount int) error
}

// IngestWorker chunks and embeds uploaded documents. With a broker connection
// it consumes the ingest queue; without one it doubles as an in-process
// publisher.
type IngestWorker struct {
	conn      *amqp.Connection
	queueName string
	index     Indexer
	documents StatusStore
	logger    *zap.Logger
	metrics   *metrics.Metrics

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(
	conn *amqp.Connection,
	queueName string,
	index Indexer,
	documents StatusStore,
	logger *zap.Logger,
	m *metrics.Metrics,
) *IngestWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestWorker{
		conn:      conn,
		queueName: queueName,
		index:     index,
		documents: documents,
		logger:    logger,
		metrics:   m,
	}
}

// Handle runs one job to completion. A document deleted before its job runs
// is skipped.
func (w *IngestWorker) Handle(ctx context.Context, job model.IngestJob) error {
	doc, err := w.documents.GetByID(ctx, job.DocumentID)
	if err != nil {
		return err
	}
	if doc == nil {
		w.logger.Info("skip ingest for deleted document", zap.Uint("document_id", job.DocumentID))
		w.metrics.ObserveIngestion("skipped")
		return nil
	}

	if err := w.documents.UpdateStatus(ctx, job.DocumentID, model.DocumentIngesting, 0); err != nil {
		return err
	}

	count, err := w.index.Ingest(ctx, job.DocumentID, job.ExternalFileID, job.Content)
	if err != nil {
		w.logger.Error("ingest document failed",
			zap.Uint("document_id", job.DocumentID),
			zap.String("external_file_id", job.ExternalFileID),
			zap.Error(err),
		)
		w.metrics.ObserveIngestion("failed")
		if statusErr := w.documents.UpdateStatus(ctx, job.DocumentID, model.DocumentFailed, 0); statusErr != nil {
			return errors.Join(err, statusErr)
		}
		if errors.Is(err, rag.ErrEmptyContent) {
			return nil
		}
		return err
	}

	if err := w.documents.UpdateStatus(ctx, job.DocumentID, model.DocumentReady, count); err != nil {
		return err
	}
	w.metrics.ObserveIngestion("ok")
	w.logger.Info("document ingested",
		zap.Uint("document_id", job.DocumentID),
		zap.Int("chunks", count),
	)
	return nil
}

// PublishIngest runs the job in the background on this process. It is used
// when no broker is configured.
func (w *IngestWorker) PublishIngest(ctx context.Context, job model.IngestJob) error {
	jobCtx := context.WithoutCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.Handle(jobCtx, job); err != nil {
			w.logger.Error("inline ingest failed", zap.Uint("document_id", job.DocumentID), zap.Error(err))
		}
	}()
	return nil
}

func (w *IngestWorker) Start(ctx context.Context) error {
	if w.cancel != nil || w.conn == nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

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
				w.deliver(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *IngestWorker) deliver(ctx context.Context, d amqp.Delivery) {
	var job model.IngestJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.logger.Error("worker decode ingest job failed", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := w.Handle(ctx, job); err != nil {
		w.logger.Error("worker ingest job failed", zap.Uint("document_id", job.DocumentID), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}

func (w *IngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
