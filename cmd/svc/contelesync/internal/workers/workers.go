package workers

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/samuel/go-metrics/metrics"
	"github.com/tecnotop/backend/cmd/svc/contelesync/internal/sync"
	"github.com/tecnotop/backend/libs/awsutil"
	"github.com/tecnotop/backend/libs/golog"
	"github.com/tecnotop/backend/libs/worker"
)

// Workers is the collection of background workers of the sync service: a
// periodic full sync and, when a queue is configured, an on-demand sync
// triggered by SQS messages.
type Workers struct {
	worker.Collection
	syncer *sync.Syncer

	statCycles   *metrics.Counter
	statFailures *metrics.Counter
}

// New initializes the collection of workers of the sync service.
func New(
	syncer *sync.Syncer,
	sqsAPI sqsiface.SQSAPI,
	syncRequestQueueURL string,
	interval time.Duration,
	metricsRegistry metrics.Registry) *Workers {
	w := &Workers{
		syncer:       syncer,
		statCycles:   metrics.NewCounter(),
		statFailures: metrics.NewCounter(),
	}
	if metricsRegistry != nil {
		metricsRegistry.Add("cycles/total", w.statCycles)
		metricsRegistry.Add("cycles/failed", w.statFailures)
	}
	w.AddWorker(worker.NewRepeat(interval, w.runSync))
	if sqsAPI != nil && syncRequestQueueURL != "" {
		w.AddWorker(awsutil.NewSQSWorker(sqsAPI, syncRequestQueueURL, w.processSyncRequest))
	}
	return w
}

func (w *Workers) runSync() {
	w.statCycles.Inc(1)
	if err := w.syncer.Sync(context.Background()); err != nil {
		w.statFailures.Inc(1)
		golog.Errorf("Sync cycle failed: %s", err)
	}
}

func (w *Workers) processSyncRequest(msg string) error {
	golog.Infof("Sync requested via queue: %s", msg)
	return w.syncer.Sync(context.Background())
}
