package service

import (
	"context"
	"sync"
	"time"

	"chatlens/internal/platform/logger"
)

// Run leases jobs until ctx ends. In-flight jobs are allowed to finish
func (s *Svc) Run(ctx context.Context) error {
	log := logger.Named("analyzer-worker")
	sem := make(chan struct{}, s.cfg.Concurrency)
	ticker := time.NewTicker(s.cfg.PollEvery)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	log.Info().Str("worker_id", s.cfg.WorkerID).Int("concurrency", s.cfg.Concurrency).Msg("worker started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			free := cap(sem) - len(sem)
			if free == 0 {
				continue
			}
			jobs, err := s.repo.Lease(ctx, s.cfg.WorkerID, min(free, s.cfg.QueueTakeBatch), s.cfg.LeaseFor)
			if err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Msg("lease jobs failed")
				}
				continue
			}
			for i := range jobs {
				sem <- struct{}{}
				j := jobs[i]
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer func() { <-sem }()
					if err := s.handleJob(ctx, j); err != nil {
						log.Warn().Err(err).Str("job_id", j.JobID).Msg("job bookkeeping failed")
					}
				}()
			}
		}
	}
}
