package scheduler

import (
	"fmt"
	"time"

	"github.com/ark-network/notewallet/internal/core/ports"
	"github.com/go-co-op/gocron"
)

type service struct {
	scheduler *gocron.Scheduler
}

func NewScheduler() ports.SchedulerService {
	svc := gocron.NewScheduler(time.UTC)
	// A sync that outlasts its interval must not overlap with the next run.
	svc.SingletonModeAll()
	return &service{svc}
}

func (s *service) Start() {
	s.scheduler.StartAsync()
}

func (s *service) Stop() {
	s.scheduler.Stop()
}

func (s *service) ScheduleTask(interval int64, immediate bool, task func()) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %d, must be greater than zero", interval)
	}
	if task == nil {
		return fmt.Errorf("missing task")
	}

	job := s.scheduler.Every(int(interval)).Seconds()
	if !immediate {
		job = job.WaitForSchedule()
	}
	_, err := job.Do(task)
	return err
}
