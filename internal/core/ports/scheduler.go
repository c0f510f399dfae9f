package ports

type SchedulerService interface {
	Start()
	Stop()

	// ScheduleTask runs task every interval seconds, the first time right
	// away if immediate is set.
	ScheduleTask(interval int64, immediate bool, task func()) error
}
