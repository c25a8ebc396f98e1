package publish

import "time"

// Status is a pollable snapshot of the coordinator's current job.
type Status struct {
	Active           bool
	SessionID        string
	SessionName      string
	Phase            Phase
	Completed        int
	Failed           int
	Total            int
	Percent          float64
	EstimatedSeconds int
	Paused           bool
}

// Status reports current job progress. When no job exists the snapshot is
// idle. Consumers may poll this instead of (or in addition to) subscribing to
// the notification surface.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.job == nil {
		return Status{Phase: PhaseIdle}
	}

	current := c.job
	snapshot := Status{
		Active:      true,
		SessionID:   current.sessionID,
		SessionName: current.sessionName,
		Phase:       current.phase,
		Completed:   current.completed,
		Failed:      current.failed,
		Total:       current.total,
		Paused:      c.pauseRequested,
	}

	done := current.completed + current.failed
	if current.total > 0 {
		snapshot.Percent = float64(done) / float64(current.total) * 100
	}
	if done > 0 {
		elapsed := time.Since(current.startedAt)
		perItem := elapsed / time.Duration(done)
		remaining := current.total - done
		snapshot.EstimatedSeconds = int((perItem * time.Duration(remaining)).Seconds())
	}
	return snapshot
}
