package module

import dom "chatlens/internal/services/analyzer/domain"

// Ports holds the ports exposed by the analyzer module
type Ports struct {
	Worker   dom.WorkerPort
	Enqueuer dom.EnqueuePort
}
