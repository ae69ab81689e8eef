package mmap

import "github.com/google/uuid"

// WorkerID identifies one worker goroutine for the per-worker query caches.
// A worker creates its id once at startup and passes it on every call.
type WorkerID struct {
	id uuid.UUID
}

func NewWorkerID() WorkerID {
	return WorkerID{id: uuid.New()}
}

func (w WorkerID) IsZero() bool {
	return w.id == uuid.Nil
}

func (w WorkerID) String() string {
	return w.id.String()
}
