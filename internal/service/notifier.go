package service

import "github.com/adreel/api/internal/model"

// StatusNotifier is told about every committed status change
type StatusNotifier interface {
	NotifyStatus(job *model.VideoJob)
}

type noopNotifier struct{}

func (noopNotifier) NotifyStatus(*model.VideoJob) {}

func notifierOrNoop(n StatusNotifier) StatusNotifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
