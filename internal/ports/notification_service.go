package ports

import "github.com/soundwalk/service-tour/internal/domain/tour"

// NotificationService is a fire-and-forget, best-effort notifier.
type NotificationService interface {
	NotifyStopArrived(stop tour.Stop)
}
