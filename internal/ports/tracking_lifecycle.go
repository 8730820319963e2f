package ports

// ForegroundTrackingLifecycle keeps location updates alive while the app is backgrounded.
type ForegroundTrackingLifecycle interface {
	Begin(routeName string)
	End()
}
