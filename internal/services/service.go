package services

// Service is implemented by every long-lived service for logging and
// wiring purposes.
type Service interface {
	// ServiceName returns the unique identifier for this service.
	ServiceName() string
}
