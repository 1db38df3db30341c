package config

const (
	// TopicManualCompleted is the NSQ topic for successful manual generations.
	TopicManualCompleted = "manual.completed"

	// TopicManualFailed is the NSQ topic for failed manual generations.
	TopicManualFailed = "manual.failed"
)
