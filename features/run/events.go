package run

import (
	"encoding/json"

	"manualgen/internal/config"
)

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// Event is the payload published for every finished run.
type Event struct {
	Type string `json:"type"`
	Run  Run    `json:"run"`
}

func topicFor(r Run) string {
	if r.Status == StatusFailed {
		return config.TopicManualFailed
	}
	return config.TopicManualCompleted
}

func encodeEvent(r Run) (string, []byte, error) {
	topic := topicFor(r)
	body, err := json.Marshal(Event{Type: topic, Run: r})
	return topic, body, err
}
