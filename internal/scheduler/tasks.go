package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskAutoReply = "engagement.autoreply"

// AutoReplyPayload carries the inbound message a delayed auto-reply answers.
type AutoReplyPayload struct {
	LeadID    string `json:"leadId"`
	MessageID string `json:"messageId"`
}

func NewAutoReplyTask(payload AutoReplyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAutoReply, data), nil
}

func ParseAutoReplyPayload(task *asynq.Task) (AutoReplyPayload, error) {
	var payload AutoReplyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AutoReplyPayload{}, err
	}
	return payload, nil
}
