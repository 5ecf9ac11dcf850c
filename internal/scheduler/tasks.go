package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"funnel_backend/internal/submission/tracking"
)

const TaskDeliverCRM = "delivery.crm"

const TaskEmitTracking = "delivery.tracking"

type DeliverCRMPayload struct {
	SubmissionID string `json:"submissionId"`
}

type EmitTrackingPayload struct {
	Event tracking.Event `json:"event"`
}

func NewDeliverCRMTask(payload DeliverCRMPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDeliverCRM, data), nil
}

func ParseDeliverCRMPayload(task *asynq.Task) (DeliverCRMPayload, error) {
	var payload DeliverCRMPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DeliverCRMPayload{}, err
	}
	return payload, nil
}

func NewEmitTrackingTask(payload EmitTrackingPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEmitTracking, data), nil
}

func ParseEmitTrackingPayload(task *asynq.Task) (EmitTrackingPayload, error) {
	var payload EmitTrackingPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return EmitTrackingPayload{}, err
	}
	return payload, nil
}
