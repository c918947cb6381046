package dto

import "github.com/eleven-am/shelfscan/internal/detection"

const WaitingForCapture = "Waiting for next capture"

type LatestCaptureResponse struct {
	ImageURL      string                `json:"image_url"`
	Detections    []detection.Detection `json:"detections"`
	TimeRemaining int                   `json:"time_remaining"`
}

type PendingCaptureResponse struct {
	Message       string `json:"message"`
	TimeRemaining int    `json:"time_remaining"`
}

// CaptureEvent is pushed to websocket clients after every completed cycle.
type CaptureEvent struct {
	Type       string                `json:"type"`
	Domain     string                `json:"domain"`
	Cycle      uint64                `json:"cycle"`
	ImageURL   string                `json:"image_url"`
	Detections []detection.Detection `json:"detections"`
	Counts     map[string]int        `json:"counts"`
	CapturedAt string                `json:"captured_at"`
}
