package dto

type LivenessResponse struct {
	DetectedClass string `json:"detected_class"`
	Liveness      string `json:"liveness"`
}
