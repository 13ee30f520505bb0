package models

// AnalysisResult is the payload returned by the prediction backend for a
// successful analysis. The two URL fields are storage object paths (or full
// public blob URLs); they are resolved to time-limited download URLs by the
// storage adapter before rendering.
type AnalysisResult struct {
	Message          string `json:"message,omitempty"`
	OriginalImageURL string `json:"original_image_url"`
	MaskImageURL     string `json:"mask_image_url"`
}

// PatientRecord is one entry of the patient list returned by the backend's
// search endpoint. Results carries the same shape the results page consumes.
type PatientRecord struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	DoctorID string         `json:"doctor_id,omitempty"`
	Results  AnalysisResult `json:"results"`
}
