package dto

// CatalogLabel is a supported detector label and its material.
type CatalogLabel struct {
	Label    string `json:"label"`
	Material string `json:"material"`
}

// CatalogData is the response payload for GET /api/catalog.
type CatalogData struct {
	Labels          []CatalogLabel     `json:"labels"`
	Factors         map[string]float64 `json:"factors"`
	ItemWeightGrams float64            `json:"itemWeightGrams"`
}

// SystemInfo is the diagnostics payload for GET /api/system.
type SystemInfo struct {
	OS              string `json:"os"`
	Arch            string `json:"arch"`
	GoVersion       string `json:"goVersion"`
	DetectorBackend string `json:"detectorBackend"`
	ModelWeights    string `json:"modelWeights,omitempty"`
	FineTuned       bool   `json:"fineTuned"`
	DetectorReady   bool   `json:"detectorReady"`
	DetectorError   string `json:"detectorError,omitempty"`
	Database        string `json:"database"`
	DatabaseOK      bool   `json:"databaseOk"`
	LiveViewers     int    `json:"liveViewers"`
}

// Health is the payload for GET /healthz.
type Health struct {
	Status   string `json:"status"`
	Detector string `json:"detector"`
	Database string `json:"database"`
}

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error string `json:"error"`
}
