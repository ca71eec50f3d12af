package models

// SyncReport summarizes one batch run. It is informational only; a batch
// never fails as a whole, per-feed outcomes are logged as they happen.
type SyncReport struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Articles  int `json:"articles"`
}
