package httpapi

type CollectStatus struct {
	LastRunAt  string `json:"last_run_at"`
	LastOkAt   string `json:"last_ok_at"`
	LastError  string `json:"last_error"`
	LastStored int    `json:"last_stored"`
	Running    bool   `json:"running"`
}
