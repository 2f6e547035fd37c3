package models

// Identity is what the identity provider hands us for an authenticated
// caller. The allocation engine treats it as an opaque read.
type Identity struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
}

// ProjectStats is the public aggregate view of a project's pool.
type ProjectStats struct {
	TotalBatches   int                               `json:"total_batches"`
	TotalCodes     int                               `json:"total_codes"`
	UsedCodes      int                               `json:"used_codes"`
	AvailableCodes int                               `json:"available_codes"`
	RedemptionRate float64                           `json:"redemption_rate"`
	ByPlatform     map[Platform]PlatformAvailability `json:"by_platform"`
}
