package dto

import (
	"time"

	"cannapos/internal/core/types"
)

// DriftQuery selects and pages the drift listing.
type DriftQuery struct {
	Sort   string `form:"sort"`
	Desc   bool   `form:"desc"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// AdjustRequest stages a package quantity correction.
type AdjustRequest struct {
	NewQty        types.Money `json:"newQty"`
	Reason        string      `json:"reason" binding:"required"`
	Notes         string      `json:"notes"`
	NeedMetrcSync bool        `json:"needMetrcSync"`
}

// FinishRequest finishes one or more packages. A zero date means today.
type FinishRequest struct {
	ActualDate time.Time `json:"actualDate"`
}
