// Package dto holds the request and response bodies of the v1 API.
package dto

// SuccessResponse acknowledges an operation without a body.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// SyncResponse reports whether a regulator call changed anything.
type SyncResponse struct {
	Success bool `json:"success"`
}

// CountResponse reports how many records an operation touched.
type CountResponse struct {
	Count int `json:"count"`
}
