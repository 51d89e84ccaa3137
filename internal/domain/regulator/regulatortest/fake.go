// Package regulatortest provides an in-memory regulator.Client for tests.
package regulatortest

import (
	"context"
	"net/http"
	"sync"

	"cannapos/internal/domain/regulator"
)

// Fake records every call and answers with configurable statuses.
// Zero statuses answer 200.
type Fake struct {
	mu sync.Mutex

	Packages map[regulator.PackageKind][]regulator.RemotePackage

	AdjustStatus   int
	FinishStatus   int
	UnfinishStatus int
	ReceiptStatus  int
	DeleteStatus   int
	ReceiptID      int64

	Adjustments [][]regulator.Adjustment
	Finished    [][]regulator.FinishRequest
	Unfinished  [][]regulator.UnfinishRequest
	Receipts    []regulator.Receipt
	Deleted     []int64
	Listed      []string
}

var _ regulator.Client = (*Fake)(nil)

// New returns a Fake that accepts everything.
func New() *Fake {
	return &Fake{Packages: map[regulator.PackageKind][]regulator.RemotePackage{}, ReceiptID: 1}
}

func status(s int) int {
	if s == 0 {
		return http.StatusOK
	}
	return s
}

// Calls returns the number of write calls made.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Adjustments) + len(f.Finished) + len(f.Unfinished) + len(f.Receipts) + len(f.Deleted)
}

// ListPackages implements regulator.Client.
func (f *Fake) ListPackages(_ context.Context, _ regulator.Credentials, kind regulator.PackageKind, lastModifiedStart string) []regulator.RemotePackage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Listed = append(f.Listed, lastModifiedStart)
	return append([]regulator.RemotePackage(nil), f.Packages[kind]...)
}

// Adjust implements regulator.Client.
func (f *Fake) Adjust(_ context.Context, _ regulator.Credentials, adjustments []regulator.Adjustment) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Adjustments = append(f.Adjustments, adjustments)
	return status(f.AdjustStatus), nil
}

// Finish implements regulator.Client.
func (f *Fake) Finish(_ context.Context, _ regulator.Credentials, reqs []regulator.FinishRequest) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Finished = append(f.Finished, reqs)
	return status(f.FinishStatus), nil
}

// Unfinish implements regulator.Client.
func (f *Fake) Unfinish(_ context.Context, _ regulator.Credentials, reqs []regulator.UnfinishRequest) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Unfinished = append(f.Unfinished, reqs)
	return status(f.UnfinishStatus), nil
}

// PostReceipt implements regulator.Client.
func (f *Fake) PostReceipt(_ context.Context, _ regulator.Credentials, receipt regulator.Receipt) (regulator.ReceiptResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Receipts = append(f.Receipts, receipt)
	res := regulator.ReceiptResult{Status: status(f.ReceiptStatus)}
	if regulator.OK(res.Status) {
		res.ID = f.ReceiptID
	}
	return res, nil
}

// DeleteReceipt implements regulator.Client.
func (f *Fake) DeleteReceipt(_ context.Context, _ regulator.Credentials, receiptID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, receiptID)
	return status(f.DeleteStatus), nil
}
