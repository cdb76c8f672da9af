// Package orders holds the purchase-order domain model: the versioned Store
// snapshot, its entities, pure financial computations, canonical
// serialization, and the filter/sort pipeline feeding list views.
package orders

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// StoreVersion is the only snapshot schema version this build understands.
const StoreVersion = 1

// Purchase order lifecycle statuses.
type POStatus string

const (
	POStatusDraft POStatus = "draft"
	POStatusSent  POStatus = "sent"
	POStatusPaid  POStatus = "paid"
)

// ValidStatus reports whether s is one of the known PO statuses.
func ValidStatus(s POStatus) bool {
	switch s {
	case POStatusDraft, POStatusSent, POStatusPaid:
		return true
	}
	return false
}

// Training is a reference entity a PO may point at.
type Training struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Customer is a reference entity a PO may point at.
type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Producer is a billable resource with a per-unit rate and markup.
type Producer struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Rate   float64 `json:"rate"`
	Markup float64 `json:"markup"`
}

// Session is a billable occurrence owned by its parent PO.
type Session struct {
	ID         string  `json:"id"`
	Date       string  `json:"date"` // ISO YYYY-MM-DD or empty
	ProducerID string  `json:"producerId"`
	Units      float64 `json:"units"`
	Note       string  `json:"note,omitempty"`
}

// PO is the root aggregate. Session order is meaningful for display and
// duplication; pricing does not depend on it.
type PO struct {
	ID         string    `json:"id"`
	PONumber   string    `json:"poNumber"`
	TrainingID string    `json:"trainingId"`
	CustomerID string    `json:"customerId"`
	Status     POStatus  `json:"status"`
	Sessions   []Session `json:"sessions"`
	Note       string    `json:"note,omitempty"`
}

// Store is the whole application state snapshot, the unit of persistence for
// both the local file and the cloud record. Top-level list order is
// meaningful: PO order is the manual (drag) order.
type Store struct {
	Version   int        `json:"version"`
	Trainings []Training `json:"trainings"`
	Customers []Customer `json:"customers"`
	Producers []Producer `json:"producers"`
	POs       []PO       `json:"pos"`
}

var (
	// ErrNotFound indicates a missing entity id.
	ErrNotFound = errors.New("orders: not found")
	// ErrUnsupportedVersion indicates a snapshot with an unknown version tag.
	ErrUnsupportedVersion = errors.New("orders: unsupported store version")
)

// NewID returns a fresh entity id.
func NewID() string {
	return uuid.NewString()
}

// Clone returns a deep copy of the store. Engine and handlers never hand out
// aliased session slices.
func (s Store) Clone() Store {
	out := s
	out.Trainings = append([]Training(nil), s.Trainings...)
	out.Customers = append([]Customer(nil), s.Customers...)
	out.Producers = append([]Producer(nil), s.Producers...)
	out.POs = append([]PO(nil), s.POs...)
	for i := range out.POs {
		out.POs[i].Sessions = append([]Session(nil), out.POs[i].Sessions...)
	}
	return out
}

// ProducerIndex builds the id lookup used by computations.
func (s Store) ProducerIndex() map[string]Producer {
	idx := make(map[string]Producer, len(s.Producers))
	for _, p := range s.Producers {
		idx[p.ID] = p
	}
	return idx
}

// FindPO returns the PO with the given id.
func (s Store) FindPO(id string) (PO, bool) {
	for _, po := range s.POs {
		if po.ID == id {
			return po, true
		}
	}
	return PO{}, false
}

// Sanitize clamps numeric fields, trims the PO number, and defaults unknown
// statuses to draft. Applied when an edited PO is committed, mirroring the
// sanitization the computations apply on read.
func (po PO) Sanitize() PO {
	po.PONumber = strings.TrimSpace(po.PONumber)
	if !ValidStatus(po.Status) {
		po.Status = POStatusDraft
	}
	for i := range po.Sessions {
		po.Sessions[i].Units = clampNonNegative(po.Sessions[i].Units)
	}
	return po
}

// DuplicatePONumber reports whether another PO already carries the same
// trimmed number. Duplicate numbers are allowed to exist; callers surface
// this as a warning, never as a storage error.
func (s Store) DuplicatePONumber(number, excludeID string) bool {
	number = strings.TrimSpace(number)
	if number == "" {
		return false
	}
	for _, po := range s.POs {
		if po.ID != excludeID && strings.TrimSpace(po.PONumber) == number {
			return true
		}
	}
	return false
}

// DuplicatePO inserts a copy of the PO with the given id at the front of the
// list: fresh ids everywhere, session dates shifted one week forward, the PO
// number suffixed "-copy". Returns the new copy.
func (s *Store) DuplicatePO(id string) (PO, error) {
	src, ok := s.FindPO(id)
	if !ok {
		return PO{}, ErrNotFound
	}
	dup := src
	dup.ID = NewID()
	dup.PONumber = strings.TrimSpace(dup.PONumber)
	if dup.PONumber != "" {
		dup.PONumber += "-copy"
	}
	dup.Sessions = make([]Session, len(src.Sessions))
	for i, sess := range src.Sessions {
		cp := sess
		cp.ID = NewID()
		cp.Date = AddDays(sess.Date, 7)
		dup.Sessions[i] = cp
	}
	s.POs = append([]PO{dup}, s.POs...)
	return dup, nil
}

// MovePO moves the PO at index from to index to within the full list,
// preserving every other relative position. Out-of-range indexes and
// from == to are no-ops.
func (s *Store) MovePO(from, to int) {
	if from == to || from < 0 || to < 0 || from >= len(s.POs) || to >= len(s.POs) {
		return
	}
	po := s.POs[from]
	rest := append(append([]PO(nil), s.POs[:from]...), s.POs[from+1:]...)
	s.POs = append(append(append([]PO(nil), rest[:to]...), po), rest[to:]...)
}
