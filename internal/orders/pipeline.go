package orders

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey enumerates the sortable columns of the PO list.
type SortKey string

const (
	SortNone      SortKey = ""
	SortPONumber  SortKey = "poNumber"
	SortStatus    SortKey = "status"
	SortTraining  SortKey = "training"
	SortCustomer  SortKey = "customer"
	SortProducers SortKey = "producers"
	SortSessions  SortKey = "sessions"
	SortPrice     SortKey = "price"
	SortProfit    SortKey = "profit"
	SortStartDate SortKey = "startDate"
	SortEndDate   SortKey = "endDate"
)

// ParseSortKey maps a query value onto a known sort key. Anything
// unrecognized means manual order rather than an accidental id sort.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(s); k {
	case SortPONumber, SortStatus, SortTraining, SortCustomer, SortProducers,
		SortSessions, SortPrice, SortProfit, SortStartDate, SortEndDate:
		return k
	}
	return SortNone
}

// SortDir is the sort direction for an active sort key.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// Sort pairs a key with a direction. The zero value means manual order.
type Sort struct {
	Key SortKey `json:"key"`
	Dir SortDir `json:"dir"`
}

// Active reports whether a sort key is set. While active, manual drag
// reordering is disabled; clearing the key restores the list's own order.
func (s Sort) Active() bool {
	return s.Key != SortNone
}

// Toggle advances the three-state cycle for a clicked column:
// unsorted -> ascending -> descending -> unsorted. Clicking a different
// column starts that column ascending.
func (s Sort) Toggle(key SortKey) Sort {
	if s.Key != key {
		return Sort{Key: key, Dir: SortAsc}
	}
	if s.Dir == SortAsc {
		return Sort{Key: key, Dir: SortDesc}
	}
	return Sort{}
}

// Filter holds the list criteria; all fields are optional and combined
// with AND. Empty membership sets mean "no filter".
type Filter struct {
	Query       string     `json:"query"`
	CustomerIDs []string   `json:"customerIds"`
	TrainingIDs []string   `json:"trainingIds"`
	Statuses    []POStatus `json:"statuses"`
	DateFrom    string     `json:"dateFrom"`
	DateTo      string     `json:"dateTo"`
}

// POView is one row of the visible list: the PO plus its derived summary.
type POView struct {
	PO       PO         `json:"po"`
	Computed ComputedPO `json:"computed"`
}

// View is the output of the pipeline: the ordered visible subset and the
// aggregate totals over it.
type View struct {
	Rows        []POView `json:"rows"`
	TotalPrice  float64  `json:"totalPrice"`
	TotalProfit float64  `json:"totalProfit"`
}

// BuildView filters, sorts, and derives the PO list without mutating the
// store. Totals are summed over the filtered set regardless of sorting.
func BuildView(store Store, filter Filter, s Sort) View {
	producers := store.ProducerIndex()
	trainings := make(map[string]string, len(store.Trainings))
	for _, t := range store.Trainings {
		trainings[t.ID] = t.Name
	}
	customers := make(map[string]string, len(store.Customers))
	for _, c := range store.Customers {
		customers[c.ID] = c.Name
	}

	var view View
	for _, po := range store.POs {
		computed := ComputePO(po, producers)
		if !matches(po, computed, filter, trainings, customers) {
			continue
		}
		view.Rows = append(view.Rows, POView{PO: po, Computed: computed})
		view.TotalPrice += computed.Price
		view.TotalProfit += computed.Profit
	}

	if s.Active() {
		sortRows(view.Rows, s, trainings, customers)
	}
	return view
}

func matches(po PO, computed ComputedPO, f Filter, trainings, customers map[string]string) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		haystack := strings.ToLower(po.PONumber + " " + trainings[po.TrainingID] + " " + customers[po.CustomerID])
		if !strings.Contains(haystack, q) {
			return false
		}
	}
	if len(f.CustomerIDs) > 0 && !containsString(f.CustomerIDs, po.CustomerID) {
		return false
	}
	if len(f.TrainingIDs) > 0 && !containsString(f.TrainingIDs, po.TrainingID) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if st == po.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DateFrom != "" || f.DateTo != "" {
		// A PO with no dated sessions cannot overlap any requested range.
		if computed.StartDate == "" {
			return false
		}
		if f.DateTo != "" && computed.StartDate > f.DateTo {
			return false
		}
		if f.DateFrom != "" && computed.EndDate < f.DateFrom {
			return false
		}
	}
	return true
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func sortRows(rows []POView, s Sort, trainings, customers map[string]string) {
	// Numeric-aware collation so PO-2 sorts before PO-10.
	numeric := collate.New(language.Und, collate.Numeric)
	cmp := func(a, b POView) int {
		switch s.Key {
		case SortPONumber:
			return numeric.CompareString(a.PO.PONumber, b.PO.PONumber)
		case SortStatus:
			return strings.Compare(string(a.PO.Status), string(b.PO.Status))
		case SortTraining:
			return strings.Compare(trainings[a.PO.TrainingID], trainings[b.PO.TrainingID])
		case SortCustomer:
			return strings.Compare(customers[a.PO.CustomerID], customers[b.PO.CustomerID])
		case SortProducers:
			return compareInt(len(a.Computed.ProducerIDs), len(b.Computed.ProducerIDs))
		case SortSessions:
			return compareInt(a.Computed.SessionCount, b.Computed.SessionCount)
		case SortPrice:
			return compareFloat(a.Computed.Price, b.Computed.Price)
		case SortProfit:
			return compareFloat(a.Computed.Profit, b.Computed.Profit)
		case SortStartDate:
			return strings.Compare(a.Computed.StartDate, b.Computed.StartDate)
		case SortEndDate:
			return strings.Compare(a.Computed.EndDate, b.Computed.EndDate)
		}
		return 0
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := cmp(rows[i], rows[j])
		if c == 0 {
			// Final tiebreak by id keeps the order total and deterministic.
			c = strings.Compare(rows[i].PO.ID, rows[j].PO.ID)
		}
		if s.Dir == SortDesc {
			return c > 0
		}
		return c < 0
	})
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
