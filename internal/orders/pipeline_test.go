package orders

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func pipelineStore() Store {
	return Store{
		Version: StoreVersion,
		Trainings: []Training{
			{ID: "t1", Name: "Go Fundamentals"},
			{ID: "t2", Name: "Kubernetes"},
		},
		Customers: []Customer{
			{ID: "c1", Name: "Acme"},
			{ID: "c2", Name: "Globex"},
		},
		Producers: []Producer{
			{ID: "p1", Name: "Lena", Rate: 600, Markup: 200},
			{ID: "p2", Name: "Marko", Rate: 650, Markup: 150},
		},
		POs: []PO{
			{
				ID: "po1", PONumber: "PO-2", TrainingID: "t1", CustomerID: "c1", Status: POStatusDraft,
				Sessions: []Session{
					{ID: "s1", Date: "2026-01-10", ProducerID: "p1", Units: 1},
					{ID: "s2", Date: "2026-01-17", ProducerID: "p2", Units: 2},
				},
			},
			{
				ID: "po2", PONumber: "PO-10", TrainingID: "t2", CustomerID: "c2", Status: POStatusSent,
				Sessions: []Session{
					{ID: "s3", Date: "2026-02-01", ProducerID: "p2", Units: 1},
				},
			},
			{
				ID: "po3", PONumber: "PO-1", TrainingID: "t1", CustomerID: "c2", Status: POStatusPaid,
			},
		},
	}
}

func rowIDs(v View) []string {
	ids := make([]string, len(v.Rows))
	for i, r := range v.Rows {
		ids[i] = r.PO.ID
	}
	return ids
}

func TestBuildViewNoFilterKeepsManualOrder(t *testing.T) {
	view := BuildView(pipelineStore(), Filter{}, Sort{})
	require.Equal(t, []string{"po1", "po2", "po3"}, rowIDs(view))
	require.Equal(t, 3200.0, view.TotalPrice)
	require.Equal(t, 650.0, view.TotalProfit)
}

func TestBuildViewQueryMatchesNumberTrainingCustomer(t *testing.T) {
	store := pipelineStore()

	view := BuildView(store, Filter{Query: "po-10"}, Sort{})
	require.Equal(t, []string{"po2"}, rowIDs(view))

	view = BuildView(store, Filter{Query: "globex"}, Sort{})
	require.Equal(t, []string{"po2", "po3"}, rowIDs(view))

	view = BuildView(store, Filter{Query: "fundamentals"}, Sort{})
	require.Equal(t, []string{"po1", "po3"}, rowIDs(view))
}

func TestBuildViewFiltersCombineWithAnd(t *testing.T) {
	store := pipelineStore()
	view := BuildView(store, Filter{
		CustomerIDs: []string{"c2"},
		TrainingIDs: []string{"t1"},
	}, Sort{})
	require.Equal(t, []string{"po3"}, rowIDs(view))

	view = BuildView(store, Filter{
		CustomerIDs: []string{"c2"},
		Statuses:    []POStatus{POStatusDraft},
	}, Sort{})
	require.Empty(t, view.Rows)
}

func TestBuildViewDateRangeOverlap(t *testing.T) {
	store := pipelineStore()

	// po1 spans 2026-01-10..2026-01-17 and overlaps the requested window.
	view := BuildView(store, Filter{DateFrom: "2026-01-15", DateTo: "2026-01-20"}, Sort{})
	require.Equal(t, []string{"po1"}, rowIDs(view))

	// A PO with no dated sessions never passes a date filter.
	view = BuildView(store, Filter{DateFrom: "2000-01-01", DateTo: "2099-12-31"}, Sort{})
	require.NotContains(t, rowIDs(view), "po3")

	// Window entirely before every session.
	view = BuildView(store, Filter{DateTo: "2026-01-05"}, Sort{})
	require.Empty(t, view.Rows)
}

func TestBuildViewTotalsFollowFilter(t *testing.T) {
	store := pipelineStore()
	view := BuildView(store, Filter{CustomerIDs: []string{"c1"}}, Sort{})
	require.Equal(t, 2400.0, view.TotalPrice)
	require.Equal(t, 500.0, view.TotalProfit)
}

func TestBuildViewNaturalPONumberSort(t *testing.T) {
	store := pipelineStore()
	view := BuildView(store, Filter{}, Sort{Key: SortPONumber, Dir: SortAsc})
	require.Equal(t, []string{"po3", "po1", "po2"}, rowIDs(view), "PO-2 sorts before PO-10")

	view = BuildView(store, Filter{}, Sort{Key: SortPONumber, Dir: SortDesc})
	require.Equal(t, []string{"po2", "po1", "po3"}, rowIDs(view))
}

func TestBuildViewSortTiebreakIsDeterministic(t *testing.T) {
	store := pipelineStore()
	for i := range store.POs {
		store.POs[i].Status = POStatusDraft
	}
	first := BuildView(store, Filter{}, Sort{Key: SortStatus, Dir: SortAsc})
	second := BuildView(store, Filter{}, Sort{Key: SortStatus, Dir: SortAsc})
	require.Equal(t, rowIDs(first), rowIDs(second))
	require.Equal(t, []string{"po1", "po2", "po3"}, rowIDs(first), "equal keys fall back to id order")
}

func TestBuildViewDoesNotMutateStore(t *testing.T) {
	store := pipelineStore()
	before := Canonical(store)
	BuildView(store, Filter{Query: "acme"}, Sort{Key: SortPrice, Dir: SortDesc})
	require.Equal(t, before, Canonical(store))
}

func TestSortToggleCycle(t *testing.T) {
	var s Sort
	s = s.Toggle(SortPrice)
	require.Equal(t, Sort{Key: SortPrice, Dir: SortAsc}, s)
	s = s.Toggle(SortPrice)
	require.Equal(t, Sort{Key: SortPrice, Dir: SortDesc}, s)
	s = s.Toggle(SortPrice)
	require.Equal(t, Sort{}, s)
	require.False(t, s.Active())
}

func TestParseSortKey(t *testing.T) {
	require.Equal(t, SortPONumber, ParseSortKey("poNumber"))
	require.Equal(t, SortProfit, ParseSortKey("profit"))
	require.Equal(t, SortNone, ParseSortKey(""))
	require.Equal(t, SortNone, ParseSortKey("bogus"))
	require.Equal(t, SortNone, ParseSortKey("id"))
}

func TestSortToggleSwitchingColumnsStartsAscending(t *testing.T) {
	s := Sort{Key: SortPrice, Dir: SortDesc}
	s = s.Toggle(SortStatus)
	require.Equal(t, Sort{Key: SortStatus, Dir: SortAsc}, s)
}
