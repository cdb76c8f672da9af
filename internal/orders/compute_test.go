package orders

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputePOPriceAndProfit(t *testing.T) {
	lena := Producer{ID: "p1", Name: "Lena", Rate: 600, Markup: 200}
	marko := Producer{ID: "p2", Name: "Marko", Rate: 650, Markup: 150}
	producers := map[string]Producer{"p1": lena, "p2": marko}

	po := PO{
		ID: "po1",
		Sessions: []Session{
			{ID: "s1", Date: "2026-01-10", ProducerID: "p1", Units: 1},
			{ID: "s2", Date: "2026-01-17", ProducerID: "p2", Units: 2},
		},
	}

	computed := ComputePO(po, producers)
	require.Equal(t, 2, computed.SessionCount)
	require.Equal(t, 2400.0, computed.Price)
	require.Equal(t, 500.0, computed.Profit)
	require.Equal(t, "2026-01-10", computed.StartDate)
	require.Equal(t, "2026-01-17", computed.EndDate)
	require.Equal(t, []string{"p1", "p2"}, computed.ProducerIDs)
}

func TestComputePOMissingProducer(t *testing.T) {
	producers := map[string]Producer{"p1": {ID: "p1", Rate: 100, Markup: 50}}
	po := PO{
		Sessions: []Session{
			{ID: "s1", ProducerID: "p1", Units: 1},
			{ID: "s2", ProducerID: "gone", Units: 3},
			{ID: "s3", ProducerID: "", Units: 2},
		},
	}

	computed := ComputePO(po, producers)
	require.Equal(t, 3, computed.SessionCount, "dangling producers still count as sessions")
	require.Equal(t, 150.0, computed.Price)
	require.Equal(t, 50.0, computed.Profit)
	require.Equal(t, []string{"p1"}, computed.ProducerIDs)
}

func TestComputePOClampsNegativeAndNonFinite(t *testing.T) {
	producers := map[string]Producer{
		"p1": {ID: "p1", Rate: -100, Markup: 50},
		"p2": {ID: "p2", Rate: math.NaN(), Markup: math.Inf(1)},
	}
	po := PO{
		Sessions: []Session{
			{ID: "s1", ProducerID: "p1", Units: -5},
			{ID: "s2", ProducerID: "p2", Units: 2},
		},
	}

	computed := ComputePO(po, producers)
	require.Equal(t, 0.0, computed.Price)
	require.Equal(t, 0.0, computed.Profit)
}

func TestComputePOProfitNeverExceedsPrice(t *testing.T) {
	producers := map[string]Producer{"p1": {ID: "p1", Rate: 10, Markup: 90}}
	po := PO{Sessions: []Session{{ID: "s1", ProducerID: "p1", Units: 4}}}

	computed := ComputePO(po, producers)
	require.GreaterOrEqual(t, computed.Price, computed.Profit)
	require.GreaterOrEqual(t, computed.Profit, 0.0)
}

func TestComputePONoDatedSessions(t *testing.T) {
	po := PO{Sessions: []Session{{ID: "s1"}, {ID: "s2"}}}
	computed := ComputePO(po, nil)
	require.Empty(t, computed.StartDate)
	require.Empty(t, computed.EndDate)
	require.Equal(t, 2, computed.SessionCount)
}

func TestParseNumber(t *testing.T) {
	require.Equal(t, 12.5, ParseNumber("12.5"))
	require.Equal(t, 12.5, ParseNumber("12,5"))
	require.Equal(t, 0.0, ParseNumber("abc"))
	require.Equal(t, 0.0, ParseNumber(""))
}

func TestAddDays(t *testing.T) {
	require.Equal(t, "2026-01-17", AddDays("2026-01-10", 7))
	require.Equal(t, "2026-03-02", AddDays("2026-02-23", 7))
	require.Equal(t, "", AddDays("", 7))
}
