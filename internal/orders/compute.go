package orders

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// ComputedPO is the derived financial/date summary of a PO. It is recomputed
// on demand and never persisted.
type ComputedPO struct {
	SessionCount int      `json:"sessionCount"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	Price        float64  `json:"price"`
	Profit       float64  `json:"profit"`
	ProducerIDs  []string `json:"producerIds"`
}

// ComputePO derives the summary of a PO against a producer lookup. Sessions
// whose producer id is empty or dangling contribute zero to price and profit
// and are left out of ProducerIDs, but still count in SessionCount.
func ComputePO(po PO, producerByID map[string]Producer) ComputedPO {
	out := ComputedPO{SessionCount: len(po.Sessions)}

	var dates []string
	seen := make(map[string]bool)
	for _, sess := range po.Sessions {
		if sess.Date != "" {
			dates = append(dates, sess.Date)
		}
		producer, ok := producerByID[sess.ProducerID]
		if sess.ProducerID == "" || !ok {
			continue
		}
		units := clampNonNegative(sess.Units)
		rate := clampNonNegative(producer.Rate)
		markup := clampNonNegative(producer.Markup)
		out.Price += units * (rate + markup)
		out.Profit += units * markup
		if !seen[sess.ProducerID] {
			seen[sess.ProducerID] = true
			out.ProducerIDs = append(out.ProducerIDs, sess.ProducerID)
		}
	}

	// ISO dates sort chronologically as strings.
	sort.Strings(dates)
	if len(dates) > 0 {
		out.StartDate = dates[0]
		out.EndDate = dates[len(dates)-1]
	}
	return out
}

func clampNonNegative(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0
	}
	return n
}

// ParseNumber parses a decimal accepting either comma or dot as separator.
// Unparseable input yields 0.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return n
}

// Today returns the local calendar date as YYYY-MM-DD.
func Today() string {
	return time.Now().Format(isoDate)
}

// AddDays shifts an ISO date by n calendar days. An empty or malformed date
// is returned unchanged.
func AddDays(iso string, n int) string {
	if iso == "" {
		return ""
	}
	t, err := time.ParseInLocation(isoDate, iso, time.Local)
	if err != nil {
		return iso
	}
	return t.AddDate(0, 0, n).Format(isoDate)
}
