package orders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalSortsMapKeys(t *testing.T) {
	a := map[string]int{"b": 2, "a": 1, "c": 3}
	b := map[string]int{"c": 3, "a": 1, "b": 2}
	require.Equal(t, Canonical(a), Canonical(b))
	require.Equal(t, `{"a":1,"b":2,"c":3}`, Canonical(a))
}

func TestCanonicalIdempotent(t *testing.T) {
	store := Seed()
	first := Canonical(store)
	second := Canonical(store)
	require.Equal(t, first, second)
}

func TestCanonicalCloneEquality(t *testing.T) {
	store := Seed()
	clone := store.Clone()
	require.True(t, CanonicalEqual(store, clone))

	clone.POs[0].PONumber = "changed"
	require.False(t, CanonicalEqual(store, clone))
}

func TestCanonicalArrayOrderSignificant(t *testing.T) {
	require.NotEqual(t, Canonical([]int{1, 2}), Canonical([]int{2, 1}))
}

func TestCanonicalCircularReference(t *testing.T) {
	type node struct {
		Name string `json:"name"`
		Next *node  `json:"next"`
	}
	a := &node{Name: "a"}
	a.Next = a

	out := Canonical(a)
	require.Contains(t, out, "[circular]")
	require.True(t, strings.HasPrefix(out, "{"), "cycle must not abort encoding")
}

func TestCanonicalNilAndEmptySlicesEqual(t *testing.T) {
	type wrap struct {
		Items []string `json:"items"`
	}
	require.Equal(t, `{"items":[]}`, Canonical(wrap{}))
	require.Equal(t, `{"items":[]}`, Canonical(wrap{Items: []string{}}))
	require.True(t, CanonicalEqual(wrap{}, wrap{Items: []string{}}))
}

func TestCanonicalCloneEqualityWithEmptySessions(t *testing.T) {
	// Deep-copying collapses empty session slices to nil; the copy must stay
	// canonically identical or a freshly loaded store would read as dirty.
	store := Store{Version: StoreVersion, POs: []PO{{ID: "po1", Sessions: []Session{}}}}
	require.True(t, CanonicalEqual(store, store.Clone()))
}
