package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertLandArea(t *testing.T) {
	hectares, err := ConvertLandArea(15, LandUnitHectare, LandUnitAcre)
	require.NoError(t, err)
	assert.InDelta(t, 37.06575, hectares, 0.0001)

	acres, err := ConvertLandArea(10, LandUnitAcre, LandUnitHectare)
	require.NoError(t, err)
	assert.InDelta(t, 4.04686, acres, 0.0001)

	same, err := ConvertLandArea(3, LandUnitAcre, LandUnitAcre)
	require.NoError(t, err)
	assert.Equal(t, 3.0, same)

	_, err = ConvertLandArea(1, "bigha", LandUnitAcre)
	assert.Error(t, err)
}

func TestSumsToHundred(t *testing.T) {
	assert.True(t, SumsToHundred(100))
	assert.True(t, SumsToHundred(33.33+33.33+33.34))
	assert.True(t, SumsToHundred(99.995))
	assert.False(t, SumsToHundred(99.9))
	assert.False(t, SumsToHundred(101))
}

func TestBidSet_SortedIsStable(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	set := BidSet{
		"c": {ID: "c", BidDate: t0.Add(time.Minute)},
		"b": {ID: "b", BidDate: t0},
		"a": {ID: "a", BidDate: t0},
	}

	ids := []string{}
	for _, b := range set.Sorted() {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	raw, err := json.Marshal(set)
	require.NoError(t, err)
	var decoded BidSet
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Len(t, decoded, 3)
	assert.Equal(t, t0, decoded["b"].BidDate)
}

func TestContract_ValidateBasic(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	valid := func() *Contract {
		return &Contract{
			Title:       "Wheat supply",
			Description: "Winter wheat",
			Value:       1000,
			Terms:       []string{"Deliver on time"},
			StartDate:   start,
			EndDate:     start.AddDate(0, 3, 0),
		}
	}

	require.NoError(t, valid().ValidateBasic())

	c := valid()
	c.Terms = []string{" ", ""}
	assert.ErrorIs(t, c.ValidateBasic(), ErrInvalidContract)

	c = valid()
	c.EndDate = c.StartDate
	assert.ErrorContains(t, c.ValidateBasic(), "startDate must be before endDate")

	c = valid()
	c.IsTender = true
	late := start.Add(time.Hour)
	c.TenderEndDate = &late
	assert.ErrorContains(t, c.ValidateBasic(), "tenderEndDate")

	c.TenderEndDate = &start
	assert.NoError(t, c.ValidateBasic())
}

func TestUser_LandIn(t *testing.T) {
	area := 6.0
	u := &User{LandArea: &area, LandUnit: LandUnitAcre}
	v, ok := u.LandIn(LandUnitAcre)
	assert.True(t, ok)
	assert.Equal(t, 6.0, v)

	_, ok = (&User{}).LandIn(LandUnitAcre)
	assert.False(t, ok)
}

func TestPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, PairKey("alice", "bob"), PairKey("bob", "alice"))
}
