package search

import (
	"fmt"
	"testing"

	"larica/models"

	"github.com/stretchr/testify/assert"
)

func manyRestaurants(n int) []models.Restaurant {
	out := make([]models.Restaurant, n)
	for i := range out {
		out[i] = models.Restaurant{ID: fmt.Sprint(i), Name: fmt.Sprintf("R%d", i), Rating: float64(n - i)}
	}
	return out
}

func TestCategoryToggleScenario(t *testing.T) {
	s := NewState()

	s.ToggleCategory("japanese")
	v := s.View(twoRestaurants, 0)
	assert.Equal(t, []string{"Sushi Bar"}, names(v.Restaurants))
	assert.Equal(t, "japanese", v.Filter.Category)

	s.ToggleCategory("japanese")
	v = s.View(twoRestaurants, 0)
	assert.Equal(t, []string{"Pizza Place", "Sushi Bar"}, names(v.Restaurants))
	assert.True(t, v.Filter.IsZero())
}

func TestToggleOffResetsTermToo(t *testing.T) {
	s := NewState()
	s.SetTerm("pi")
	s.ToggleCategory("italian")
	s.ToggleCategory("italian")
	assert.True(t, s.Filter().IsZero())
}

func TestSwitchingCategoryKeepsTerm(t *testing.T) {
	s := NewState()
	s.SetTerm("pi")
	s.ToggleCategory("italian")
	s.ToggleCategory("japanese")
	assert.Equal(t, models.FilterState{Term: "pi", Category: "japanese"}, s.Filter())
}

func TestVisibleCountPaging(t *testing.T) {
	items := manyRestaurants(10)
	s := NewState()

	v := s.View(items, 1)
	assert.Len(t, v.Restaurants, PageSize)
	assert.Equal(t, 10, v.Total)
	assert.True(t, v.HasMore)

	s.ShowMore()
	s.ShowMore()
	v = s.View(items, 1)
	assert.Len(t, v.Restaurants, 10)
	assert.False(t, v.HasMore)

	// Any filter change resets the visible count
	s.ShowMore()
	s.SetTerm("r")
	v = s.View(items, 1)
	assert.Equal(t, PageSize, v.Visible)
	assert.Len(t, v.Restaurants, PageSize)
}

func TestMapModeShowsAll(t *testing.T) {
	items := manyRestaurants(70)
	s := NewState()
	s.SetViewMode(ViewMap)
	s.SetViewMode("satellite")

	v := s.View(items, 1)
	assert.Equal(t, ViewMap, v.Mode)
	assert.Len(t, v.Restaurants, MaxResults)
	assert.False(t, v.HasMore)
}

func TestNewGenerationResetsFilter(t *testing.T) {
	s := NewState()
	s.Sync(1)
	s.SetTerm("sushi")
	s.ToggleCategory("japanese")
	s.ShowMore()

	v := s.View(twoRestaurants, 1)
	assert.Equal(t, "sushi", v.Filter.Term)

	v = s.View(twoRestaurants, 2)
	assert.True(t, v.Filter.IsZero())
	assert.Equal(t, PageSize, v.Visible)
	assert.Len(t, v.Restaurants, 2)
}
