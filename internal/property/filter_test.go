package property

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleProperties() []*Property {
	return []*Property{
		{ID: "64a1", Name: "Lake View Apartment", Category: CategoryApartment, Price: 25000, Location: Location{City: "Dhaka", Area: "Gulshan 1"}},
		{ID: "64a3", Name: "Corner Shop", Category: CategoryCommercial, Price: 90000, Location: Location{City: "Dhaka", Area: "Banani"}},
		{ID: "64a2", Name: "Family Villa", Category: CategoryHouseVilla, Price: 150000, Location: Location{City: "Chattogram", Area: "Khulshi"}},
		{ID: "64a0", Name: "Riverside Plot", Category: CategoryLandPlot, Price: 25000, Location: Location{City: "Sylhet", Area: "Zindabazar"}},
	}
}

func ids(props []*Property) []string {
	out := make([]string, 0, len(props))
	for _, p := range props {
		out = append(out, p.ID)
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"no criteria keeps order", Criteria{Category: CategoryAll}, []string{"64a1", "64a3", "64a2", "64a0"}},
		{"zero value keeps order", Criteria{}, []string{"64a1", "64a3", "64a2", "64a0"}},
		{"newest", Criteria{Sort: SortNewest}, []string{"64a3", "64a2", "64a1", "64a0"}},
		{"oldest", Criteria{Sort: SortOldest}, []string{"64a0", "64a1", "64a2", "64a3"}},
		{"price low is stable on ties", Criteria{Sort: SortPriceLow}, []string{"64a1", "64a0", "64a3", "64a2"}},
		{"price high is stable on ties", Criteria{Sort: SortPriceHigh}, []string{"64a2", "64a3", "64a1", "64a0"}},
		{"query matches area case-insensitively", Criteria{Query: "gulshan"}, []string{"64a1"}},
		{"query matches city", Criteria{Query: "DHAKA"}, []string{"64a1", "64a3"}},
		{"query matches name", Criteria{Query: "villa"}, []string{"64a2"}},
		{"category filter", Criteria{Category: CategoryCommercial}, []string{"64a3"}},
		{"query and category are combined", Criteria{Query: "dhaka", Category: CategoryApartment}, []string{"64a1"}},
		{"category is case-sensitive", Criteria{Category: Category("apartment")}, []string{}},
		{"no matches", Criteria{Query: "mirpur"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Apply(sampleProperties(), tt.criteria))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyPriceLowScenario(t *testing.T) {
	props := []*Property{{ID: "3", Price: 100}, {ID: "1", Price: 50}}

	got := Apply(props, Criteria{Category: CategoryAll, Sort: SortPriceLow})

	want := []*Property{{ID: "1", Price: 50}, {ID: "3", Price: 100}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyGulshanScenario(t *testing.T) {
	props := []*Property{
		{ID: "1", Name: "Flat A", Location: Location{City: "Dhaka", Area: "Gulshan 1"}},
		{ID: "2", Name: "Flat B", Location: Location{City: "Dhaka", Area: "Banani"}},
	}

	got := ids(Apply(props, Criteria{Query: "gulshan", Category: CategoryAll}))
	if diff := cmp.Diff([]string{"1"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	props := sampleProperties()
	before := ids(props)

	Apply(props, Criteria{Query: "a", Sort: SortPriceHigh})

	if diff := cmp.Diff(before, ids(props)); diff != "" {
		t.Errorf("input was reordered (-before +after):\n%s", diff)
	}
}

func TestFilterIsIdempotent(t *testing.T) {
	criteria := []Criteria{
		{Query: "dhaka"},
		{Category: CategoryLandPlot},
		{Query: "a", Category: CategoryApartment, Sort: SortNewest},
		{Query: "zz"},
	}

	for _, c := range criteria {
		once := Apply(sampleProperties(), c)
		twice := Apply(once, c)
		if diff := cmp.Diff(ids(once), ids(twice)); diff != "" {
			t.Errorf("criteria %+v not idempotent (-once +twice):\n%s", c, diff)
		}
	}
}

func TestApplyResultIsSubset(t *testing.T) {
	props := sampleProperties()
	seen := make(map[*Property]bool)
	for _, p := range props {
		seen[p] = true
	}

	for _, mode := range []SortMode{"", SortNewest, SortOldest, SortPriceLow, SortPriceHigh} {
		got := Apply(props, Criteria{Query: "a", Sort: mode})
		dup := make(map[*Property]bool)
		for _, p := range got {
			if !seen[p] {
				t.Errorf("sort %q: record %s not in input", mode, p.ID)
			}
			if dup[p] {
				t.Errorf("sort %q: record %s duplicated", mode, p.ID)
			}
			dup[p] = true
		}
	}
}

func TestPriceSortReversal(t *testing.T) {
	props := []*Property{
		{ID: "a", Price: 300}, {ID: "b", Price: 100}, {ID: "c", Price: 200}, {ID: "d", Price: 50},
	}

	asc := ids(Sort(props, SortPriceLow))
	desc := ids(Sort(props, SortPriceHigh))

	for i, j := 0, len(asc)-1; i < j; i, j = i+1, j-1 {
		asc[i], asc[j] = asc[j], asc[i]
	}
	if diff := cmp.Diff(desc, asc); diff != "" {
		t.Errorf("reversed ascending != descending (-desc +reversed):\n%s", diff)
	}
}

func TestSortEmpty(t *testing.T) {
	got := Apply(nil, Criteria{Sort: SortNewest})
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil slice", got)
	}
}

func TestParseSortMode(t *testing.T) {
	tests := []struct {
		in      string
		want    SortMode
		wantErr bool
	}{
		{"", "", false},
		{"newest", SortNewest, false},
		{"Oldest", SortOldest, false},
		{"price-low", SortPriceLow, false},
		{"price-asc", SortPriceLow, false},
		{"price-high", SortPriceHigh, false},
		{"price-desc", SortPriceHigh, false},
		{"cheapest", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSortMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
