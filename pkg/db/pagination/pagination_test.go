package pagination

import "testing"

func TestPageNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   Page
		want Page
	}{
		{name: "defaults", in: Page{}, want: Page{Limit: 50, Offset: 0}},
		{name: "clamps_max", in: Page{Limit: 500, Offset: 10}, want: Page{Limit: 100, Offset: 10}},
		{name: "negative_offset", in: Page{Limit: 5, Offset: -3}, want: Page{Limit: 5, Offset: 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Normalize(50, 100); got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}
