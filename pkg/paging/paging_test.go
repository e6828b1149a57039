package paging

import (
	"testing"

	"github.com/staffdir/staffdir/pkg/apperr"
)

func TestNormalizeDefaults(t *testing.T) {
	p := Params{}
	if err := p.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p.Page != 1 || p.PageSize != 20 || p.SortBy != "id" || p.Order != "desc" {
		t.Fatalf("unexpected defaults %+v", p)
	}
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	cases := []struct {
		name   string
		params Params
		code   string
	}{
		{"oversized page size", Params{PageSize: 1000}, "002"},
		{"negative page size", Params{PageSize: -1}, "002"},
		{"negative page", Params{Page: -1, PageSize: 10}, "003"},
		{"bad order", Params{Order: "sideways"}, "005"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.params.Normalize()
			appErr, ok := apperr.As(err)
			if !ok || appErr.Code != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, err)
			}
		})
	}
}

func TestNormalizeAcceptsMixedCaseOrder(t *testing.T) {
	p := Params{Order: "ASC"}
	if err := p.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p.Order != "asc" {
		t.Fatalf("expected lowercased order, got %q", p.Order)
	}
}
