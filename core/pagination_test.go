package core

import (
	"reflect"
	"testing"
)

func TestPageNumbers(t *testing.T) {
	tests := []struct {
		name    string
		current int
		last    int
		want    []string
	}{
		{name: "middle window", current: 5, last: 10, want: []string{"1", "...", "4", "5", "6", "...", "10"}},
		{name: "few pages", current: 1, last: 3, want: []string{"1", "2", "3"}},
		{name: "single page", current: 1, last: 1, want: []string{"1"}},
		{name: "first of many", current: 1, last: 10, want: []string{"1", "2", "...", "10"}},
		{name: "near start", current: 2, last: 10, want: []string{"1", "2", "3", "...", "10"}},
		{name: "near end", current: 9, last: 10, want: []string{"1", "...", "8", "9", "10"}},
		{name: "last of many", current: 10, last: 10, want: []string{"1", "...", "9", "10"}},
		{name: "seven pages, no gaps", current: 4, last: 7, want: []string{"1", "2", "3", "4", "5", "6", "7"}},
		{name: "current out of range", current: 42, last: 10, want: []string{"1", "...", "9", "10"}},
		{name: "no pages", current: 1, last: 0, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PageNumbers(tt.current, tt.last); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("PageNumbers(%d, %d) = %v; want %v", tt.current, tt.last, got, tt.want)
			}
		})
	}
}

func TestNewMeta(t *testing.T) {
	tests := []struct {
		name   string
		total  int
		params Params
		want   Meta
	}{
		{name: "exact pages", total: 50, params: Params{Page: 2, PerPage: 25}, want: Meta{Total: 50, CurrentPage: 2, LastPage: 2, PerPage: 25}},
		{name: "partial last page", total: 51, params: Params{Page: 1, PerPage: 25}, want: Meta{Total: 51, CurrentPage: 1, LastPage: 3, PerPage: 25}},
		{name: "empty set", total: 0, params: Params{Page: 1, PerPage: 25}, want: Meta{Total: 0, CurrentPage: 1, LastPage: 1, PerPage: 25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewMeta(tt.total, tt.params); got != tt.want {
				t.Errorf("NewMeta() = %+v; want %+v", got, tt.want)
			}
		})
	}
}

func TestParamsClean(t *testing.T) {
	p := Params{Page: -1, PerPage: 0}
	p.Clean()
	if p.Page != DefaultPage || p.PerPage != DefaultPerPage {
		t.Errorf("Clean() = %+v; want defaults", p)
	}

	p = Params{Page: 3, PerPage: 10_000}
	p.Clean()
	if p.PerPage != MaxPerPage {
		t.Errorf("Clean() PerPage = %d; want %d", p.PerPage, MaxPerPage)
	}
	if p.Offset() != 2*MaxPerPage {
		t.Errorf("Offset() = %d; want %d", p.Offset(), 2*MaxPerPage)
	}
}
