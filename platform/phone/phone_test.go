package phone

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"whatsapp jid", "5571989170372@s.whatsapp.net", "71989170372"},
		{"digits with ddi", "5571989170372", "71989170372"},
		{"digits without ddi", "71989170372", "71989170372"},
		{"display formatted", "(71) 98917-0372", "71989170372"},
		{"legacy ten digits gains ninth", "7189170372", "71989170372"},
		{"ddi plus legacy", "557189170372", "71989170372"},
		{"eleven digits starting with 55 kept", "55989170372", "55989170372"},
		{"empty", "", ""},
		{"no digits", "abc", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.input); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestVariants(t *testing.T) {
	got := Variants("71989170372")
	want := []string{"71989170372", "5571989170372", "7189170372", "557189170372"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Variants() = %v, want %v", got, want)
	}
}

func TestVariantsEmptyInput(t *testing.T) {
	if got := Variants(""); got != nil {
		t.Fatalf("expected nil variants for empty input, got %v", got)
	}
}

func TestFormatDisplay(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"5571989170372", "(71) 98917-0372"},
		{"71989170372", "(71) 98917-0372"},
		{"7185937856", "(71) 8593-7856"},
	}

	for _, tc := range cases {
		if got := FormatDisplay(tc.input); got != tc.want {
			t.Fatalf("FormatDisplay(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestDisplayVariantsAddsNinthDigitForMobileShapes(t *testing.T) {
	got := DisplayVariants("8585937856")
	want := []string{"(85) 8593-7856", "(85) 98593-7856"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DisplayVariants() = %v, want %v", got, want)
	}
}

func TestDisplayVariantsSkipsNinthDigitForLandlines(t *testing.T) {
	got := DisplayVariants("8532572058")
	want := []string{"(85) 3257-2058"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DisplayVariants() = %v, want %v", got, want)
	}
}

func TestDisplayVariantsDropsNinthDigit(t *testing.T) {
	got := DisplayVariants("85985937856")
	want := []string{"(85) 98593-7856", "(85) 8593-7856"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DisplayVariants() = %v, want %v", got, want)
	}
}

func TestRegionByAreaCode(t *testing.T) {
	if got := RegionByAreaCode("71989170372"); got != "SALVADOR" {
		t.Fatalf("expected SALVADOR, got %q", got)
	}
	if got := RegionByAreaCode("20989170372"); got != "DDD 20" {
		t.Fatalf("expected DDD fallback, got %q", got)
	}
}
