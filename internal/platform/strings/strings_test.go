package strings

import (
	"reflect"
	"testing"
)

func TestIfEmpty(t *testing.T) {
	def := []string{"GET", "POST"}
	if got := IfEmpty(nil, def); !reflect.DeepEqual(got, def) {
		t.Fatalf("nil = %v", got)
	}
	if got := IfEmpty([]string{"GET"}, def); !reflect.DeepEqual(got, []string{"GET"}) {
		t.Fatalf("set = %v", got)
	}
}

func TestMustPrefix(t *testing.T) {
	for in, want := range map[string]string{
		"analyses":     "/analyses",
		" /meta/ ":     "/meta",
		"//analyses//": "/analyses",
	} {
		if got := MustPrefix(in); got != want {
			t.Fatalf("MustPrefix(%q) = %q, want %q", in, got, want)
		}
	}
	for _, in := range []string{"", " / ", "//"} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("MustPrefix(%q) did not panic", in)
				}
			}()
			MustPrefix(in)
		}()
	}
}

func TestMustString(t *testing.T) {
	if MustString("analyses", "name") != "analyses" {
		t.Fatalf("value changed")
	}
	defer func() {
		if r := recover(); r != "name is required" {
			t.Fatalf("panic = %v", r)
		}
	}()
	MustString("  ", "name")
}
