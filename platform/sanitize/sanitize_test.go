package sanitize

import "testing"

func TestTextStripsMarkup(t *testing.T) {
	cases := map[string]string{
		"  Ali   Valiev ":                        "Ali Valiev",
		"<b>Tashkent</b>":                        "Tashkent",
		"&lt;script&gt;alert(1)&lt;/script&gt;x": "alert(1)x",
		"Tom &amp; Jerry":                        "Tom & Jerry",
		"line one\nline two":                     "line one\nline two",
		"бюджет < 5000 > 3000":                   "бюджет < 5000 > 3000",
		"a <3 b":                                 "a <3 b",
	}
	for in, want := range cases {
		if got := Text(in); got != want {
			t.Fatalf("Text(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOptional(t *testing.T) {
	if Optional(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
	blank := "  <br>  "
	if Optional(&blank) != nil {
		t.Fatal("expected nil for blank input")
	}
	v := " call after 6pm "
	got := Optional(&v)
	if got == nil || *got != "call after 6pm" {
		t.Fatalf("unexpected value %v", got)
	}
}
