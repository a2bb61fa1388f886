package domain

import "testing"

func TestParseSource(t *testing.T) {
	cases := map[string]Source{
		"":          SourceWebsite,
		"Instagram": SourceInstagram,
		" manual ":  SourceManual,
		"tiktok":    SourceOther,
	}
	for in, want := range cases {
		if got := ParseSource(in); got != want {
			t.Fatalf("ParseSource(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreationComment(t *testing.T) {
	if got := CreationComment(SourceWebsite); got != "Заявка с сайта" {
		t.Fatalf("unexpected website comment %q", got)
	}
	if got := CreationComment(SourceInstagram); got != "Заявка: Instagram" {
		t.Fatalf("unexpected instagram comment %q", got)
	}
	if got := CreationComment(SourceManual); got != CommentCreatedManual {
		t.Fatalf("unexpected manual comment %q", got)
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range AllStatuses() {
		if !s.Valid() {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	if Status("archived").Valid() {
		t.Fatal("archived is not a pipeline state")
	}
}
