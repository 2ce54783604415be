package builtin

import (
	"reflect"
	"testing"

	"omnicart/pkg/records"
)

func user(id any, name string) records.Record {
	return records.Record{"id": id, "username": name}
}

func TestDeDupKeepFirst(t *testing.T) {
	in := []records.Record{user("1", "alice"), user("1", "alice-dup"), user("2", "bob")}
	got := DeDup{Keys: []string{"id"}}.Apply(in)
	want := []records.Record{user("1", "alice"), user("2", "bob")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("keep-first: got %#v want %#v", got, want)
	}
}

func TestDeDupKeepLast(t *testing.T) {
	in := []records.Record{user("1", "alice"), user("2", "bob"), user("1", "alice-dup")}
	got := DeDup{Keys: []string{"id"}, Policy: "keep-last"}.Apply(in)
	want := []records.Record{user("2", "bob"), user("1", "alice-dup")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("keep-last: got %#v want %#v", got, want)
	}
}

func TestDeDupMissingKeyPassesThrough(t *testing.T) {
	in := []records.Record{{"username": "nokey"}, user("1", "alice"), user(nil, "nullkey"), user("1", "again")}
	got := DeDup{Keys: []string{"id"}}.Apply(in)
	want := []records.Record{{"username": "nokey"}, user("1", "alice"), user(nil, "nullkey")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("missing key: got %#v want %#v", got, want)
	}
}

func TestDeDupNoKeysIsNoop(t *testing.T) {
	in := []records.Record{user("1", "a"), user("1", "b")}
	if got := (DeDup{}).Apply(in); len(got) != 2 {
		t.Fatalf("no keys: got %d records, want 2", len(got))
	}
}
