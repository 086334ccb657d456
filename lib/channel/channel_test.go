package channel

import (
	"testing"
)

func TestNewSet_Valid(t *testing.T) {
	set, err := NewSet(
		Decl{ID: "app:command", Direction: Outbound},
		Decl{ID: "app:notice", Direction: Inbound},
	)
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}

	if set.Len() != 2 {
		t.Errorf("expected 2 channels, got %d", set.Len())
	}

	decl, ok := set.Lookup("app:command")
	if !ok {
		t.Fatal("app:command not found")
	}
	if decl.Direction != Outbound {
		t.Errorf("expected outbound, got %v", decl.Direction)
	}

	if _, ok := set.Lookup("app:unknown"); ok {
		t.Error("undeclared channel should not resolve")
	}
}

func TestNewSet_Rejections(t *testing.T) {
	testCases := []struct {
		name  string
		decls []Decl
	}{
		{
			name: "Duplicate identifier",
			decls: []Decl{
				{ID: "app:command", Direction: Outbound},
				{ID: "app:command", Direction: Inbound},
			},
		},
		{
			name:  "Empty identifier",
			decls: []Decl{{ID: "", Direction: Outbound}},
		},
		{
			name:  "Invalid direction",
			decls: []Decl{{ID: "app:command", Direction: Direction(0)}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewSet(tc.decls...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSet_Require(t *testing.T) {
	set := MustNewSet(
		Decl{ID: "app:command", Direction: Outbound},
		Decl{ID: "app:notice", Direction: Inbound},
	)

	if _, err := set.Require("app:command", Outbound); err != nil {
		t.Errorf("Require failed for declared channel: %v", err)
	}

	if _, err := set.Require("app:command", Inbound); err == nil {
		t.Error("expected direction mismatch error")
	}

	if _, err := set.Require("app:other", Outbound); err == nil {
		t.Error("expected unknown channel error")
	}
}

func TestSet_IDsSorted(t *testing.T) {
	set := MustNewSet(
		Decl{ID: "zeta", Direction: Outbound},
		Decl{ID: "alpha", Direction: Inbound},
		Decl{ID: "mid", Direction: Inbound},
	)

	ids := set.IDs()
	expected := []ID{"alpha", "mid", "zeta"}
	for i, id := range expected {
		if ids[i] != id {
			t.Errorf("expected IDs[%d] = %q, got %q", i, id, ids[i])
		}
	}
}

func TestDefaultSet(t *testing.T) {
	set := DefaultSet()

	if _, err := set.Require(Command, Outbound); err != nil {
		t.Errorf("Command should be outbound: %v", err)
	}
	if _, err := set.Require(Notice, Inbound); err != nil {
		t.Errorf("Notice should be inbound: %v", err)
	}
}

func TestMustNewSet_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid declaration")
		}
	}()
	MustNewSet(Decl{ID: "", Direction: Outbound})
}
