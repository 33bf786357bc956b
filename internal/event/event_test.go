package event

import "testing"

func TestParseNameRoundtrip(t *testing.T) {
	for _, n := range Names() {
		got, ok := ParseName(n.String())
		if !ok {
			t.Fatalf("ParseName(%q) not found", n)
		}
		if got != n {
			t.Errorf("ParseName(%q) = %v, want %v", n.String(), got, n)
		}
	}
}

func TestNameValid(t *testing.T) {
	if NameUnknown.Valid() {
		t.Error("NameUnknown must not be valid")
	}
	if Name(200).Valid() {
		t.Error("out-of-range name must not be valid")
	}
	if _, ok := ParseName("roomJoin"); ok {
		t.Error("unexpected name roomJoin")
	}
	if got := Name(200).String(); got != "unknown" {
		t.Errorf("String() = %q, want unknown", got)
	}
}

func TestRoleOrdering(t *testing.T) {
	ladder := []Role{RoleNone, RoleResidentDJ, RoleVIP, RoleMod, RoleCoOwner, RoleOwner}
	for i := 1; i < len(ladder); i++ {
		if !ladder[i].AtLeast(ladder[i-1]) || ladder[i-1].AtLeast(ladder[i]) {
			t.Errorf("%s must rank above %s", ladder[i], ladder[i-1])
		}
	}
}

func TestPlayCloneDoesNotAlias(t *testing.T) {
	p := Play{Votes: Votes{Woots: []string{"a"}}}
	c := p.Clone()
	c.Votes.Woots[0] = "b"
	if p.Votes.Woots[0] != "a" {
		t.Error("clone shares vote slices with original")
	}
}
