package gate

import "testing"

func TestClassifyRole(t *testing.T) {
	cases := []struct {
		role string
		want Status
	}{
		{"member", StatusMember},
		{"administrator", StatusMember},
		{"creator", StatusMember},
		{"left", StatusNotMember},
		{"kicked", StatusNotMember},
		{"restricted", StatusNotMember},
		{"", StatusNotMember},
		{"some_future_role", StatusNotMember},
	}
	for _, tc := range cases {
		if got := ClassifyRole(tc.role); got != tc.want {
			t.Errorf("ClassifyRole(%q) = %s, expected %s", tc.role, got, tc.want)
		}
	}
}

func TestStatusString(t *testing.T) {
	if StatusMember.String() != "member" || StatusNotMember.String() != "not_member" || StatusUnknown.String() != "unknown" {
		t.Fatal("unexpected status names")
	}
}
