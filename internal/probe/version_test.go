package probe

import "testing"

func TestFindVersion(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"frame-extractor version 1.2.3", "1.2.3", true},
		{"v10.0.12-beta", "10.0.12", true},
		{"build 1.2", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		v, ok := FindVersion(tc.text)
		if ok != tc.ok || (ok && v.String() != tc.want) {
			t.Fatalf("FindVersion(%q) = %v %v, want %q %v", tc.text, v, ok, tc.want, tc.ok)
		}
	}
}

func TestFindPythonVersion(t *testing.T) {
	if v, ok := FindPythonVersion("Python  3.10.4\n"); !ok || v != (Version{3, 10, 4}) {
		t.Fatalf("unexpected parse %v %v", v, ok)
	}
	if _, ok := FindPythonVersion("pypy 7.3.1"); ok {
		t.Fatal("expected no match without the Python prefix")
	}
}

func TestVersionFloor(t *testing.T) {
	floor := Version{Major: 3, Minor: 8}
	if (Version{3, 7, 99}).AtLeast(floor) {
		t.Fatal("3.7.99 must be below 3.8")
	}
	if !(Version{3, 8, 0}).AtLeast(floor) || !(Version{4, 0, 0}).AtLeast(floor) {
		t.Fatal("expected floor to accept 3.8.0 and 4.0.0")
	}
}
