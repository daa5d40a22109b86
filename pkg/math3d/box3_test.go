package math3d

import "testing"

func TestEmptyBox3(t *testing.T) {
	b := EmptyBox3()
	if !b.IsEmpty() {
		t.Error("EmptyBox3() not empty")
	}
	if b.MaxDim() != 0 {
		t.Errorf("MaxDim() of empty box = %v, want 0", b.MaxDim())
	}
}

func TestBox3Expand(t *testing.T) {
	b := EmptyBox3().Expand(V3(1, 2, 3))
	if b.IsEmpty() {
		t.Fatal("box empty after Expand")
	}
	if b.Min != V3(1, 2, 3) || b.Max != V3(1, 2, 3) {
		t.Errorf("single-point box = %v/%v", b.Min, b.Max)
	}

	b = b.Expand(V3(-1, 5, 0))
	if b.Min != V3(-1, 2, 0) {
		t.Errorf("Min = %v, want (-1,2,0)", b.Min)
	}
	if b.Max != V3(1, 5, 3) {
		t.Errorf("Max = %v, want (1,5,3)", b.Max)
	}
}

func TestBox3Union(t *testing.T) {
	a := EmptyBox3().Expand(V3(0, 0, 0)).Expand(V3(1, 1, 1))
	b := EmptyBox3().Expand(V3(2, -1, 0)).Expand(V3(3, 0, 5))

	u := a.Union(b)
	if u.Min != V3(0, -1, 0) || u.Max != V3(3, 1, 5) {
		t.Errorf("Union = %v/%v", u.Min, u.Max)
	}

	// Union with empty is identity either way.
	if got := a.Union(EmptyBox3()); got != a {
		t.Errorf("a.Union(empty) = %v, want %v", got, a)
	}
	if got := EmptyBox3().Union(a); got != a {
		t.Errorf("empty.Union(a) = %v, want %v", got, a)
	}
}

func TestBox3CenterSizeMaxDim(t *testing.T) {
	b := EmptyBox3().Expand(V3(0, 0, 0)).Expand(V3(2, 4, 6))
	if b.Center() != V3(1, 2, 3) {
		t.Errorf("Center() = %v, want (1,2,3)", b.Center())
	}
	if b.Size() != V3(2, 4, 6) {
		t.Errorf("Size() = %v, want (2,4,6)", b.Size())
	}
	if b.MaxDim() != 6 {
		t.Errorf("MaxDim() = %v, want 6", b.MaxDim())
	}
}
