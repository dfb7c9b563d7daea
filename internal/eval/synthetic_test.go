package eval

import (
	"testing"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

func TestSyntheticSeed(t *testing.T) {
	// sha256("abc") = ba7816bf...
	if got := SyntheticSeed("abc"); got != 0xba7816bf {
		t.Errorf("Expected seed 0xba7816bf, got %#x", got)
	}
}

func TestSyntheticFeatures(t *testing.T) {
	a := SyntheticFeatures("r1", "The economy grew last quarter")
	b := SyntheticFeatures("r2", "The economy grew last quarter")
	c := SyntheticFeatures("r3", "A different claim")

	if len(a) != 10 {
		t.Fatalf("Expected 10 features, got %d", len(a))
	}
	same := true
	for i := range a {
		if a[i].Value != b[i].Value || a[i].Name != b[i].Name {
			t.Errorf("Expected identical values for the same claim at %s", a[i].Name)
		}
		if a[i].RunID != "r1" {
			t.Errorf("Expected run id r1, got %s", a[i].RunID)
		}
		if a[i].Value != c[i].Value {
			same = false
		}
	}
	if same {
		t.Error("Expected different claims to produce different features")
	}

	for _, f := range a {
		g, ok := model.GroupOf(f.Name)
		if !ok || g != f.Group {
			t.Errorf("Feature %s has wrong group %s", f.Name, f.Group)
		}
		lo, hi := 0.0, 1.0
		switch f.Name {
		case model.FeatTotalArticles:
			lo, hi = 1, 20
		case model.FeatUniqueDomains:
			lo, hi = 1, 10
		case model.FeatPublicationSpanHours:
			hi = 1000
		case model.FeatDomainDiversity:
			hi = 3
		}
		if f.Value < lo || f.Value > hi {
			t.Errorf("Feature %s = %v outside [%v, %v]", f.Name, f.Value, lo, hi)
		}
	}
}
