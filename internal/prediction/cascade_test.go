package prediction

import "testing"

func fill(c *Cascade, pattern string) {
	for _, r := range pattern {
		c.Add(Symbol(r))
	}
}

func TestPredictRequiresFullWindow(t *testing.T) {
	c := NewCascade()
	for i := 0; i < WindowSize-1; i++ {
		c.Add(Player)
		if got := c.Predict(); got != None {
			t.Fatalf("after %d results Predict = %c, want N", i+1, got)
		}
	}
	c.Add(Player)
	if got := c.Predict(); got == None {
		t.Fatalf("full window must produce a real pick")
	}
}

func TestPredictDeterministic(t *testing.T) {
	c := NewCascade()
	fill(c, "PBPBBPPBPBBPPBP")
	first := c.Predict()
	if first != Player && first != Banker {
		t.Fatalf("pick = %c, want P or B", first)
	}
	for i := 0; i < 5; i++ {
		if got := c.Predict(); got != first {
			t.Fatalf("repeated Predict changed: %c then %c", first, got)
		}
	}
}

func TestPredictUniformWindow(t *testing.T) {
	c := NewCascade()
	fill(c, "PPPPPPPPPPPPPPP")
	if got := c.Predict(); got != Player {
		t.Fatalf("all-player window pick = %c, want P", got)
	}
}

func TestWindowSlides(t *testing.T) {
	c := NewCascade()
	fill(c, "PPPPPPPPPPPPPPP")
	c.Add(Banker)
	results := c.Results()
	if len(results) != WindowSize {
		t.Fatalf("window length = %d, want %d", len(results), WindowSize)
	}
	if results[WindowSize-1] != Banker {
		t.Fatalf("newest result should be B, got %c", results[WindowSize-1])
	}
}

func TestAddDiscardsTies(t *testing.T) {
	c := NewCascade()
	c.Add(Player)
	c.Add(None)
	c.Add(Symbol('T'))
	c.Add(Banker)
	if got := len(c.Results()); got != 2 {
		t.Fatalf("window length = %d, want 2", got)
	}
}

func TestOpposite(t *testing.T) {
	if Opposite(Player) != Banker || Opposite(Banker) != Player {
		t.Fatalf("opposite mapping broken")
	}
	if Opposite(None) != None {
		t.Fatalf("opposite of N must stay N")
	}
}
