package yolo

import (
	"strings"
	"testing"
)

func TestParseClasses(t *testing.T) {
	classes, err := ParseClasses(strings.NewReader("milk\n\n# a comment\n  bread  \ncheese\n"))
	if err != nil {
		t.Fatalf("expected parsing to succeed, got %v", err)
	}
	if len(classes) != 3 {
		t.Fatalf("expected 3 classes, got %v", classes)
	}
	if classes[0] != "milk" || classes[1] != "bread" || classes[2] != "cheese" {
		t.Fatalf("expected trimmed class names, got %v", classes)
	}
}

func TestLoadClassesFallsBack(t *testing.T) {
	classes, err := LoadClasses("does-not-exist.txt")
	if err != nil {
		t.Fatalf("expected the fallback list, got %v", err)
	}
	if len(classes) != 25 {
		t.Fatalf("expected 25 fallback classes, got %d", len(classes))
	}
}

// gridTensor builds an all-zero 2x2 head tensor. A zero logit activates to
// 0.5, so every untouched anchor scores 0.25 and falls below the confidence
// threshold.
const testGridSize = 2

func gridTensor() []float32 {
	return make([]float32, gridChannels*testGridSize*testGridSize)
}

func setLogit(data []float32, channel, iy, ix int, value float32) {
	data[(channel*testGridSize+iy)*testGridSize+ix] = value
}

func TestDecodeGrid(t *testing.T) {
	classes := []string{"milk", "bread", "cheese"}

	t.Run("confident detection", func(t *testing.T) {
		data := gridTensor()
		// Anchor 0 in cell (1,0): centered box one cell wide, objectness and
		// the "bread" class driven to near certainty.
		setLogit(data, 4, 0, 1, 10)
		setLogit(data, 5+1, 0, 1, 10)

		candidates := decodeGrid(data, testGridSize, testGridSize, classes)
		if len(candidates) != 1 {
			t.Fatalf("expected a single candidate, got %v", candidates)
		}
		candidate := candidates[0]
		if candidate.label != "bread" {
			t.Fatalf("expected the best class label, got %q", candidate.label)
		}
		if got, want := candidate.confidence, float32(sigmoid(10)*sigmoid(10)); got != want {
			t.Fatalf("expected confidence %v, got %v", want, got)
		}
		// Zero logits put the center half a stride into the cell and the size
		// at one stride: cell (1,0) of a 2x2 grid lands at (0.5, 0) spanning
		// half the frame.
		if candidate.box.X != 0.5 || candidate.box.Y != 0 {
			t.Fatalf("expected the box origin at (0.5, 0), got %+v", candidate.box)
		}
		if candidate.box.Width != 0.5 || candidate.box.Height != 0.5 {
			t.Fatalf("expected a half-frame box, got %+v", candidate.box)
		}
	})

	t.Run("below threshold", func(t *testing.T) {
		if candidates := decodeGrid(gridTensor(), testGridSize, testGridSize, classes); len(candidates) != 0 {
			t.Fatalf("expected zero logits to fall below the confidence threshold, got %v", candidates)
		}
	})

	t.Run("unknown class id", func(t *testing.T) {
		data := gridTensor()
		base := anchorChannels // anchor 1
		setLogit(data, base+4, 1, 1, 10)
		setLogit(data, base+5+5, 1, 1, 10)

		candidates := decodeGrid(data, testGridSize, testGridSize, []string{"milk", "bread"})
		if len(candidates) != 1 {
			t.Fatalf("expected a single candidate, got %v", candidates)
		}
		if candidates[0].label != "class_5" {
			t.Fatalf("expected a placeholder label, got %q", candidates[0].label)
		}
	})

	t.Run("degenerate box is widened", func(t *testing.T) {
		data := gridTensor()
		setLogit(data, 2, 0, 0, -10)
		setLogit(data, 3, 0, 0, -10)
		setLogit(data, 4, 0, 0, 10)
		setLogit(data, 5, 0, 0, 10)

		candidates := decodeGrid(data, testGridSize, testGridSize, classes)
		if len(candidates) != 1 {
			t.Fatalf("expected a single candidate, got %v", candidates)
		}
		if box := candidates[0].box; box.Width != 0.01 || box.Height != 0.01 {
			t.Fatalf("expected the box to be widened to the minimum size, got %+v", box)
		}
	})

	t.Run("box clamped to frame", func(t *testing.T) {
		data := gridTensor()
		// Center pushed to the frame edge with a full-stride box, so the
		// top-left corner would land outside the frame.
		setLogit(data, 0, 0, 0, -10)
		setLogit(data, 1, 0, 0, -10)
		setLogit(data, 4, 0, 0, 10)
		setLogit(data, 5, 0, 0, 10)

		candidates := decodeGrid(data, testGridSize, testGridSize, classes)
		if len(candidates) != 1 {
			t.Fatalf("expected a single candidate, got %v", candidates)
		}
		if box := candidates[0].box; box.X != 0 || box.Y != 0 {
			t.Fatalf("expected the origin to be clamped to the frame, got %+v", box)
		}
	})

	t.Run("short tensor", func(t *testing.T) {
		if candidates := decodeGrid(make([]float32, 10), testGridSize, testGridSize, classes); candidates != nil {
			t.Fatalf("expected a short tensor to be dropped, got %v", candidates)
		}
	})
}
