package clipboard

import (
	"image"
	"os"
	"testing"
)

func TestWrite(t *testing.T) {
	if os.Getenv("SCREEN_SELECT_INTERACTIVE_TESTS") != "1" {
		t.Skip("set SCREEN_SELECT_INTERACTIVE_TESTS=1 to run clipboard tests")
	}
	if err := Init(); err != nil {
		t.Skipf("clipboard unavailable: %v", err)
	}
	if err := Write("test text"); err != nil {
		t.Errorf("Failed to write to clipboard: %v", err)
	}
	if err := WriteImage(image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Errorf("Failed to write image to clipboard: %v", err)
	}
}
