package export

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"screen-select/src/clipboard"
	"screen-select/src/geometry"
)

// Target receives a finished capture. It matches session.ResultTarget.
type Target interface {
	OnSuccess(img *image.RGBA, region geometry.Rect) error
	OnFailure(err error) error
}

// FileTarget writes each capture to Path, or to a timestamped file in Dir
// when Path is empty.
type FileTarget struct {
	Dir     string
	Path    string
	Options Options
	// Now is used for default names. Nil uses time.Now.
	Now func() time.Time

	// Saved is the path of the last file written.
	Saved string
}

func (t *FileTarget) OnSuccess(img *image.RGBA, region geometry.Rect) error {
	path := t.Path
	if path == "" {
		now := time.Now
		if t.Now != nil {
			now = t.Now
		}
		format := t.Options.Format
		if format == "" {
			format = PNG
		}
		path = filepath.Join(t.Dir, DefaultName(now(), format))
	}
	if err := WriteFile(path, img, t.Options); err != nil {
		return err
	}
	t.Saved = path
	log.Printf("export: saved %s region to %s", region, path)
	return nil
}

func (t *FileTarget) OnFailure(err error) error {
	log.Printf("export: nothing saved: %v", err)
	return nil
}

// WriteFile encodes img into path. A partially written file is removed.
func WriteFile(path string, img image.Image, opts Options) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	err = Encode(w, img, opts)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ClipboardTarget places each capture on the system clipboard.
type ClipboardTarget struct{}

func (ClipboardTarget) OnSuccess(img *image.RGBA, region geometry.Rect) error {
	if err := clipboard.WriteImage(img); err != nil {
		return err
	}
	log.Printf("export: copied %s region to clipboard", region)
	return nil
}

func (ClipboardTarget) OnFailure(err error) error {
	return nil
}

// StreamTarget encodes each capture to W, for piping from the CLI.
type StreamTarget struct {
	W       io.Writer
	Options Options
}

func (t StreamTarget) OnSuccess(img *image.RGBA, region geometry.Rect) error {
	return Encode(t.W, img, t.Options)
}

func (t StreamTarget) OnFailure(err error) error {
	return nil
}

// MultiTarget delivers to every target and joins their errors.
type MultiTarget []Target

func (m MultiTarget) OnSuccess(img *image.RGBA, region geometry.Rect) error {
	var errs []error
	for _, t := range m {
		if err := t.OnSuccess(img, region); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiTarget) OnFailure(err error) error {
	var errs []error
	for _, t := range m {
		if ferr := t.OnFailure(err); ferr != nil {
			errs = append(errs, ferr)
		}
	}
	return errors.Join(errs...)
}

// NewTarget builds the target for a delivery kind: "file", "clipboard" or
// "both". Files go to dir with default names.
func NewTarget(kind, dir string, opts Options) (Target, error) {
	switch kind {
	case "", "file":
		return &FileTarget{Dir: dir, Options: opts}, nil
	case "clipboard":
		return ClipboardTarget{}, nil
	case "both":
		return MultiTarget{&FileTarget{Dir: dir, Options: opts}, ClipboardTarget{}}, nil
	}
	return nil, fmt.Errorf("unknown export target %q", kind)
}
