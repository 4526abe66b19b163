package printing

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/litepos/internal/filex"
	"github.com/dmitrijs2005/litepos/internal/models"
)

// Device is the transport to a physical printer.
type Device interface {
	Dispatch(ctx context.Context, dest models.PrintDest, text string) error
}

// WriterDevice prints to an io.Writer, one ticket after another.
type WriterDevice struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterDevice prints to w, or to stdout when w is nil.
func NewWriterDevice(w io.Writer) *WriterDevice {
	if w == nil {
		w = os.Stdout
	}
	return &WriterDevice{w: w}
}

func (d *WriterDevice) Dispatch(ctx context.Context, dest models.PrintDest, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := fmt.Fprintf(d.w, "=== %s ===\n%s\n", dest, text)
	return err
}

// SpoolDevice writes every ticket to its own file under a spool directory,
// where a printer daemon picks it up.
type SpoolDevice struct {
	dir string
	seq atomic.Uint64
	now func() time.Time
}

func NewSpoolDevice(dir string) (*SpoolDevice, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("spool dir: %w", err)
	}
	return &SpoolDevice{dir: abs, now: time.Now}, nil
}

// Dir is the absolute spool directory.
func (d *SpoolDevice) Dir() string { return d.dir }

func (d *SpoolDevice) Dispatch(ctx context.Context, dest models.PrintDest, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := fmt.Sprintf("%d-%06d-%s.txt", d.now().UnixMilli(), d.seq.Add(1), dest)
	return filex.WriteFileAtomic(filepath.Join(d.dir, name), []byte(text))
}
