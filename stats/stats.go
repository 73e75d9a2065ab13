// Package stats records per-frame particle system counters and writes them
// as CSV.
package stats

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gekko3d/particles/particle"
	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"
)

// FrameRecord is one system's state after one frame.
type FrameRecord struct {
	Frame    int     `csv:"frame"`
	System   string  `csv:"system"`
	Time     float32 `csv:"time"`
	DrawPass uint64  `csv:"draw_pass"`

	// Ring regions
	Active  int `csv:"active"`
	New     int `csv:"new"`
	Free    int `csv:"free"`
	Retired int `csv:"retired"`

	Spawned          uint64 `csv:"spawned"`
	Dropped          uint64 `csv:"dropped"`
	Uploads          uint64 `csv:"uploads"`
	UploadedVertices uint64 `csv:"uploaded_vertices"`
	Draws            uint64 `csv:"draws"`
	Recoveries       uint64 `csv:"recoveries"`
}

// NewFrameRecord flattens a system snapshot.
func NewFrameRecord(frame int, s particle.Stats) FrameRecord {
	return FrameRecord{
		Frame:            frame,
		System:           s.Name,
		Time:             s.Time,
		DrawPass:         s.DrawPass,
		Active:           s.Active,
		New:              s.New,
		Free:             s.Free,
		Retired:          s.Retired,
		Spawned:          s.Spawned,
		Dropped:          s.Dropped,
		Uploads:          s.Uploads,
		UploadedVertices: s.UploadedVertices,
		Draws:            s.Draws,
		Recoveries:       s.Recoveries,
	}
}

// Recorder keeps every record in memory and optionally streams them to a
// writer as they arrive.
type Recorder struct {
	records       []FrameRecord
	out           io.Writer
	headerWritten bool
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// NewStreamingRecorder writes records to out as they are recorded.
func NewStreamingRecorder(out io.Writer) *Recorder {
	return &Recorder{out: out}
}

// Record appends a snapshot of each system for the given frame.
func (r *Recorder) Record(frame int, systems ...particle.Stats) error {
	if len(systems) == 0 {
		return nil
	}
	batch := make([]FrameRecord, 0, len(systems))
	for _, s := range systems {
		batch = append(batch, NewFrameRecord(frame, s))
	}
	r.records = append(r.records, batch...)

	if r.out == nil {
		return nil
	}
	if !r.headerWritten {
		if err := gocsv.Marshal(batch, r.out); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		r.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(batch, r.out); err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}
	return nil
}

func (r *Recorder) Records() []FrameRecord {
	return r.records
}

func (r *Recorder) Len() int {
	return len(r.records)
}

// WriteCSV writes every recorded frame, with a header, to w.
func (r *Recorder) WriteCSV(w io.Writer) error {
	if err := gocsv.Marshal(r.records, w); err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}
	return nil
}

// WriteFile writes every recorded frame to path, creating parent directories.
func (r *Recorder) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	if err := r.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCSV parses records previously written by WriteCSV.
func ReadCSV(rd io.Reader) ([]FrameRecord, error) {
	var records []FrameRecord
	if err := gocsv.Unmarshal(rd, &records); err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	return records, nil
}

// SystemSummary aggregates one system across all recorded frames.
type SystemSummary struct {
	System       string
	Frames       int
	ActiveMean   float64
	ActiveStdDev float64
	ActiveMax    int
	Spawned      uint64
	Dropped      uint64
	DropRate     float64 // dropped / (spawned + dropped)
	Uploads      uint64
	Draws        uint64
	Recoveries   uint64
}

// Summary aggregates the recorded frames per system, in first-seen order.
func (r *Recorder) Summary() []SystemSummary {
	var order []string
	active := make(map[string][]float64)
	last := make(map[string]FrameRecord)
	peak := make(map[string]int)

	for _, rec := range r.records {
		if _, ok := active[rec.System]; !ok {
			order = append(order, rec.System)
		}
		active[rec.System] = append(active[rec.System], float64(rec.Active))
		last[rec.System] = rec
		if rec.Active > peak[rec.System] {
			peak[rec.System] = rec.Active
		}
	}

	out := make([]SystemSummary, 0, len(order))
	for _, name := range order {
		samples := active[name]
		mean, std := stat.MeanStdDev(samples, nil)
		if len(samples) < 2 {
			std = 0
		}
		rec := last[name]
		sum := SystemSummary{
			System:       name,
			Frames:       len(samples),
			ActiveMean:   mean,
			ActiveStdDev: std,
			ActiveMax:    peak[name],
			Spawned:      rec.Spawned,
			Dropped:      rec.Dropped,
			Uploads:      rec.Uploads,
			Draws:        rec.Draws,
			Recoveries:   rec.Recoveries,
		}
		if attempts := rec.Spawned + rec.Dropped; attempts > 0 {
			sum.DropRate = float64(rec.Dropped) / float64(attempts)
		}
		out = append(out, sum)
	}
	return out
}

func (s SystemSummary) String() string {
	return fmt.Sprintf("%-18s frames=%d active=%.1f±%.1f max=%d spawned=%d dropped=%d (%.1f%%) uploads=%d draws=%d recoveries=%d",
		s.System, s.Frames, s.ActiveMean, s.ActiveStdDev, s.ActiveMax,
		s.Spawned, s.Dropped, s.DropRate*100, s.Uploads, s.Draws, s.Recoveries)
}
