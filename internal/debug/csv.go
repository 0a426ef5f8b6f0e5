// Package debug implements the optional per-node CSV dump described in the
// specification's external interfaces: one row per descriptor seen on the
// way in and on the way out, written with the standard library's
// encoding/csv — there is no CSV library anywhere in the example pack, so
// this is one of the few places this module reaches for the standard
// library by necessity rather than by choice.
package debug

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/klagrassa/prog-tm-bmv2/internal/descriptor"
)

// CSVSink writes packet_log_in<id>.csv and packet_log_out<id>.csv under
// dir for one node.
type CSVSink struct {
	mu       sync.Mutex
	in, out  *csv.Writer
	inF, outF *os.File
}

var header = []string{
	"timestamp", "packet_id", "egress_port", "packet_size",
	"priority", "dscp", "color", "vlan_id", "sport", "dport",
}

// NewCSVSink opens (or creates) the in/out CSV files for node id under dir.
func NewCSVSink(dir string, id int) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	inF, err := os.Create(filepath.Join(dir, fmt.Sprintf("packet_log_in%d.csv", id)))
	if err != nil {
		return nil, err
	}
	outF, err := os.Create(filepath.Join(dir, fmt.Sprintf("packet_log_out%d.csv", id)))
	if err != nil {
		inF.Close()
		return nil, err
	}
	s := &CSVSink{
		in:   csv.NewWriter(inF),
		out:  csv.NewWriter(outF),
		inF:  inF,
		outF: outF,
	}
	_ = s.in.Write(header)
	_ = s.out.Write(header)
	s.in.Flush()
	s.out.Flush()
	return s, nil
}

// LogIn implements node.DebugSink.
func (s *CSVSink) LogIn(d *descriptor.Descriptor) {
	s.write(s.in, d)
}

// LogOut implements node.DebugSink.
func (s *CSVSink) LogOut(d *descriptor.Descriptor) {
	s.write(s.out, d)
}

func (s *CSVSink) write(w *csv.Writer, d *descriptor.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := []string{
		time.Now().UTC().Format(time.RFC3339Nano),
		strconv.FormatUint(uint64(d.PacketID), 10),
		strconv.FormatUint(uint64(d.Fields.EgressPort), 10),
		strconv.FormatUint(d.Fields.PacketSize, 10),
		strconv.FormatUint(uint64(d.Fields.Priority), 10),
		strconv.FormatUint(uint64(d.Fields.DSCP), 10),
		strconv.FormatUint(uint64(d.Fields.Color), 10),
		strconv.FormatUint(uint64(d.Fields.VLANID), 10),
		strconv.FormatUint(uint64(d.Fields.SPort), 10),
		strconv.FormatUint(uint64(d.Fields.DPort), 10),
	}
	_ = w.Write(row)
	w.Flush()
}

// Close closes both underlying files.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err1 := s.inF.Close()
	err2 := s.outF.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
