package nwcal

import (
	"fmt"
	"strings"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"
)

// EventReader pulls neutron-wall hits out of a calibrated run file. The tree
// layout is one entry per hit with scalar branches named after the wall,
// e.g. NWB_bar, NWB_total_L.
type EventReader struct {
	Path      string
	TreeName  string
	Wall      string
	MaxEvents int
}

// Read loads the events of one run file into memory. The whole pipeline is
// batch, so there is no streaming interface.
func (r EventReader) Read() ([]Event, error) {
	f, err := groot.Open(r.Path)
	if err != nil {
		return nil, &ErrOpenFile{Filename: r.Path, Err: err}
	}
	defer f.Close()

	obj, err := f.Get(r.TreeName)
	if err != nil {
		return nil, fmt.Errorf("error getting tree %q: %w", r.TreeName, err)
	}
	tree, ok := obj.(rtree.Tree)
	if !ok {
		return nil, fmt.Errorf("object %q is not a tree", r.TreeName)
	}

	wall := strings.ToUpper(r.Wall)
	branch := func(name string) string { return fmt.Sprintf("NW%s_%s", wall, name) }

	var (
		bar     int32
		totalL  float64
		totalR  float64
		fastL   float64
		fastR   float64
		timeL   float64
		timeR   float64
		pos     float64
		nwMulti int32
		vwMulti int32
	)
	rvars := []rtree.ReadVar{
		{Name: branch("bar"), Value: &bar},
		{Name: branch("total_L"), Value: &totalL},
		{Name: branch("total_R"), Value: &totalR},
		{Name: branch("fast_L"), Value: &fastL},
		{Name: branch("fast_R"), Value: &fastR},
		{Name: branch("time_L"), Value: &timeL},
		{Name: branch("time_R"), Value: &timeR},
		{Name: branch("pos_x"), Value: &pos},
		{Name: branch("multi"), Value: &nwMulti},
		{Name: "VW_multi", Value: &vwMulti},
	}

	var opts []rtree.ReadOption
	if r.MaxEvents > 0 {
		opts = append(opts, rtree.WithRange(0, int64(r.MaxEvents)))
	}
	reader, err := rtree.NewReader(tree, rvars, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating tree reader: %w", err)
	}
	defer reader.Close()

	var events []Event
	err = reader.Read(func(ctx rtree.RCtx) error {
		events = append(events, Event{
			Bar:     bar,
			TotalL:  totalL,
			TotalR:  totalR,
			FastL:   fastL,
			FastR:   fastR,
			TimeL:   timeL,
			TimeR:   timeR,
			Pos:     pos,
			NWMulti: nwMulti,
			VWMulti: vwMulti,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error reading tree %q: %w", r.TreeName, err)
	}

	logger.Info(fmt.Sprintf("Read %d events from %s", len(events), r.Path), "reader")
	return events, nil
}
