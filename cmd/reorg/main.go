// reorg reorders the unassigned photos of a project by capture time
package main

import (
	"flag"
	"sort"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/tvilling/pkg/tvilling"
)

var (
	dryRun  = flag.Bool("n", false, "dry-run mode, don't save the new order")
	dirFlag = flag.String("dir", ".", "project directory")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	p, err := tvilling.Load(*dirFlag, tvilling.DefaultConfig())
	if err != nil {
		klog.Exitf("unable to load: %v", err)
	}

	mr := tvilling.NewMetadataReader()
	defer mr.Close()

	taken := map[string]time.Time{}
	for _, photo := range p.Unassigned().Photos() {
		md, err := mr.Read(photo.Path())
		if err != nil {
			klog.Infof("no capture time for %s: %v", photo.Name(), err)
			continue
		}
		taken[photo.Name()] = md.Taken
	}

	// Photos without a capture time go last, by name.
	less := func(a, b *tvilling.Photo) bool {
		ta, tb := taken[a.Name()], taken[b.Name()]
		switch {
		case ta.IsZero() && tb.IsZero():
			return a.Name() < b.Name()
		case ta.IsZero() != tb.IsZero():
			return tb.IsZero()
		case !ta.Equal(tb):
			return ta.Before(tb)
		}
		return a.Name() < b.Name()
	}

	if *dryRun {
		ps := p.Unassigned().Photos()
		sort.SliceStable(ps, func(i, j int) bool { return less(ps[i], ps[j]) })
		for _, photo := range ps {
			klog.Infof("%s %s", taken[photo.Name()].Format(time.DateTime), photo.Name())
		}
		return
	}

	if err := p.Unassigned().SortBy(less); err != nil {
		klog.Exitf("save failed: %v", err)
	}
	klog.Infof("sorted %d unassigned photos by capture time", p.Unassigned().Len())
}
