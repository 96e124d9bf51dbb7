// tvilling sorts a folder of photos into matched left/right pairs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"k8s.io/klog/v2"

	"github.com/tstromberg/tvilling/pkg/analysis"
	"github.com/tstromberg/tvilling/pkg/render"
	"github.com/tstromberg/tvilling/pkg/session"
	"github.com/tstromberg/tvilling/pkg/settings"
	"github.com/tstromberg/tvilling/pkg/tvilling"
)

var (
	dirFlag      = flag.String("dir", ".", "project directory")
	settingsFlag = flag.String("settings", "", "settings file (default: user config dir)")
	listen       = flag.Bool("listen", false, "serve project status and metrics via HTTP in watch mode")
	addr         = flag.String("addr", "localhost:12800", "host:port to bind to in listen mode")
	workers      = flag.Int("workers", 0, "render concurrency (default: number of CPUs)")
)

const usage = `usage: tvilling [flags] <command> [args]

commands:
  init                         scan -dir and create a project
  status                       show collections and matches
  move <photo> <to> [from]     move a photo; collections are unassigned, discarded, <id>L, <id>R
  name <collection> <name>     label a match side, used for export names
  edit [edit flags] <photo>    change brightness, contrast, saturate, zoom, pan
  revert <photo>               discard all edits of a photo
  duplicate <photo>            copy a photo next to the original
  export                       write every matched photo to the export directory
  analyze <photo>...           ask the matching service for candidates
  info                         show photo metadata
  watch                        add new photos as they appear
`

func main() {
	klog.InitFlags(nil)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := loadSettings()
	cfg := tvilling.DefaultConfig()
	cfg.MatchSlots = st.MatchSlots
	cfg.ThumbEdge = st.ThumbEdge
	if *workers > 0 {
		cfg.Workers = *workers
	}
	r := cfg.Renderer()

	ac := analysis.New(analysis.Config{Endpoint: st.Endpoint, Token: st.Token, Timeout: st.Timeout}, r)
	var recents *settings.Recents
	if d, err := settings.Dir(); err == nil {
		recents = &settings.Recents{Path: filepath.Join(d, "recents.yaml")}
	}
	s := session.New(cfg, r, ac, recents)

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if cmd == "init" {
		if err := s.Create(ctx, *dirFlag); err != nil {
			klog.Exitf("init failed: %v", err)
		}
		return
	}

	if err := s.Open(*dirFlag); err != nil {
		if tvilling.IsNotFound(err) {
			klog.Exitf("%v (run 'tvilling init' first)", err)
		}
		klog.Exitf("open failed: %v", err)
	}
	defer s.Close()

	if err := run(ctx, s, cfg, cmd, args); err != nil {
		klog.Exitf("%s failed: %v", cmd, err)
	}
}

func loadSettings() settings.Settings {
	path := *settingsFlag
	if path == "" {
		d, err := settings.Dir()
		if err != nil {
			klog.Warningf("using default settings: %v", err)
			return settings.FromEnv(settings.Default())
		}
		path = filepath.Join(d, "settings.yaml")
	}
	st, err := settings.Load(path)
	if err != nil {
		klog.Warningf("settings: %v", err)
	}
	return settings.FromEnv(st)
}

func need(args []string, n int, what string) error {
	if len(args) < n {
		return fmt.Errorf("usage: tvilling %s", what)
	}
	return nil
}

func run(ctx context.Context, s *session.Session, cfg tvilling.Config, cmd string, args []string) error {
	switch cmd {
	case "status":
		return status(s)
	case "move":
		if err := need(args, 2, "move <photo> <to> [from]"); err != nil {
			return err
		}
		from := ""
		if len(args) > 2 {
			from = args[2]
		}
		moved, err := s.Move(from, args[1], args[0])
		if err == nil && !moved {
			klog.Infof("%s is already in %s", args[0], args[1])
		}
		return err
	case "name":
		if err := need(args, 2, "name <collection> <name>"); err != nil {
			return err
		}
		return s.SetName(args[0], args[1])
	case "edit":
		return edit(ctx, s, args)
	case "revert":
		if err := need(args, 1, "revert <photo>"); err != nil {
			return err
		}
		_, err := s.Revert(ctx, args[0])
		return err
	case "duplicate":
		if err := need(args, 1, "duplicate <photo>"); err != nil {
			return err
		}
		b, err := s.Duplicate(args[0])
		if err == nil {
			fmt.Println(b.Name)
		}
		return err
	case "export":
		rep, err := s.Export(ctx, func(done, total int) {
			klog.V(1).Infof("exported %d/%d", done, total)
		})
		if rep != nil {
			fmt.Printf("%d photos written to %s, %d failed\n", len(rep.Written), rep.Dir, len(rep.Failed))
		}
		return err
	case "analyze":
		return analyze(ctx, s, args)
	case "info":
		return info(s)
	case "watch":
		return watch(ctx, s, cfg)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func status(s *session.Session) error {
	b, err := s.Snapshot()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintf(tw, "project\t%s\t%s\n", b.ID, b.Directory)
	fmt.Fprintf(tw, "modified\t%s\n", b.LastModified.Format("2006-01-02 15:04:05"))

	line := func(ref string, c tvilling.CollectionBody) {
		cur := "-"
		if len(c.Photos) > 0 {
			cur = c.Photos[c.Index].Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%d photos\tcurrent: %s\t%s\n", ref, c.Name, len(c.Photos), cur, edited(c))
	}
	line("unassigned", b.Unassigned)
	line("discarded", b.Discarded)
	for _, m := range b.Matched {
		if len(m.Left.Photos)+len(m.Right.Photos) == 0 {
			continue
		}
		line(fmt.Sprintf("%dL (%sL)", m.ID, tvilling.Label(m.ID)), m.Left)
		line(fmt.Sprintf("%dR (%sR)", m.ID, tvilling.Label(m.ID)), m.Right)
	}
	return nil
}

func edited(c tvilling.CollectionBody) string {
	var ns []string
	for _, p := range c.Photos {
		if p.IsEdited {
			ns = append(ns, p.Name)
		}
	}
	if len(ns) == 0 {
		return ""
	}
	return "edited: " + strings.Join(ns, ",")
}

func edit(ctx context.Context, s *session.Session, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	brightness := fs.Float64("brightness", -1, "brightness percent (0-200)")
	contrast := fs.Float64("contrast", -1, "contrast percent (0-200)")
	saturate := fs.Float64("saturate", -1, "saturation percent (0-200)")
	zoom := fs.Float64("zoom", -1, "zoom factor (>= 1)")
	panX := fs.Float64("pan-x", 0, "horizontal pan in source pixels")
	panY := fs.Float64("pan-y", 0, "vertical pan in source pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: tvilling edit [edit flags] <photo>")
	}
	name := fs.Arg(0)

	b, err := s.Snapshot()
	if err != nil {
		return err
	}
	var e render.Edits
	found := false
	for _, pb := range b.Photos() {
		if pb.Name == name {
			e, found = pb.Edits, true
		}
	}
	if !found {
		return &tvilling.NotFoundError{Kind: "photo", Name: name}
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["brightness"] {
		e.Brightness = *brightness
	}
	if set["contrast"] {
		e.Contrast = *contrast
	}
	if set["saturate"] {
		e.Saturate = *saturate
	}
	if set["zoom"] {
		e.Zoom = *zoom
	}
	if set["pan-x"] {
		e.Pan.X = *panX
	}
	if set["pan-y"] {
		e.Pan.Y = *panY
	}

	pb, err := s.CommitEdits(ctx, name, e)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", pb.Name, pb.Edits)
	return nil
}

func analyze(ctx context.Context, s *session.Session, names []string) error {
	res, err := s.Analyze(ctx, names)
	if err != nil {
		return err
	}
	if res.Outcome != analysis.Success {
		fmt.Println("analysis cancelled")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "rank\tid\trating\tdetails")
	for _, m := range res.Matches {
		fmt.Fprintf(tw, "%d\t%s\t%.3f\t%s\n", m.Rank, m.ID, m.Rating, m.Details)
	}
	return nil
}

func info(s *session.Session) error {
	b, err := s.Snapshot()
	if err != nil {
		return err
	}
	mr := tvilling.NewMetadataReader()
	defer mr.Close()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "photo\ttaken\tcamera\tsize\tkeywords")
	for _, pb := range b.Photos() {
		md, err := mr.Read(pb.Path())
		if err != nil {
			klog.Warningf("metadata for %s: %v", pb.Name, err)
		}
		taken := "-"
		if !md.Taken.IsZero() {
			taken = md.Taken.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dx%d\t%s\n", pb.Name, taken,
			strings.TrimSpace(md.Make+" "+md.Model), md.Width, md.Height, strings.Join(md.Keywords, ","))
	}
	return nil
}
