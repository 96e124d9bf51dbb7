// autotag adds suggested keywords to exported photos using Google Gemini.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"google.golang.org/genai"
	"k8s.io/klog/v2"

	"github.com/tstromberg/tvilling/pkg/render"
	"github.com/tstromberg/tvilling/pkg/settings"
	"github.com/tstromberg/tvilling/pkg/tvilling"
)

var (
	dryRun    = flag.Bool("n", false, "dry-run mode, don't tag things")
	overwrite = flag.Bool("o", false, "overwrite existing tags")
	dirFlag   = flag.String("dir", ".", "project directory whose export directory is tagged")
	modelName = flag.String("model", "gemini-2.5-flash", "Gemini model to ask")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	st := settings.FromEnv(settings.Default())
	if st.GoogleAIKey == "" {
		klog.Exitf("GOOGLE_AI_API_KEY is not set")
	}

	cfg := tvilling.DefaultConfig()
	outDir := filepath.Join(*dirFlag, cfg.ExportDir)
	names, err := tvilling.Find(outDir)
	if err != nil {
		klog.Exitf("unable to find exports (run 'tvilling export' first): %v", err)
	}
	klog.Infof("found %d exported photos in %s", len(names), outDir)

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: st.GoogleAIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		klog.Exitf("genai: %v", err)
	}

	mr := tvilling.NewMetadataReader()
	defer func() {
		if err := mr.Close(); err != nil {
			klog.Errorf("Failed to close exiftool: %v", err)
		}
	}()
	e := mr.Exiftool()
	if e == nil && !*dryRun {
		klog.Exitf("exiftool is required to write keywords; use -n for a dry run")
	}

	r := cfg.Renderer()
	tagged := 0
	for _, n := range names {
		path := filepath.Join(outDir, n)
		md, err := mr.Read(path)
		if err != nil {
			klog.V(1).Infof("metadata for %s: %v", path, err)
		}
		if !*overwrite && len(md.Keywords) > 0 {
			klog.Infof("%s has tags: %v", path, md.Keywords)
			continue
		}

		jpeg, err := r.Analysis(path, render.DefaultEdits())
		if err != nil {
			klog.Errorf("render %s: %v", path, err)
			continue
		}
		tags, err := tvilling.AutoTag(ctx, client, *modelName, jpeg)
		if err != nil {
			klog.Errorf("tag %s: %v", path, err)
			continue
		}
		klog.Infof("adding tags to %s: %v", path, tags)
		if *dryRun {
			continue
		}

		o := e.ExtractMetadata(path)
		o[0].SetStrings("Keywords", tags)
		e.WriteMetadata(o)
		if o[0].Err != nil {
			klog.Errorf("Failed to write metadata for %s: %v", path, o[0].Err)
			continue
		}
		tagged++
	}

	klog.Infof("autotag completed. Tagged %d of %d photos", tagged, len(names))
	if tagged == 0 && len(names) > 0 && !*dryRun {
		os.Exit(1)
	}
}
