package tvilling

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/barasher/go-exiftool"
	"github.com/rwcarlsen/goexif/exif"
	"k8s.io/klog/v2"
)

var exifDate = "2006:01:02 15:04:05"

// Metadata is what tvilling reads from a photo's EXIF block.
type Metadata struct {
	Taken    time.Time
	Make     string
	Model    string
	Width    int64
	Height   int64
	Keywords []string
}

// MetadataReader reads photo metadata with exiftool, falling back to a pure-Go
// EXIF decoder (capture time, make and model only) when exiftool is missing.
type MetadataReader struct {
	et *exiftool.Exiftool
}

// NewMetadataReader starts exiftool if it is available.
func NewMetadataReader() *MetadataReader {
	et, err := exiftool.NewExiftool()
	if err != nil {
		klog.Warningf("exiftool unavailable, using built-in EXIF reader: %v", err)
		return &MetadataReader{}
	}
	return &MetadataReader{et: et}
}

// Exiftool returns the running exiftool process, or nil.
func (m *MetadataReader) Exiftool() *exiftool.Exiftool {
	return m.et
}

// Close stops exiftool.
func (m *MetadataReader) Close() error {
	if m.et == nil {
		return nil
	}
	return m.et.Close()
}

// Read returns metadata for the file at path.
func (m *MetadataReader) Read(path string) (Metadata, error) {
	if m.et == nil {
		return readEXIF(path)
	}
	return readExiftool(path, m.et)
}

func readExiftool(path string, et *exiftool.Exiftool) (Metadata, error) {
	fi := et.ExtractMetadata(path)[0]
	md := Metadata{}
	var err error

	if fi.Err != nil {
		return md, fmt.Errorf("extract fail for %q: %w", path, fi.Err)
	}

	for k, v := range fi.Fields {
		klog.V(2).Infof("%q=%v\n", k, v)
	}

	md.Make, err = fi.GetString("Make")
	if err != nil {
		klog.V(1).Infof("unable to get make for %s: %v", path, err)
	}

	md.Model, err = fi.GetString("Model")
	if err != nil {
		klog.V(1).Infof("unable to get model for %s: %v", path, err)
	}

	md.Height, err = fi.GetInt("ImageHeight")
	if err != nil {
		return md, fmt.Errorf("get ImageHeight: %w", err)
	}

	md.Width, err = fi.GetInt("ImageWidth")
	if err != nil {
		return md, fmt.Errorf("get ImageWidth: %w", err)
	}

	md.Keywords, err = fi.GetStrings("Keywords")
	if err != nil {
		klog.V(2).Infof("no keywords for %s: %v", path, err)
	}

	ds, err := fi.GetString("DateTimeOriginal")
	if err != nil {
		klog.V(1).Infof("unable to get date time for %s: %v", path, err)
		return md, nil
	}

	md.Taken, err = time.Parse(exifDate, ds)
	if err != nil {
		return md, fmt.Errorf("parse time %q: %w", ds, err)
	}

	return md, nil
}

func readEXIF(path string) (Metadata, error) {
	md := Metadata{}
	f, err := os.Open(path)
	if err != nil {
		return md, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return md, fmt.Errorf("exif decode %s: %w", path, err)
	}

	if tag, err := x.Get(exif.Make); err == nil {
		md.Make, _ = tag.StringVal()
	}
	if tag, err := x.Get(exif.Model); err == nil {
		md.Model, _ = tag.StringVal()
	}
	md.Make = strings.TrimSpace(md.Make)
	md.Model = strings.TrimSpace(md.Model)

	md.Taken, err = x.DateTime()
	if err != nil {
		klog.V(1).Infof("unable to get date time for %s: %v", path, err)
	}
	return md, nil
}
