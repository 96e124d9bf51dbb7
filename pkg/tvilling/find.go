package tvilling

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
}

// IsImage reports whether name has a supported image extension.
func IsImage(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))] && !strings.HasPrefix(filepath.Base(name), ".")
}

// Find returns the image file names directly inside dir, sorted. Hidden files
// and subdirectories are skipped.
func Find(dir string) ([]string, error) {
	des, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	found := []string{}
	for _, de := range des {
		if !de.IsRegular() || !IsImage(de.Name()) {
			klog.V(2).Infof("skipping %s", de.Name())
			continue
		}
		klog.V(1).Infof("found %s", de.Name())
		found = append(found, de.Name())
	}
	sort.Strings(found)
	return found, nil
}
