package tvilling

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/otiai10/copy"
	"k8s.io/klog/v2"
)

// DuplicateName inserts a _duplicate_<unix millis> suffix before the extension.
func DuplicateName(name string, t time.Time) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s_duplicate_%d%s", strings.TrimSuffix(name, ext), t.UnixMilli(), ext)
}

// DuplicateFiles copies the original and, if present, the thumbnail of name
// within dir. It returns the new file name and thumbnail path.
func DuplicateFiles(dir, name, thumb string, t time.Time) (string, string, error) {
	newName := DuplicateName(name, t)
	src := filepath.Join(dir, name)
	dst := filepath.Join(dir, newName)

	if _, err := os.Stat(dst); err == nil {
		return "", "", fmt.Errorf("%s already exists", dst)
	}
	klog.Infof("duplicating %s -> %s", src, dst)
	if err := copy.Copy(src, dst); err != nil {
		return "", "", fmt.Errorf("copy original: %w", err)
	}

	if thumb == "" {
		return newName, "", nil
	}
	newThumb := filepath.Join(filepath.Dir(thumb), newName)
	err := copy.Copy(filepath.Join(dir, thumb), filepath.Join(dir, newThumb))
	if errors.Is(err, fs.ErrNotExist) {
		klog.Warningf("no thumbnail to duplicate for %s", name)
		return newName, newThumb, nil
	}
	if err != nil {
		return "", "", fmt.Errorf("copy thumbnail: %w", err)
	}
	return newName, newThumb, nil
}
