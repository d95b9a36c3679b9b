package camera

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
)

// ListDevices returns the local camera device nodes.
// Only Linux exposes them as files; elsewhere ffmpeg's -list_devices is the way.
func ListDevices() ([]string, error) {
	if runtime.GOOS != "linux" {
		return nil, fmt.Errorf("device listing is not supported on %s (try: ffmpeg -f %s -list_devices true -i \"\")",
			runtime.GOOS, map[string]string{"darwin": "avfoundation", "windows": "dshow"}[runtime.GOOS])
	}
	return globDevices("/dev")
}

func globDevices(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "video*"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
