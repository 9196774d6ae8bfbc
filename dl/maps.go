package dl

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// mapping is one file backed line of /proc/self/maps.
type mapping struct {
	start  uintptr
	end    uintptr
	offset uintptr
	perms  string
	path   string
}

func readMaps() ([]mapping, error) {
	raw, err := os.ReadFile("/proc/self/maps")
	if err != nil {
		return nil, fmt.Errorf("read /proc/self/maps: %w", err)
	}
	return parseMaps(string(raw)), nil
}

// parseMaps keeps the lines backed by an absolute path.
func parseMaps(raw string) []mapping {
	lines := strings.Split(raw, "\n")
	entries := make([]mapping, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}

		start, end, ok := strings.Cut(fields[0], "-")
		if !ok {
			continue
		}
		startAddr, startErr := strconv.ParseUint(start, 16, 64)
		endAddr, endErr := strconv.ParseUint(end, 16, 64)
		offset, offsetErr := strconv.ParseUint(fields[2], 16, 64)
		if startErr != nil || endErr != nil || offsetErr != nil {
			continue
		}

		path := strings.Join(fields[5:], " ")
		path = strings.TrimSuffix(path, " (deleted)")
		if !strings.HasPrefix(path, "/") {
			continue
		}

		entries = append(entries, mapping{
			start:  uintptr(startAddr),
			end:    uintptr(endAddr),
			offset: uintptr(offset),
			perms:  fields[1],
			path:   path,
		})
	}
	return entries
}

// findMapping returns the lowest mapping of the file's first page for the
// module called name. An absolute name must match the whole path, anything
// else is compared by file name.
func findMapping(entries []mapping, name string) (mapping, bool) {
	var (
		best  mapping
		found bool
	)
	for _, entry := range entries {
		if entry.offset != 0 || !matchesName(entry.path, name) {
			continue
		}
		if !found || entry.start < best.start {
			best = entry
			found = true
		}
	}
	return best, found
}

func matchesName(path, name string) bool {
	if filepath.IsAbs(name) {
		return path == name
	}
	return filepath.Base(path) == filepath.Base(name)
}
