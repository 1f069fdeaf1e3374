// Package source turns list files, directories and URLs into raw image bytes.
package source

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joseph-ayodele/image-ocr-batch/internal/common"
)

// ReadList reads a newline-delimited source list. Lines are trimmed and blank
// lines are ignored. Failing to open the list is batch-fatal.
func ReadList(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, common.Fatal("source list path is required", common.ErrInvalidInput)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, common.Fatal("open source list", err)
	}
	defer f.Close()

	var sources []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		sources = append(sources, line)
	}
	if err := sc.Err(); err != nil {
		return nil, common.Fatal("read source list", fmt.Errorf("%s: %w", path, err))
	}
	return sources, nil
}
