package digest

import (
	"bufio"
	"os"
	"strings"

	"github.com/use-agent/pagedigest/models"
)

// ReadURLList reads a newline-delimited URL list. Blank lines are skipped;
// lines without a scheme get "https://" prefixed. No other syntax exists.
func ReadURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.NewDigestError(models.ErrCodeInvalidInput, "cannot open URL list", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "http://") && !strings.HasPrefix(line, "https://") {
			line = "https://" + line
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, models.NewDigestError(models.ErrCodeInvalidInput, "cannot read URL list", err)
	}
	return urls, nil
}
