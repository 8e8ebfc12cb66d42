package tubestitch

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads the activity class labels from the given text file.  It
// should contain one label per line with the background class on the first
// line, so the line number of a label is its class ID.  Blank lines at the end
// of the file are ignored
func LoadLabels(file string) ([]string, error) {

	// open the file
	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var labels []string

	// read and trim each line
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		labels = append(labels, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	// drop trailing blank lines
	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}

	return labels, nil
}
