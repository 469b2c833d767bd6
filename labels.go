package changedet

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadClassNames reads the class names used for reporting from the given
// text file, one name per line in class index order.  Blank lines and
// lines starting with # are skipped
func LoadClassNames(file string) ([]string, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var names []string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		names = append(names, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return names, nil
}

// DefaultClassNames returns the conventional change detection class names
// when no label file is supplied
func DefaultClassNames() []string {
	return []string{"unchanged", "changed"}
}
