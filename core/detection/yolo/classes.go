package yolo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// fallbackClasses is the Freiburg-style grocery class list used when no
// classes file is available.
var fallbackClasses = []string{
	"beans", "candy", "cereal", "chocolate", "coffee", "corn", "jam", "juice", "milk", "noodles",
	"oil", "pasta", "rice", "soda", "tea", "vinegar", "water", "apple", "banana", "bread",
	"butter", "cheese", "egg", "yogurt", "soup",
}

// ParseClasses reads one class name per line, skipping blank lines and
// comments.
func ParseClasses(r io.Reader) ([]string, error) {
	var classes []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		classes = append(classes, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read classes: %w", err)
	}
	return classes, nil
}

// LoadClasses reads the class list from path, falling back to the built-in
// grocery classes when the file does not exist.
func LoadClasses(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fallbackClasses, nil
		}
		return nil, fmt.Errorf("failed to open classes file: %w", err)
	}
	defer file.Close()

	classes, err := ParseClasses(file)
	if err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		return fallbackClasses, nil
	}
	return classes, nil
}
