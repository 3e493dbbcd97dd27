package adapter

import (
	"bufio"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"
)

// LinkList is the result of loading a link-list file.
type LinkList struct {
	Links      []string
	Ignored    []string
	Duplicates int
}

// LoadLinks reads one URL per line. Lines are trimmed, blank lines are
// dropped, links whose URL path does not end in ".js" are ignored and
// duplicates are removed keeping the first occurrence.
func LoadLinks(filename string) (LinkList, error) {
	// #nosec G304 - the links file is an explicit user input
	f, err := os.Open(filename)
	if err != nil {
		return LinkList{}, fmt.Errorf("open links file: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	var list LinkList

	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !isScriptURL(line) {
			slog.Debug("ignoring non js link", "link", line)
			list.Ignored = append(list.Ignored, line)

			continue
		}

		if _, dup := seen[line]; dup {
			slog.Debug("ignoring duplicate link", "link", line)
			list.Duplicates++

			continue
		}

		seen[line] = struct{}{}
		list.Links = append(list.Links, line)
	}

	if err := scanner.Err(); err != nil {
		return LinkList{}, fmt.Errorf("read links file: %w", err)
	}

	return list, nil
}

func isScriptURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return strings.EqualFold(path.Ext(u.Path), ".js")
}
