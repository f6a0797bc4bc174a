package docs

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Scanner finds API mentions in Markdown files.
type Scanner struct {
	root string
}

// NewScanner creates a scanner reporting paths relative to root.
func NewScanner(root string) *Scanner {
	return &Scanner{root: root}
}

var (
	// `Symbol.Name`, `pkg.Symbol` or `internal/pkg.Func`. At least one
	// delimiter is required so single words are not treated as mentions.
	backtickPattern = regexp.MustCompile("`([A-Za-z_][A-Za-z0-9_]*(?:(?:::|[.#/])[A-Za-z_][A-Za-z0-9_]*)+)(?:\\(\\))?`")

	// Filters out file paths like `cmd/main.go`.
	fileExtPattern = regexp.MustCompile(`\.(go|js|ts|py|rs|md|json|yaml|yml|toml|cue|sh|sum|mod|zst)$`)

	fenceStartPattern = regexp.MustCompile(`^\s*(` + "```" + `|~~~)([\w+-]*)\s*$`)
	fenceEndPattern   = regexp.MustCompile(`^\s*(` + "```" + `|~~~)\s*$`)

	symbolDirectivePattern = regexp.MustCompile(`<!--\s*doccov:symbol\s+([^\s>]+)\s*-->`)
)

// ScanFile scans one Markdown file.
func (s *Scanner) ScanFile(path string) ScanResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return ScanResult{Path: s.relativePath(path), Error: err}
	}
	return s.ScanContent(s.relativePath(path), string(data))
}

// ScanContent scans Markdown text that is already in memory.
func (s *Scanner) ScanContent(path, content string) ScanResult {
	result := ScanResult{Path: path}

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	var fence *Fence
	var fenceDelimiter string
	var body []string

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if fence == nil {
			if m := fenceStartPattern.FindStringSubmatch(line); m != nil {
				fence = &Fence{Language: m[2], StartLine: lineNum}
				fenceDelimiter = m[1]
				body = body[:0]
				continue
			}
		} else {
			if m := fenceEndPattern.FindStringSubmatch(line); m != nil && m[1] == fenceDelimiter {
				fence.EndLine = lineNum
				fence.Content = strings.Join(body, "\n")
				result.Fences = append(result.Fences, *fence)
				fence = nil
				continue
			}
			body = append(body, line)
		}

		if result.Title == "" && fence == nil && strings.HasPrefix(line, "# ") {
			result.Title = strings.TrimPrefix(line, "# ")
		}
		s.scanDirectives(line, lineNum, &result)
		s.scanBackticks(line, lineNum, &result)
	}
	if err := scanner.Err(); err != nil {
		result.Error = err
	}
	return result
}

func (s *Scanner) scanDirectives(line string, lineNum int, result *ScanResult) {
	for _, m := range symbolDirectivePattern.FindAllStringSubmatchIndex(line, -1) {
		result.Mentions = append(result.Mentions, Mention{
			RawText: line[m[2]:m[3]],
			Line:    lineNum,
			Column:  m[2] + 1,
			Context: snippet(line),
			Method:  DetectDirective,
		})
	}
}

func (s *Scanner) scanBackticks(line string, lineNum int, result *ScanResult) {
	for _, m := range backtickPattern.FindAllStringSubmatchIndex(line, -1) {
		if fileExtPattern.MatchString(line[m[2]:m[3]]) {
			continue
		}
		result.Mentions = append(result.Mentions, Mention{
			RawText: line[m[0]:m[1]],
			Line:    lineNum,
			Column:  m[0] + 1,
			Context: snippet(line),
			Method:  DetectBacktick,
		})
	}
}

func snippet(line string) string {
	if len(line) <= 100 {
		return line
	}
	return line[:100] + "..."
}

func (s *Scanner) relativePath(path string) string {
	if rel, err := filepath.Rel(s.root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

// ScanGlobs scans every Markdown file under root matching one of globs.
// Results are ordered by path.
func (s *Scanner) ScanGlobs(globs []string) ([]ScanResult, error) {
	seen := map[string]bool{}
	var files []string
	for _, g := range globs {
		pattern := g
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(s.root, pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			ext := strings.ToLower(filepath.Ext(m))
			if (ext == ".md" || ext == ".markdown") && !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)

	results := make([]ScanResult, 0, len(files))
	for _, f := range files {
		results = append(results, s.ScanFile(f))
	}
	return results, nil
}

// Normalize strips backticks and call parens and maps every delimiter to a dot.
func Normalize(raw string) string {
	s := strings.Trim(raw, "`")
	s = strings.TrimSuffix(s, "()")
	s = strings.ReplaceAll(s, "::", ".")
	s = strings.ReplaceAll(s, "#", ".")
	s = strings.ReplaceAll(s, "/", ".")
	return strings.Trim(s, ".")
}

// CountSegments returns the number of dot-separated segments.
func CountSegments(normalized string) int {
	if normalized == "" {
		return 0
	}
	return len(strings.Split(normalized, "."))
}
