package merge

import "strings"

// AppendLinesStrategy merges line-oriented files (.gitignore,
// .dockerignore and other plain text): sources are split into lines,
// blanks dropped, exact duplicates removed keeping the first occurrence,
// and the result re-joined with a trailing newline.
type AppendLinesStrategy struct{}

func (*AppendLinesStrategy) Name() string { return "append-lines" }

func (*AppendLinesStrategy) Validate(content interface{}) ValidationResult {
	if _, ok := content.(string); ok {
		return valid()
	}
	return invalidf("append-lines expects text content, got %T", content)
}

func (*AppendLinesStrategy) Merge(contents []interface{}, ctx *Context) (interface{}, error) {
	var out []string
	seen := make(map[string]bool)

	for _, content := range contents {
		text, _ := content.(string)
		for _, line := range strings.Split(text, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if seen[line] {
				continue
			}
			seen[line] = true
			out = append(out, line)
		}
	}

	if len(out) == 0 {
		return "", nil
	}
	return strings.Join(out, "\n") + "\n", nil
}
