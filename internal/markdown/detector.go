package markdown

import (
	"path"
	"strings"
)

// extensions lists the file extensions treated as Markdown, lowercase.
var extensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdown":    true,
	".mkd":      true,
}

// IsMarkdownPath reports whether the path names a Markdown file.
func IsMarkdownPath(p string) bool {
	return extensions[strings.ToLower(path.Ext(p))]
}
