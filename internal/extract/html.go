package extract

import (
	"regexp"
	"strings"
)

var (
	scriptTag = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	anyTag    = regexp.MustCompile(`<[^>]*>?`)
)

// StripTags drops every markup tag and the bodies of script and style
// elements. Entities are left as they are.
func StripTags(markup string) string {
	out := scriptTag.ReplaceAllString(markup, "")
	out = styleTag.ReplaceAllString(out, "")
	out = anyTag.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

var bodyTag = regexp.MustCompile(`(?is)<body[^>]*>(.*)</body>`)

// innerBody returns the inner markup of <body>, or the whole input when the
// document has no body element.
func innerBody(markup string) string {
	if m := bodyTag.FindStringSubmatch(markup); m != nil {
		return m[1]
	}
	return markup
}
