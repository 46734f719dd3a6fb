package connect

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var invalidNameChars = regexp.MustCompile(`[^-a-zA-Z0-9]`)

// maxBaseLen keeps generated names inside the array's object-name limit
// once the random suffix is appended.
const maxBaseLen = 23

// Namer generates array object names this library owns and recognizes them
// later. Only names matching the generated pattern are ever eligible for
// garbage collection; admin-named objects never match.
type Namer struct {
	suffix  string
	pattern *regexp.Regexp
}

// NewNamer builds a namer for the given ownership suffix.
func NewNamer(suffix string) *Namer {
	return &Namer{
		suffix:  suffix,
		pattern: regexp.MustCompile(`.*-[a-f0-9]{32}-` + regexp.QuoteMeta(suffix) + `$`),
	}
}

// Generate returns a unique array-safe name derived from base.
func (n *Namer) Generate(base string) string {
	if len(base) > maxBaseLen {
		base = base[:maxBaseLen]
	}
	base = invalidNameChars.ReplaceAllString(base, "-")
	base = strings.TrimLeft(base, "-")
	u := uuid.New()
	return fmt.Sprintf("%s-%s-%s", base, hex.EncodeToString(u[:]), n.suffix)
}

// Generated reports whether name was produced by Generate.
func (n *Namer) Generated(name string) bool {
	return n.pattern.MatchString(name)
}
