// Package fileversion extracts a logical product identity and a version
// ordinal from data product file names.
package fileversion

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const (
	// RevisionSpan is the number of revisions that fit under one version.
	// Ordinal = version*RevisionSpan + revision.
	RevisionSpan = 1000

	// MalformedKeyPrefix marks keys of names that did not match a scheme.
	// Parsed keys never start with it, so a malformed name cannot be
	// grouped with a parsed product.
	MalformedKeyPrefix = "!"

	// DefaultPattern matches <key>_v<NN>[_r<NN>]<ext>, e.g.
	// mvn_iuv_l1b_apoapse-orbit03456-muv_20160607T082307_v13_r01.fits.gz
	DefaultPattern = `^(?P<key>.+?)_v(?P<version>\d+)(?:_r(?P<revision>\d+))?(?P<ext>\.[^_]*)?$`
)

// Identity is the parsed form of a file name
type Identity struct {
	// Key identifies the logical product independent of its version
	Key string

	// Ordinal orders versions of the same product; higher is newer
	Ordinal int

	// OK is false when the name did not match the scheme
	OK bool
}

// Scheme is a compiled file naming convention
type Scheme struct {
	re       *regexp.Regexp
	key      int
	version  int
	revision int
	ext      int
}

// DefaultScheme is the IUVS product naming convention
var DefaultScheme = MustScheme(DefaultPattern)

// NewScheme compiles a naming convention. The expression must define the
// named groups "key" and "version"; "revision" and "ext" are optional.
func NewScheme(expr string) (*Scheme, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid version pattern: %w", err)
	}

	s := &Scheme{
		re:       re,
		key:      re.SubexpIndex("key"),
		version:  re.SubexpIndex("version"),
		revision: re.SubexpIndex("revision"),
		ext:      re.SubexpIndex("ext"),
	}
	if s.key < 0 || s.version < 0 {
		return nil, fmt.Errorf("version pattern %q must define the groups \"key\" and \"version\"", expr)
	}

	return s, nil
}

// MustScheme is like NewScheme but panics on error
func MustScheme(expr string) *Scheme {
	s, err := NewScheme(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// Parse parses path with the default scheme
func Parse(path string) Identity {
	return DefaultScheme.Parse(path)
}

// Parse extracts the identity of path. It never fails: names that do not
// match get OK=false, the lowest ordinal, and a key derived from the whole
// base name.
func (s *Scheme) Parse(path string) Identity {
	name := BaseName(path)

	m := s.re.FindStringSubmatch(name)
	if m == nil {
		return malformed(name)
	}

	version, err := strconv.Atoi(m[s.version])
	if err != nil {
		return malformed(name)
	}

	revision := 0
	if s.revision >= 0 && m[s.revision] != "" {
		revision, err = strconv.Atoi(m[s.revision])
		if err != nil || revision >= RevisionSpan {
			return malformed(name)
		}
	}

	if version > (math.MaxInt-revision)/RevisionSpan {
		return malformed(name)
	}

	key := m[s.key]
	if s.ext >= 0 {
		key += m[s.ext]
	}
	if key == "" || strings.HasPrefix(key, MalformedKeyPrefix) {
		return malformed(name)
	}

	return Identity{
		Key:     key,
		Ordinal: version*RevisionSpan + revision,
		OK:      true,
	}
}

// String returns the expression the scheme was compiled from
func (s *Scheme) String() string {
	return s.re.String()
}

func malformed(name string) Identity {
	return Identity{Key: MalformedKeyPrefix + name}
}

// BaseName returns the last element of a local or remote (POSIX) path
func BaseName(path string) string {
	if i := strings.LastIndexAny(path, "/"+string(filepath.Separator)); i >= 0 {
		return path[i+1:]
	}
	return path
}
