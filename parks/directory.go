// Package parks holds the static directory of supported U.S. National Parks.
// It maps human park names (and common aliases) to the short NPS park codes
// used as the filter key across retrieval and storage.
package parks

import (
	"sort"
	"strings"
)

// Park describes a single directory entry.
type Park struct {
	Code string `json:"park_code"`
	Name string `json:"park_name"`
}

// Directory is a read-only bidirectional mapping between park aliases and
// park codes. It is safe for concurrent use after construction.
type Directory struct {
	aliasToCode map[string]string
	codeToName  map[string]string
	// aliases ordered longest-first so that "great smoky mountains" wins
	// over "great smoky" and match order is deterministic.
	orderedAliases []string
}

// defaultAliases maps lowercase park aliases to 4-letter park codes.
// Aliases are full phrases: matching is done on the whole alias string,
// never token by token. Sequoia and Kings Canyon are administered jointly
// and share the "seki" code.
var defaultAliases = map[string]string{
	"yellowstone":           "yell",
	"yosemite":              "yose",
	"zion":                  "zion",
	"glacier":               "glac",
	"grand canyon":          "grca",
	"rocky mountain":        "romo",
	"great smoky":           "grsm",
	"great smoky mountains": "grsm",
	"acadia":                "acad",
	"olympic":               "olym",
	"grand teton":           "grte",
	"bryce canyon":          "brca",
	"arches":                "arch",
	"canyonlands":           "cany",
	"sequoia":               "seki",
	"kings canyon":          "seki",
	"death valley":          "deva",
	"joshua tree":           "jotr",
	"shenandoah":            "shen",
	"mount rainier":         "mora",
	"crater lake":           "crla",
}

var defaultNames = map[string]string{
	"yell": "Yellowstone National Park",
	"yose": "Yosemite National Park",
	"zion": "Zion National Park",
	"glac": "Glacier National Park",
	"grca": "Grand Canyon National Park",
	"romo": "Rocky Mountain National Park",
	"grsm": "Great Smoky Mountains National Park",
	"acad": "Acadia National Park",
	"olym": "Olympic National Park",
	"grte": "Grand Teton National Park",
	"brca": "Bryce Canyon National Park",
	"arch": "Arches National Park",
	"cany": "Canyonlands National Park",
	"seki": "Sequoia and Kings Canyon National Parks",
	"deva": "Death Valley National Park",
	"jotr": "Joshua Tree National Park",
	"shen": "Shenandoah National Park",
	"mora": "Mount Rainier National Park",
	"crla": "Crater Lake National Park",
}

// NewDirectory builds a directory from explicit mappings. Aliases are
// normalized to lowercase.
func NewDirectory(aliases map[string]string, names map[string]string) *Directory {
	d := &Directory{
		aliasToCode: make(map[string]string, len(aliases)),
		codeToName:  make(map[string]string, len(names)),
	}
	for alias, code := range aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" {
			continue
		}
		d.aliasToCode[alias] = code
		d.orderedAliases = append(d.orderedAliases, alias)
	}
	for code, name := range names {
		d.codeToName[code] = name
	}
	sort.Slice(d.orderedAliases, func(i, j int) bool {
		if len(d.orderedAliases[i]) != len(d.orderedAliases[j]) {
			return len(d.orderedAliases[i]) > len(d.orderedAliases[j])
		}
		return d.orderedAliases[i] < d.orderedAliases[j]
	})
	return d
}

// DefaultDirectory returns the built-in directory of supported parks.
func DefaultDirectory() *Directory {
	return NewDirectory(defaultAliases, defaultNames)
}

// FindInText scans text for a known park alias (case-insensitive, full-alias
// substring match) and returns the matching park code. The empty string means
// no alias was found.
func (d *Directory) FindInText(text string) string {
	lower := strings.ToLower(text)
	for _, alias := range d.orderedAliases {
		if strings.Contains(lower, alias) {
			return d.aliasToCode[alias]
		}
	}
	return ""
}

// CodesInText returns the set of distinct park codes whose aliases appear in
// text. Used for the ambiguity check on assistant turns: a response that
// mentions several parks must not pin the conversation to any one of them.
func (d *Directory) CodesInText(text string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]struct{})
	var codes []string
	for _, alias := range d.orderedAliases {
		if !strings.Contains(lower, alias) {
			continue
		}
		code := d.aliasToCode[alias]
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// NameFor returns the display name for a park code, or the uppercased code
// when the code is not in the directory.
func (d *Directory) NameFor(code string) string {
	if name, ok := d.codeToName[code]; ok {
		return name
	}
	return strings.ToUpper(code)
}

// Contains reports whether code is a known park code.
func (d *Directory) Contains(code string) bool {
	_, ok := d.codeToName[code]
	return ok
}

// List returns every park in the directory, sorted by code.
func (d *Directory) List() []Park {
	list := make([]Park, 0, len(d.codeToName))
	for code, name := range d.codeToName {
		list = append(list, Park{Code: code, Name: name})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list
}
