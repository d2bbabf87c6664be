// Package language normalizes the transcriber language hint. Config accepts
// any 2-letter or 3-letter ISO 639 code or a full language name; codes the
// table recognizes are normalized to the 2-letter form for the transcriber
// CLI, others pass through untouched.
package language

import "strings"

type entry struct {
	code2   string   // ISO 639-1
	code3   string   // ISO 639-2 primary
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	words   []string // Full word forms
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"es", "spa", "", "Spanish", []string{"spanish"}},
	{"fr", "fra", "fre", "French", []string{"french"}},
	{"de", "deu", "ger", "German", []string{"german"}},
	{"it", "ita", "", "Italian", []string{"italian"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese", "mandarin"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
	{"hi", "hin", "", "Hindi", []string{"hindi"}},
	{"nl", "nld", "dut", "Dutch", []string{"dutch"}},
	{"pl", "pol", "", "Polish", []string{"polish"}},
	{"sv", "swe", "", "Swedish", []string{"swedish"}},
	{"da", "dan", "", "Danish", []string{"danish"}},
	{"no", "nor", "", "Norwegian", []string{"norwegian"}},
	{"fi", "fin", "", "Finnish", []string{"finnish"}},
	{"tr", "tur", "", "Turkish", []string{"turkish"}},
	{"uk", "ukr", "", "Ukrainian", []string{"ukrainian"}},
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(hint string) *entry {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" {
		return nil
	}
	if e, ok := byCode2[hint]; ok {
		return e
	}
	if e, ok := byCode3[hint]; ok {
		return e
	}
	if e, ok := byWord[hint]; ok {
		return e
	}
	return nil
}

// IsAuto reports whether the hint asks the transcriber to detect the
// language itself. Both an empty hint and "auto" mean detection.
func IsAuto(hint string) bool {
	hint = strings.ToLower(strings.TrimSpace(hint))
	return hint == "" || hint == "auto"
}

// isCode reports whether the hint has the shape of an ISO 639 code:
// two or three ASCII letters.
func isCode(hint string) bool {
	if len(hint) != 2 && len(hint) != 3 {
		return false
	}
	for _, r := range hint {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// IsKnown reports whether the hint is usable as a transcriber language:
// auto-detection, a name or code from the table, or any 2- or 3-letter
// ISO 639 code. The tool itself is the authority on which codes it
// supports; validation only rejects hints that cannot be a code at all.
func IsKnown(hint string) bool {
	if IsAuto(hint) || lookup(hint) != nil {
		return true
	}
	return isCode(strings.ToLower(strings.TrimSpace(hint)))
}

// ToISO2 normalizes a hint to ISO 639-1 where the table knows it, passes
// through other code-shaped hints unchanged, and returns the empty string
// for auto-detection hints and non-code input.
func ToISO2(hint string) string {
	if IsAuto(hint) {
		return ""
	}
	if e := lookup(hint); e != nil {
		return e.code2
	}
	hint = strings.ToLower(strings.TrimSpace(hint))
	if isCode(hint) {
		return hint
	}
	return ""
}

// DisplayName returns a human-readable name for a recognized hint, "Auto"
// for auto-detection hints, and the uppercased input otherwise.
func DisplayName(hint string) string {
	if IsAuto(hint) {
		return "Auto"
	}
	if e := lookup(hint); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(hint))
}
