package records

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/kimvieware/phaseflow/internal/runtime/envelope"
	errspkg "github.com/kimvieware/phaseflow/internal/runtime/errors"
)

const sutInfoRecord = "sut_info"

// SUTInfo describes the system under test produced by the extraction phase.
type SUTInfo struct {
	Language   Language
	SizeBytes  int64
	FilesCount int
	EntryPoint *string
	Checksum   string
}

// Fields returns the portable form. A missing entry point is emitted as null.
func (s SUTInfo) Fields() envelope.Fields {
	var entry any
	if s.EntryPoint != nil {
		entry = *s.EntryPoint
	}
	return envelope.Fields{
		"language":    string(s.Language),
		"size_bytes":  s.SizeBytes,
		"files_count": s.FilesCount,
		"entry_point": entry,
		"checksum":    s.Checksum,
	}
}

// SUTInfoFromFields decodes the portable form.
func SUTInfoFromFields(f envelope.Fields) (SUTInfo, error) {
	if f == nil {
		return SUTInfo{}, errspkg.NewDecodeError(sutInfoRecord, "", "not an object")
	}
	r := envelope.NewReader(sutInfoRecord, f)

	lang, err := r.RequiredString("language")
	if err != nil {
		return SUTInfo{}, err
	}
	size, err := r.RequiredInt("size_bytes")
	if err != nil {
		return SUTInfo{}, err
	}
	if size < 0 {
		return SUTInfo{}, errspkg.NewDecodeError(sutInfoRecord, "size_bytes", "must not be negative")
	}
	count, err := r.RequiredInt("files_count")
	if err != nil {
		return SUTInfo{}, err
	}
	if count < 0 {
		return SUTInfo{}, errspkg.NewDecodeError(sutInfoRecord, "files_count", "must not be negative")
	}
	entry, err := r.OptionalStringPtr("entry_point")
	if err != nil {
		return SUTInfo{}, err
	}
	checksum, err := r.OptionalString("checksum", "")
	if err != nil {
		return SUTInfo{}, err
	}

	return SUTInfo{
		Language:   ParseLanguage(lang),
		SizeBytes:  size,
		FilesCount: int(count),
		EntryPoint: entry,
		Checksum:   checksum,
	}, nil
}

func (s SUTInfo) String() string {
	return fmt.Sprintf("SUTInfo(language=%s, files=%d, size=%d bytes)", s.Language, s.FilesCount, s.SizeBytes)
}

// Checksum returns the hex SHA-256 over every file name and content, visited
// in name order so the digest does not depend on map iteration.
func Checksum(files map[string][]byte) string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write(files[name])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DescribeFiles builds a SUTInfo from a set of source files. The language is
// the most common detected language; entryPoint may be empty.
func DescribeFiles(files map[string][]byte, entryPoint string) SUTInfo {
	counts := make(map[Language]int)
	var size int64
	for name, body := range files {
		size += int64(len(body))
		if l := DetectLanguage(name); l != LanguageUnknown {
			counts[l]++
		}
	}

	lang := LanguageUnknown
	best := 0
	for _, l := range []Language{LanguagePython, LanguageC, LanguageCPP, LanguageJava} {
		if counts[l] > best {
			lang, best = l, counts[l]
		}
	}

	info := SUTInfo{
		Language:   lang,
		SizeBytes:  size,
		FilesCount: len(files),
		Checksum:   Checksum(files),
	}
	if entryPoint != "" {
		info.EntryPoint = &entryPoint
	}
	return info
}
