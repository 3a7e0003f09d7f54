// Copyright 2025 Certen Protocol
//
// Package mount computes the Merkle digest and audit rendering of a set of
// mount files. Adapted from the teacher's anchor-batching Merkle tree: the
// level-by-level build and odd-node duplication are unchanged, but pairing
// combines hex digest strings rather than raw leaf bytes, matching the
// platform's digest-of-digest-strings convention, and the hasher is
// pluggable instead of hardcoded to SHA-256.
package mount

import (
	"sort"
	"strings"

	"github.com/trustedstack/tapp-core/pkg/hashutil"
)

// File is a single named byte blob to be hashed and audited.
type File struct {
	SourcePath string
	Content    []byte
}

const auditRecordSeparator = "\x1e"

// Digest computes the Merkle root over the leaf digests of files and a
// human-readable audit concatenation, using h for every hash step. files is
// not mutated; sorting happens on a copy.
func Digest(h hashutil.Hasher, files []File) (rootHex string, audit string) {
	if len(files) == 0 {
		return h.Sum([]byte("")), ""
	}

	sorted := make([]File, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SourcePath < sorted[j].SourcePath
	})

	level := make([]string, len(sorted))
	for i, f := range sorted {
		level[i] = h.Sum(f.Content)
	}

	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, h.Sum([]byte(level[i]+level[i+1])))
			} else {
				next = append(next, h.Sum([]byte(level[i]+level[i])))
			}
		}
		level = next
	}
	root := level[0]

	parts := make([]string, len(sorted))
	for i, f := range sorted {
		parts[i] = "--- FILE: " + f.SourcePath + " ---\n" + string(f.Content)
	}
	return root, strings.Join(parts, auditRecordSeparator)
}
