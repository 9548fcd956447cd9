package reconcile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/forkhold/forkhold/pkg/errors"
)

// LicenseFileName is the well-known name the upstream license is copied to
// inside each mirror.
const LicenseFileName = "UPSTREAM_LICENSE"

// licenseCandidates are conventional license file names, matched
// case-insensitively at the mirror's top level.
var licenseCandidates = map[string]bool{
	"license":     true,
	"license.txt": true,
	"license.md":  true,
	"copying":     true,
	"copyright":   true,
}

// findLicense returns the path of a conventional license file at the top
// level of dir, or "" when none exists.
func findLicense(dir string) string {
	children, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, child := range children {
		if child.IsDir() {
			continue
		}
		if licenseCandidates[strings.ToLower(child.Name())] {
			return filepath.Join(dir, child.Name())
		}
	}
	return ""
}

// syncLicense copies the upstream's license file to the well-known name
// inside the mirror, or removes a stale copy when the upstream no longer
// ships one. It returns the license note for provenance and whether a
// license was found.
func syncLicense(dir string) (note string, found bool, err error) {
	target := filepath.Join(dir, LicenseFileName)

	source := findLicense(dir)
	if source == "" {
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return "", false, errors.WrapIO("delete", target, err)
		}
		return "No license file found in upstream; " + LicenseFileName + " not created", false, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return "", false, errors.WrapIO("read", source, err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", false, errors.WrapIO("write", target, err)
	}
	return "License synced from " + filepath.Base(source) + " to " + LicenseFileName, true, nil
}
