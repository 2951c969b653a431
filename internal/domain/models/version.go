package models

import (
	"strconv"
	"strings"
)

// CompareVersions compares dotted version strings such as "1.2.10" or
// "2.0.0-dev.1". Returns -1, 0 or 1. Numeric parts compare as numbers, a
// pre-release suffix sorts before the plain release.
func CompareVersions(a, b string) int {
	coreA, preA := splitVersion(a)
	coreB, preB := splitVersion(b)

	partsA := strings.Split(coreA, ".")
	partsB := strings.Split(coreB, ".")
	for i := 0; i < len(partsA) || i < len(partsB); i++ {
		var pa, pb string
		if i < len(partsA) {
			pa = partsA[i]
		}
		if i < len(partsB) {
			pb = partsB[i]
		}
		if c := comparePart(pa, pb); c != 0 {
			return c
		}
	}

	switch {
	case preA == preB:
		return 0
	case preA == "":
		return 1
	case preB == "":
		return -1
	case preA < preB:
		return -1
	default:
		return 1
	}
}

func splitVersion(v string) (core, pre string) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexByte(v, '+'); i >= 0 {
		v = v[:i]
	}
	if i := strings.IndexByte(v, '-'); i >= 0 {
		return v[:i], v[i+1:]
	}
	return v, ""
}

func comparePart(a, b string) int {
	na, errA := strconv.Atoi(orZero(a))
	nb, errB := strconv.Atoi(orZero(b))
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
