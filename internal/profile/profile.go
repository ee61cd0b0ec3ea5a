// Copyright 2021-present ZenBPM Contributors
// (based on git commit history).
//
// ZenBPM project is available under two licenses:
//  - SPDX-License-Identifier: AGPL-3.0-or-later (See LICENSE-AGPL.md)
//  - Enterprise License (See LICENSE-ENTERPRISE.md)

package profile

import (
	"fmt"
	"os"
	"strings"
)

type ProfileType string

var Current = DEV // dev profile as default

const (
	DEV  ProfileType = "DEV"
	TEST ProfileType = "TEST"
	PROD ProfileType = "PROD"
)

// InitProfile selects the profile from the PROFILE environment variable.
func InitProfile() {
	Current = Parse(os.Getenv("PROFILE"), Current)
	fmt.Printf("Current profile: %s\n", Current)
}

// Parse returns the profile named by value or def for unknown names.
func Parse(value string, def ProfileType) ProfileType {
	switch ProfileType(strings.ToUpper(strings.TrimSpace(value))) {
	case DEV:
		return DEV
	case TEST:
		return TEST
	case PROD:
		return PROD
	}
	return def
}

// Verbose reports whether debug output should be enabled.
func (p ProfileType) Verbose() bool {
	return p != PROD
}
