package policy

const (
	APIVersion = "crawlerprotection/v1alpha1"
	Kind       = "ProtectionPolicy"
)

// DefaultSpecialPages is used when a document has no specialPages key at all.
// An explicit empty list protects no special pages.
var DefaultSpecialPages = []string{"RecentChangesLinked", "WhatLinksHere", "MobileDiff"}

type Document struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`
	Metadata   struct {
		Name string `yaml:"name"`
	} `yaml:"metadata"`

	Protect      Protect  `yaml:"protect"`
	SpecialPages []string `yaml:"specialPages"`

	// StripSpecialPrefix controls whether requested names lose a leading
	// "Special:" before lookup. Defaults to true.
	StripSpecialPrefix *bool `yaml:"stripSpecialPrefix"`
	FastReject         bool  `yaml:"fastReject"`
}

// Protect holds the per-signal switches. A nil pointer means the key was
// absent, which counts as enabled.
type Protect struct {
	History             *bool `yaml:"history"`
	Diff                *bool `yaml:"diff"`
	Revision            *bool `yaml:"revision"`
	WhatLinksHere       *bool `yaml:"whatLinksHere"`
	RecentChangesLinked *bool `yaml:"recentChangesLinked"`
}

// Enabled reports a switch value with the default-on rule applied.
func Enabled(b *bool) bool {
	return b == nil || *b
}

// Default returns the document used when no policy file is configured.
func Default() *Document {
	d := &Document{
		APIVersion:   APIVersion,
		Kind:         Kind,
		SpecialPages: append([]string(nil), DefaultSpecialPages...),
	}
	d.Metadata.Name = "default"
	return d
}
