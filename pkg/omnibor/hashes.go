package omnibor

import "github.com/dyluth/omnibor/pkg/gitoid"

// SupportedHash is the type-level tag for the algorithm an ArtifactID or
// InputManifest is computed with. It is sealed: only SHA1, SHA1CD and SHA256
// implement it, so identifiers of different algorithms cannot be mixed.
type SupportedHash interface {
	HashAlgorithm() gitoid.HashAlgorithm
	sealed()
}

// SHA1 tags identifiers computed with plain SHA-1.
type SHA1 struct{}

// SHA1CD tags identifiers computed with collision-detecting SHA-1.
type SHA1CD struct{}

// SHA256 tags identifiers computed with SHA-256.
type SHA256 struct{}

func (SHA1) HashAlgorithm() gitoid.HashAlgorithm   { return gitoid.SHA1 }
func (SHA1CD) HashAlgorithm() gitoid.HashAlgorithm { return gitoid.SHA1CD }
func (SHA256) HashAlgorithm() gitoid.HashAlgorithm { return gitoid.SHA256 }

func (SHA1) sealed()   {}
func (SHA1CD) sealed() {}
func (SHA256) sealed() {}

func algorithmOf[H SupportedHash]() gitoid.HashAlgorithm {
	var h H
	return h.HashAlgorithm()
}
