// Package omnibor implements OmniBOR artifact identifiers and Input Manifests.
//
// An ArtifactID[H] is a GitOid computed with the algorithm tagged by H
// (SHA1, SHA1CD or SHA256). Identifiers and manifests of different algorithms
// are different types, so they cannot be mixed by accident.
//
// An InputManifest[H] lists the inputs of one target artifact. Its text
// encoding is:
//
//	gitoid:blob:sha256
//	input <hex>
//	input <hex> bom <hex>
//	built-by <hex>
//
// Relations keep the order they were added in.
//
// A Builder collects relations, then Finish identifies the target, optionally
// embedding the manifest id into it first, and stores the manifest through a
// Storage keyed by the target's id. Storage backends live in package storage.
package omnibor
