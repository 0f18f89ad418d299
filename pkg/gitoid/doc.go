// Package gitoid computes content identifiers the way Git computes blob
// object ids.
//
// # Framing
//
// A GitOid is the digest of
//
//	"blob " + decimal(len(content)) + "\x00" + content
//
// under one of a closed set of hash algorithms (SHA1, SHA1CD, SHA256). For the
// same content and algorithm the result equals `git hash-object`.
//
// # Entry points
//
// FromBytes and FromString hash in-memory content and cannot fail.
// FromReader hashes a blocking stream whose length is declared up front;
// FromReaderContext does the same but can be abandoned between chunks. All
// of them run the same routine and agree exactly on identical content.
//
// The declared length is part of the digest, so a stream that yields a
// different number of bytes fails with a *LengthMismatchError instead of
// producing an identifier nobody could reproduce from the real content.
//
// # Rendering
//
//	oid := gitoid.FromString(gitoid.SHA256, "hello world")
//	oid.URL() // gitoid:blob:sha256:<64 hex chars>
//
// ParseURL reverses URL and validates every component.
package gitoid
