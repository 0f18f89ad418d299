package storage

import (
	"fmt"

	"github.com/dyluth/omnibor/pkg/gitoid"
)

// Redis key pattern helpers.
//
// Key pattern: omnibor:{namespace}:manifest:{algorithm}:{hex}
// Channel pattern: omnibor:{namespace}:manifest_events

// ManifestKey returns the Redis key for the manifest of target.
func ManifestKey(namespace string, target gitoid.GitOid) string {
	return fmt.Sprintf("omnibor:%s:manifest:%s:%s", namespace, target.HashAlgorithm().Name(), target.Hex())
}

// ManifestKeyPattern matches every manifest key in namespace, for SCAN.
func ManifestKeyPattern(namespace string) string {
	return fmt.Sprintf("omnibor:%s:manifest:*", namespace)
}

// ManifestEventsChannel returns the Pub/Sub channel for manifest writes.
func ManifestEventsChannel(namespace string) string {
	return fmt.Sprintf("omnibor:%s:manifest_events", namespace)
}
