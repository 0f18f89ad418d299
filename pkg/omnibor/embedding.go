package omnibor

import (
	"bytes"
	"fmt"
	"strings"
)

// EmbeddingStrategy selects whether the manifest's own id is written into
// the target before the target is identified.
type EmbeddingStrategy uint8

const (
	// NoEmbed leaves the target untouched. The manifest can only be found
	// by identifying the target and looking its id up in storage.
	NoEmbed EmbeddingStrategy = iota

	// Embed appends a marker carrying the manifest id to the target, so the
	// target itself says where its manifest is.
	Embed
)

// ParseEmbeddingStrategy parses "none" or "embed".
func ParseEmbeddingStrategy(s string) (EmbeddingStrategy, error) {
	switch s {
	case "none", "":
		return NoEmbed, nil
	case "embed":
		return Embed, nil
	default:
		return 0, fmt.Errorf("%w: %q (valid: none, embed)", ErrUnknownEmbedding, s)
	}
}

func (e EmbeddingStrategy) String() string {
	switch e {
	case NoEmbed:
		return "none"
	case Embed:
		return "embed"
	default:
		return fmt.Sprintf("EmbeddingStrategy(%d)", uint8(e))
	}
}

// TargetKind is the result category of classifying a target file.
type TargetKind uint8

const (
	// TargetUncertain means the classifier could not tell what the file is.
	TargetUncertain TargetKind = iota

	// TargetText is a text format that supports comments.
	TargetText

	// TargetUnsupportedBinary is a recognized binary format with no place
	// to put an embedded id.
	TargetUnsupportedBinary
)

// TargetType describes how, if at all, an id can be embedded in a file.
type TargetType struct {
	Kind TargetKind

	// Name of the detected format, for diagnostics.
	Name string

	// CommentPrefix opens a comment in a text format. CommentSuffix closes
	// it and is empty for line comments.
	CommentPrefix string
	CommentSuffix string
}

// TextTarget describes a comment-bearing text format.
func TextTarget(name, prefix, suffix string) TargetType {
	return TargetType{Kind: TargetText, Name: name, CommentPrefix: prefix, CommentSuffix: suffix}
}

// UnsupportedBinaryTarget describes a binary format without an embedding slot.
func UnsupportedBinaryTarget(name string) TargetType {
	return TargetType{Kind: TargetUnsupportedBinary, Name: name}
}

// UncertainTarget is the classification for an unrecognized file.
func UncertainTarget() TargetType {
	return TargetType{Kind: TargetUncertain}
}

// Classifier decides how a target file can carry an embedded id.
type Classifier interface {
	Classify(path string) (TargetType, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(path string) (TargetType, error)

// Classify calls f(path).
func (f ClassifierFunc) Classify(path string) (TargetType, error) {
	return f(path)
}

// markerTag precedes the manifest URL in an embedded marker.
const markerTag = "omnibor:"

// embedManifestID returns content with a final comment line naming the
// manifest:
//
//	<prefix> omnibor:gitoid:blob:<alg>:<hex>[ <suffix>]
//
// A newline is added first when content does not already end with one.
func embedManifestID(content []byte, target TargetType, manifestURL string) []byte {
	var buf bytes.Buffer
	buf.Grow(len(content) + len(manifestURL) + 32)
	buf.Write(content)
	if len(content) > 0 && content[len(content)-1] != '\n' {
		buf.WriteByte('\n')
	}

	buf.WriteString(target.CommentPrefix)
	buf.WriteByte(' ')
	buf.WriteString(markerTag)
	buf.WriteString(manifestURL)
	if target.CommentSuffix != "" {
		buf.WriteByte(' ')
		buf.WriteString(target.CommentSuffix)
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

// ExtractEmbeddedManifestID returns the id from the last embedded manifest
// marker in content that parses as an id for H. Markers for other
// algorithms are skipped. found is false if there is no marker; if there are
// markers but none parses for H, the last marker's parse error is returned.
func ExtractEmbeddedManifestID[H SupportedHash](content []byte) (id ArtifactID[H], found bool, err error) {
	tag := []byte(markerTag + "gitoid:")
	var lastErr error

	for end := len(content); ; {
		idx := bytes.LastIndex(content[:end], tag)
		if idx < 0 {
			break
		}
		end = idx

		rest := string(content[idx+len(markerTag):])
		if stop := strings.IndexAny(rest, " \t\r\n"); stop >= 0 {
			rest = rest[:stop]
		}

		id, err := ParseArtifactID[H](rest)
		if err == nil {
			return id, true, nil
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("invalid embedded manifest id: %w", err)
		}
	}

	return ArtifactID[H]{}, false, lastErr
}
