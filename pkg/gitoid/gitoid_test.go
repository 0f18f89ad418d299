package gitoid

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"
	"testing/iotest"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBytes_KnownVectors(t *testing.T) {
	tests := []struct {
		name    string
		alg     HashAlgorithm
		content string
		want    string
	}{
		{"sha1 empty blob", SHA1, "", "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"},
		{"sha1 hello world", SHA1, "hello world", "95d09f2b10159347eece71399a7e2e907ea3df4f"},
		{"sha1cd empty blob", SHA1CD, "", "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"},
		{"sha1cd hello world", SHA1CD, "hello world", "95d09f2b10159347eece71399a7e2e907ea3df4f"},
		{"sha256 empty blob", SHA256, "", "473a0f4c3be8a93681a267e3b1e9a7dcda1185436fe141f7749120a303721813"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oid := FromString(tt.alg, tt.content)
			assert.Equal(t, tt.want, oid.Hex())
			assert.Equal(t, tt.alg, oid.HashAlgorithm())
			assert.Len(t, oid.Bytes(), tt.alg.Size())
		})
	}
}

func TestFromBytes_MatchesFramedDigest(t *testing.T) {
	t.Run("hello world under sha256", func(t *testing.T) {
		oid := FromString(SHA256, "hello world")
		framed := sha256.Sum256([]byte("blob 11\x00hello world"))
		assert.Equal(t, framed[:], oid.Bytes())
	})

	t.Run("property: digest equals plain hash of framed buffer", func(t *testing.T) {
		property := func(content []byte) bool {
			framed := append([]byte("blob "+strconv.Itoa(len(content))+"\x00"), content...)
			want := sha256.Sum256(framed)
			return bytes.Equal(FromBytes(SHA256, content).Bytes(), want[:])
		}
		require.NoError(t, quick.Check(property, nil))
	})
}

func TestEntryPointsAgree(t *testing.T) {
	for _, alg := range HashAlgorithms() {
		alg := alg
		t.Run(alg.Name(), func(t *testing.T) {
			property := func(content []byte) bool {
				fromBytes := FromBytes(alg, content)

				fromReader, err := FromReader(alg, bytes.NewReader(content), int64(len(content)))
				if err != nil {
					return false
				}

				fromContext, err := FromReaderContext(context.Background(), alg, bytes.NewReader(content), int64(len(content)))
				if err != nil {
					return false
				}

				return fromBytes == fromReader && fromReader == fromContext
			}
			require.NoError(t, quick.Check(property, nil))
		})
	}

	t.Run("content larger than one chunk", func(t *testing.T) {
		content := bytes.Repeat([]byte("0123456789abcdef"), 3000)
		want := FromBytes(SHA256, content)

		got, err := FromReader(SHA256, iotest.HalfReader(bytes.NewReader(content)), int64(len(content)))
		require.NoError(t, err)
		assert.Equal(t, want, got)

		got, err = FromReaderContext(context.Background(), SHA256, iotest.OneByteReader(bytes.NewReader(content)), int64(len(content)))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("reader returning data with EOF", func(t *testing.T) {
		content := []byte("data and eof together")
		got, err := FromReader(SHA1, iotest.DataErrReader(bytes.NewReader(content)), int64(len(content)))
		require.NoError(t, err)
		assert.Equal(t, FromBytes(SHA1, content), got)
	})
}

func TestLengthMismatch(t *testing.T) {
	content := []byte("twelve bytes")

	tests := []struct {
		name     string
		expected int64
	}{
		{"declared too long", int64(len(content)) + 1},
		{"declared too short", int64(len(content)) - 1},
		{"declared zero", 0},
		{"declared negative", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name+" blocking", func(t *testing.T) {
			oid, err := FromReader(SHA256, bytes.NewReader(content), tt.expected)
			require.Error(t, err)
			assert.True(t, IsLengthMismatch(err))
			assert.True(t, oid.IsZero(), "no identifier on failure")

			var mismatch *LengthMismatchError
			require.True(t, errors.As(err, &mismatch))
			assert.Equal(t, tt.expected, mismatch.Expected)
		})

		t.Run(tt.name+" context", func(t *testing.T) {
			oid, err := FromReaderContext(context.Background(), SHA256, bytes.NewReader(content), tt.expected)
			require.Error(t, err)
			assert.True(t, IsLengthMismatch(err))
			assert.True(t, oid.IsZero())
		})
	}

	t.Run("error names expected and actual", func(t *testing.T) {
		_, err := FromReader(SHA1, strings.NewReader("abc"), 5)
		require.Error(t, err)
		assert.Equal(t, "expected length 5, actual length 3", err.Error())
	})
}

func TestReadErrorsPropagate(t *testing.T) {
	boom := errors.New("disk on fire")

	_, err := FromReader(SHA256, iotest.ErrReader(boom), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsLengthMismatch(err))

	_, err = FromReaderContext(context.Background(), SHA256, io.MultiReader(strings.NewReader("ok"), iotest.ErrReader(boom)), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestFromReaderContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	oid, err := FromReaderContext(ctx, SHA256, strings.NewReader("abandoned"), 9)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, oid.IsZero())
}

func TestURLRoundTrip(t *testing.T) {
	for _, alg := range HashAlgorithms() {
		t.Run(alg.Name(), func(t *testing.T) {
			oid := FromString(alg, "round trip me")
			url := oid.URL()
			assert.True(t, strings.HasPrefix(url, "gitoid:blob:"+alg.Name()+":"))
			assert.Len(t, oid.Hex(), alg.HexSize())

			parsed, err := ParseURL(url)
			require.NoError(t, err)
			assert.Equal(t, oid, parsed)
			assert.Equal(t, 0, oid.Compare(parsed))
		})
	}
}

func TestParseURL_Errors(t *testing.T) {
	valid := FromString(SHA256, "x").Hex()

	tests := []struct {
		name      string
		url       string
		component string
	}{
		{"too few parts", "gitoid:blob:sha256", ComponentURL},
		{"too many parts", "gitoid:blob:sha256:" + valid + ":extra", ComponentURL},
		{"wrong scheme", "gitbom:blob:sha256:" + valid, ComponentScheme},
		{"wrong object type", "gitoid:tree:sha256:" + valid, ComponentObjectType},
		{"unknown algorithm", "gitoid:blob:md5:" + valid, ComponentHashAlgorithm},
		{"hex too short", "gitoid:blob:sha256:" + valid[:40], ComponentHash},
		{"sha1 width on sha1 name but sha256 hex", "gitoid:blob:sha1:" + valid, ComponentHash},
		{"uppercase hex", "gitoid:blob:sha256:" + strings.ToUpper(valid), ComponentHash},
		{"non-hex characters", "gitoid:blob:sha256:" + strings.Repeat("zz", 32), ComponentHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			require.Error(t, err)

			var urlErr *URLError
			require.True(t, errors.As(err, &urlErr))
			assert.Equal(t, tt.component, urlErr.Component)
			assert.Contains(t, err.Error(), tt.component)
		})
	}
}

func TestCompare(t *testing.T) {
	a, err := FromHex(SHA1, strings.Repeat("00", 20))
	require.NoError(t, err)
	b, err := FromHex(SHA1, strings.Repeat("ff", 20))
	require.NoError(t, err)
	c := FromString(SHA256, "")

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, -1, b.Compare(c), "algorithm orders before digest bytes")
	assert.Equal(t, 0, c.Compare(FromString(SHA256, "")))
}

func TestStringForms(t *testing.T) {
	oid := FromString(SHA1, "hello world")
	assert.Equal(t, "sha1:95d09f2b10159347eece71399a7e2e907ea3df4f", oid.String())
	assert.Equal(t, "gitoid:blob:sha1:95d09f2b10159347eece71399a7e2e907ea3df4f", oid.URL())
	assert.Equal(t, Blob, oid.ObjectType())

	var zero GitOid
	assert.True(t, zero.IsZero())
	assert.Equal(t, "", zero.URL())
}
