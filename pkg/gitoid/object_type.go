package gitoid

// ObjectType is the Git object kind a GitOid was framed as.
type ObjectType string

// Blob is file content. It is the only object type this package produces;
// trees, commits and tags are out of scope.
const Blob ObjectType = "blob"

// Scheme is the URL scheme of a rendered GitOid.
const Scheme = "gitoid"

func (t ObjectType) String() string {
	return string(t)
}
