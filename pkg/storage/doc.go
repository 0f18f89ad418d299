// Package storage provides backends for omnibor.Storage.
//
// # Backends
//
// FileSystem is the reference backend. Manifests live under
//
//	<root>/manifests/gitoid_blob_<algorithm>/<hex[:2]>/<hex[2:]>
//
// and each write goes through a temp file and a rename, so a reader sees
// either the old manifest or the new one.
//
// Memory keeps manifests in a map and suits tests and one-shot commands.
//
// Redis stores each manifest as a hash at
//
//	omnibor:{namespace}:manifest:{algorithm}:{hex}
//
// and publishes an Event on omnibor:{namespace}:manifest_events after every
// write. Namespaces let several projects share one Redis server.
//
// Every backend also implements Lister.
package storage
