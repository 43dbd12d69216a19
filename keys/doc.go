// Package keys keeps signing identities on the local filesystem.
//
// Each signer is one file, <dir>/<name>.key, holding the hex encoding of
// principal.Signer.Encode followed by a newline. Files are created 0600 in a
// 0700 directory. Only famhostd reads keys; the bridge never persists a
// signer.
package keys
