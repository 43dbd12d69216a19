// Package delegation issues, archives and extracts signed capability grants.
//
// A delegation is stored as one content-addressed block:
//
//	block   = {p: payload-bytes, s: signature-bytes}
//	payload = {v, iss, aud, att, exp?, nbf?, nnc?, fct?, prf?}
//
// Both maps use deterministic CBOR. The signature covers the payload bytes.
// iss and aud are binary DIDs, att is a list of capabilities and prf lists
// the links of proof delegations. A block's link is CIDv1 dag-cbor sha2-256.
//
// An archive is a self-contained envelope holding a delegation and every
// proof reachable from it:
//
//	{version: "fam-delegation-archive@1", root: link, blocks: [block...]}
//
// Extract checks structure only: hashes, principal encodings, capability
// shape, signature encoding and proof linkage. Verify additionally checks
// signatures and time bounds. Neither evaluates authorization policy.
package delegation
