/*
Package security provides the agent keypair and signature primitives that
back atomstore's commit authentication.

Every agent (§4.5's authorization subject) owns an Ed25519 keypair. Commits
carry a base64 signature produced by the signer's private key over the
canonical commit bytes (see pkg/commit); readers and the commit pipeline
verify that signature against the public key stored on the signer's agent
resource.

Key encoding follows the same base64 convention the rest of the ecosystem
uses for binary blobs embedded in JSON-ish documents (mirrors how the
teacher base64-encodes encrypted secret payloads before storage).
*/
package security
