// Package txnctx types the "transaction context" spec.md section 1 names
// as an external collaborator: "a token propagated through operations but
// not interpreted by the core". The one bufftree operation that accepts
// one, bptree.Tree.RunBatchFile, only writes it to its log lines — nothing
// in this module branches on its value.
package txnctx

import "github.com/google/uuid"

// Token is an opaque, comparable handle a caller can use to correlate a
// sequence of buffer-pool/B+Tree calls with one logical transaction. The
// zero value, None, means "no transaction" and is always safe to pass.
type Token = uuid.UUID

// None is the zero Token, meaning "untracked" / "no ambient transaction".
var None Token

// New mints a fresh Token. The core never calls this itself — only callers
// that want per-transaction correlation in their own logging do.
func New() Token {
	return uuid.New()
}
