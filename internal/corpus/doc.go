// Package corpus provides read-only access to a sandboxed document directory.
//
// All access is confined to a single root directory fixed at construction.
// Candidate paths are resolved by a Sandbox, which rejects anything that
// canonicalizes outside the root with ErrAccessDenied. On top of the sandbox
// the package offers three operations:
//
//   - List: every visible regular file under the root (hidden segments excluded)
//   - Read: a single document as text, truncated to a character budget
//   - Search: case-insensitive substring search returning short snippets
//
// # Error taxonomy
//
// Access outside the root is a hard failure and is always returned as an
// error wrapping ErrAccessDenied. Expected conditions such as a missing or
// undecodable file are soft failures: Read reports them through
// ReadResult.Status and never as an error. Search silently skips files it
// cannot read.
//
// # Usage
//
//	c, err := corpus.New(corpus.Config{Root: "~/StudyDocs"}, logger)
//	if err != nil {
//	    return err
//	}
//	docs, _ := c.List(ctx)
//	res, err := c.Read(ctx, "week1/notes.md", 0)
//	if errors.Is(err, corpus.ErrAccessDenied) {
//	    // reject request
//	}
//	fmt.Println(res.Message())
//
// Nothing is cached: every call observes the filesystem as it is at call time.
package corpus
