//go:build !unix

package matmul

// Has reports whether the named strategy can run on this platform. The
// process pool needs a shared-memory segment.
func Has(name string) bool {
	switch name {
	case NameSequential, NameThreads, NameLoop, NameDistributed:
		return true
	default:
		return false
	}
}
