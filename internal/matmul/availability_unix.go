//go:build unix

package matmul

// Has reports whether the named strategy can run on this platform.
func Has(name string) bool {
	switch name {
	case NameSequential, NameThreads, NameLoop, NameProcesses, NameDistributed:
		return true
	default:
		return false
	}
}
