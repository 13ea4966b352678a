package ports

// AlgorithmLoader resolves algorithm scripts by name.
// This allows the script sources (embedded samples, a directory) to be decoupled.
type AlgorithmLoader interface {
	// GetAlgorithm returns the source text of the named algorithm.
	// Returns domain.ErrSampleNotFound if the name is unknown.
	GetAlgorithm(name string) ([]byte, error)

	// ListAlgorithms returns the available names.
	ListAlgorithms() ([]string, error)
}
