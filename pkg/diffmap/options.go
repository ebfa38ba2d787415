package diffmap

import "fmt"

// Solver selects the decomposition backend for the diffusion map.
type Solver string

const (
	// SolverRandomized uses randomized truncated SVD of the normalized
	// affinity; eigenvalue signs are recovered from the singular vectors.
	SolverRandomized Solver = "randomized"
	// SolverEigsh uses a Lanczos symmetric eigensolver seeded with a
	// uniform random starting vector.
	SolverEigsh Solver = "eigsh"
)

// Options configures a diffusion map computation. Zero values are not
// meaningful; start from DefaultOptions.
type Options struct {
	// NComponents is the number of eigenpairs requested from the solver.
	// The leading (constant) eigenvector is always dropped, so the output
	// has NComponents-1 coordinates per cell.
	NComponents int

	// Rep names the affinity representation, read from slot "W_<Rep>".
	Rep string

	// Alpha is the diffusion time parameter in [0, 1); eigenvalues are
	// rescaled to lambda / (1 - Alpha*lambda).
	Alpha float64

	// Solver chooses the decomposition backend.
	Solver Solver

	// RandomState seeds the solver's random generator.
	RandomState uint64
}

// DefaultOptions returns the standard diffusion map configuration.
func DefaultOptions() Options {
	return Options{
		NComponents: 50,
		Rep:         "pca",
		Alpha:       0.5,
		Solver:      SolverRandomized,
		RandomState: 0,
	}
}

// Validate checks every recognized option.
func (o Options) Validate() error {
	if o.NComponents < 2 {
		return fmt.Errorf("diffmap: n_components must be at least 2, got %d", o.NComponents)
	}
	if o.Alpha < 0 || o.Alpha >= 1 {
		return fmt.Errorf("diffmap: alpha must be in [0, 1), got %g", o.Alpha)
	}
	if o.Rep == "" {
		return fmt.Errorf("diffmap: rep must not be empty")
	}
	if o.Solver != SolverRandomized && o.Solver != SolverEigsh {
		return fmt.Errorf("diffmap: unknown solver %q", o.Solver)
	}
	return nil
}
