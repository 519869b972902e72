package store

// Store persists fitted models. Implementations must tolerate concurrent
// calls and report missing models with a NotFoundError so callers can
// test for it with errors.Is.
type Store interface {
	// SaveModel stores an artifact under modelID, replacing any previous
	// one. The write must be atomic so a crash cannot corrupt an
	// existing artifact.
	SaveModel(modelID string, artifact *ModelArtifact) error

	// LoadModel returns the artifact saved under modelID, or ErrNotFound.
	LoadModel(modelID string) (*ModelArtifact, error)

	// ListModels returns metadata for every stored model, without the
	// weight vectors.
	ListModels() ([]ModelInfo, error)

	// DeleteModel removes the artifact and everything stored with it
	// (the fitness trace included), or returns ErrNotFound.
	DeleteModel(modelID string) error
}

// ErrNotFound is returned when a requested model does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError names the model that was missing.
type NotFoundError struct {
	ModelID string
}

func (e *NotFoundError) Error() string {
	if e.ModelID != "" {
		return "model not found: " + e.ModelID
	}
	return "model not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
