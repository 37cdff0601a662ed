package source

import (
	"context"

	"github.com/blackwidowglobal/dossier/internal/model"
)

// Fetcher is the contract every data-source adapter implements. A fetcher
// owns the protocol details (endpoints, pagination, auth) for one provider
// and returns raw records or a typed *model.SourceFailure. It must honor
// ctx for cancellation and must not touch shared state beyond its own
// network calls.
type Fetcher interface {
	// ID returns the stable source identifier
	ID() model.SourceID

	// Applicable reports whether this source has anything to say about the
	// subject kind (UCC debtor search does not apply to persons)
	Applicable(subject model.Subject) bool

	// Fetch queries the provider for the subject
	Fetch(ctx context.Context, subject model.Subject, cfg model.SourceConfig) ([]model.RawRecord, error)
}
