package session

import (
	"context"

	"github.com/ganot/inscritos/internal/domain/record"
)

// ObservationSource reads review notes of non-validated users.
type ObservationSource interface {
	Observations(ctx context.Context, run string) ([]record.Record, error)
}
