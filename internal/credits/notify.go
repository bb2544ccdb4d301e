package credits

import (
	"context"
	"errors"

	"housesale_back_end/internal/models"
)

// Notifiers diffuse un règlement à plusieurs Notifier. Tous sont appelés,
// même si l'un d'eux échoue.
type Notifiers []Notifier

func (ns Notifiers) OrderSettled(ctx context.Context, order *models.CreditOrder, user *models.User) error {
	var errs []error
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.OrderSettled(ctx, order, user); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
